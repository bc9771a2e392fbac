package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sir-timeline/timeline/internal/prompt"
)

var previewFlags struct {
	version string
	json    bool
}

func init() {
	previewCmd.Flags().StringVar(&previewFlags.version, "version", "", "release version (e.g. 1.58)")
	previewCmd.Flags().BoolVar(&previewFlags.json, "json", false, "print the preview as JSON")
	rootCmd.AddCommand(previewCmd)
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show what a sync would write without changing the document",
	RunE: func(cmd *cobra.Command, args []string) error {
		if previewFlags.version == "" {
			return errors.New("--version is required")
		}
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.close()

		p, err := a.pipeline.Preview(cmd.Context(), previewFlags.version)
		if err != nil {
			return err
		}
		if previewFlags.json {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		fmt.Fprintln(cmd.OutOrStdout(), prompt.RenderPreview(p))
		return nil
	},
}
