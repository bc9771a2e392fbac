package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sir-timeline/timeline/internal/pipeline"
	"github.com/sir-timeline/timeline/internal/version"
)

var removeVersion string

func init() {
	removeCmd.Flags().StringVar(&removeVersion, "version", "", "release version to remove")
	rootCmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a release record without asking Azure DevOps",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !version.Valid(removeVersion) {
			return errors.New("--version is required and must be dotted numbers")
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		started := time.Now()
		key := version.Normalize(removeVersion)
		removed, err := a.store.Remove(key)
		if err != nil {
			return err
		}
		if !removed {
			a.recordRun(ctx, key, pipeline.ActionNoop, started)
			fmt.Fprintf(cmd.OutOrStdout(), "Version %s is not stored, nothing to do.\n", key)
			return nil
		}

		a.recordRun(ctx, key, pipeline.ActionRemoved, started)
		a.publish(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "Removed version %s.\n", key)
		return nil
	},
}
