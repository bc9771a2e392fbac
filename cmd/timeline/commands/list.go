package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sir-timeline/timeline/internal/prompt"
)

var listOutput string

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", outputTable, "output format: table, json or yaml")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored releases in version order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.close()

		coll, err := a.store.ReadAll()
		if err != nil {
			return err
		}
		if listOutput == outputTable {
			fmt.Fprintln(cmd.OutOrStdout(), prompt.RenderReleases(coll))
			return nil
		}
		return writeOutput(cmd.OutOrStdout(), listOutput, coll)
	},
}
