package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sir-timeline/timeline/internal/prompt"
	"github.com/sir-timeline/timeline/internal/report"
)

var reportFlags struct {
	year   int
	months []int
	output string
}

func init() {
	f := reportCmd.Flags()
	f.IntVar(&reportFlags.year, "year", time.Now().Year(), "year to report on")
	f.IntSliceVar(&reportFlags.months, "months", nil, "restrict to these months, e.g. 5,6,7")
	f.StringVarP(&reportFlags.output, "output", "o", outputTable, "output format: table, json or yaml")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Count requirements and defects per month and country",
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
		counter, err := report.New(a.mapper.Labels())
		if err != nil {
			return err
		}
		s, err := counter.Monthly(coll, reportFlags.year, reportFlags.months)
		if err != nil {
			return err
		}

		if reportFlags.output == outputTable {
			fmt.Fprintln(cmd.OutOrStdout(), prompt.RenderReport(s))
			return nil
		}
		return writeOutput(cmd.OutOrStdout(), reportFlags.output, s)
	},
}
