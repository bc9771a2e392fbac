package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sir-timeline/timeline/internal/devops"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the Azure DevOps connection and the local document",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.close()

		var failed bool
		if err := a.tracker.Ping(ctx); err != nil {
			failed = true
			hint := ""
			if devops.IsAuth(err) {
				hint = " (check the personal access token)"
			}
			fmt.Fprintf(out, "azure devops  FAIL  %v%s\n", err, hint)
		} else {
			fmt.Fprintf(out, "azure devops  ok    project %s\n", a.tracker.Project())
		}

		if coll, err := a.store.ReadAll(); err != nil {
			failed = true
			fmt.Fprintf(out, "document      FAIL  %v\n", err)
		} else {
			fmt.Fprintf(out, "document      ok    %s, %d releases\n", a.store.Path(), len(coll.Data))
		}

		if a.journal != nil {
			if err := a.journal.PingContext(ctx); err != nil {
				failed = true
				fmt.Fprintf(out, "journal       FAIL  %v\n", err)
			} else {
				fmt.Fprintf(out, "journal       ok    %s\n", a.cfg.DB.Path)
			}
		}

		if failed {
			return errors.New("connection check failed")
		}
		return nil
	},
}
