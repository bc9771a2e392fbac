package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sir-timeline/timeline/internal/pipeline"
	"github.com/sir-timeline/timeline/internal/prompt"
	"github.com/sir-timeline/timeline/internal/version"
)

var syncFlags struct {
	version string
	date    string
	year    int
	yes     bool
}

func init() {
	f := syncCmd.Flags()
	f.StringVar(&syncFlags.version, "version", "", "release version, with or without the V. prefix (e.g. 1.58)")
	f.StringVar(&syncFlags.date, "date", "", "release date, DD/MM/YYYY")
	f.IntVar(&syncFlags.year, "year", 0, "release year")
	f.BoolVarP(&syncFlags.yes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(syncCmd)
}

// syncQuestion asks for the action the previewed tickets lead to.
func syncQuestion(req pipeline.Request, p *pipeline.Preview, path string) string {
	tag := version.Tag(req.Version)
	switch {
	case p.WorkItemsCount == 0 && p.Exists:
		return fmt.Sprintf("No work items carry %s. Remove it from %s?", tag, path)
	case p.WorkItemsCount == 0:
		return fmt.Sprintf("No work items carry %s. Continue?", tag)
	case p.Exists:
		return fmt.Sprintf("Replace %s (%s, %d) in %s with %d work items?", tag, req.Date, req.Year, path, p.WorkItemsCount)
	}
	return fmt.Sprintf("Add %s (%s, %d) to %s with %d work items?", tag, req.Date, req.Year, path, p.WorkItemsCount)
}

func interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync one release version from Azure DevOps into the document",
	Long: `Query Azure DevOps for the work items tagged V.<version> and write the
release record. When no work item carries the tag any more, the stored
record is removed. Missing flags are asked for on a terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		req := pipeline.Request{Version: syncFlags.version, Date: syncFlags.date, Year: syncFlags.year}

		tty := interactive()
		if req.Version == "" || req.Date == "" || req.Year == 0 {
			if !tty {
				return errors.New("--version, --date and --year are required when stdin is not a terminal")
			}
			var err error
			req, err = prompt.RunForm(ctx, os.Stdin, cmd.ErrOrStderr(), req)
			if err != nil {
				return err
			}
		}

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.close()

		if !syncFlags.yes && tty {
			p, err := a.pipeline.Preview(ctx, req.Version)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), prompt.RenderPreview(p))
			ok, err := prompt.Ask(ctx, os.Stdin, cmd.ErrOrStderr(), syncQuestion(req, p, a.store.Path()))
			if err != nil {
				return err
			}
			if !ok {
				return prompt.ErrCancelled
			}
		}

		res, err := a.pipeline.Sync(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), prompt.RenderResult(res))
		return nil
	},
}
