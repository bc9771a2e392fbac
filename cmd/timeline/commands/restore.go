package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sir-timeline/timeline/internal/pipeline"
	"github.com/sir-timeline/timeline/internal/store"
)

func init() {
	rootCmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local document with the copy mirrored in S3",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		if a.mirror == nil {
			return errors.New("no mirror configured, set s3.bucket")
		}

		started := time.Now()
		data, err := a.mirror.GetDocument(ctx)
		if err != nil {
			return err
		}
		coll, err := store.Decode(data)
		if err != nil {
			return fmt.Errorf("mirrored document: %w", err)
		}
		if err := a.store.Replace(coll); err != nil {
			return err
		}

		for _, rec := range coll.Data {
			a.recordRun(ctx, rec.Version, pipeline.ActionRestored, started)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %d releases from %s into %s.\n", len(coll.Data), a.mirror.Location(), a.store.Path())
		return nil
	},
}
