package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"loadcheck/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, datastore access, and cached load files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var pinger preflight.Pinger
			if cfg.RemoteConfigured() {
				pinger = newDatastoreClient(cfg)
			}
			results := preflight.RunAll(cmd.Context(), cfg, pinger)

			colors := newPalette(cmd.OutOrStdout())
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, checkLabel(r, colors), r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{textCol("Check"), textCol("Status"), textCol("Detail")},
				rows,
			))

			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}

func checkLabel(r preflight.Result, colors palette) string {
	switch {
	case r.Passed:
		return colors.good("ok")
	case r.Skipped:
		return colors.warn("skip")
	default:
		return colors.bad("FAIL")
	}
}
