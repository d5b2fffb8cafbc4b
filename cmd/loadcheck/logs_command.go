package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loadcheck/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var raw bool
	var lines int
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter.RunID = strings.TrimSpace(filter.RunID)
			filter.MinLevel = strings.ToLower(strings.TrimSpace(filter.MinLevel))

			limit := max(lines, 0)
			offset := int64(-1)
			if limit == 0 {
				offset = 0
			}
			out := cmd.OutOrStdout()
			printed := false

			for {
				result, err := logs.Tail(cmd.Context(), cfg.LogFilePath(), logs.TailOptions{
					Offset: offset,
					Limit:  limit,
					Follow: follow,
					Wait:   time.Second,
					Filter: filter,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range result.Lines {
					printLogLine(out, line, raw)
					printed = true
				}
				offset = result.Offset
				limit = 0
				if !follow {
					if !printed {
						fmt.Fprintln(out, "No log entries available")
					}
					return nil
				}
				if cmd.Context().Err() != nil {
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON lines unformatted")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "Only show entries for this run ID (prefix)")
	cmd.Flags().IntVar(&filter.Dataset, "dataset", 0, "Only show entries for this dataset")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level: debug, info, warn, error")
	return cmd
}

func printLogLine(w io.Writer, line string, raw bool) {
	if raw {
		fmt.Fprintln(w, line)
		return
	}
	entry, ok := logs.ParseEntry(line)
	if !ok {
		fmt.Fprintln(w, line)
		return
	}
	fmt.Fprintln(w, logs.Format(entry))
}
