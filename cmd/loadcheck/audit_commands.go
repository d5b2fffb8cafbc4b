package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"loadcheck/internal/audit"
	"loadcheck/internal/report"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect recorded runs and discrepancies",
	}
	auditCmd.AddCommand(newAuditRunsCommand(ctx))
	auditCmd.AddCommand(newAuditShowCommand(ctx))
	auditCmd.AddCommand(newAuditDiscrepanciesCommand(ctx))
	return auditCmd
}

func newAuditRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAudit(func(store *audit.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ShortID(),
						humanize.Time(run.StartedAt),
						run.Mode.String(),
						datasetFilterLabel(run.DatasetFilter),
						string(run.Status),
						strconv.Itoa(run.Datasets),
						strconv.Itoa(run.Invalid),
						strconv.Itoa(run.Failed),
						report.Count(run.Discrepancies),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{textCol("Run"), textCol("Started"), textCol("Mode"), numCol("DS"), textCol("Status"), numCol("Datasets"), numCol("Invalid"), numCol("Failed"), numCol("Discrepancies")},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newAuditShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [run]",
		Short: "Show dataset and reconciliation results for a run (default: latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAudit(func(store *audit.Store) error {
				runID, err := store.ResolveRunID(cmd.Context(), firstArg(args))
				if err != nil {
					return err
				}
				datasets, err := store.ListDatasetResults(cmd.Context(), runID)
				if err != nil {
					return err
				}
				reconciled, err := store.ListReconcile(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), struct {
						RunID     string                  `json:"run_id"`
						Datasets  []audit.DatasetResult   `json:"datasets"`
						Reconcile []audit.ReconcileResult `json:"reconcile"`
					}{runID, datasets, reconciled})
				}

				out := cmd.OutOrStdout()
				colors := newPalette(out)
				for _, line := range colors.heading("Run "+runID) {
					fmt.Fprintln(out, line)
				}

				rows := make([][]string, 0, len(datasets))
				for _, ds := range datasets {
					status := colors.good("valid")
					switch {
					case ds.Error != "":
						status = colors.bad("failed")
					case !ds.Valid:
						status = colors.warn("mismatch")
					}
					rows = append(rows, []string{
						strconv.Itoa(ds.Dataset),
						report.Count(ds.Pages),
						report.Count(ds.Documents),
						report.Count(ds.Records),
						report.Count(ds.ParseErrors),
						status,
						truncate(ds.Error, 60),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{numCol("DS"), numCol("Pages"), numCol("Docs"), numCol("Records"), numCol("Errors"), textCol("Status"), textCol("Error")},
					rows,
				))

				if len(reconciled) == 0 {
					return nil
				}
				fmt.Fprintln(out)
				for _, line := range colors.heading("Reconciliation") {
					fmt.Fprintln(out, line)
				}
				rows = rows[:0]
				for _, res := range reconciled {
					remote := "-"
					if res.Remote != nil {
						remote = report.Count(*res.Remote)
					}
					rows = append(rows, []string{
						strconv.Itoa(res.Dataset),
						string(res.Mode),
						remote,
						report.Count(res.Local),
						res.State,
						report.Count(res.Rows),
						strconv.Itoa(res.Calls),
						strconv.Itoa(res.Failures),
						strconv.Itoa(res.SpotMismatches),
						truncate(res.Error, 60),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{numCol("DS"), textCol("Mode"), numCol("Remote"), numCol("Local"), textCol("State"), numCol("Updated"), numCol("Calls"), numCol("Failures"), numCol("Spot"), textCol("Error")},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newAuditDiscrepanciesCommand(ctx *commandContext) *cobra.Command {
	var datasetFilter int
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "discrepancies [run]",
		Short: "List cross-validation discrepancies for a run (default: latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAudit(func(store *audit.Store) error {
				runID, err := store.ResolveRunID(cmd.Context(), firstArg(args))
				if err != nil {
					return err
				}
				records, err := store.ListDiscrepancies(cmd.Context(), runID, datasetFilter, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), records)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintf(out, "No discrepancies recorded for run %s\n", runID)
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						strconv.Itoa(rec.Dataset),
						string(rec.Kind),
						strconv.Itoa(rec.Position),
						rangeLabel(rec.DocumentStart, rec.DocumentEnd, rec.Documents),
						rangeLabel(rec.MetadataBegin, rec.MetadataEnd, rec.Records),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{numCol("DS"), textCol("Kind"), numCol("Position"), textCol("Documents"), textCol("Metadata")},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&datasetFilter, "dataset", 0, "Restrict to one dataset")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum rows (default: all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func datasetFilterLabel(ds int) string {
	if ds == 0 {
		return "all"
	}
	return strconv.Itoa(ds)
}

// rangeLabel shows a boundary pair, or the total for count discrepancies.
func rangeLabel(begin, end string, total int) string {
	if begin == "" && end == "" {
		return report.Count(total) + " total"
	}
	return begin + " - " + end
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
