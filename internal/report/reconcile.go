package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"loadcheck/internal/crossval"
	"loadcheck/internal/reconcile"
)

const defaultDiscrepancyLimit = 20

// RenderVerify writes the remote count comparison and spot-check summary.
func RenderVerify(w io.Writer, rep reconcile.VerifyReport, opts Options) error {
	var b strings.Builder
	b.WriteString("\nDATABASE VERIFICATION\n")

	tw := newTable()
	tw.AppendHeader(table.Row{"DS", "Remote", "Local", "Status"})
	for _, row := range rep.Rows {
		tw.AppendRow(table.Row{
			strconv.Itoa(row.Dataset),
			Count(row.Remote),
			Count(row.Local),
			statusLabel(row.Match(), opts.Colorize),
		})
	}
	tw.AppendFooter(table.Row{"TOT", Count(rep.RemoteTotal), Count(rep.LocalTotal), ""})
	tw.SetColumnConfigs(rightAligned(1, 2, 3))
	b.WriteString(tw.Render())
	b.WriteString("\n")

	for _, ds := range rep.Skipped {
		fmt.Fprintf(&b, "  DS%d: not in datasets table, skipped\n", ds)
	}
	for _, failure := range rep.Failed {
		fmt.Fprintf(&b, "  DS%d: remote count failed: %v\n", failure.Dataset, failure.Err)
	}

	if mismatches := rep.Mismatches(); len(mismatches) > 0 {
		b.WriteString("\n  MISMATCHES:\n")
		for _, row := range mismatches {
			fmt.Fprintf(&b, "    DS%d: remote=%s, local=%s (diff: %s)\n",
				row.Dataset, Count(row.Remote), Count(row.Local), Printer.Sprintf("%+d", row.Difference()))
		}
	} else if len(rep.Rows) > 0 {
		fmt.Fprintf(&b, "\n  All %d datasets match.\n", len(rep.Rows))
	}

	b.WriteString("\nPAGE COUNT SPOT CHECKS\n")
	checked, issues, unknown := 0, 0, 0
	for _, row := range rep.Rows {
		for _, check := range row.SpotChecks {
			checked += check.Checked
			for _, m := range check.Mismatches {
				issues++
				fmt.Fprintf(&b, "  DS%d %s: remote=%d, local=%d MISMATCH\n", row.Dataset, m.Filename, m.Remote, m.Local)
			}
			for _, u := range check.Unknown {
				unknown++
				fmt.Fprintf(&b, "  DS%d %s: remote=%d, local=unknown\n", row.Dataset, u.Filename, u.Remote)
			}
		}
		if row.SpotErr != nil {
			fmt.Fprintf(&b, "  DS%d: spot check failed: %v\n", row.Dataset, row.SpotErr)
		}
	}
	if issues == 0 {
		fmt.Fprintf(&b, "  All %d spot checks passed.\n", checked)
	} else {
		fmt.Fprintf(&b, "  %d/%d page count mismatches found.\n", issues, checked)
	}
	if unknown > 0 {
		fmt.Fprintf(&b, "  %d sampled documents not found locally.\n", unknown)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderUpdate writes the per-dataset outcome of update mode.
func RenderUpdate(w io.Writer, rep reconcile.UpdateReport, opts Options) error {
	var b strings.Builder
	b.WriteString("\nDATABASE UPDATE\n")

	tw := newTable()
	tw.AppendHeader(table.Row{"DS", "Updated", "Batches", "Calls", "Failures", "Elapsed", "State"})
	total := 0
	for _, res := range rep.Results {
		total += res.Rows
		tw.AppendRow(table.Row{
			strconv.Itoa(res.Dataset),
			Count(res.Rows),
			Count(res.Batches),
			Count(res.Calls),
			Count(res.Failures),
			res.Elapsed.Round(100 * time.Millisecond).String(),
			stateLabel(res.State, opts.Colorize),
		})
	}
	tw.AppendFooter(table.Row{"TOT", Count(total), "", "", "", "", ""})
	tw.SetColumnConfigs(rightAligned(1, 2, 3, 4, 5))
	b.WriteString(tw.Render())
	b.WriteString("\n")

	for _, ds := range rep.Skipped {
		fmt.Fprintf(&b, "  DS%d: not in datasets table, skipped\n", ds)
	}
	for _, res := range rep.Partial() {
		fmt.Fprintf(&b, "  DS%d: stopped after %d consecutive failures (last error: %v)\n", res.Dataset, res.Failures, res.Err)
	}
	fmt.Fprintf(&b, "\n  TOTAL: %s documents updated\n", Count(total))

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderDiscrepancies lists up to limit discrepancies for one dataset; a
// non-positive limit takes the default.
func RenderDiscrepancies(w io.Writer, dataset int, discrepancies []crossval.Discrepancy, limit int) error {
	if len(discrepancies) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = defaultDiscrepancyLimit
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\nDS%d discrepancies (%s):\n", dataset, Count(len(discrepancies)))
	for i, d := range discrepancies {
		if i == limit {
			fmt.Fprintf(&b, "  ... %s more (loadcheck audit discrepancies --dataset %d)\n", Count(len(discrepancies)-limit), dataset)
			break
		}
		fmt.Fprintf(&b, "  %s\n", d)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func statusLabel(ok, colorize bool) string {
	label, color := "MISMATCH", text.FgRed
	if ok {
		label, color = "OK", text.FgGreen
	}
	if !colorize {
		return label
	}
	return color.Sprint(label)
}

func stateLabel(state reconcile.State, colorize bool) string {
	label := state.String()
	if !colorize {
		return label
	}
	switch state {
	case reconcile.StateDone:
		return text.FgGreen.Sprint(label)
	case reconcile.StateAborted:
		return text.FgYellow.Sprint(label)
	default:
		return label
	}
}
