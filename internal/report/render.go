package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"loadcheck/internal/crossval"
	"loadcheck/internal/documents"
)

const defaultTopN = 10

// Options controls Render output.
type Options struct {
	// Colorize wraps match markers in ANSI colours.
	Colorize bool
	// TopN is the number of largest documents to list; zero means ten.
	TopN int
	// Columns names the boundary columns for the metadata note.
	Columns crossval.Columns
}

// Printer formats integers with thousands separators.
var Printer = message.NewPrinter(language.English)

// Count formats n with thousands separators.
func Count(n int) string {
	return Printer.Sprintf("%d", n)
}

// Render writes the parse report for the given datasets.
func Render(w io.Writer, reports []DatasetReport, docs []documents.Document, opts Options) error {
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}
	if opts.Columns == (crossval.Columns{}) {
		opts.Columns = crossval.DefaultColumns
	}
	sorted := slices.Clone(reports)
	slices.SortFunc(sorted, func(a, b DatasetReport) int { return a.Dataset - b.Dataset })

	var b strings.Builder
	b.WriteString("CONCORDANCE OPT/DAT PARSE REPORT\n")
	b.WriteString(datasetTable(sorted, opts))
	b.WriteString("\n\n")

	columns := Columns(sorted)
	fmt.Fprintf(&b, "DAT columns across all datasets: %s\n", strings.Join(quoteAll(columns), ", "))
	if OnlyBoundaryColumns(columns, opts.Columns) {
		b.WriteString("  NOTE: All DAT files contain only Begin/End Bates.\n")
		b.WriteString("  No rich metadata (dates, custodians, subjects) in Concordance files.\n")
	}

	b.WriteString("\nPage count distribution:\n")
	b.WriteString(distributionTable(Distribution(docs)))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Top %d largest documents:\n", opts.TopN)
	b.WriteString(largestTable(Largest(docs, opts.TopN)))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func datasetTable(reports []DatasetReport, opts Options) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"DS", "Pages", "Docs", "Multi-pg", "Max", "Avg", "Errors", "Match", "Bates Range"})
	for _, r := range reports {
		tw.AppendRow(table.Row{
			strconv.Itoa(r.Dataset),
			Count(r.Pages),
			Count(r.Documents),
			Count(r.MultiPage),
			Count(r.MaxPages),
			Printer.Sprintf("%.1f", r.AveragePages()),
			Count(r.ParseErrors),
			matchLabel(r.Valid, opts.Colorize),
			r.FirstBates + " - " + r.LastBates,
		})
	}
	t := Sum(reports)
	tw.AppendFooter(table.Row{"TOT", Count(t.Pages), Count(t.Documents), Count(t.MultiPage), "", Printer.Sprintf("%.1f", t.AveragePages()), "", "", ""})
	tw.SetColumnConfigs(rightAligned(1, 2, 3, 4, 5, 6, 7))
	return tw.Render()
}

func distributionTable(buckets []Bucket) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Range", "Docs", "Share", ""})
	for _, bucket := range buckets {
		tw.AppendRow(table.Row{
			bucket.Label,
			Count(bucket.Count),
			fmt.Sprintf("%.1f%%", bucket.Percent),
			strings.Repeat("#", int(bucket.Percent/2)),
		})
	}
	tw.SetColumnConfigs(rightAligned(1, 2, 3))
	return tw.Render()
}

func largestTable(docs []documents.Document) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"#", "Filename", "Pages", "Bates Range"})
	for i, doc := range docs {
		tw.AppendRow(table.Row{
			strconv.Itoa(i + 1),
			doc.Filename,
			Count(doc.PageCount),
			doc.StartBates + "-" + doc.EndBates,
		})
	}
	tw.SetColumnConfigs(rightAligned(1, 3))
	return tw.Render()
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

func rightAligned(columns ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, len(columns))
	for _, col := range columns {
		configs = append(configs, table.ColumnConfig{
			Number:      col,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
			AlignFooter: text.AlignRight,
		})
	}
	return configs
}

func matchLabel(valid, colorize bool) string {
	label, color := "NO", text.FgRed
	if valid {
		label, color = "YES", text.FgGreen
	}
	if !colorize {
		return label
	}
	return color.Sprint(label)
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Quote(v)
	}
	return out
}
