package report

import (
	"cmp"
	"slices"

	"loadcheck/internal/concordance"
	"loadcheck/internal/crossval"
	"loadcheck/internal/documents"
)

const unknownBates = "?"

// DatasetReport summarizes one dataset.
type DatasetReport struct {
	Dataset       int
	Pages         int
	Documents     int
	Records       int
	Columns       []string
	Valid         bool
	MultiPage     int
	MaxPages      int
	FirstBates    string
	LastBates     string
	ParseErrors   int
	Discrepancies int
	OPTBytes      int64
	DATBytes      int64
}

// AveragePages returns pages per document, or zero for an empty dataset.
func (r DatasetReport) AveragePages() float64 {
	if r.Documents == 0 {
		return 0
	}
	return float64(r.Pages) / float64(r.Documents)
}

// Input bundles what Build needs for one dataset.
type Input struct {
	Dataset     int
	Pages       int
	ParseErrors int
	Documents   []documents.Document
	Metadata    concordance.File
	Validation  crossval.Result
	OPTBytes    int64
	DATBytes    int64
}

// Build aggregates one dataset.
func Build(in Input) DatasetReport {
	r := DatasetReport{
		Dataset:       in.Dataset,
		Pages:         in.Pages,
		Documents:     len(in.Documents),
		Records:       len(in.Metadata.Records),
		Columns:       append([]string(nil), in.Metadata.Columns...),
		Valid:         in.Validation.Valid,
		MultiPage:     documents.MultiPage(in.Documents),
		MaxPages:      documents.MaxPages(in.Documents),
		FirstBates:    unknownBates,
		LastBates:     unknownBates,
		ParseErrors:   in.ParseErrors,
		Discrepancies: len(in.Validation.Discrepancies),
		OPTBytes:      in.OPTBytes,
		DATBytes:      in.DATBytes,
	}
	if n := len(in.Documents); n > 0 {
		r.FirstBates = in.Documents[0].StartBates
		r.LastBates = in.Documents[n-1].EndBates
	}
	return r
}

// Totals sums the numeric columns of several reports.
type Totals struct {
	Pages     int
	Documents int
	MultiPage int
	Records   int
}

// AveragePages returns pages per document across all datasets.
func (t Totals) AveragePages() float64 {
	if t.Documents == 0 {
		return 0
	}
	return float64(t.Pages) / float64(t.Documents)
}

// Sum totals the reports.
func Sum(reports []DatasetReport) Totals {
	var t Totals
	for _, r := range reports {
		t.Pages += r.Pages
		t.Documents += r.Documents
		t.MultiPage += r.MultiPage
		t.Records += r.Records
	}
	return t
}

// Columns returns the sorted, deduplicated union of metadata columns.
func Columns(reports []DatasetReport) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range reports {
		for _, col := range r.Columns {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			out = append(out, col)
		}
	}
	slices.Sort(out)
	return out
}

// OnlyBoundaryColumns reports whether the union of columns is exactly the
// begin and end boundary columns.
func OnlyBoundaryColumns(columns []string, cols crossval.Columns) bool {
	if len(columns) != 2 {
		return false
	}
	return slices.Contains(columns, cols.Begin) && slices.Contains(columns, cols.End)
}

// Bucket is one page-count range of the distribution.
type Bucket struct {
	Label   string
	Min     int
	Max     int
	Count   int
	Percent float64
}

var bucketRanges = []Bucket{
	{Label: "1 page", Min: 1, Max: 1},
	{Label: "2-5 pages", Min: 2, Max: 5},
	{Label: "6-10 pages", Min: 6, Max: 10},
	{Label: "11-50 pages", Min: 11, Max: 50},
	{Label: "51-100 pages", Min: 51, Max: 100},
	{Label: "101-500 pages", Min: 101, Max: 500},
	{Label: "501-1000 pages", Min: 501, Max: 1000},
	{Label: "1001+ pages", Min: 1001, Max: int(^uint(0) >> 1)},
}

// Distribution buckets documents by page count.
func Distribution(docs []documents.Document) []Bucket {
	out := make([]Bucket, len(bucketRanges))
	copy(out, bucketRanges)
	for _, doc := range docs {
		for i := range out {
			if doc.PageCount >= out[i].Min && doc.PageCount <= out[i].Max {
				out[i].Count++
				break
			}
		}
	}
	if len(docs) > 0 {
		for i := range out {
			out[i].Percent = float64(out[i].Count) / float64(len(docs)) * 100
		}
	}
	return out
}

// Largest returns the n documents with the most pages. Ties keep input order.
func Largest(docs []documents.Document, n int) []documents.Document {
	sorted := slices.Clone(docs)
	slices.SortStableFunc(sorted, func(a, b documents.Document) int {
		return cmp.Compare(b.PageCount, a.PageCount)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
