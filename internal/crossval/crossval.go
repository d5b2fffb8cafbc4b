// Package crossval checks that documents assembled from an image index agree
// with the records of the matching metadata file.
//
// Agreement is positional and exact: same number of entries, and for every
// index the document's first and last Bates numbers equal the record's begin
// and end values. Nothing is corrected here; discrepancies are reported so a
// human can decide what to do.
package crossval

import (
	"fmt"

	"loadcheck/internal/concordance"
	"loadcheck/internal/documents"
)

// Columns names the metadata columns holding document boundaries.
type Columns struct {
	Begin string
	End   string
}

// DefaultColumns matches the DOJ Concordance exports.
var DefaultColumns = Columns{Begin: "Begin Bates", End: "End Bates"}

// Kind classifies a discrepancy.
type Kind string

const (
	// KindCount means the two files disagree on how many documents exist.
	KindCount Kind = "count"
	// KindBoundary means a positional pair disagrees on begin or end.
	KindBoundary Kind = "boundary"
)

// Discrepancy is one disagreement between the two files. For KindCount the
// position is the first index where the common prefix diverges, or -1 when the
// shorter list agrees entirely with the longer one.
type Discrepancy struct {
	Kind          Kind
	Position      int
	DocumentStart string
	DocumentEnd   string
	MetadataBegin string
	MetadataEnd   string
	Documents     int
	Records       int
}

func (d Discrepancy) String() string {
	switch d.Kind {
	case KindCount:
		return fmt.Sprintf("count mismatch: %d documents vs %d metadata records (first divergence at %d)", d.Documents, d.Records, d.Position)
	default:
		return fmt.Sprintf("#%d: document %s-%s vs metadata %s-%s", d.Position, d.DocumentStart, d.DocumentEnd, d.MetadataBegin, d.MetadataEnd)
	}
}

// Result is the outcome of a validation.
type Result struct {
	Valid         bool
	Documents     int
	Records       int
	Discrepancies []Discrepancy
}

// CountMismatch reports whether the result carries a count discrepancy.
func (r Result) CountMismatch() bool {
	for _, d := range r.Discrepancies {
		if d.Kind == KindCount {
			return true
		}
	}
	return false
}

// Validate compares documents with metadata records position by position.
// Pairs are only compared individually when the counts agree; a count
// mismatch shifts every later pair, so it is reported once together with
// the first index where the lists stop agreeing.
func Validate(docs []documents.Document, records []concordance.Record, cols Columns) Result {
	result := Result{Documents: len(docs), Records: len(records)}

	if len(docs) != len(records) {
		result.Discrepancies = append(result.Discrepancies, Discrepancy{
			Kind:      KindCount,
			Position:  firstDivergence(docs, records, cols),
			Documents: len(docs),
			Records:   len(records),
		})
		return result
	}

	for i := range docs {
		begin := records[i].Get(cols.Begin)
		end := records[i].Get(cols.End)
		if docs[i].StartBates == begin && docs[i].EndBates == end {
			continue
		}
		result.Discrepancies = append(result.Discrepancies, Discrepancy{
			Kind:          KindBoundary,
			Position:      i,
			DocumentStart: docs[i].StartBates,
			DocumentEnd:   docs[i].EndBates,
			MetadataBegin: begin,
			MetadataEnd:   end,
			Documents:     len(docs),
			Records:       len(records),
		})
	}
	result.Valid = len(result.Discrepancies) == 0
	return result
}

func firstDivergence(docs []documents.Document, records []concordance.Record, cols Columns) int {
	n := min(len(docs), len(records))
	for i := 0; i < n; i++ {
		if docs[i].StartBates != records[i].Get(cols.Begin) || docs[i].EndBates != records[i].Get(cols.End) {
			return i
		}
	}
	return -1
}
