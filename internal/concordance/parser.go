package concordance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	// Thorn is the field separator and outer qualifier.
	Thorn = 'þ'
	// Qualifier is the control byte between two thorns.
	Qualifier = '\x14'
)

var delimiter = string([]rune{Thorn, Qualifier, Thorn})

// Record is one metadata row keyed by the declared columns, in header order.
type Record struct {
	columns []string
	values  []string
}

// NewRecord pads values with empty strings up to len(columns). Extra values
// beyond the declared columns are dropped.
func NewRecord(columns, values []string) Record {
	padded := make([]string, len(columns))
	copy(padded, values)
	return Record{columns: columns, values: padded}
}

// Get returns the value for column, or "" when the column is not declared.
func (r Record) Get(column string) string {
	for i, name := range r.columns {
		if name == column {
			return r.values[i]
		}
	}
	return ""
}

// Columns returns the declared column names in order.
func (r Record) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Values returns the record values in column order.
func (r Record) Values() []string {
	return append([]string(nil), r.values...)
}

// Fields returns the record as a column to value map.
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(r.columns))
	for i, name := range r.columns {
		out[name] = r.values[i]
	}
	return out
}

// File is a parsed metadata file.
type File struct {
	Columns []string
	Records []Record
}

// Parse reads a metadata file. Blank lines are skipped and short records are
// padded instead of rejected. Lines have no length limit.
func Parse(r io.Reader) (File, error) {
	var file File
	reader := bufio.NewReaderSize(r, 64*1024)

	lineNo := 0
	for {
		raw, readErr := reader.ReadString('\n')
		if raw == "" && errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return file, fmt.Errorf("read metadata line %d: %w", lineNo+1, readErr)
		}
		lineNo++
		raw = strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		line, err := decodeLine(raw)
		if err != nil {
			return file, fmt.Errorf("decode metadata line %d: %w", lineNo, err)
		}
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		values := SplitLine(line)
		if file.Columns == nil {
			file.Columns = values
			continue
		}
		file.Records = append(file.Records, NewRecord(file.Columns, values))
	}
	return file, nil
}

// SplitLine strips the outer thorns and splits on the wrapped delimiter.
func SplitLine(line string) []string {
	inner := strings.Trim(line, string(Thorn))
	return strings.Split(inner, delimiter)
}

func decodeLine(line string) (string, error) {
	if utf8.ValidString(line) {
		return line, nil
	}
	return charmap.ISO8859_1.NewDecoder().String(line)
}

// JoinLine renders values in the on-disk wrapped form. It is the inverse of
// SplitLine and is used to produce fixtures and exports.
func JoinLine(values []string) string {
	return string(Thorn) + strings.Join(values, delimiter) + string(Thorn)
}
