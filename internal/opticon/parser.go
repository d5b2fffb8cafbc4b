package opticon

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	minFields         = 4
	fieldBates        = 0
	fieldVolume       = 1
	fieldImagePath    = 2
	fieldDocBreak     = 3
	fieldPageCount    = 6
	maxLineBytes      = 1 << 20
	maxRejectedSample = 20
)

// Outcome classifies a single parsed line.
type Outcome int

const (
	// Parsed means the line produced a PageRecord.
	Parsed Outcome = iota
	// Blank lines carry no data and are not errors.
	Blank
	// Rejected lines are malformed and count towards Result.Errors.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Blank:
		return "blank"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Rejection describes a malformed line.
type Rejection struct {
	Line   int
	Reason string
	Raw    string
}

// Result is the outcome of parsing a whole file.
type Result struct {
	Pages []PageRecord
	// Errors counts every rejected line.
	Errors int
	// Rejected keeps the first few rejected lines for diagnostics.
	Rejected []Rejection
}

// ParseLine parses one line of an image cross-reference file.
func ParseLine(line string) (PageRecord, Outcome) {
	record, outcome, _ := parseLine(line)
	return record, outcome
}

func parseLine(line string) (PageRecord, Outcome, string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return PageRecord{}, Blank, ""
	}
	fields := splitFields(trimmed)
	if len(fields) < minFields {
		return PageRecord{}, Rejected, fmt.Sprintf("expected at least %d fields, got %d", minFields, len(fields))
	}
	record, err := NewPageRecord(
		fields[fieldBates],
		fields[fieldVolume],
		fields[fieldImagePath],
		fields[fieldDocBreak] == "Y",
		pageCountHint(fields),
	)
	if err != nil {
		return PageRecord{}, Rejected, err.Error()
	}
	return record, Parsed, ""
}

// splitFields splits on commas outside double-quoted sections and drops the
// quote characters themselves.
func splitFields(line string) []string {
	fields := make([]string, 0, 7)
	var current strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, current.String())
}

func pageCountHint(fields []string) int {
	if len(fields) <= fieldPageCount || fields[fieldPageCount] == "" {
		return 1
	}
	raw := fields[fieldPageCount]
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 1
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return n
}

// Parse reads every line from r in order. The returned error is reserved for
// read failures; malformed lines, including lines longer than maxLineBytes,
// are reported through Result.Errors.
func Parse(r io.Reader) (Result, error) {
	var result Result
	reader := bufio.NewReaderSize(r, 64*1024)

	lineNo := 0
	for {
		raw, tooLong, err := readLine(reader, maxLineBytes)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read opticon line %d: %w", lineNo+1, err)
		}
		lineNo++
		if tooLong {
			result.reject(Rejection{Line: lineNo, Reason: fmt.Sprintf("line exceeds %d bytes", maxLineBytes)})
			continue
		}
		line := string(raw)
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if !utf8.ValidString(line) {
			line = strings.ToValidUTF8(line, "\ufffd")
		}
		record, outcome, reason := parseLine(line)
		switch outcome {
		case Parsed:
			result.Pages = append(result.Pages, record)
		case Rejected:
			result.reject(Rejection{Line: lineNo, Reason: reason, Raw: line})
		case Blank:
		}
	}
	return result, nil
}

func (r *Result) reject(rejection Rejection) {
	r.Errors++
	if len(r.Rejected) < maxRejectedSample {
		r.Rejected = append(r.Rejected, rejection)
	}
}

// readLine returns the next line without its terminator. Once a line grows
// past limit the rest of it is drained and tooLong is set. io.EOF is only
// returned when no bytes remain.
func readLine(reader *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	read := false
	for {
		chunk, err := reader.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
			if !tooLong {
				if len(line)+len(chunk) > limit+2 {
					tooLong = true
					line = nil
				} else {
					line = append(line, chunk...)
				}
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && read:
			return trimEOL(line), tooLong, nil
		case err != nil:
			return nil, false, err
		}
		return trimEOL(line), tooLong, nil
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
