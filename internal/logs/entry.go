package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"loadcheck/internal/logging"
)

// Entry is one parsed JSON log record.
type Entry struct {
	Time      string
	Level     string
	Message   string
	Component string
	RunID     string
	Dataset   int
	Fields    map[string]string
}

var reservedKeys = map[string]struct{}{
	"ts":                   {},
	"level":                {},
	"msg":                  {},
	"source":               {},
	logging.FieldComponent: {},
	logging.FieldRunID:     {},
	logging.FieldDataset:   {},
}

// ParseEntry decodes a JSON log line. Lines that are not JSON objects are
// reported as not ok.
func ParseEntry(line string) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	entry := Entry{
		Time:      stringField(raw["ts"]),
		Level:     strings.ToLower(stringField(raw["level"])),
		Message:   stringField(raw["msg"]),
		Component: stringField(raw[logging.FieldComponent]),
		RunID:     stringField(raw[logging.FieldRunID]),
		Dataset:   intField(raw[logging.FieldDataset]),
		Fields:    make(map[string]string),
	}
	for key, value := range raw {
		if _, skip := reservedKeys[key]; skip {
			continue
		}
		entry.Fields[key] = stringField(value)
	}
	return entry, true
}

// Filter selects entries. Zero values match everything.
type Filter struct {
	// RunID matches by prefix so short IDs from `audit runs` work.
	RunID   string
	Dataset int
	// MinLevel is a level name such as "warn"; empty admits all levels.
	MinLevel string
}

// Match reports whether line passes the filter. Non-JSON lines only pass an
// empty filter.
func (f Filter) Match(line string) bool {
	if f.empty() {
		return true
	}
	entry, ok := ParseEntry(line)
	if !ok {
		return false
	}
	if f.RunID != "" && !strings.HasPrefix(entry.RunID, f.RunID) {
		return false
	}
	if f.Dataset != 0 && entry.Dataset != f.Dataset {
		return false
	}
	if f.MinLevel != "" && logging.ParseLevel(entry.Level) < logging.ParseLevel(f.MinLevel) {
		return false
	}
	return true
}

func (f Filter) empty() bool {
	return f.RunID == "" && f.Dataset == 0 && f.MinLevel == ""
}

// Format renders entry as one console line.
func Format(entry Entry) string {
	var b strings.Builder
	if entry.Time != "" {
		b.WriteString(entry.Time)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(entry.Level))
	if entry.Component != "" {
		fmt.Fprintf(&b, " [%s]", entry.Component)
	}
	dataset := ""
	if entry.Dataset != 0 {
		dataset = strconv.Itoa(entry.Dataset)
	}
	if subject := logging.FormatSubject(entry.RunID, dataset); subject != "" {
		b.WriteString(" " + subject)
	}
	b.WriteString(" - " + entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for key := range entry.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, entry.Fields[key])
	}
	return b.String()
}

func stringField(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

func intField(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}
