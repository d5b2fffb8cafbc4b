package main

import (
	"encoding/json"
	"io"
)

// writeJSON encodes v as indented JSON. Error strings and filenames are left
// unescaped so they read the same as the table output.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
