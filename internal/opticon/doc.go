// Package opticon parses Opticon-style image cross-reference files.
//
// Each line describes one scanned page: its Bates number, volume label, image
// path, and whether it starts a new logical document. Parsing is lenient: a
// malformed line is counted and skipped so that one corrupt row cannot abort
// ingestion of a multi-million line volume. Callers decide whether the error
// count is worth surfacing.
package opticon
