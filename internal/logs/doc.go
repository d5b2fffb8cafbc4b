// Package logs reads back the JSON log file that every loadcheck run appends
// to, for the `loadcheck logs` command.
//
// Tail returns the last N matching lines (or everything after an offset) with
// bounded memory, and in follow mode polls for new lines until a deadline or
// context cancellation. Filters select one run, one dataset, or a minimum
// level; Format renders a parsed entry as a single console line.
package logs
