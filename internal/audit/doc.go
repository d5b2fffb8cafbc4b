// Package audit persists what each loadcheck run found: the datasets it
// processed, every cross-validation discrepancy, and the outcome of verify and
// update reconciliation. Records live in a SQLite database under the log
// directory, keyed by a per-run UUID, so mismatches can be reviewed after the
// console output is gone.
package audit
