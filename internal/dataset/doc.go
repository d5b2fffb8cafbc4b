// Package dataset runs the per-dataset pipeline: obtain the OPT/DAT pair,
// parse both files, assemble documents, cross-validate and summarize.
//
// Datasets share no mutable state, so Runner may process several at once
// through a bounded worker pool. Within a dataset everything is sequential
// and page order is preserved end to end.
package dataset
