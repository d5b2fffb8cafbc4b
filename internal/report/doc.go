// Package report aggregates per-dataset statistics and renders the
// human-readable parse summary: the per-dataset table, the union of metadata
// columns, the page-count distribution, and the largest documents.
//
// Everything here is pure aggregation over values the pipeline already
// computed. Nothing performs IO except Render, which only writes to the
// supplied writer.
package report
