// Package logging assembles structured slog loggers and formatting helpers used
// across loadcheck.
//
// The console handler writes a header line plus indented fields to stderr.
// When a log directory is configured the same records are appended as JSON to
// loadcheck.log, at info level even if the console is quieter, so
// `loadcheck logs` can replay any run. Context helpers tag records with the
// run ID and dataset number, and credential-like fields are redacted in both
// sinks.
package logging
