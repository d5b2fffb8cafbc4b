// Package main hosts the loadcheck CLI entrypoint and command graph.
//
// The root command downloads (or reuses cached) OPT/DAT load files for each
// configured dataset, cross-validates them, prints the parse report, and with
// --verify or --update reconciles the results against the remote datastore.
// Every run is recorded in the audit database; the audit subcommands read it
// back, and the logs subcommand replays the JSON run log. Configuration
// resolution and logger setup live here so the internal packages stay free of
// CLI concerns.
package main
