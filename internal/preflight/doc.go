// Package preflight provides readiness checks for the directories and
// services loadcheck depends on.
//
// The CLI "loadcheck preflight" command runs every check and prints a table;
// the main command runs the datastore check before --verify or --update so
// a bad credential fails fast instead of after all datasets are parsed.
package preflight
