package main

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// palette colors status words when stdout is a terminal.
type palette struct {
	enabled bool
}

func newPalette(w io.Writer) palette {
	return palette{enabled: shouldColorize(w)}
}

func (p palette) paint(code, value string) string {
	if !p.enabled {
		return value
	}
	return code + value + ansiReset
}

func (p palette) good(value string) string { return p.paint(ansiGreen, value) }

func (p palette) warn(value string) string { return p.paint(ansiYellow, value) }

func (p palette) bad(value string) string { return p.paint(ansiRed, value) }

// heading returns a title line and its underline.
func (p palette) heading(title string) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	return []string{p.paint(ansiBlue, line), p.paint(ansiBlue, strings.Repeat("-", len(line)))}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
