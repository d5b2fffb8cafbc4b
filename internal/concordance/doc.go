// Package concordance parses delimited Concordance metadata (DAT) files.
//
// Fields are separated by the thorn character (U+00FE) and wrapped with a
// thorn, DC4 (0x14), thorn sequence. The first non-blank line names the
// columns and every following line is one record. Files produced on Windows
// are often Latin-1 rather than UTF-8; such lines are transcoded before
// splitting so the thorn is recognised either way.
package concordance
