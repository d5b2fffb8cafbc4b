// Package documents groups an ordered page sequence into logical documents.
package documents

import (
	"path"
	"strings"

	"loadcheck/internal/opticon"
)

const unknownFileType = "unknown"

// Document is a contiguous run of pages that starts at a document break.
type Document struct {
	StartBates  string
	EndBates    string
	PageCount   int
	Filename    string
	FileType    string
	StoragePath string
	Volume      string
	Pages       []string
}

// Assemble partitions pages into documents. A page with DocumentBreak set
// closes the current run; the first page always opens a document whatever its
// flag says, so a volume with a malformed first row keeps its first document.
func Assemble(pages []opticon.PageRecord, volumeBase string) []Document {
	var docs []Document
	start := 0
	for i, page := range pages {
		if page.DocumentBreak && i > start {
			docs = append(docs, newDocument(pages[start:i], volumeBase))
			start = i
		}
	}
	if start < len(pages) {
		docs = append(docs, newDocument(pages[start:], volumeBase))
	}
	return docs
}

func newDocument(run []opticon.PageRecord, volumeBase string) Document {
	first := run[0]
	last := run[len(run)-1]
	ids := make([]string, len(run))
	for i, page := range run {
		ids[i] = page.Bates
	}
	filename := path.Base(first.ImagePath)
	if first.ImagePath == "" {
		filename = ""
	}
	return Document{
		StartBates:  first.Bates,
		EndBates:    last.Bates,
		PageCount:   len(run),
		Filename:    filename,
		FileType:    fileType(filename),
		StoragePath: path.Join(volumeBase, first.ImagePath),
		Volume:      first.Volume,
		Pages:       ids,
	}
}

func fileType(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 {
		return unknownFileType
	}
	return strings.ToLower(filename[idx+1:])
}

// Flatten concatenates every document's page list in order.
func Flatten(docs []Document) []string {
	total := 0
	for _, doc := range docs {
		total += len(doc.Pages)
	}
	out := make([]string, 0, total)
	for _, doc := range docs {
		out = append(out, doc.Pages...)
	}
	return out
}

// MultiPage counts documents with more than one page.
func MultiPage(docs []Document) int {
	n := 0
	for _, doc := range docs {
		if doc.PageCount > 1 {
			n++
		}
	}
	return n
}

// MaxPages returns the largest page count, or zero for an empty slice.
func MaxPages(docs []Document) int {
	maxPages := 0
	for _, doc := range docs {
		if doc.PageCount > maxPages {
			maxPages = doc.PageCount
		}
	}
	return maxPages
}

// PageCountsByFilename indexes page counts by filename. Later documents win
// when filenames repeat.
func PageCountsByFilename(docs []Document) map[string]int {
	out := make(map[string]int, len(docs))
	for _, doc := range docs {
		out[doc.Filename] = doc.PageCount
	}
	return out
}
