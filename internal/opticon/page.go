package opticon

import (
	"errors"
	"strings"
)

// ErrMissingBates reports a page record without a boundary identifier.
var ErrMissingBates = errors.New("opticon: bates number is required")

// PageRecord is one scanned page from an image cross-reference file.
type PageRecord struct {
	Bates         string
	Volume        string
	ImagePath     string
	DocumentBreak bool
	// PageCountHint is the optional seventh column. It is a parser artifact and
	// never used to size documents.
	PageCountHint int
}

// NewPageRecord validates required fields and normalizes the image path to
// forward slashes.
func NewPageRecord(bates, volume, imagePath string, documentBreak bool, pageCountHint int) (PageRecord, error) {
	if bates == "" {
		return PageRecord{}, ErrMissingBates
	}
	return PageRecord{
		Bates:         bates,
		Volume:        volume,
		ImagePath:     strings.ReplaceAll(imagePath, `\`, "/"),
		DocumentBreak: documentBreak,
		PageCountHint: pageCountHint,
	}, nil
}
