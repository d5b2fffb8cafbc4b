package dataset

import (
	"fmt"
	"path"
	"sort"
	"strconv"

	"loadcheck/internal/config"
)

// Spec locates one dataset's load files.
type Spec struct {
	Number     int
	DataPath   string
	VolumeBase string
}

// Volume is the last segment of the data path, e.g. VOL00001.
func (s Spec) Volume() string {
	return path.Base(s.DataPath)
}

// OPTKey is the object key of the image index file.
func (s Spec) OPTKey() string {
	return s.DataPath + ".OPT"
}

// DATKey is the object key of the metadata file.
func (s Spec) DATKey() string {
	return s.DataPath + ".DAT"
}

// CacheName is the cache-relative path for the file with ext.
func (s Spec) CacheName(ext string) string {
	return path.Join("dataset-"+strconv.Itoa(s.Number), s.Volume()+ext)
}

// FromConfig converts catalog entries, sorted by number.
func FromConfig(entries []config.Dataset) []Spec {
	specs := make([]Spec, 0, len(entries))
	for _, e := range entries {
		specs = append(specs, Spec{Number: e.Number, DataPath: e.DataPath, VolumeBase: e.VolumeBase})
	}
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].Number < specs[j].Number })
	return specs
}

// Select returns every spec when number is zero, otherwise the one matching it.
func Select(specs []Spec, number int) ([]Spec, error) {
	if number == 0 {
		return specs, nil
	}
	for _, s := range specs {
		if s.Number == number {
			return []Spec{s}, nil
		}
	}
	return nil, fmt.Errorf("dataset %d is not in the catalog", number)
}
