// Package datacite provides a mapper for DataCite metadata (kernel 3 and 4).
package datacite

import (
	"bytes"

	"github.com/csc-fi/etsin-harvester/format"
)

// Format implements the DataCite mapper.
type Format struct{}

var _ format.Mapper = (*Format)(nil)

// Dialect returns the dialect this mapper handles.
func (f *Format) Dialect() format.Dialect {
	return format.DialectDataCite
}

// Description returns a human-readable format description.
func (f *Format) Description() string {
	return "DataCite Metadata Schema (kernel 3 and 4)"
}

// CanParse returns true if the input looks like DataCite XML.
func (f *Format) CanParse(peek []byte) bool {
	peek = bytes.TrimSpace(peek)
	if len(peek) == 0 {
		return false
	}

	if peek[0] != '<' {
		return false
	}

	patterns := [][]byte{
		[]byte("datacite.org/schema"),
		[]byte("<identifier identifierType"),
	}

	for _, pattern := range patterns {
		if bytes.Contains(peek, pattern) {
			return true
		}
	}

	return false
}

func init() {
	format.Register(&Format{})
}
