// Package cmdi provides a mapper for Component MetaData Infrastructure
// (CMDI) records using the META-SHARE resourceInfo profile.
package cmdi

import (
	"bytes"

	"github.com/csc-fi/etsin-harvester/format"
)

// Format implements the CMDI mapper.
type Format struct{}

var _ format.Mapper = (*Format)(nil)

// Dialect returns the dialect this mapper handles.
func (f *Format) Dialect() format.Dialect {
	return format.DialectCMDI
}

// Description returns a human-readable format description.
func (f *Format) Description() string {
	return "CMDI (META-SHARE resourceInfo profile)"
}

// CanParse returns true if the input looks like CMDI XML.
func (f *Format) CanParse(peek []byte) bool {
	peek = bytes.TrimSpace(peek)
	if len(peek) == 0 || peek[0] != '<' {
		return false
	}

	patterns := [][]byte{
		[]byte("www.clarin.eu/cmd"),
		[]byte("<cmd:CMD"),
		[]byte("<CMD"),
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
