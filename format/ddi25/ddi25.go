// Package ddi25 provides a mapper for DDI Codebook 2.5 study descriptions.
package ddi25

import (
	"bytes"

	"github.com/csc-fi/etsin-harvester/format"
)

// Format implements the DDI 2.5 mapper.
type Format struct{}

var _ format.Mapper = (*Format)(nil)

// Dialect returns the dialect this mapper handles.
func (f *Format) Dialect() format.Dialect {
	return format.DialectDDI25
}

// Description returns a human-readable format description.
func (f *Format) Description() string {
	return "DDI Codebook 2.5"
}

// CanParse returns true if the input looks like a DDI codebook.
func (f *Format) CanParse(peek []byte) bool {
	peek = bytes.TrimSpace(peek)
	if len(peek) == 0 || peek[0] != '<' {
		return false
	}
	return bytes.Contains(peek, []byte("ddi:codebook")) ||
		bytes.Contains(peek, []byte("<codeBook"))
}

func init() {
	format.Register(&Format{})
}
