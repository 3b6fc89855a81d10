// Package iso19139 provides a mapper for ISO 19139 geographic metadata.
//
// Mapping happens in two steps: the gmd XML is first flattened into a
// key/value Values view, which is then mapped into a record. Harvesters that
// already hold such a view can call MapValues directly.
package iso19139

import (
	"bytes"

	"github.com/csc-fi/etsin-harvester/format"
)

// Format implements the ISO 19139 mapper.
type Format struct{}

var _ format.Mapper = (*Format)(nil)

// Dialect returns the dialect this mapper handles.
func (f *Format) Dialect() format.Dialect {
	return format.DialectISO19139
}

// Description returns a human-readable format description.
func (f *Format) Description() string {
	return "ISO 19139 geographic metadata (gmd:MD_Metadata)"
}

// CanParse returns true if the input looks like ISO 19139 XML.
func (f *Format) CanParse(peek []byte) bool {
	peek = bytes.TrimSpace(peek)
	if len(peek) == 0 || peek[0] != '<' {
		return false
	}
	return bytes.Contains(peek, []byte("MD_Metadata")) ||
		bytes.Contains(peek, []byte("www.isotc211.org/2005/gmd"))
}

func init() {
	format.Register(&Format{})
}
