// Package format defines the interface for source dialect mappers.
package format

import (
	"fmt"
	"strings"

	"github.com/csc-fi/etsin-harvester/hub"
)

// Dialect identifies a supported source metadata dialect.
type Dialect int

const (
	DialectCMDI Dialect = iota + 1
	DialectDataCite
	DialectDDI25
	DialectISO19139
)

// Dialects lists every supported dialect in a stable order.
var Dialects = []Dialect{DialectCMDI, DialectDataCite, DialectDDI25, DialectISO19139}

// String returns the canonical dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectCMDI:
		return "cmdi"
	case DialectDataCite:
		return "datacite"
	case DialectDDI25:
		return "ddi25"
	case DialectISO19139:
		return "iso19139"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect resolves a dialect name or OAI-PMH metadata prefix.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cmdi", "cmdi0571":
		return DialectCMDI, nil
	case "datacite", "oai_datacite", "datacite3", "datacite4":
		return DialectDataCite, nil
	case "ddi25", "ddi", "oai_ddi25":
		return DialectDDI25, nil
	case "iso19139", "iso_19139", "iso":
		return DialectISO19139, nil
	default:
		return 0, &UnsupportedDialectError{Name: name}
	}
}

// UnsupportedDialectError is returned for format tags with no mapper.
type UnsupportedDialectError struct {
	Name string
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("unsupported source format: %q", e.Name)
}

// Mapper translates one source XML dialect into an unrefined record.
// Mapping is pure: the same input always yields a structurally equal record.
type Mapper interface {
	// Dialect returns the dialect this mapper handles.
	Dialect() Dialect

	// Description returns a human-readable format description.
	Description() string

	// CanParse returns true if the input looks like this dialect.
	CanParse(peek []byte) bool

	// Map converts a source document into a record. A document lacking the
	// dialect's top-level container fails with *MalformedSourceError;
	// absent optional elements never fail.
	Map(doc []byte, opts *MapOptions) (*hub.Record, error)
}

// MapOptions contains options for mapping.
type MapOptions struct {
	// SourceName is an identifier for the source (for error messages)
	SourceName string
}

// MalformedSourceError signals a structural failure: the document is not
// well-formed XML or lacks the dialect's top-level container element.
type MalformedSourceError struct {
	Dialect    Dialect
	SourceName string
	Reason     string
	Err        error
}

func (e *MalformedSourceError) Error() string {
	msg := fmt.Sprintf("malformed %s source", e.Dialect)
	if e.SourceName != "" {
		msg += " " + e.SourceName
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedSourceError) Unwrap() error {
	return e.Err
}

// Malformed builds a MalformedSourceError for the given options.
func Malformed(d Dialect, opts *MapOptions, reason string, err error) *MalformedSourceError {
	e := &MalformedSourceError{Dialect: d, Reason: reason, Err: err}
	if opts != nil {
		e.SourceName = opts.SourceName
	}
	return e
}
