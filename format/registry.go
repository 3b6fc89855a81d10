package format

import (
	"bytes"
	"fmt"

	"github.com/csc-fi/etsin-harvester/hub"
)

// Registry is the strategy table of mappers keyed by dialect.
type Registry struct {
	mappers map[Dialect]Mapper
}

// DefaultRegistry is the registry mapper packages add themselves to.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a registry holding the given mappers.
func NewRegistry(mappers ...Mapper) *Registry {
	r := &Registry{
		mappers: make(map[Dialect]Mapper),
	}
	for _, m := range mappers {
		r.Register(m)
	}
	return r
}

// Register adds a mapper to the registry.
func (r *Registry) Register(m Mapper) {
	r.mappers[m.Dialect()] = m
}

// Mapper retrieves the mapper for a dialect.
func (r *Registry) Mapper(d Dialect) (Mapper, error) {
	m, ok := r.mappers[d]
	if !ok {
		return nil, &UnsupportedDialectError{Name: d.String()}
	}
	return m, nil
}

// Map maps a document with the mapper registered for d.
func (r *Registry) Map(d Dialect, doc []byte, opts *MapOptions) (*hub.Record, error) {
	m, err := r.Mapper(d)
	if err != nil {
		return nil, err
	}
	return m.Map(doc, opts)
}

// List returns the registered dialects in declaration order.
func (r *Registry) List() []Dialect {
	var out []Dialect
	for _, d := range Dialects {
		if _, ok := r.mappers[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// DetectFromContent attempts to detect the dialect from content alone.
func (r *Registry) DetectFromContent(peek []byte) (Dialect, error) {
	peek = bytes.TrimSpace(peek)

	for _, d := range Dialects {
		m, ok := r.mappers[d]
		if ok && m.CanParse(peek) {
			return d, nil
		}
	}

	return 0, fmt.Errorf("could not detect source format from content")
}

// Register adds a mapper to the default registry.
func Register(m Mapper) {
	DefaultRegistry.Register(m)
}

// Get retrieves a mapper from the default registry.
func Get(d Dialect) (Mapper, error) {
	return DefaultRegistry.Mapper(d)
}
