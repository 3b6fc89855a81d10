// Package refine applies organization-specific completion rules to mapped
// records. Refiners are selected by harvest source through a Registry built
// once at startup.
package refine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/csc-fi/etsin-harvester/hub"
	"github.com/csc-fi/etsin-harvester/lookup"
)

// Organization identifies a harvest source with its own refinement rules.
type Organization int

const (
	OrgKielipankki Organization = iota + 1
	OrgSyke
	OrgFSD
)

// Organizations lists every supported organization in a stable order.
var Organizations = []Organization{OrgKielipankki, OrgSyke, OrgFSD}

// String returns the harvest source name of the organization.
func (o Organization) String() string {
	switch o {
	case OrgKielipankki:
		return "kielipankki"
	case OrgSyke:
		return "syke"
	case OrgFSD:
		return "fsd"
	default:
		return fmt.Sprintf("Organization(%d)", int(o))
	}
}

// ParseOrganization resolves a harvest source name.
func ParseOrganization(name string) (Organization, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "kielipankki":
		return OrgKielipankki, nil
	case "syke":
		return OrgSyke, nil
	case "fsd":
		return OrgFSD, nil
	default:
		return 0, &UnknownHarvestSourceError{Name: name}
	}
}

// HarvestContext is the per-record state handed from the harvester to the
// refiner. It is passed by value and never persisted.
type HarvestContext struct {
	HarvestSourceName string
	Organization      Organization

	// GUID is the harvest object identifier assigned by the source.
	GUID string

	// SourceXML is the original document, for refiners that re-read it.
	SourceXML []byte

	// LocalRecordID is set when refining an already stored record.
	LocalRecordID string
}

// NewHarvestContext creates a context for a named harvest source.
func NewHarvestContext(source, guid string, sourceXML []byte) (HarvestContext, error) {
	org, err := ParseOrganization(source)
	if err != nil {
		return HarvestContext{}, err
	}
	return HarvestContext{
		HarvestSourceName: source,
		Organization:      org,
		GUID:              guid,
		SourceXML:         sourceXML,
	}, nil
}

// Refiner completes a mapped record for one organization. Refiners work on
// the record in place and return it.
type Refiner interface {
	// Organization returns the organization this refiner handles.
	Organization() Organization

	// Refine completes the record. It may return ErrRecordSkipped.
	Refine(record *hub.Record, hc HarvestContext) (*hub.Record, error)
}

// Registry dispatches records to the refiner of their organization.
type Registry struct {
	refiners map[Organization]Refiner
}

// NewRegistry creates a registry holding the given refiners.
func NewRegistry(refiners ...Refiner) *Registry {
	r := &Registry{refiners: make(map[Organization]Refiner)}
	for _, ref := range refiners {
		r.Register(ref)
	}
	return r
}

// Register adds or replaces the refiner for its organization.
func (r *Registry) Register(ref Refiner) {
	r.refiners[ref.Organization()] = ref
}

// Refiner returns the refiner for an organization.
func (r *Registry) Refiner(org Organization) (Refiner, error) {
	ref, ok := r.refiners[org]
	if !ok {
		return nil, &UnknownHarvestSourceError{Name: org.String()}
	}
	return ref, nil
}

// Refine runs the organization's refiner and checks the result carries the
// fields needed for synchronization.
func (r *Registry) Refine(record *hub.Record, hc HarvestContext) (*hub.Record, error) {
	if record == nil {
		return nil, errors.New("refine: nil record")
	}

	org := hc.Organization
	if org == 0 {
		var err error
		if org, err = ParseOrganization(hc.HarvestSourceName); err != nil {
			return nil, err
		}
	}

	ref, ok := r.refiners[org]
	if !ok {
		return nil, &UnknownHarvestSourceError{Name: hc.HarvestSourceName}
	}

	refined, err := ref.Refine(record, hc)
	if err != nil {
		return nil, err
	}
	if err := CheckRequiredFields(refined); err != nil {
		return nil, err
	}
	return refined, nil
}

// Options configures the default refiners.
type Options struct {
	// Legacy identifier table overrides, keyed by harvest source name.
	// Sources without an entry use the bundled table.
	LegacyTables map[string]string

	// HarvestUnmatchedSyke lets SYKE records absent from the legacy table
	// through instead of skipping them.
	HarvestUnmatchedSyke bool
}

// NewDefaultRegistry builds a registry with every organization's refiner
// wired to the bundled reference data.
func NewDefaultRegistry(catalogs *lookup.CatalogRegistry, opts Options) (*Registry, error) {
	tables := make(map[string]*lookup.Table)
	for _, org := range Organizations {
		t, err := lookup.LegacyTable(org.String(), opts.LegacyTables[org.String()])
		if err != nil {
			return nil, fmt.Errorf("loading %s legacy table: %w", org, err)
		}
		tables[org.String()] = t
	}

	var sykeCatalog *lookup.DataCatalog
	if catalogs != nil {
		sykeCatalog, _ = catalogs.Get(OrgSyke.String())
	}

	syke := NewSyke(tables[OrgSyke.String()], sykeCatalog)
	syke.RequireLegacyMatch = !opts.HarvestUnmatchedSyke

	return NewRegistry(
		NewKielipankki(tables[OrgKielipankki.String()]),
		syke,
		NewFSD(tables[OrgFSD.String()]),
	), nil
}

// CheckRequiredFields fails with *DatasetFieldsMissingError when the record
// lacks a preferred identifier or a title.
func CheckRequiredFields(record *hub.Record) error {
	result := hub.Validate(record)
	if result.IsValid() {
		return nil
	}
	fields := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, e.Field)
	}
	return &DatasetFieldsMissingError{Record: record, Fields: fields}
}
