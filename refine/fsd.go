package refine

import (
	"regexp"
	"sort"

	"github.com/csc-fi/etsin-harvester/format/ddi25"
	"github.com/csc-fi/etsin-harvester/hub"
	"github.com/csc-fi/etsin-harvester/lookup"
)

const (
	licenseOtherClosed = "other-closed"
	fsdDefaultLanguage = "fin"
)

// AccessClass is an FSD data access class.
type AccessClass string

const (
	AccessClassA       AccessClass = "A"
	AccessClassB       AccessClass = "B"
	AccessClassC       AccessClass = "C"
	AccessClassD       AccessClass = "D"
	AccessClassUnknown AccessClass = ""
)

var accessClassPattern = regexp.MustCompile(`\(([A-D])\)`)

// ParseAccessClass finds the access class marker, e.g. "(B)", in the
// restriction texts. Languages are checked in sorted order.
func ParseAccessClass(restrictions hub.LangString) AccessClass {
	langs := make([]string, 0, len(restrictions))
	for lang := range restrictions {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		if m := accessClassPattern.FindStringSubmatch(restrictions[lang]); m != nil {
			return AccessClass(m[1])
		}
	}
	return AccessClassUnknown
}

// FSD refines Finnish Social Science Data Archive DDI 2.5 records.
type FSD struct {
	legacy *lookup.Table
}

// NewFSD creates the refiner. legacy maps FSD URNs to kata URNs and may be
// nil.
func NewFSD(legacy *lookup.Table) *FSD {
	return &FSD{legacy: legacy}
}

// Organization implements Refiner.
func (f *FSD) Organization() Organization {
	return OrgFSD
}

// Refine derives access rights from the archive's access class.
func (f *FSD) Refine(record *hub.Record, hc HarvestContext) (*hub.Record, error) {
	restrictions := make(hub.LangString)
	if len(hc.SourceXML) > 0 {
		doc, err := ddi25.ParseDocument(hc.SourceXML)
		if err != nil {
			return nil, err
		}
		restrictions = doc.Restrictions()
	} else if record.AccessRights != nil && len(record.AccessRights.Description) > 0 {
		restrictions = record.AccessRights.Description[0]
	}

	ar := record.EnsureAccessRights()
	ar.RestrictionGrounds = nil
	switch ParseAccessClass(restrictions) {
	case AccessClassA:
		ar.SetLicense(licenseCCBY4)
		ar.SetAccessType(hub.AccessTypeOpen)
	case AccessClassB, AccessClassC:
		ar.SetLicense(licenseOtherClosed)
		ar.SetAccessType(hub.AccessTypeRestricted)
		ar.RestrictionGrounds = []hub.Concept{{Identifier: hub.RestrictionGroundsResearch}}
	case AccessClassD:
		ar.SetLicense(licenseOtherClosed)
		ar.SetAccessType(hub.AccessTypeRestricted)
		ar.RestrictionGrounds = []hub.Concept{{Identifier: hub.RestrictionGroundsRegistration}}
	default:
		ar.SetLicense(hub.LicenseOther)
		ar.SetAccessType(hub.AccessTypeRestricted)
	}

	if len(record.Language) == 0 {
		record.Language = []hub.Concept{hub.LanguageConcept(fsdDefaultLanguage)}
	}

	if kata, ok := f.legacy.Lookup(record.PreferredIdentifier); ok {
		record.AddOtherIdentifier(kata, hub.IdentifierTypeURN)
	}

	return record, nil
}
