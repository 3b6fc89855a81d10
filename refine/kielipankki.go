package refine

import (
	"errors"
	"strings"

	"github.com/csc-fi/etsin-harvester/format/cmdi"
	"github.com/csc-fi/etsin-harvester/hub"
	"github.com/csc-fi/etsin-harvester/lookup"
)

const (
	licenseCCBY4        = "CC-BY-4.0"
	licenseNotSpecified = "notspecified"

	kielipankkiFieldOfScience = "http://www.yso.fi/onto/okm-tieteenala/ta6121"
	urnResolver               = "http://urn.fi/"
)

// clarinLicenses maps Language Bank license tokens to catalog licenses.
var clarinLicenses = map[string]string{
	"CLARIN_PUB":       "ClarinPUB-1.0",
	"CLARIN_ACA":       "ClarinACA-1.0",
	"CLARIN_ACA-NC":    "ClarinACA+NC-1.0",
	"CLARIN_RES":       "ClarinRES-1.0",
	"other":            hub.LicenseOther,
	"underNegotiation": "undernegotiation",
	"proprietary":      hub.LicenseOther,
	"CC-BY":            licenseCCBY4,
	"CC-BY-ND":         "CC-BY-ND-4.0",
	"CC-BY-SA":         "CC-BY-SA-4.0",
	"CC-BY-NC":         "CC-BY-NC-4.0",
	"CC-BY-NC-ND":      "CC-BY-NC-ND-4.0",
	"CC-BY-NC-SA":      "CC-BY-NC-SA-4.0",
}

// KielipankkiLicense returns the catalog license for a CMDI license token.
// Unknown tokens map to "other".
func KielipankkiLicense(token string) string {
	if l, ok := clarinLicenses[token]; ok {
		return l
	}
	return hub.LicenseOther
}

// KielipankkiAccess returns the access type and restriction grounds implied
// by a CMDI license token.
func KielipankkiAccess(token string) (accessType string, grounds []string) {
	switch {
	case token == "CLARIN_ACA" || token == "CLARIN_ACA-NC":
		return hub.AccessTypeRestricted, []string{hub.RestrictionGroundsRegistration}
	case token == "CLARIN_RES":
		return hub.AccessTypeRestricted, []string{hub.RestrictionGroundsResearch}
	case token == "CLARIN_PUB" || strings.HasPrefix(token, "CC-BY"):
		return hub.AccessTypeOpen, nil
	default:
		return hub.AccessTypeRestricted, nil
	}
}

// StripURNResolver removes a leading urn.fi resolver, with or without an
// http or https scheme, from a PID.
func StripURNResolver(pid string) string {
	for _, prefix := range []string{urnResolver, "https://urn.fi/", "urn.fi/"} {
		if rest, ok := strings.CutPrefix(pid, prefix); ok {
			return rest
		}
	}
	return pid
}

// Kielipankki refines Language Bank of Finland CMDI records.
type Kielipankki struct {
	legacy *lookup.Table
}

// NewKielipankki creates the refiner. legacy maps http://urn.fi/ PIDs to
// kata URNs and may be nil.
func NewKielipankki(legacy *lookup.Table) *Kielipankki {
	return &Kielipankki{legacy: legacy}
}

// Organization implements Refiner.
func (k *Kielipankki) Organization() Organization {
	return OrgKielipankki
}

// Refine derives rights and the URN preferred identifier from the CMDI
// source document.
func (k *Kielipankki) Refine(record *hub.Record, hc HarvestContext) (*hub.Record, error) {
	if len(hc.SourceXML) == 0 {
		return nil, errors.New("kielipankki: harvest context has no CMDI source document")
	}
	doc, err := cmdi.ParseDocument(hc.SourceXML)
	if err != nil {
		return nil, err
	}

	token := doc.License()
	if token == "" {
		token = licenseNotSpecified
	}
	accessType, grounds := KielipankkiAccess(token)
	ar := &hub.AccessRights{Description: accessDescription(record)}
	ar.SetLicense(KielipankkiLicense(token))
	ar.SetAccessType(accessType)
	for _, g := range grounds {
		ar.RestrictionGrounds = append(ar.RestrictionGrounds, hub.Concept{Identifier: g})
	}
	record.AccessRights = ar

	pid := kielipankkiPID(doc)
	if pid == "" {
		return nil, &DatasetFieldsMissingError{
			Record: record,
			Fields: []string{"preferred_identifier"},
			Reason: "could not find preferred identifier in the metadata",
		}
	}
	record.PreferredIdentifier = pid

	record.FieldOfScience = []hub.Concept{{Identifier: kielipankkiFieldOfScience}}

	if kata, ok := k.legacy.Lookup(urnResolver + pid); ok {
		record.AddOtherIdentifier(kata, hub.IdentifierTypeURN)
	}

	return record, nil
}

// kielipankkiPID returns the first metadata identifier that is a URN, or
// the first resource URL when that is one.
func kielipankkiPID(doc *cmdi.Document) string {
	for _, id := range doc.MetadataIdentifiers() {
		if pid := StripURNResolver(id); strings.Contains(pid, "urn") {
			return pid
		}
	}
	if urls := doc.URLs(); len(urls) > 0 {
		if pid := StripURNResolver(urls[0]); strings.Contains(pid, "urn") {
			return pid
		}
	}
	return ""
}

func accessDescription(record *hub.Record) []hub.LangString {
	if record.AccessRights == nil {
		return nil
	}
	return record.AccessRights.Description
}
