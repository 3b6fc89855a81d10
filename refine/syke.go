package refine

import (
	"fmt"
	"strings"

	"github.com/csc-fi/etsin-harvester/hub"
	"github.com/csc-fi/etsin-harvester/lookup"
)

// Syke refines Finnish Environment Institute ISO 19139 records.
type Syke struct {
	legacy  *lookup.Table
	catalog *lookup.DataCatalog

	// RequireLegacyMatch skips records whose GUID is not in the legacy
	// table. Enabled by NewSyke.
	RequireLegacyMatch bool
}

// NewSyke creates the refiner. legacy maps harvest GUIDs to kata URNs;
// catalog supplies the fallback field of science.
func NewSyke(legacy *lookup.Table, catalog *lookup.DataCatalog) *Syke {
	return &Syke{legacy: legacy, catalog: catalog, RequireLegacyMatch: true}
}

// Organization implements Refiner.
func (s *Syke) Organization() Organization {
	return OrgSyke
}

// Refine attaches the legacy identifier, repairs contact emails and fills
// in rights defaults.
func (s *Syke) Refine(record *hub.Record, hc HarvestContext) (*hub.Record, error) {
	guid := strings.TrimSpace(hc.GUID)
	if guid == "" {
		return nil, fmt.Errorf("%w: harvest object has no guid", ErrRecordSkipped)
	}

	kata, found := s.legacy.Lookup(guid)
	if !found && s.RequireLegacyMatch {
		return nil, fmt.Errorf("%w: guid %s not in legacy identifier table", ErrRecordSkipped, guid)
	}

	if record.PreferredIdentifier == "" {
		record.PreferredIdentifier = guid
	}
	if found {
		record.AddOtherIdentifier(kata, hub.IdentifierTypeURN)
	}

	if len(record.FieldOfScience) == 0 {
		if fos := s.catalog.FieldOfScience(); len(fos) > 0 {
			record.FieldOfScience = []hub.Concept{{Identifier: fos[0]}}
		}
	}

	record.Curator = ExpandEmails(record.Curator)
	record.Creator = ExpandEmails(record.Creator)
	record.RightsHolder = ExpandEmails(record.RightsHolder)
	if record.Publisher != nil {
		emails := SplitEmails(record.Publisher.Email)
		record.Publisher.Email = first(emails)
	}

	ar := record.EnsureAccessRights()
	if mentionsCCBY4(record.Description) {
		ar.SetLicense(licenseCCBY4)
		ar.SetAccessType(hub.AccessTypeOpen)
	}
	if !ar.HasLicense() {
		ar.SetLicense(hub.LicenseOther)
	}
	if ar.AccessType == nil {
		ar.SetAccessType(hub.AccessTypeRestricted)
	}

	return record, nil
}

// RepairEmail undoes common address obfuscations ("[at]", "[a]") and drops
// spaces.
func RepairEmail(email string) string {
	email = strings.ReplaceAll(email, "[at]", "@")
	email = strings.ReplaceAll(email, "[a]", "@")
	return strings.ReplaceAll(email, " ", "")
}

// SplitEmails repairs a ';'-delimited address field and splits it.
func SplitEmails(email string) []string {
	var out []string
	for _, addr := range strings.Split(RepairEmail(email), ";") {
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// ExpandEmails replaces each agent carrying several addresses with one
// copy per address.
func ExpandEmails(agents []*hub.Agent) []*hub.Agent {
	if agents == nil {
		return nil
	}
	out := make([]*hub.Agent, 0, len(agents))
	for _, a := range agents {
		if a == nil {
			continue
		}
		emails := SplitEmails(a.Email)
		if len(emails) <= 1 {
			a.Email = first(emails)
			out = append(out, a)
			continue
		}
		for _, addr := range emails {
			c := hub.CloneAgent(a)
			c.Email = addr
			out = append(out, c)
		}
	}
	return out
}

// mentionsCCBY4 checks the first description for a CC BY 4.0 notice.
func mentionsCCBY4(descriptions []hub.LangString) bool {
	if len(descriptions) == 0 {
		return false
	}
	for _, text := range descriptions[0] {
		if strings.Contains(text, "CC BY 4.0") {
			return true
		}
	}
	return false
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
