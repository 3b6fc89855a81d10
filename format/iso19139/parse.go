package iso19139

import (
	"strings"

	"github.com/csc-fi/etsin-harvester/format"
	"github.com/csc-fi/etsin-harvester/helpers"
	"github.com/csc-fi/etsin-harvester/hub"
)

// topicFieldsOfScience maps ISO topic categories to OKM field of science codes.
var topicFieldsOfScience = map[string][]string{
	"environment":                      {"ta1172"},
	"planningCadastre":                 {"ta212"},
	"transportation":                   {"ta212"},
	"economy":                          {"ta5"},
	"biota":                            {"ta1181", "ta1183"},
	"utilitiesCommunication":           {"ta218", "ta213"},
	"geoscientificInformation":         {"ta1171"},
	"climatologyMeteorologyAtmosphere": {"ta1171"},
	"farming":                          {"ta412", "ta4111"},
	"inlandWaters":                     {"ta1171"},
	"health":                           {"ta316", "ta3142"},
	"society":                          {"ta8"},
}

// Map extracts the values view from ISO 19139 XML and maps it.
func (f *Format) Map(doc []byte, opts *format.MapOptions) (*hub.Record, error) {
	v, err := ExtractValues(doc, opts)
	if err != nil {
		return nil, err
	}
	return MapValues(v), nil
}

// MapValues maps a values view into an unrefined record. Free-text values
// are tagged with the metadata language, or "und" when it is not a valid
// ISO 639 code.
func MapValues(v *Values) *hub.Record {
	record := hub.NewRecord()
	lang := metadataLanguage(v.MetadataLanguage)

	record.PreferredIdentifier = strings.TrimSpace(v.GUID)
	record.Title.Set(lang, hub.CleanText(v.Title))

	for _, l := range v.DatasetLanguage {
		if l = strings.TrimSpace(l); l != "" {
			record.Language = append(record.Language, hub.LanguageConcept(l))
		}
	}

	if abstract := hub.CleanText(v.Abstract); abstract != "" {
		desc := make(hub.LangString)
		desc.Set(lang, abstract)
		record.Description = []hub.LangString{desc}
	}

	// Only the first topic category determines the field of science
	if len(v.TopicCategory) > 0 {
		for _, code := range topicFieldsOfScience[v.TopicCategory[0]] {
			record.FieldOfScience = append(record.FieldOfScience, hub.Concept{Identifier: code})
		}
	}

	for _, p := range v.ResponsibleOrganisation {
		if p.HasRole("originator") {
			record.Creator = appendParty(record.Creator, p, lang)
		}
	}
	for _, p := range v.ResponsibleOrganisation {
		if p.HasRole("pointOfContact") {
			record.Curator = appendParty(record.Curator, p, lang)
		}
	}
	record.Publisher = firstWithRole(v.ResponsibleOrganisation, "distributor", lang)
	if record.Publisher == nil {
		record.Publisher = firstWithRole(v.ResponsibleOrganisation, "publisher", lang)
	}
	if owner := firstWithRole(v.ResponsibleOrganisation, "owner", lang); owner != nil {
		record.RightsHolder = []*hub.Agent{owner}
	}

	record.Modified = helpers.NormalizeDate(v.DateUpdated)
	if record.Modified == "" {
		record.Modified = helpers.NormalizeDate(v.MetadataDate)
	}
	record.Issued = helpers.NormalizeDate(v.DateReleased)

	for _, tag := range v.Tags {
		record.AddKeyword(hub.CleanText(tag))
	}

	for _, b := range v.BBox {
		if wkt := hub.BoundingBoxWKT(b.West, b.East, b.North, b.South); wkt != "" {
			record.Spatial = append(record.Spatial, hub.Spatial{AsWKT: []string{wkt}})
		}
	}

	// Begin and end positions pair up by index
	if n := len(v.TemporalExtentBegin); n > 0 && n == len(v.TemporalExtentEnd) {
		for i := 0; i < n; i++ {
			t := hub.Temporal{
				StartDate: helpers.NormalizeDate(v.TemporalExtentBegin[i]),
				EndDate:   helpers.NormalizeDate(v.TemporalExtentEnd[i]),
			}
			if t.StartDate != "" || t.EndDate != "" {
				record.Temporal = append(record.Temporal, t)
			}
		}
	}

	for _, c := range v.UseConstraints {
		if c = hub.CleanText(c); c == "" {
			continue
		}
		desc := make(hub.LangString)
		desc.Set(lang, c)
		ar := record.EnsureAccessRights()
		ar.Description = append(ar.Description, desc)
	}

	if lineage := hub.CleanText(v.Lineage); lineage != "" {
		prov := hub.Provenance{Description: make(hub.LangString)}
		prov.Description.Set(lang, lineage)
		record.Provenance = []hub.Provenance{prov}
	}

	record.Source = &hub.SourceInfo{
		Format:   format.DialectISO19139.String(),
		SourceID: record.PreferredIdentifier,
	}

	return record
}

// metadataLanguage returns the two-letter key for free-text values.
func metadataLanguage(code string) string {
	if l, ok := hub.ToISO6391(code); ok {
		return l
	}
	return hub.UndeterminedLanguage
}

func partyAgent(p ResponsibleParty, lang string) *hub.Agent {
	return hub.AgentFromContact(
		hub.CleanText(p.IndividualName),
		hub.CleanText(p.OrganisationName),
		strings.TrimSpace(p.ContactInfo.Email),
		lang,
	)
}

func appendParty(agents []*hub.Agent, p ResponsibleParty, lang string) []*hub.Agent {
	if a := partyAgent(p, lang); a != nil {
		return append(agents, a)
	}
	return agents
}

func firstWithRole(parties []ResponsibleParty, role, lang string) *hub.Agent {
	for _, p := range parties {
		if p.HasRole(role) {
			if a := partyAgent(p, lang); a != nil {
				return a
			}
		}
	}
	return nil
}
