package datacite

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/csc-fi/etsin-harvester/format"
	"github.com/csc-fi/etsin-harvester/helpers"
	"github.com/csc-fi/etsin-harvester/hub"
)

// DOIResolver prefixes bare DOIs to form the preferred identifier.
const DOIResolver = "http://dx.doi.org/"

// Map reads DataCite XML and returns an unrefined record.
// Handles both bare <resource> elements and OAI-PMH wrapped responses.
func (f *Format) Map(doc []byte, opts *format.MapOptions) (*hub.Record, error) {
	xmlRes, err := extractResource(doc)
	if err != nil {
		return nil, format.Malformed(format.DialectDataCite, opts, "parsing XML", err)
	}
	if xmlRes == nil {
		return nil, format.Malformed(format.DialectDataCite, opts, "no resource element found", nil)
	}
	return xmlResourceToHub(xmlRes), nil
}

// extractResource finds the first <resource> element in the XML.
// Works for both bare resource documents and OAI-PMH wrapped responses.
func extractResource(data []byte) (*XMLParseResource, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "resource" {
			continue
		}

		var res XMLParseResource
		if err := decoder.DecodeElement(&res, &start); err != nil {
			return nil, err
		}
		return &res, nil
	}
}

// xmlResourceToHub converts a parsed DataCite XML resource to a record.
func xmlResourceToHub(xmlRes *XMLParseResource) *hub.Record {
	record := hub.NewRecord()

	// Identifier (DOI)
	if xmlRes.Identifier != nil {
		record.PreferredIdentifier = preferredIdentifier(xmlRes.Identifier)
	}

	// Titles: untyped titles are primary; typed ones only fill gaps
	for _, t := range xmlRes.Titles {
		if t.TitleType == "" {
			record.Title.Set(t.Lang, hub.CleanText(t.Value))
		}
	}
	if len(record.Title) == 0 {
		for _, t := range xmlRes.Titles {
			if _, ok := record.Title[langOrUnd(t.Lang)]; !ok {
				record.Title.Set(t.Lang, hub.CleanText(t.Value))
			}
		}
	}

	// Descriptions: one entry per element
	for _, d := range xmlRes.Descriptions {
		val := hub.CleanText(helpers.StripHTML(d.Value))
		if val == "" {
			continue
		}
		desc := make(hub.LangString)
		desc.Set(d.Lang, val)
		record.Description = append(record.Description, desc)
	}

	for _, c := range xmlRes.Creators {
		if a := nameToAgent(c.CreatorName, c.GivenName, c.FamilyName, c.NameIdentifiers, c.Affiliations, false); a != nil {
			record.Creator = append(record.Creator, a)
		}
	}

	for _, c := range xmlRes.Contributors {
		a := nameToAgent(c.ContributorName, c.GivenName, c.FamilyName, c.NameIdentifiers, c.Affiliations, organizationalContributor(c.ContributorType))
		if a == nil {
			continue
		}
		switch c.ContributorType {
		case "ContactPerson":
			record.Curator = append(record.Curator, a)
		case "RightsHolder":
			record.RightsHolder = append(record.RightsHolder, a)
		default:
			record.Contributor = append(record.Contributor, a)
		}
	}

	if name := hub.CleanText(xmlRes.Publisher.Value); name != "" {
		record.Publisher = hub.NewOrganization(xmlRes.Publisher.Lang, name)
	}

	// Publication year -> issued, refined by an explicit Issued date
	record.Issued = helpers.NormalizeDate(xmlRes.PublicationYear)
	for _, d := range xmlRes.Dates {
		val := helpers.NormalizeDate(d.Value)
		if val == "" {
			continue
		}
		switch d.DateType {
		case "Issued":
			record.Issued = val
		case "Updated":
			record.Modified = val
		}
	}

	for _, s := range xmlRes.Subjects {
		record.AddKeyword(hub.CleanText(s.Value))
	}

	if lang := strings.TrimSpace(xmlRes.Language); lang != "" {
		record.Language = append(record.Language, hub.LanguageConcept(lang))
	}

	for _, alt := range xmlRes.AlternateIdentifiers {
		val := strings.TrimSpace(alt.Value)
		if val == "" {
			continue
		}
		idType := ""
		if strings.EqualFold(alt.AlternateIdentifierType, "URN") {
			idType = hub.IdentifierTypeURN
		}
		record.AddOtherIdentifier(val, idType)
	}

	// Rights: the URI is the license identifier when present
	for _, r := range xmlRes.RightsList {
		id := strings.TrimSpace(r.RightsURI)
		if id == "" {
			id = hub.CleanText(r.Value)
		}
		if id != "" {
			record.EnsureAccessRights().AddLicense(id)
		}
	}

	for _, g := range xmlRes.GeoLocations {
		if sp, ok := geoLocationToSpatial(g); ok {
			record.Spatial = append(record.Spatial, sp)
		}
	}

	// Source tracking
	sourceID := ""
	if xmlRes.Identifier != nil {
		sourceID = strings.TrimSpace(xmlRes.Identifier.Value)
	}
	record.Source = &hub.SourceInfo{
		Format:   format.DialectDataCite.String(),
		SourceID: sourceID,
	}

	return record
}

// preferredIdentifier resolves DOIs through the DOI proxy; other identifier
// types are kept verbatim.
func preferredIdentifier(id *XMLIdentifier) string {
	val := strings.TrimSpace(id.Value)
	if val == "" {
		return ""
	}
	if !strings.EqualFold(id.IdentifierType, "DOI") {
		return val
	}
	lower := strings.ToLower(val)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(lower, prefix) {
			val = val[len(prefix):]
			break
		}
	}
	return DOIResolver + val
}

// nameToAgent converts a DataCite creator or contributor to an agent.
// An affiliation on a person becomes member_of.
func nameToAgent(name XMLCreatorName, given, family string, ids []XMLNameIdentifier, affiliations []XMLAffiliation, defaultOrg bool) *hub.Agent {
	display := hub.CleanText(name.Value)
	isOrg := strings.EqualFold(name.NameType, "Organizational") ||
		(defaultOrg && !strings.EqualFold(name.NameType, "Personal"))

	if isOrg {
		if display == "" {
			return nil
		}
		a := hub.NewOrganization(name.Lang, display)
		a.Identifier = firstNameIdentifier(ids)
		return a
	}

	if display == "" {
		display = hub.CleanText(helpers.JoinName(given, family))
	}
	if display == "" {
		return nil
	}

	a := hub.NewPerson(display)
	a.Identifier = firstNameIdentifier(ids)
	for _, aff := range affiliations {
		if org := hub.CleanText(aff.Value); org != "" {
			a.MemberOf = hub.NewOrganization(hub.UndeterminedLanguage, org)
			break
		}
	}
	return a
}

func firstNameIdentifier(ids []XMLNameIdentifier) string {
	for _, ni := range ids {
		if val := strings.TrimSpace(ni.Value); val != "" {
			return val
		}
	}
	return ""
}

// organizationalContributor reports whether a contributor type names an
// institution rather than a person.
func organizationalContributor(contributorType string) bool {
	switch contributorType {
	case "HostingInstitution", "RegistrationAgency", "RegistrationAuthority", "ResearchGroup", "Sponsor", "Distributor":
		return true
	default:
		return false
	}
}

// geoLocationToSpatial handles both kernel-3 space-separated coordinates
// and kernel-4 child elements.
func geoLocationToSpatial(g XMLGeoLocation) (hub.Spatial, bool) {
	var sp hub.Spatial
	sp.GeographicName = hub.CleanText(g.Place)

	if g.Box != nil {
		var wkt string
		if g.Box.WestBoundLongitude != "" {
			wkt = hub.BoundingBoxWKT(g.Box.WestBoundLongitude, g.Box.EastBoundLongitude, g.Box.NorthBoundLatitude, g.Box.SouthBoundLatitude)
		} else if parts := strings.Fields(g.Box.Value); len(parts) == 4 {
			// kernel-3 order: south west north east
			wkt = hub.BoundingBoxWKT(parts[1], parts[3], parts[2], parts[0])
		}
		if wkt != "" {
			sp.AsWKT = append(sp.AsWKT, wkt)
		}
	}

	if g.Point != nil {
		var wkt string
		if g.Point.PointLongitude != "" {
			wkt = hub.PointWKT(g.Point.PointLongitude, g.Point.PointLatitude)
		} else if parts := strings.Fields(g.Point.Value); len(parts) == 2 {
			// kernel-3 order: latitude longitude
			wkt = hub.PointWKT(parts[1], parts[0])
		}
		if wkt != "" {
			sp.AsWKT = append(sp.AsWKT, wkt)
		}
	}

	return sp, sp.GeographicName != "" || len(sp.AsWKT) > 0
}

func langOrUnd(lang string) string {
	if lang == "" {
		return hub.UndeterminedLanguage
	}
	return lang
}

// XML types for DataCite parsing. Element names match in any namespace so
// kernel-3 and kernel-4 documents decode alike.

// XMLParseResource is the top-level DataCite resource.
type XMLParseResource struct {
	XMLName              xml.Name                 `xml:"resource"`
	Identifier           *XMLIdentifier           `xml:"identifier"`
	Creators             []XMLParseCreator        `xml:"creators>creator"`
	Titles               []XMLTitle               `xml:"titles>title"`
	Publisher            XMLLangText              `xml:"publisher"`
	PublicationYear      string                   `xml:"publicationYear"`
	Subjects             []XMLLangText            `xml:"subjects>subject"`
	Contributors         []XMLParseContributor    `xml:"contributors>contributor"`
	Dates                []XMLParseDate           `xml:"dates>date"`
	Language             string                   `xml:"language"`
	AlternateIdentifiers []XMLAlternateIdentifier `xml:"alternateIdentifiers>alternateIdentifier"`
	RightsList           []XMLParseRights         `xml:"rightsList>rights"`
	Descriptions         []XMLDescription         `xml:"descriptions>description"`
	GeoLocations         []XMLGeoLocation         `xml:"geoLocations>geoLocation"`
}

// XMLIdentifier is the resource's primary identifier.
type XMLIdentifier struct {
	Value          string `xml:",chardata"`
	IdentifierType string `xml:"identifierType,attr"`
}

// XMLTitle is a resource title.
type XMLTitle struct {
	Value     string `xml:",chardata"`
	Lang      string `xml:"lang,attr"`
	TitleType string `xml:"titleType,attr"`
}

// XMLLangText is a language-tagged text element.
type XMLLangText struct {
	Value string `xml:",chardata"`
	Lang  string `xml:"lang,attr"`
}

// XMLCreatorName is a creator or contributor name.
type XMLCreatorName struct {
	Value    string `xml:",chardata"`
	NameType string `xml:"nameType,attr"`
	Lang     string `xml:"lang,attr"`
}

// XMLNameIdentifier is an ORCID, ISNI or similar identifier.
type XMLNameIdentifier struct {
	Value                string `xml:",chardata"`
	NameIdentifierScheme string `xml:"nameIdentifierScheme,attr"`
}

// XMLAffiliation is a creator's institution.
type XMLAffiliation struct {
	Value string `xml:",chardata"`
}

// XMLParseCreator represents a DataCite creator.
type XMLParseCreator struct {
	CreatorName     XMLCreatorName      `xml:"creatorName"`
	GivenName       string              `xml:"givenName"`
	FamilyName      string              `xml:"familyName"`
	NameIdentifiers []XMLNameIdentifier `xml:"nameIdentifier"`
	Affiliations    []XMLAffiliation    `xml:"affiliation"`
}

// XMLParseContributor represents a DataCite contributor.
type XMLParseContributor struct {
	ContributorType string              `xml:"contributorType,attr"`
	ContributorName XMLCreatorName      `xml:"contributorName"`
	GivenName       string              `xml:"givenName"`
	FamilyName      string              `xml:"familyName"`
	NameIdentifiers []XMLNameIdentifier `xml:"nameIdentifier"`
	Affiliations    []XMLAffiliation    `xml:"affiliation"`
}

// XMLParseDate represents a DataCite date.
type XMLParseDate struct {
	Value    string `xml:",chardata"`
	DateType string `xml:"dateType,attr"`
}

// XMLAlternateIdentifier is an additional identifier of the resource.
type XMLAlternateIdentifier struct {
	Value                   string `xml:",chardata"`
	AlternateIdentifierType string `xml:"alternateIdentifierType,attr"`
}

// XMLParseRights is a rights statement.
type XMLParseRights struct {
	Value     string `xml:",chardata"`
	RightsURI string `xml:"rightsURI,attr"`
}

// XMLDescription is a resource description.
type XMLDescription struct {
	Value           string `xml:",chardata"`
	Lang            string `xml:"lang,attr"`
	DescriptionType string `xml:"descriptionType,attr"`
}

// XMLGeoLocation is a spatial region or named place.
type XMLGeoLocation struct {
	Place string       `xml:"geoLocationPlace"`
	Point *XMLGeoPoint `xml:"geoLocationPoint"`
	Box   *XMLGeoBox   `xml:"geoLocationBox"`
}

// XMLGeoPoint is a point as kernel-3 text or kernel-4 child elements.
type XMLGeoPoint struct {
	Value          string `xml:",chardata"`
	PointLongitude string `xml:"pointLongitude"`
	PointLatitude  string `xml:"pointLatitude"`
}

// XMLGeoBox is a bounding box as kernel-3 text or kernel-4 child elements.
type XMLGeoBox struct {
	Value              string `xml:",chardata"`
	WestBoundLongitude string `xml:"westBoundLongitude"`
	EastBoundLongitude string `xml:"eastBoundLongitude"`
	SouthBoundLatitude string `xml:"southBoundLatitude"`
	NorthBoundLatitude string `xml:"northBoundLatitude"`
}
