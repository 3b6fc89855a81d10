package iso19139

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/csc-fi/etsin-harvester/format"
)

// Values is the flattened key/value view of an ISO 19139 document. Keys
// follow the naming used by CKAN spatial harvesters so pre-extracted views
// can be loaded as YAML.
type Values struct {
	GUID                    string             `yaml:"guid,omitempty"`
	Title                   string             `yaml:"title,omitempty"`
	Abstract                string             `yaml:"abstract,omitempty"`
	MetadataLanguage        string             `yaml:"metadata-language,omitempty"`
	MetadataDate            string             `yaml:"metadata-date,omitempty"`
	DatasetLanguage         []string           `yaml:"dataset-language,omitempty"`
	ResponsibleOrganisation []ResponsibleParty `yaml:"responsible-organisation,omitempty"`
	Tags                    []string           `yaml:"tags,omitempty"`
	TopicCategory           []string           `yaml:"topic-category,omitempty"`
	BBox                    []BoundingBox      `yaml:"bbox,omitempty"`
	DateReleased            string             `yaml:"date-released,omitempty"`
	DateUpdated             string             `yaml:"date-updated,omitempty"`
	DateCreated             string             `yaml:"date-created,omitempty"`
	UseConstraints          []string           `yaml:"use-constraints,omitempty"`
	TemporalExtentBegin     []string           `yaml:"temporal-extent-begin,omitempty"`
	TemporalExtentEnd       []string           `yaml:"temporal-extent-end,omitempty"`
	Lineage                 string             `yaml:"lineage,omitempty"`
}

// ResponsibleParty is a contact with one or more ISO role codes.
type ResponsibleParty struct {
	IndividualName   string      `yaml:"individual-name,omitempty"`
	OrganisationName string      `yaml:"organisation-name,omitempty"`
	ContactInfo      ContactInfo `yaml:"contact-info,omitempty"`
	Role             []string    `yaml:"role,omitempty"`
}

// HasRole reports whether the party carries the given role code.
func (p ResponsibleParty) HasRole(role string) bool {
	for _, r := range p.Role {
		if r == role {
			return true
		}
	}
	return false
}

// ContactInfo holds a party's contact details.
type ContactInfo struct {
	Email string `yaml:"email,omitempty"`
}

// BoundingBox is a geographic bounding box in decimal degrees.
type BoundingBox struct {
	West  string `yaml:"west"`
	East  string `yaml:"east"`
	North string `yaml:"north"`
	South string `yaml:"south"`
}

// LoadValues reads a pre-extracted values view from YAML.
func LoadValues(r io.Reader) (*Values, error) {
	var v Values
	if err := yaml.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding ISO 19139 values: %w", err)
	}
	return &v, nil
}

// ExtractValues flattens the first MD_Metadata element in doc. The element
// may be bare or wrapped in an OAI-PMH or CSW response.
func ExtractValues(doc []byte, opts *format.MapOptions) (*Values, error) {
	decoder := xml.NewDecoder(bytes.NewReader(doc))

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil, format.Malformed(format.DialectISO19139, opts, "no MD_Metadata element found", nil)
		}
		if err != nil {
			return nil, format.Malformed(format.DialectISO19139, opts, "parsing XML", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "MD_Metadata" {
			continue
		}

		var md XMLMetadata
		if err := decoder.DecodeElement(&md, &start); err != nil {
			return nil, format.Malformed(format.DialectISO19139, opts, "decoding MD_Metadata", err)
		}
		return md.values(), nil
	}
}

func (md *XMLMetadata) values() *Values {
	v := &Values{
		GUID:             strings.TrimSpace(md.FileIdentifier),
		MetadataLanguage: md.Language.value(),
		MetadataDate:     firstNonEmpty(md.DateStamp.Date, md.DateStamp.DateTime),
	}

	if id := md.Identification; id != nil {
		v.Title = strings.TrimSpace(id.Citation.Title)
		v.Abstract = strings.TrimSpace(id.Abstract)

		for _, d := range id.Citation.Dates {
			date := firstNonEmpty(d.Date, d.DateTime)
			switch d.Type.value() {
			case "publication":
				v.DateReleased = date
			case "revision":
				v.DateUpdated = date
			case "creation":
				v.DateCreated = date
			}
		}

		for _, p := range id.Citation.CitedParties {
			v.ResponsibleOrganisation = append(v.ResponsibleOrganisation, p.party())
		}
		for _, p := range id.PointsOfContact {
			v.ResponsibleOrganisation = append(v.ResponsibleOrganisation, p.party())
		}

		for _, lang := range id.Languages {
			if l := lang.value(); l != "" {
				v.DatasetLanguage = append(v.DatasetLanguage, l)
			}
		}
		v.Tags = trimAll(id.Keywords)
		v.TopicCategory = trimAll(id.TopicCategories)
		v.UseConstraints = append(trimAll(id.UseLimitations), trimAll(id.LegalUseLimitations)...)
		v.UseConstraints = append(v.UseConstraints, trimAll(id.OtherConstraints)...)

		for _, ext := range id.Extents {
			for _, b := range ext.BoundingBoxes {
				v.BBox = append(v.BBox, BoundingBox{
					West:  strings.TrimSpace(b.West),
					East:  strings.TrimSpace(b.East),
					North: strings.TrimSpace(b.North),
					South: strings.TrimSpace(b.South),
				})
			}
			for _, tp := range ext.TimePeriods {
				v.TemporalExtentBegin = append(v.TemporalExtentBegin, strings.TrimSpace(tp.Begin))
				v.TemporalExtentEnd = append(v.TemporalExtentEnd, strings.TrimSpace(tp.End))
			}
		}
	}

	for _, p := range md.DistributorContacts {
		party := p.party()
		if len(party.Role) == 0 {
			party.Role = []string{"distributor"}
		}
		v.ResponsibleOrganisation = append(v.ResponsibleOrganisation, party)
	}

	v.Lineage = strings.TrimSpace(md.Lineage)
	return v
}

func (p XMLResponsibleParty) party() ResponsibleParty {
	out := ResponsibleParty{
		IndividualName:   strings.TrimSpace(p.IndividualName),
		OrganisationName: strings.TrimSpace(p.OrganisationName),
		ContactInfo:      ContactInfo{Email: strings.TrimSpace(p.Email)},
	}
	if role := p.Role.value(); role != "" {
		out.Role = []string{role}
	}
	return out
}

func (c XMLCode) value() string {
	if v := strings.TrimSpace(c.CodeListValue); v != "" {
		return v
	}
	return strings.TrimSpace(c.Value)
}

func (l XMLLanguage) value() string {
	if v := l.Code.value(); v != "" {
		return v
	}
	return strings.TrimSpace(l.CharacterString)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// XML types for gmd parsing. Element names match in any namespace.

// XMLMetadata is the gmd:MD_Metadata root.
type XMLMetadata struct {
	FileIdentifier      string                 `xml:"fileIdentifier>CharacterString"`
	Language            XMLLanguage            `xml:"language"`
	DateStamp           XMLDateValue           `xml:"dateStamp"`
	Identification      *XMLDataIdentification `xml:"identificationInfo>MD_DataIdentification"`
	DistributorContacts []XMLResponsibleParty  `xml:"distributionInfo>MD_Distribution>distributor>MD_Distributor>distributorContact>CI_ResponsibleParty"`
	Lineage             string                 `xml:"dataQualityInfo>DQ_DataQuality>lineage>LI_Lineage>statement>CharacterString"`
}

// XMLLanguage is a language given as a code list value or free text.
type XMLLanguage struct {
	Code            XMLCode `xml:"LanguageCode"`
	CharacterString string  `xml:"CharacterString"`
}

// XMLCode is an ISO code list element.
type XMLCode struct {
	Value         string `xml:",chardata"`
	CodeListValue string `xml:"codeListValue,attr"`
}

// XMLDateValue is a gco:Date or gco:DateTime wrapper.
type XMLDateValue struct {
	Date     string `xml:"Date"`
	DateTime string `xml:"DateTime"`
}

// XMLDataIdentification is the dataset identification section.
type XMLDataIdentification struct {
	Citation            XMLCitation           `xml:"citation>CI_Citation"`
	Abstract            string                `xml:"abstract>CharacterString"`
	PointsOfContact     []XMLResponsibleParty `xml:"pointOfContact>CI_ResponsibleParty"`
	Keywords            []string              `xml:"descriptiveKeywords>MD_Keywords>keyword>CharacterString"`
	UseLimitations      []string              `xml:"resourceConstraints>MD_Constraints>useLimitation>CharacterString"`
	LegalUseLimitations []string              `xml:"resourceConstraints>MD_LegalConstraints>useLimitation>CharacterString"`
	OtherConstraints    []string              `xml:"resourceConstraints>MD_LegalConstraints>otherConstraints>CharacterString"`
	Languages           []XMLLanguage         `xml:"language"`
	TopicCategories     []string              `xml:"topicCategory>MD_TopicCategoryCode"`
	Extents             []XMLExtent           `xml:"extent>EX_Extent"`
}

// XMLCitation is a CI_Citation.
type XMLCitation struct {
	Title        string                `xml:"title>CharacterString"`
	Dates        []XMLCitationDate     `xml:"date>CI_Date"`
	CitedParties []XMLResponsibleParty `xml:"citedResponsibleParty>CI_ResponsibleParty"`
}

// XMLCitationDate is a CI_Date with its type code.
type XMLCitationDate struct {
	Date     string  `xml:"date>Date"`
	DateTime string  `xml:"date>DateTime"`
	Type     XMLCode `xml:"dateType>CI_DateTypeCode"`
}

// XMLResponsibleParty is a CI_ResponsibleParty.
type XMLResponsibleParty struct {
	IndividualName   string  `xml:"individualName>CharacterString"`
	OrganisationName string  `xml:"organisationName>CharacterString"`
	Email            string  `xml:"contactInfo>CI_Contact>address>CI_Address>electronicMailAddress>CharacterString"`
	Role             XMLCode `xml:"role>CI_RoleCode"`
}

// XMLExtent is an EX_Extent.
type XMLExtent struct {
	BoundingBoxes []XMLBoundingBox `xml:"geographicElement>EX_GeographicBoundingBox"`
	TimePeriods   []XMLTimePeriod  `xml:"temporalElement>EX_TemporalExtent>extent>TimePeriod"`
}

// XMLBoundingBox is an EX_GeographicBoundingBox.
type XMLBoundingBox struct {
	West  string `xml:"westBoundLongitude>Decimal"`
	East  string `xml:"eastBoundLongitude>Decimal"`
	South string `xml:"southBoundLatitude>Decimal"`
	North string `xml:"northBoundLatitude>Decimal"`
}

// XMLTimePeriod is a gml:TimePeriod.
type XMLTimePeriod struct {
	Begin string `xml:"beginPosition"`
	End   string `xml:"endPosition"`
}
