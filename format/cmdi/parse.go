package cmdi

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

// Document is a decoded CMDI record. Refiners re-inspect it for fields the
// generic mapping does not carry (license tokens, metadata PIDs).
type Document struct {
	cmd *XMLCMD
}

// ParseDocument decodes the first CMD element in data, which may be a bare
// CMD document or an OAI-PMH response wrapping one.
func ParseDocument(data []byte) (*Document, error) {
	return parseDocument(data, nil)
}

func parseDocument(data []byte, opts *format.MapOptions) (*Document, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil, format.Malformed(format.DialectCMDI, opts, "no CMD element found", nil)
		}
		if err != nil {
			return nil, format.Malformed(format.DialectCMDI, opts, "parsing XML", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "CMD" {
			continue
		}

		var cmd XMLCMD
		if err := decoder.DecodeElement(&cmd, &start); err != nil {
			return nil, format.Malformed(format.DialectCMDI, opts, "decoding CMD element", err)
		}
		if cmd.ResourceInfo == nil {
			return nil, format.Malformed(format.DialectCMDI, opts, "no Components/resourceInfo element found", nil)
		}
		return &Document{cmd: &cmd}, nil
	}
}

// Map converts a CMDI document into an unrefined record.
func (f *Format) Map(doc []byte, opts *format.MapOptions) (*hub.Record, error) {
	d, err := parseDocument(doc, opts)
	if err != nil {
		return nil, err
	}
	return d.Record(), nil
}

// Record maps the document into the canonical record shape.
func (d *Document) Record() *hub.Record {
	ri := d.cmd.ResourceInfo
	record := hub.NewRecord()

	titles := ri.IdentificationInfo.ResourceNames
	if len(titles) == 0 {
		titles = ri.TitleStatements
	}
	for _, t := range titles {
		record.Title.Set(t.Lang, hub.CleanText(t.Value))
	}

	desc := make(hub.LangString)
	for _, dsc := range ri.IdentificationInfo.Descriptions {
		desc.Set(dsc.Lang, hub.CleanText(dsc.Value))
	}
	if len(desc) > 0 {
		record.Description = []hub.LangString{desc}
	}

	for _, lang := range d.Languages() {
		record.Language = append(record.Language, hub.LanguageConcept(lang))
	}

	record.Modified = helpers.NormalizeDate(ri.MetadataInfo.LastDateUpdated)

	if start, end, ok := helpers.ParseTemporalCoverage(d.TemporalCoverage()); ok {
		record.Temporal = []hub.Temporal{{StartDate: start, EndDate: end}}
	}

	// IPR holders are both creators and owners of the resource.
	for _, p := range ri.DistributionInfo.IPRHolderPersons {
		record.Creator = appendAgent(record.Creator, personAgent(p))
	}
	for _, o := range ri.DistributionInfo.IPRHolderOrganizations {
		record.Creator = appendAgent(record.Creator, organizationAgent(o))
	}

	for _, li := range ri.DistributionInfo.LicenceInfos {
		if len(li.RightsHolderPersons) > 0 {
			record.Publisher = personAgent(li.RightsHolderPersons[0])
			break
		}
	}

	for _, p := range ri.ContactPersons {
		record.Curator = appendAgent(record.Curator, personAgent(p))
	}
	for _, li := range ri.DistributionInfo.LicenceInfos {
		for _, o := range li.RightsHolderOrganizations {
			record.Curator = appendAgent(record.Curator, organizationAgent(o))
		}
	}

	sourceID := strings.TrimSpace(d.cmd.Header.MdSelfLink)
	if sourceID == "" {
		if ids := d.MetadataIdentifiers(); len(ids) > 0 {
			sourceID = ids[0]
		}
	}
	record.Source = &hub.SourceInfo{
		Format:   format.DialectCMDI.String(),
		SourceID: sourceID,
	}

	return record
}

// Languages returns the lowercased language codes of the text and audio
// corpora. Compound codes such as "yrk-tun" are split into their parts.
func (d *Document) Languages() []string {
	var raw []string
	seen := map[string]bool{}
	add := func(infos []XMLLanguageInfo) {
		for _, li := range infos {
			id := strings.TrimSpace(li.LanguageID)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			raw = append(raw, id)
		}
	}
	for _, mt := range d.corpusMediaTypes() {
		for _, ti := range mt.TextInfos {
			add(ti.LanguageInfos)
		}
	}
	for _, mt := range d.corpusMediaTypes() {
		for _, ai := range mt.AudioInfos {
			add(ai.LanguageInfos)
		}
	}

	var out []string
	for _, lang := range raw {
		for _, part := range strings.Split(lang, "-") {
			if part != "" {
				out = append(out, strings.ToLower(part))
			}
		}
	}
	return out
}

// TemporalCoverage returns the first time coverage of the text corpus,
// falling back to the audio corpus.
func (d *Document) TemporalCoverage() string {
	for _, mt := range d.corpusMediaTypes() {
		for _, ti := range mt.TextInfos {
			for _, tc := range ti.TimeCoverageInfos {
				if v := strings.TrimSpace(tc.TimeCoverage); v != "" {
					return v
				}
			}
		}
	}
	for _, mt := range d.corpusMediaTypes() {
		for _, ai := range mt.AudioInfos {
			for _, tc := range ai.TimeCoverageInfos {
				if v := strings.TrimSpace(tc.TimeCoverage); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// License returns the first license token in the distribution info.
func (d *Document) License() string {
	for _, li := range d.cmd.ResourceInfo.DistributionInfo.LicenceInfos {
		for _, l := range li.Licences {
			if v := strings.TrimSpace(l); v != "" {
				return v
			}
		}
	}
	return ""
}

// MetadataIdentifiers returns identificationInfo/identifier values.
func (d *Document) MetadataIdentifiers() []string {
	return trimAll(d.cmd.ResourceInfo.IdentificationInfo.Identifiers)
}

// URLs returns identificationInfo/url values.
func (d *Document) URLs() []string {
	return trimAll(d.cmd.ResourceInfo.IdentificationInfo.URLs)
}

func (d *Document) corpusMediaTypes() []XMLCorpusMediaType {
	return d.cmd.ResourceInfo.CorpusMediaTypes
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

func appendAgent(agents []*hub.Agent, a *hub.Agent) []*hub.Agent {
	if a.IsEmpty() {
		return agents
	}
	return append(agents, a)
}

// personAgent converts a CMDI person into a person agent.
func personAgent(p XMLPerson) *hub.Agent {
	info := p.PersonInfo
	a := hub.NewPerson(hub.CleanText(helpers.JoinName(first(info.GivenNames), first(info.Surnames))))
	a.Email = first(info.CommunicationInfo.Emails)
	a.Phone = first(info.CommunicationInfo.TelephoneNumbers)
	a.Identifier = first(info.CommunicationInfo.URLs)
	if len(info.Affiliations) > 0 {
		if org := organizationAgent(info.Affiliations[0]); !org.IsEmpty() {
			a.MemberOf = org
		}
	}
	return a
}

// organizationAgent converts a CMDI organization into an organization agent,
// merging language-tagged name variants.
func organizationAgent(o XMLOrganization) *hub.Agent {
	info := o.OrganizationInfo
	var langs, names []string
	for _, n := range info.OrganizationNames {
		name := hub.CleanText(n.Value)
		if name == "" {
			continue
		}
		names = append(names, name)
		lang := strings.TrimSpace(n.Lang)
		if lang == "" {
			lang = hub.UndeterminedLanguage
		}
		langs = append(langs, lang)
	}
	return &hub.Agent{
		Type:     hub.AgentOrganization,
		OrgName:  hub.MergeOrganizationNames(langs, names),
		Email:    first(info.CommunicationInfo.Emails),
		Phone:    first(info.CommunicationInfo.TelephoneNumbers),
		Homepage: first(info.CommunicationInfo.URLs),
	}
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// XML types for CMDI parsing. Element names match in any namespace.

// XMLCMD is the CMD envelope.
type XMLCMD struct {
	Header       XMLHeader        `xml:"Header"`
	ResourceInfo *XMLResourceInfo `xml:"Components>resourceInfo"`
}

// XMLHeader is the CMD header.
type XMLHeader struct {
	MdSelfLink string `xml:"MdSelfLink"`
}

// XMLResourceInfo is the META-SHARE resourceInfo component.
type XMLResourceInfo struct {
	IdentificationInfo XMLIdentificationInfo `xml:"identificationInfo"`
	TitleStatements    []XMLLangText         `xml:"titlStmt>titl"`
	DistributionInfo   XMLDistributionInfo   `xml:"distributionInfo"`
	ContactPersons     []XMLPerson           `xml:"contactPerson"`
	MetadataInfo       XMLMetadataInfo       `xml:"metadataInfo"`
	CorpusMediaTypes   []XMLCorpusMediaType  `xml:"resourceComponentType>corpusInfo>corpusMediaType"`
}

// XMLIdentificationInfo holds names, descriptions and identifiers.
type XMLIdentificationInfo struct {
	ResourceNames []XMLLangText `xml:"resourceName"`
	Descriptions  []XMLLangText `xml:"description"`
	Identifiers   []string      `xml:"identifier"`
	URLs          []string      `xml:"url"`
}

// XMLLangText is a language-tagged text element.
type XMLLangText struct {
	Value string `xml:",chardata"`
	Lang  string `xml:"lang,attr"`
}

// XMLDistributionInfo holds licensing and rights holders.
type XMLDistributionInfo struct {
	LicenceInfos           []XMLLicenceInfo  `xml:"licenceInfo"`
	IPRHolderPersons       []XMLPerson       `xml:"iprHolderPerson"`
	IPRHolderOrganizations []XMLOrganization `xml:"iprHolderOrganization"`
}

// XMLLicenceInfo is one licence block.
type XMLLicenceInfo struct {
	Licences                  []string          `xml:"licence"`
	RightsHolderPersons       []XMLPerson       `xml:"distributionRightsHolderPerson"`
	RightsHolderOrganizations []XMLOrganization `xml:"distributionRightsHolderOrganization"`
}

// XMLPerson is a META-SHARE person component.
type XMLPerson struct {
	Role       string        `xml:"role"`
	PersonInfo XMLPersonInfo `xml:"personInfo"`
}

// XMLPersonInfo carries a person's names, contact details and affiliations.
type XMLPersonInfo struct {
	Surnames          []string             `xml:"surname"`
	GivenNames        []string             `xml:"givenName"`
	CommunicationInfo XMLCommunicationInfo `xml:"communicationInfo"`
	Affiliations      []XMLOrganization    `xml:"affiliation"`
}

// XMLOrganization is a META-SHARE organization component.
type XMLOrganization struct {
	Role             string              `xml:"role"`
	OrganizationInfo XMLOrganizationInfo `xml:"organizationInfo"`
}

// XMLOrganizationInfo carries organization names and contact details.
type XMLOrganizationInfo struct {
	OrganizationNames []XMLLangText        `xml:"organizationName"`
	ShortName         string               `xml:"organizationShortName"`
	CommunicationInfo XMLCommunicationInfo `xml:"communicationInfo"`
}

// XMLCommunicationInfo holds contact details.
type XMLCommunicationInfo struct {
	Emails           []string `xml:"email"`
	TelephoneNumbers []string `xml:"telephoneNumber"`
	URLs             []string `xml:"url"`
}

// XMLMetadataInfo holds metadata bookkeeping dates.
type XMLMetadataInfo struct {
	LastDateUpdated string `xml:"metadataLastDateUpdated"`
}

// XMLCorpusMediaType groups text and audio corpus descriptions.
type XMLCorpusMediaType struct {
	TextInfos  []XMLCorpusInfo `xml:"corpusTextInfo"`
	AudioInfos []XMLCorpusInfo `xml:"corpusAudioInfo"`
}

// XMLCorpusInfo carries language and time coverage of a corpus part.
type XMLCorpusInfo struct {
	LanguageInfos     []XMLLanguageInfo     `xml:"languageInfo"`
	TimeCoverageInfos []XMLTimeCoverageInfo `xml:"timeCoverageInfo"`
}

// XMLLanguageInfo holds one corpus language.
type XMLLanguageInfo struct {
	LanguageID string `xml:"languageId"`
}

// XMLTimeCoverageInfo holds one time coverage expression.
type XMLTimeCoverageInfo struct {
	TimeCoverage string `xml:"timeCoverage"`
}
