package ddi25

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

// Document is a decoded DDI codebook. Refiners re-inspect it for access
// conditions the generic mapping only carries as free text.
type Document struct {
	study *XMLStudy
}

// ParseDocument decodes the first codeBook element in data, bare or wrapped
// in an OAI-PMH response.
func ParseDocument(data []byte) (*Document, error) {
	return parseDocument(data, nil)
}

func parseDocument(data []byte, opts *format.MapOptions) (*Document, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil, format.Malformed(format.DialectDDI25, opts, "no codeBook element found", nil)
		}
		if err != nil {
			return nil, format.Malformed(format.DialectDDI25, opts, "parsing XML", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "codeBook" {
			continue
		}

		var cb XMLCodeBook
		if err := decoder.DecodeElement(&cb, &start); err != nil {
			return nil, format.Malformed(format.DialectDDI25, opts, "decoding codeBook", err)
		}
		if cb.Study == nil {
			return nil, format.Malformed(format.DialectDDI25, opts, "no stdyDscr element found", nil)
		}
		return &Document{study: cb.Study}, nil
	}
}

// Map converts a DDI 2.5 codebook into an unrefined record.
func (f *Format) Map(doc []byte, opts *format.MapOptions) (*hub.Record, error) {
	d, err := parseDocument(doc, opts)
	if err != nil {
		return nil, err
	}
	return d.Record(), nil
}

// Record maps the study description into the canonical record shape.
func (d *Document) Record() *hub.Record {
	citation := d.study.Citation
	info := d.study.StudyInfo
	record := hub.NewRecord()

	record.PreferredIdentifier = d.Identifier()

	for _, t := range citation.TitleStmt.Titles {
		record.Title.Set(t.Lang, hub.CleanText(t.Value))
	}
	// Parallel titles fill languages the main title lacks
	for _, t := range citation.TitleStmt.ParallelTitles {
		if _, ok := record.Title[langOrUnd(t.Lang)]; !ok {
			record.Title.Set(t.Lang, hub.CleanText(t.Value))
		}
	}

	record.Description = groupByLanguage(info.Abstracts, true)

	for _, a := range citation.RspStmt.Authors {
		if agent := entityToAgent(a); agent != nil {
			record.Creator = append(record.Creator, agent)
		}
	}

	for _, p := range citation.ProdStmt.Producers {
		if agent := entityToAgent(p); agent != nil {
			record.Contributor = append(record.Contributor, agent)
		}
	}

	for _, dist := range citation.DistStmt.Distributors {
		if agent := entityToAgent(dist); agent != nil {
			record.Publisher = agent
			break
		}
	}

	for _, c := range citation.DistStmt.Contacts {
		agent := entityToAgent(c.XMLEntity)
		if agent == nil {
			continue
		}
		agent.Email = strings.TrimSpace(c.Email)
		record.Curator = append(record.Curator, agent)
	}

	for _, v := range citation.VerStmt {
		if date := helpers.NormalizeDate(v.Version.Date); date != "" {
			record.Modified = date
			break
		}
	}

	record.Issued = helpers.NormalizeDate(citation.DistStmt.DistDate.Date)
	if record.Issued == "" {
		record.Issued = helpers.NormalizeDate(citation.ProdStmt.ProdDate.Date)
	}

	for _, kw := range info.Subject.Keywords {
		record.AddKeyword(hub.CleanText(kw.Value))
	}
	for _, tc := range info.Subject.TopicClasses {
		record.AddKeyword(hub.CleanText(tc.Value))
	}

	record.Temporal = temporalCoverage(info.SumDscr.TimePeriods)

	seen := map[string]bool{}
	for _, g := range info.SumDscr.GeogCovers {
		name := hub.CleanText(g.Value)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		record.Spatial = append(record.Spatial, hub.Spatial{GeographicName: name})
	}

	if restrictions := groupByLanguage(d.study.DataAccess.UseStmt.Restrictions, false); len(restrictions) > 0 {
		record.EnsureAccessRights().Description = restrictions
	}

	for _, desc := range groupByLanguage(d.study.Method.DataColl.CollModes, false) {
		record.Provenance = append(record.Provenance, hub.Provenance{Description: desc})
	}

	record.Source = &hub.SourceInfo{
		Format:   format.DialectDDI25.String(),
		SourceID: record.PreferredIdentifier,
	}

	return record
}

// Identifier returns the study number, preferring a URN.
func (d *Document) Identifier() string {
	var fallback string
	for _, id := range d.study.Citation.TitleStmt.IDNos {
		val := strings.TrimSpace(id.Value)
		if val == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(val), "urn:") {
			return val
		}
		if fallback == "" {
			fallback = val
		}
	}
	return fallback
}

// Restrictions returns the dataAccs/useStmt/restrctn texts keyed by language.
func (d *Document) Restrictions() hub.LangString {
	out := make(hub.LangString)
	for _, r := range d.study.DataAccess.UseStmt.Restrictions {
		if _, ok := out[langOrUnd(r.Lang)]; !ok {
			out.Set(r.Lang, hub.CleanText(r.Value))
		}
	}
	return out
}

// entityToAgent treats "Family, Given" names as people and everything else
// as an organization. A person's affiliation becomes member_of.
func entityToAgent(e XMLEntity) *hub.Agent {
	name := hub.CleanText(e.Value)
	if name == "" {
		return nil
	}
	if !helpers.IsInvertedName(name) {
		return hub.NewOrganization(e.Lang, name)
	}
	a := hub.NewPerson(helpers.FormatNameDirect(name))
	if aff := hub.CleanText(e.Affiliation); aff != "" {
		a.MemberOf = hub.NewOrganization(e.Lang, aff)
	}
	return a
}

// groupByLanguage folds language variants into as few LangStrings as
// possible: each text joins the first entry lacking its language. With
// stripHTML set, embedded markup is removed first.
func groupByLanguage(texts []XMLLangText, stripHTML bool) []hub.LangString {
	var out []hub.LangString
	for _, t := range texts {
		val := t.Value
		if stripHTML {
			val = helpers.StripHTML(val)
		}
		val = hub.CleanText(val)
		if val == "" {
			continue
		}
		lang := langOrUnd(t.Lang)
		placed := false
		for _, ls := range out {
			if _, ok := ls[lang]; !ok {
				ls.Set(lang, val)
				placed = true
				break
			}
		}
		if !placed {
			ls := make(hub.LangString)
			ls.Set(lang, val)
			out = append(out, ls)
		}
	}
	return out
}

// temporalCoverage pairs start events with the next end event. Language
// variants repeat the same periods, so duplicates are dropped.
func temporalCoverage(periods []XMLTimePeriod) []hub.Temporal {
	var out []hub.Temporal
	seen := map[hub.Temporal]bool{}
	add := func(t hub.Temporal) {
		if t.StartDate == "" && t.EndDate == "" {
			return
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	var open *hub.Temporal
	for _, p := range periods {
		date := helpers.NormalizeDate(p.Date)
		if date == "" {
			date = helpers.NormalizeDate(p.Value)
		}
		if date == "" {
			continue
		}
		switch strings.ToLower(p.Event) {
		case "start":
			if open != nil {
				add(*open)
			}
			open = &hub.Temporal{StartDate: date}
		case "end":
			if open != nil {
				open.EndDate = date
				add(*open)
				open = nil
			} else {
				add(hub.Temporal{EndDate: date})
			}
		default:
			add(hub.Temporal{StartDate: date, EndDate: date})
		}
	}
	if open != nil {
		add(*open)
	}
	return out
}

func langOrUnd(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return hub.UndeterminedLanguage
	}
	return lang
}

// XML types for DDI 2.5 parsing. Element names match in any namespace.

// XMLCodeBook is the DDI codeBook root.
type XMLCodeBook struct {
	Study *XMLStudy `xml:"stdyDscr"`
}

// XMLStudy is the study description.
type XMLStudy struct {
	Citation   XMLCitation   `xml:"citation"`
	StudyInfo  XMLStudyInfo  `xml:"stdyInfo"`
	Method     XMLMethod     `xml:"method"`
	DataAccess XMLDataAccess `xml:"dataAccs"`
}

// XMLCitation is the study's bibliographic citation.
type XMLCitation struct {
	TitleStmt XMLTitleStmt `xml:"titlStmt"`
	RspStmt   XMLRspStmt   `xml:"rspStmt"`
	ProdStmt  XMLProdStmt  `xml:"prodStmt"`
	DistStmt  XMLDistStmt  `xml:"distStmt"`
	VerStmt   []XMLVerStmt `xml:"verStmt"`
}

// XMLTitleStmt holds titles and study numbers.
type XMLTitleStmt struct {
	Titles         []XMLLangText `xml:"titl"`
	ParallelTitles []XMLLangText `xml:"parTitl"`
	IDNos          []XMLIDNo     `xml:"IDNo"`
}

// XMLIDNo is a study number.
type XMLIDNo struct {
	Value  string `xml:",chardata"`
	Agency string `xml:"agency,attr"`
}

// XMLRspStmt lists authoring entities.
type XMLRspStmt struct {
	Authors []XMLEntity `xml:"AuthEnty"`
}

// XMLProdStmt holds producers and the production date.
type XMLProdStmt struct {
	Producers []XMLEntity `xml:"producer"`
	ProdDate  XMLDated    `xml:"prodDate"`
}

// XMLDistStmt holds distributors, contacts and the distribution date.
type XMLDistStmt struct {
	Distributors []XMLEntity  `xml:"distrbtr"`
	Contacts     []XMLContact `xml:"contact"`
	DistDate     XMLDated     `xml:"distDate"`
}

// XMLVerStmt is a version statement.
type XMLVerStmt struct {
	Version XMLDated `xml:"version"`
}

// XMLEntity is a named person or organization.
type XMLEntity struct {
	Value       string `xml:",chardata"`
	Lang        string `xml:"lang,attr"`
	Affiliation string `xml:"affiliation,attr"`
}

// XMLContact is a contact entity with an email attribute.
type XMLContact struct {
	XMLEntity
	Email string `xml:"email,attr"`
}

// XMLDated is an element carrying a date attribute.
type XMLDated struct {
	Value string `xml:",chardata"`
	Date  string `xml:"date,attr"`
}

// XMLLangText is a language-tagged text element.
type XMLLangText struct {
	Value string `xml:",chardata"`
	Lang  string `xml:"lang,attr"`
}

// XMLStudyInfo holds subject, abstract and coverage.
type XMLStudyInfo struct {
	Subject   XMLSubject    `xml:"subject"`
	Abstracts []XMLLangText `xml:"abstract"`
	SumDscr   XMLSumDscr    `xml:"sumDscr"`
}

// XMLSubject holds keywords and topic classifications.
type XMLSubject struct {
	Keywords     []XMLLangText `xml:"keyword"`
	TopicClasses []XMLLangText `xml:"topcClas"`
}

// XMLSumDscr is the summary data description.
type XMLSumDscr struct {
	TimePeriods []XMLTimePeriod `xml:"timePrd"`
	GeogCovers  []XMLLangText   `xml:"geogCover"`
}

// XMLTimePeriod is a coverage period boundary.
type XMLTimePeriod struct {
	Value string `xml:",chardata"`
	Date  string `xml:"date,attr"`
	Event string `xml:"event,attr"`
}

// XMLMethod is the methodology section.
type XMLMethod struct {
	DataColl XMLDataColl `xml:"dataColl"`
}

// XMLDataColl describes data collection.
type XMLDataColl struct {
	CollModes []XMLLangText `xml:"collMode"`
}

// XMLDataAccess describes access conditions.
type XMLDataAccess struct {
	UseStmt XMLUseStmt `xml:"useStmt"`
}

// XMLUseStmt holds use restrictions.
type XMLUseStmt struct {
	Restrictions []XMLLangText `xml:"restrctn"`
}
