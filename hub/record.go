// Package hub provides the canonical dataset record that every source dialect
// is mapped into, and helpers for working with it.
package hub

// LangString holds one value per language tag (e.g. {"fi": "...", "en": "..."}).
// The tag "und" is used when the source does not declare a language.
type LangString map[string]string

// UndeterminedLanguage is the tag used for values without a declared language.
const UndeterminedLanguage = "und"

// Set stores value under lang, defaulting lang to "und".
// Empty values are ignored.
func (l LangString) Set(lang, value string) {
	if value == "" {
		return
	}
	if lang == "" {
		lang = UndeterminedLanguage
	}
	l[lang] = value
}

// First returns a value in a stable order: "und", "en", "fi", then the
// lexically smallest remaining tag.
func (l LangString) First() string {
	for _, lang := range []string{UndeterminedLanguage, "en", "fi"} {
		if v, ok := l[lang]; ok {
			return v
		}
	}
	best := ""
	for lang := range l {
		if best == "" || lang < best {
			best = lang
		}
	}
	return l[best]
}

// Concept is a reference to a reference-data entry, identified by URI or code.
type Concept struct {
	Identifier string
}

// Record is the canonical research dataset representation.
// It is built fresh per harvest cycle by a mapper, completed by a refiner and
// consumed once by the sync coordinator.
type Record struct {
	PreferredIdentifier string
	Title               LangString
	Description         []LangString
	Language            []Concept

	Creator      []*Agent
	Curator      []*Agent
	Publisher    *Agent
	RightsHolder []*Agent
	Contributor  []*Agent

	AccessRights *AccessRights

	Provenance      []Provenance
	Temporal        []Temporal
	Spatial         []Spatial
	Keyword         []string
	FieldOfScience  []Concept
	OtherIdentifier []OtherIdentifier

	Modified string
	Issued   string

	// Source is mapper bookkeeping and is never sent to the catalog.
	Source *SourceInfo
}

// SourceInfo tracks where a record was mapped from.
type SourceInfo struct {
	Format   string
	SourceID string
}

// AccessRights describes licensing and access conditions.
type AccessRights struct {
	License            []Concept
	AccessType         *Concept
	RestrictionGrounds []Concept
	Description        []LangString
}

// Provenance describes an event in the dataset's history.
type Provenance struct {
	Title       LangString
	Description LangString
}

// Temporal is a period of time covered by the dataset.
// Dates are kept as they appear in the source.
type Temporal struct {
	StartDate string
	EndDate   string
}

// Spatial is a geographic area covered by the dataset.
type Spatial struct {
	GeographicName string
	AsWKT          []string
}

// OtherIdentifier is an additional identifier of the same dataset.
type OtherIdentifier struct {
	Notation string
	Type     string
}

// IdentifierTypeURN is the reference-data URI for URN-type identifiers.
const IdentifierTypeURN = "http://purl.org/att/es/reference_data/identifier_type/identifier_type_urn"

// NewRecord creates an empty record with initialized maps.
func NewRecord() *Record {
	return &Record{
		Title: make(LangString),
	}
}

// AddOtherIdentifier appends an identifier unless the same notation is already present.
func (r *Record) AddOtherIdentifier(notation, idType string) {
	if notation == "" {
		return
	}
	for _, o := range r.OtherIdentifier {
		if o.Notation == notation {
			return
		}
	}
	r.OtherIdentifier = append(r.OtherIdentifier, OtherIdentifier{Notation: notation, Type: idType})
}

// AddKeyword appends a keyword unless it is empty or already present.
func (r *Record) AddKeyword(kw string) {
	if kw == "" {
		return
	}
	for _, k := range r.Keyword {
		if k == kw {
			return
		}
	}
	r.Keyword = append(r.Keyword, kw)
}

// EnsureAccessRights returns the record's access rights, creating them if needed.
func (r *Record) EnsureAccessRights() *AccessRights {
	if r.AccessRights == nil {
		r.AccessRights = &AccessRights{}
	}
	return r.AccessRights
}

// DisplayTitle returns a single title suitable for logs and local bookkeeping.
func (r *Record) DisplayTitle() string {
	if len(r.Title) == 0 {
		return ""
	}
	return r.Title.First()
}
