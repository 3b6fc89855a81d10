package hub

import "strings"

// AgentType distinguishes people from organizations.
type AgentType int

const (
	AgentPerson AgentType = iota + 1
	AgentOrganization
)

// String returns the catalog's @type value.
func (t AgentType) String() string {
	switch t {
	case AgentPerson:
		return "Person"
	case AgentOrganization:
		return "Organization"
	default:
		return ""
	}
}

// Agent is a person or organization related to the dataset.
// People carry a plain Name; organizations carry language variants in OrgName.
type Agent struct {
	Type       AgentType
	Name       string
	OrgName    LangString
	Email      string
	Phone      string
	Identifier string
	Homepage   string
	MemberOf   *Agent
}

// NewPerson creates a person agent.
func NewPerson(name string) *Agent {
	return &Agent{Type: AgentPerson, Name: name}
}

// NewOrganization creates an organization agent with a single named variant.
func NewOrganization(lang, name string) *Agent {
	a := &Agent{Type: AgentOrganization, OrgName: make(LangString)}
	a.OrgName.Set(lang, name)
	return a
}

// DisplayName returns the best available display name for the agent.
func (a *Agent) DisplayName() string {
	if a == nil {
		return ""
	}
	if a.Type == AgentOrganization {
		return a.OrgName.First()
	}
	return a.Name
}

// IsEmpty reports whether the agent carries no name at all.
func (a *Agent) IsEmpty() bool {
	return a == nil || (a.Name == "" && len(a.OrgName) == 0)
}

// AgentFromContact applies the shared contact policy: a contact is a person
// if an individual name is present, else an organization. A person's
// organization becomes MemberOf.
func AgentFromContact(individual, organisation, email, lang string) *Agent {
	individual = strings.TrimSpace(individual)
	organisation = strings.TrimSpace(organisation)
	email = strings.TrimSpace(email)

	if individual != "" {
		a := NewPerson(individual)
		a.Email = email
		if organisation != "" {
			a.MemberOf = NewOrganization(lang, organisation)
		}
		return a
	}
	if organisation == "" {
		return nil
	}
	a := NewOrganization(lang, organisation)
	a.Email = email
	return a
}

// MergeOrganizationNames pairs organization name variants with their language
// tags. When the counts match, names are paired by position; when a single
// language is given, it applies to all names; otherwise names are "und".
func MergeOrganizationNames(langs, names []string) LangString {
	out := make(LangString)
	switch {
	case len(langs) == len(names):
		for i, name := range names {
			out.Set(langs[i], name)
		}
	case len(langs) == 1:
		for _, name := range names {
			out.Set(langs[0], name)
		}
	default:
		for _, name := range names {
			out.Set(UndeterminedLanguage, name)
		}
	}
	return out
}

// CloneAgent returns a deep copy of the agent.
func CloneAgent(a *Agent) *Agent {
	if a == nil {
		return nil
	}
	c := *a
	if a.OrgName != nil {
		c.OrgName = make(LangString, len(a.OrgName))
		for k, v := range a.OrgName {
			c.OrgName[k] = v
		}
	}
	c.MemberOf = CloneAgent(a.MemberOf)
	return &c
}
