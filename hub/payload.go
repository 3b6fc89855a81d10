package hub

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToMap converts the record to the catalog's research_dataset shape.
// Empty optional fields are omitted.
func ToMap(r *Record) map[string]any {
	m := map[string]any{}
	if r.PreferredIdentifier != "" {
		m["preferred_identifier"] = r.PreferredIdentifier
	}
	if len(r.Title) > 0 {
		m["title"] = langStringValue(r.Title)
	}
	if len(r.Description) > 0 {
		m["description"] = langStringList(r.Description)
	}
	if len(r.Language) > 0 {
		m["language"] = conceptList(r.Language)
	}
	if v := agentList(r.Creator); v != nil {
		m["creator"] = v
	}
	if v := agentList(r.Curator); v != nil {
		m["curator"] = v
	}
	if r.Publisher != nil && !r.Publisher.IsEmpty() {
		m["publisher"] = agentValue(r.Publisher)
	}
	if v := agentList(r.RightsHolder); v != nil {
		m["rights_holder"] = v
	}
	if v := agentList(r.Contributor); v != nil {
		m["contributor"] = v
	}
	if r.AccessRights != nil {
		m["access_rights"] = accessRightsValue(r.AccessRights)
	}
	if len(r.Provenance) > 0 {
		list := make([]any, 0, len(r.Provenance))
		for _, p := range r.Provenance {
			pm := map[string]any{}
			if len(p.Title) > 0 {
				pm["title"] = langStringValue(p.Title)
			}
			if len(p.Description) > 0 {
				pm["description"] = langStringValue(p.Description)
			}
			list = append(list, pm)
		}
		m["provenance"] = list
	}
	if len(r.Temporal) > 0 {
		list := make([]any, 0, len(r.Temporal))
		for _, t := range r.Temporal {
			tm := map[string]any{}
			if t.StartDate != "" {
				tm["start_date"] = t.StartDate
			}
			if t.EndDate != "" {
				tm["end_date"] = t.EndDate
			}
			list = append(list, tm)
		}
		m["temporal"] = list
	}
	if len(r.Spatial) > 0 {
		list := make([]any, 0, len(r.Spatial))
		for _, s := range r.Spatial {
			sm := map[string]any{}
			if s.GeographicName != "" {
				sm["geographic_name"] = s.GeographicName
			}
			if len(s.AsWKT) > 0 {
				sm["as_wkt"] = stringList(s.AsWKT)
			}
			list = append(list, sm)
		}
		m["spatial"] = list
	}
	if len(r.Keyword) > 0 {
		m["keyword"] = stringList(r.Keyword)
	}
	if len(r.FieldOfScience) > 0 {
		m["field_of_science"] = conceptList(r.FieldOfScience)
	}
	if len(r.OtherIdentifier) > 0 {
		list := make([]any, 0, len(r.OtherIdentifier))
		for _, o := range r.OtherIdentifier {
			om := map[string]any{"notation": o.Notation}
			if o.Type != "" {
				om["type"] = map[string]any{"identifier": o.Type}
			}
			list = append(list, om)
		}
		m["other_identifier"] = list
	}
	if r.Modified != "" {
		m["modified"] = r.Modified
	}
	if r.Issued != "" {
		m["issued"] = r.Issued
	}
	return m
}

// ToStruct converts the record to a protobuf Struct for wire encoding.
func ToStruct(r *Record) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(ToMap(r))
	if err != nil {
		return nil, fmt.Errorf("converting record to struct: %w", err)
	}
	return s, nil
}

func langStringValue(l LangString) map[string]any {
	out := make(map[string]any, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

func langStringList(ls []LangString) []any {
	out := make([]any, 0, len(ls))
	for _, l := range ls {
		out = append(out, langStringValue(l))
	}
	return out
}

func conceptValue(c Concept) map[string]any {
	return map[string]any{"identifier": c.Identifier}
}

func conceptList(cs []Concept) []any {
	out := make([]any, 0, len(cs))
	for _, c := range cs {
		out = append(out, conceptValue(c))
	}
	return out
}

func stringList(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}

func agentList(agents []*Agent) []any {
	var out []any
	for _, a := range agents {
		if a.IsEmpty() {
			continue
		}
		out = append(out, agentValue(a))
	}
	return out
}

func agentValue(a *Agent) map[string]any {
	m := map[string]any{"@type": a.Type.String()}
	if a.Type == AgentOrganization {
		m["name"] = langStringValue(a.OrgName)
	} else {
		m["name"] = a.Name
	}
	if a.Email != "" {
		m["email"] = a.Email
	}
	if a.Phone != "" {
		m["telephone"] = []any{a.Phone}
	}
	if a.Identifier != "" {
		m["identifier"] = a.Identifier
	}
	if a.Homepage != "" {
		m["homepage"] = map[string]any{"identifier": a.Homepage}
	}
	if a.MemberOf != nil && !a.MemberOf.IsEmpty() {
		m["member_of"] = agentValue(a.MemberOf)
	}
	return m
}

func accessRightsValue(ar *AccessRights) map[string]any {
	m := map[string]any{}
	if len(ar.License) > 0 {
		m["license"] = conceptList(ar.License)
	}
	if ar.AccessType != nil {
		m["access_type"] = conceptValue(*ar.AccessType)
	}
	if len(ar.RestrictionGrounds) > 0 {
		m["restriction_grounds"] = conceptList(ar.RestrictionGrounds)
	}
	if len(ar.Description) > 0 {
		m["description"] = langStringList(ar.Description)
	}
	return m
}
