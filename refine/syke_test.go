package refine

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/csc-fi/etsin-harvester/hub"
	"github.com/csc-fi/etsin-harvester/lookup"
)

const sykeGUID = "{6A3B4C10-54B2-4A6E-8F21-12DDA1C07E41}"

func newSyke(t *testing.T) *Syke {
	t.Helper()
	legacy, err := lookup.LegacyTable("syke", "")
	if err != nil {
		t.Fatalf("LegacyTable failed: %v", err)
	}
	catalogs, err := lookup.NewCatalogRegistry()
	if err != nil {
		t.Fatalf("NewCatalogRegistry failed: %v", err)
	}
	catalog, _ := catalogs.Get("syke")
	return NewSyke(legacy, catalog)
}

func sykeRecord() *hub.Record {
	r := hub.NewRecord()
	r.PreferredIdentifier = sykeGUID
	r.Title.Set("fi", "Järvien ravinnepitoisuudet")
	r.Creator = []*hub.Agent{
		hub.NewOrganization("fi", "Suomen ympäristökeskus"),
		{Type: hub.AgentPerson, Name: "Matti Meikäläinen", Email: "matti.meikalainen[at]ymparisto.fi; tuki [a] ymparisto.fi"},
	}
	r.Curator = []*hub.Agent{{Type: hub.AgentOrganization, OrgName: hub.LangString{"fi": "SYKE"}, Email: "info[at]syke.fi"}}
	r.RightsHolder = []*hub.Agent{{Type: hub.AgentOrganization, OrgName: hub.LangString{"fi": "SYKE"}, Email: "kirjaamo [at] syke.fi"}}
	r.Publisher = &hub.Agent{Type: hub.AgentOrganization, OrgName: hub.LangString{"fi": "SYKE"}, Email: "a[at]syke.fi;b[at]syke.fi"}
	return r
}

func TestSykeRefine(t *testing.T) {
	record, err := newSyke(t).Refine(sykeRecord(), HarvestContext{Organization: OrgSyke, GUID: sykeGUID})
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}

	if record.PreferredIdentifier != sykeGUID {
		t.Errorf("PreferredIdentifier = %q, legacy id must not replace it", record.PreferredIdentifier)
	}
	wantOther := []hub.OtherIdentifier{{Notation: "urn:nbn:fi:csc-kata20150317095531471287", Type: hub.IdentifierTypeURN}}
	if !reflect.DeepEqual(record.OtherIdentifier, wantOther) {
		t.Errorf("OtherIdentifier = %v", record.OtherIdentifier)
	}

	if len(record.Creator) != 3 {
		t.Fatalf("Expected 3 creators after email split, got %d", len(record.Creator))
	}
	if record.Creator[1].Email != "matti.meikalainen@ymparisto.fi" || record.Creator[2].Email != "tuki@ymparisto.fi" {
		t.Errorf("Split emails = %q, %q", record.Creator[1].Email, record.Creator[2].Email)
	}
	if record.Creator[2].Name != "Matti Meikäläinen" {
		t.Errorf("Split agent should keep the name, got %q", record.Creator[2].Name)
	}
	for _, agents := range [][]*hub.Agent{record.Curator, record.RightsHolder} {
		if !strings.Contains(agents[0].Email, "@") || strings.Contains(agents[0].Email, " ") {
			t.Errorf("Email not repaired: %q", agents[0].Email)
		}
	}
	if record.Publisher.Email != "a@syke.fi" {
		t.Errorf("Publisher email = %q, want first address only", record.Publisher.Email)
	}

	if !reflect.DeepEqual(record.FieldOfScience, []hub.Concept{{Identifier: "http://www.yso.fi/onto/okm-tieteenala/ta1172"}}) {
		t.Errorf("FieldOfScience = %v", record.FieldOfScience)
	}

	want := &hub.AccessRights{
		License:    []hub.Concept{{Identifier: hub.LicenseOther}},
		AccessType: &hub.Concept{Identifier: hub.AccessTypeRestricted},
	}
	if !reflect.DeepEqual(record.AccessRights, want) {
		t.Errorf("AccessRights = %+v", record.AccessRights)
	}
}

func TestSykeKeepsMappedFieldOfScience(t *testing.T) {
	r := sykeRecord()
	r.FieldOfScience = []hub.Concept{{Identifier: "ta1181"}}
	record, err := newSyke(t).Refine(r, HarvestContext{GUID: sykeGUID})
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if !reflect.DeepEqual(record.FieldOfScience, []hub.Concept{{Identifier: "ta1181"}}) {
		t.Errorf("FieldOfScience = %v", record.FieldOfScience)
	}
}

func TestSykeCCBYDescription(t *testing.T) {
	r := sykeRecord()
	r.Description = []hub.LangString{{"fi": "Aineisto on saatavilla lisenssillä CC BY 4.0."}}
	record, err := newSyke(t).Refine(r, HarvestContext{GUID: sykeGUID})
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if record.AccessRights.License[0].Identifier != "CC-BY-4.0" || !record.AccessRights.IsOpen() {
		t.Errorf("AccessRights = %+v", record.AccessRights)
	}
}

func TestSykeSkips(t *testing.T) {
	s := newSyke(t)

	_, err := s.Refine(sykeRecord(), HarvestContext{})
	if !errors.Is(err, ErrRecordSkipped) {
		t.Errorf("Missing GUID: expected ErrRecordSkipped, got %v", err)
	}

	_, err = s.Refine(sykeRecord(), HarvestContext{GUID: "{00000000-0000-0000-0000-000000000000}"})
	if !errors.Is(err, ErrRecordSkipped) {
		t.Errorf("Unknown GUID: expected ErrRecordSkipped, got %v", err)
	}

	s.RequireLegacyMatch = false
	r := sykeRecord()
	r.PreferredIdentifier = ""
	record, err := s.Refine(r, HarvestContext{GUID: "{00000000-0000-0000-0000-000000000000}"})
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if record.PreferredIdentifier != "{00000000-0000-0000-0000-000000000000}" || len(record.OtherIdentifier) != 0 {
		t.Errorf("Unmatched record = %q, %v", record.PreferredIdentifier, record.OtherIdentifier)
	}
}

func TestSykeMissingTitleFailsInRegistry(t *testing.T) {
	r := sykeRecord()
	r.Title = hub.LangString{}
	_, err := NewRegistry(newSyke(t)).Refine(r, HarvestContext{Organization: OrgSyke, GUID: sykeGUID})
	var missing *DatasetFieldsMissingError
	if !errors.As(err, &missing) {
		t.Errorf("Expected DatasetFieldsMissingError, got %v", err)
	}
}

func TestExpandEmails(t *testing.T) {
	agents := []*hub.Agent{
		{Type: hub.AgentPerson, Name: "A", Email: "a@x.fi;b@x.fi"},
		nil,
		{Type: hub.AgentPerson, Name: "B"},
	}
	got := ExpandEmails(agents)
	want := []*hub.Agent{
		{Type: hub.AgentPerson, Name: "A", Email: "a@x.fi"},
		{Type: hub.AgentPerson, Name: "A", Email: "b@x.fi"},
		{Type: hub.AgentPerson, Name: "B"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandEmails = %+v", got)
	}

	if ExpandEmails(nil) != nil {
		t.Error("ExpandEmails(nil) should stay nil")
	}
}

func TestSplitEmails(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"a[at]x.fi", []string{"a@x.fi"}},
		{"a [a] x.fi;;b@x.fi;", []string{"a@x.fi", "b@x.fi"}},
	}
	for _, tt := range tests {
		if got := SplitEmails(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitEmails(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
