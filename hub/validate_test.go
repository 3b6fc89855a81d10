package hub

import (
	"strings"
	"testing"
)

func TestValidate_Eligibility(t *testing.T) {
	tests := []struct {
		name    string
		record  *Record
		wantErr string
	}{
		{
			name:    "nil record",
			record:  nil,
			wantErr: "record is nil",
		},
		{
			name:    "missing preferred identifier",
			record:  &Record{Title: LangString{"fi": "Aineisto"}},
			wantErr: "preferred_identifier",
		},
		{
			name:    "missing title",
			record:  &Record{PreferredIdentifier: "urn:nbn:fi:1", Title: LangString{}},
			wantErr: "title",
		},
		{
			name:    "blank title value",
			record:  &Record{PreferredIdentifier: "urn:nbn:fi:1", Title: LangString{"fi": "  "}},
			wantErr: "title",
		},
		{
			name:   "eligible",
			record: &Record{PreferredIdentifier: "urn:nbn:fi:1", Title: LangString{"fi": "Aineisto"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Eligible(tt.record)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected eligible record, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	r := &Record{
		PreferredIdentifier: "urn:nbn:fi:1",
		Title:               LangString{"en": "Dataset"},
		Creator:             []*Agent{{Type: AgentPerson}},
	}

	result := Validate(r)
	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if !result.HasWarnings() {
		t.Fatal("expected warnings for nameless creator and missing license")
	}
	if len(result.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %d: %v", len(result.Warnings), result.Warnings)
	}
}
