package helpers

import "testing"

func TestFormatNameDirect(t *testing.T) {
	tests := map[string]string{
		"Doe, Jane":          "Jane Doe",
		"Virtanen, Matti J.": "Matti J. Virtanen",
		"Jane Doe":           "Jane Doe",
		"Smith, John, Jr.":   "John Smith Jr.",
		"":                   "",
	}
	for in, want := range tests {
		if got := FormatNameDirect(in); got != want {
			t.Errorf("FormatNameDirect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoinName(t *testing.T) {
	if got := JoinName(" Teija", "Tekijä "); got != "Teija Tekijä" {
		t.Errorf("JoinName = %q", got)
	}
	if got := JoinName("", "Tekijä"); got != "Tekijä" {
		t.Errorf("JoinName without given = %q", got)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := map[string]string{
		"2010-1-1":             "2010-01-01",
		"2010-01-1":            "2010-01-01",
		"2010-1":               "2010-01",
		"2016-05-31":           "2016-05-31",
		"2017":                 "2017",
		"2017-06-06T10:00:00Z": "2017-06-06",
		"2017-13-01":           "",
		"2017-02-30":           "",
		"yesterday":            "",
		"":                     "",
	}
	for in, want := range tests {
		if got := NormalizeDate(in); got != want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseTemporalCoverage(t *testing.T) {
	start, end, ok := ParseTemporalCoverage("1543")
	if !ok || start != "1543" || end != "1543" {
		t.Errorf("single year: %q %q %v", start, end, ok)
	}
	start, end, ok = ParseTemporalCoverage("1990 - 1995")
	if !ok || start != "1990" || end != "1995" {
		t.Errorf("range: %q %q %v", start, end, ok)
	}
	if _, _, ok := ParseTemporalCoverage("1500s"); ok {
		t.Error("unexpected match for 1500s")
	}
}

func TestStripHTML(t *testing.T) {
	if got := CleanText("<p>Data &amp; code</p>\n<br/>  more"); got != "Data & code more" {
		t.Errorf("CleanText = %q", got)
	}
}
