package hub

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const lexvoISO6393 = "http://lexvo.org/id/iso639-3/"

// CleanText trims surrounding whitespace and normalizes to NFC so that the
// same source text always maps to the same string.
func CleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ToISO6393 converts a language code (ISO 639-1, 639-2 or 639-3) to its
// three-letter terminology form. Unknown or empty input yields "und".
func ToISO6393(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return UndeterminedLanguage
	}
	base, err := language.ParseBase(code)
	if err != nil {
		if len(code) == 3 {
			return code
		}
		return UndeterminedLanguage
	}
	return base.ISO3()
}

// ToISO6391 converts a language code to its two-letter form when one exists.
// ok is false when the language has no ISO 639-1 code.
func ToISO6391(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", false
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return "", false
	}
	s := base.String()
	if len(s) != 2 {
		return "", false
	}
	return s, true
}

// LanguageIdentifier returns the lexvo URI for the given language code.
func LanguageIdentifier(code string) string {
	return lexvoISO6393 + ToISO6393(code)
}

// LanguageConcept returns a language reference for the given code.
func LanguageConcept(code string) Concept {
	return Concept{Identifier: LanguageIdentifier(code)}
}
