package helpers

import (
	"regexp"
	"strings"
)

// ParsedName holds the components of a personal name.
type ParsedName struct {
	Given  string
	Middle string
	Family string
	Prefix string
	Suffix string
}

// Direct returns the name in "Given Middle Family Suffix" form.
func (p *ParsedName) Direct() string {
	if p == nil {
		return ""
	}
	var parts []string
	for _, s := range []string{p.Given, p.Middle, p.Family, p.Suffix} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// NameParser parses personal names into components.
type NameParser struct{}

var (
	// Suffixes that appear after a name
	suffixes = []string{"Jr.", "Jr", "Sr.", "Sr", "III", "II", "IV", "PhD", "Ph.D.", "MD", "M.D."}

	// Name prefixes (nobiliary particles)
	prefixes = []string{"van", "von", "de", "del", "della", "di", "da", "le", "la", "du", "des", "den", "der", "af", "av"}

	// Pattern for "Last, First Middle" format
	invertedNameRegex = regexp.MustCompile(`^([^,]+),\s*(.+)$`)

	multiSpaceRegex = regexp.MustCompile(`\s+`)
)

// Parse parses a name string into its components.
// Handles both "First Last" and "Last, First" formats.
func (p *NameParser) Parse(name string) *ParsedName {
	name = strings.TrimSpace(multiSpaceRegex.ReplaceAllString(name, " "))
	if name == "" {
		return nil
	}

	result := &ParsedName{}

	// Inverted format: "Last, First Middle Suffix"
	if matches := invertedNameRegex.FindStringSubmatch(name); matches != nil {
		result.Family = strings.TrimSpace(matches[1])
		rest := strings.TrimSpace(matches[2])
		rest, result.Suffix = extractSuffix(rest)

		parts := strings.Fields(rest)
		if len(parts) > 0 {
			result.Given = parts[0]
		}
		if len(parts) > 1 {
			result.Middle = strings.Join(parts[1:], " ")
		}
		return result
	}

	// Direct format: "First Middle Prefix Last Suffix"
	name, result.Suffix = extractSuffix(name)
	parts := strings.Fields(name)
	if len(parts) == 1 {
		result.Family = parts[0]
		return result
	}

	familyStart := len(parts) - 1
	if familyStart > 1 && isPrefix(parts[familyStart-1]) {
		result.Prefix = parts[familyStart-1]
		familyStart--
	}
	result.Family = strings.Join(parts[familyStart:], " ")
	result.Given = parts[0]
	if familyStart > 1 {
		result.Middle = strings.Join(parts[1:familyStart], " ")
	}

	return result
}

// extractSuffix extracts a suffix from a name string.
func extractSuffix(name string) (string, string) {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, ", "+suffix) {
			return strings.TrimSuffix(name, ", "+suffix), suffix
		}
		if strings.HasSuffix(name, " "+suffix) {
			return strings.TrimSuffix(name, " "+suffix), suffix
		}
	}
	return name, ""
}

// isPrefix checks if a word is a nobiliary particle.
func isPrefix(word string) bool {
	lower := strings.ToLower(word)
	for _, prefix := range prefixes {
		if lower == prefix {
			return true
		}
	}
	return false
}

// ParseName is a convenience function to parse a name string.
func ParseName(name string) *ParsedName {
	parser := &NameParser{}
	return parser.Parse(name)
}

// IsInvertedName checks if a name appears to be in "Last, First" format.
func IsInvertedName(name string) bool {
	return strings.Contains(name, ",")
}

// FormatNameDirect formats a name in "First Middle Last Suffix" form.
func FormatNameDirect(name string) string {
	parsed := ParseName(name)
	if parsed == nil {
		return strings.TrimSpace(name)
	}
	return parsed.Direct()
}

// JoinName builds a display name from separate given and family parts.
func JoinName(given, family string) string {
	return strings.TrimSpace(strings.TrimSpace(given) + " " + strings.TrimSpace(family))
}
