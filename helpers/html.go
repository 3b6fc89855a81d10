package helpers

import (
	"html"
	"regexp"
	"strings"
)

var (
	// HTML tag patterns
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
	htmlCommentRegex = regexp.MustCompile(`<!--[\s\S]*?-->`)
	blankLinesRegex  = regexp.MustCompile(`\n\s*\n`)

	// Specific tag patterns for better text extraction
	brTagRegex    = regexp.MustCompile(`<br\s*/?>`)
	blockEndRegex = regexp.MustCompile(`</(?:p|div|li|h[1-6]|blockquote|tr)>`)
)

// StripHTML removes HTML tags from a string and decodes HTML entities.
// Source abstracts sometimes embed escaped markup.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	s = htmlCommentRegex.ReplaceAllString(s, "")

	s = blockEndRegex.ReplaceAllString(s, "\n")
	s = brTagRegex.ReplaceAllString(s, "\n")

	s = htmlTagRegex.ReplaceAllString(s, "")

	s = html.UnescapeString(s)

	s = blankLinesRegex.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// CleanText strips HTML and collapses all whitespace runs to single spaces.
func CleanText(s string) string {
	s = StripHTML(s)
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
