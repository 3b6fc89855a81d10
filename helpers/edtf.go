// Package helpers provides utility functions for parsing and processing metadata values.
package helpers

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// Year only: 1978
	yearOnlyRegex = regexp.MustCompile(`^(\d{4})$`)

	// Loose date with optional single-digit parts: 2010-1-01, 2010-01-1, 2010-1
	looseDateRegex = regexp.MustCompile(`^(\d{4})-(\d{1,2})(?:-(\d{1,2}))?$`)

	// Year range: 1990-1995, 1990 - 1995, 1990/1995
	yearRangeRegex = regexp.MustCompile(`^(\d{4})\s*[-/]\s*(\d{4})$`)
)

// NormalizeDate converts a source date to the catalog's date form.
// Full dates become YYYY-MM-DD (padding single-digit parts), year-months
// become YYYY-MM, bare years are kept. Timestamps are cut to their date part.
// Unparseable input yields "".
func NormalizeDate(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	if yearOnlyRegex.MatchString(input) {
		return input
	}

	if m := looseDateRegex.FindStringSubmatch(input); m != nil {
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return ""
		}
		if m[3] == "" {
			return m[1] + "-" + pad2(month)
		}
		day, _ := strconv.Atoi(m[3])
		out := m[1] + "-" + pad2(month) + "-" + pad2(day)
		if _, err := time.Parse("2006-01-02", out); err != nil {
			return ""
		}
		return out
	}

	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t.Format("2006-01-02")
	}
	if t, err := time.Parse("2006-01-02T15:04:05", input); err == nil {
		return t.Format("2006-01-02")
	}

	return ""
}

// ParseTemporalCoverage reads a coverage expression that is either a single
// year or a year range. ok is false when neither form matches.
func ParseTemporalCoverage(input string) (start, end string, ok bool) {
	input = strings.TrimSpace(input)
	if yearOnlyRegex.MatchString(input) {
		return input, input, true
	}
	if m := yearRangeRegex.FindStringSubmatch(input); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
