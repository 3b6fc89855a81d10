package hub

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation failure with context.
type ValidationError struct {
	Field   string // Field path (e.g., "title", "creator[0].name")
	Code    string // Error code (e.g., "required")
	Message string // Human-readable message
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains all validation errors for a record.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// HasWarnings returns true if there are warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Error returns a combined error message, or nil if valid.
func (r *ValidationResult) Error() error {
	if r.IsValid() {
		return nil
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// Validate checks sync eligibility (a non-empty preferred identifier and at
// least one non-empty title) and reports non-fatal issues as warnings.
func Validate(r *Record) *ValidationResult {
	result := &ValidationResult{}
	if r == nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "record",
			Code:    "required",
			Message: "record is nil",
		})
		return result
	}

	if strings.TrimSpace(r.PreferredIdentifier) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "preferred_identifier",
			Code:    "required",
			Message: "preferred identifier is required",
		})
	}

	if !hasTitle(r.Title) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "title",
			Code:    "required",
			Message: "at least one title is required",
		})
	}

	for i, a := range r.Creator {
		if a.IsEmpty() {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   fmt.Sprintf("creator[%d].name", i),
				Code:    "empty",
				Message: "agent has no name",
			})
		}
	}

	if r.AccessRights == nil || len(r.AccessRights.License) == 0 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "access_rights.license",
			Code:    "missing",
			Message: "no license set",
		})
	}

	return result
}

// Eligible returns nil if the record may be sent to the catalog.
func Eligible(r *Record) error {
	return Validate(r).Error()
}

func hasTitle(t LangString) bool {
	for _, v := range t {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
