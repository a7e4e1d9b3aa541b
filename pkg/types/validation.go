package types

import (
	"fmt"
	"strings"
)

// Issue is a single field-level validation failure. Path is the dotted path
// to the offending value ("tags.0.name"); an empty Path refers to the value
// as a whole.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// String renders the issue as "path: message".
func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationResult is either Valid, carrying the coerced value, or Invalid,
// carrying the ordered issues. Never both.
type ValidationResult struct {
	value  any
	issues []Issue
}

// Valid returns a successful result carrying the coerced value.
func Valid(value any) ValidationResult {
	return ValidationResult{value: value}
}

// Invalid returns a failed result. An empty issue list is replaced by a
// single root issue so an Invalid result can never be mistaken for Valid.
func Invalid(issues []Issue) ValidationResult {
	if len(issues) == 0 {
		issues = []Issue{{Message: "value is invalid"}}
	}
	cp := make([]Issue, len(issues))
	copy(cp, issues)
	return ValidationResult{issues: cp}
}

// OK reports whether the result is Valid.
func (r ValidationResult) OK() bool { return len(r.issues) == 0 }

// Value returns the coerced value. It is nil for Invalid results.
func (r ValidationResult) Value() any { return r.value }

// Issues returns the issues of an Invalid result.
func (r ValidationResult) Issues() []Issue { return r.issues }

// formatIssues joins issues for error messages.
func formatIssues(issues []Issue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = is.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, "; "))
}
