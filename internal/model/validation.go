package model

import "fmt"

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is one finding produced by the validation engine. Domain
// problems are always reported as values of this type, never as failures.
type ValidationError struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Location string   `json:"location,omitempty"`
}

// String renders the finding the way the CLI and the HTTP surface expose it.
func (e ValidationError) String() string {
	if e.Location != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Severity, e.Code, e.Message, e.Location)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}
