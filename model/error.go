package model

import (
	"fmt"
)

// ValidationError reports malformed input (data or configuration). It is
// always fatal and is raised before any iteration runs.
type ValidationError struct {
	Field string // What was invalid, e.g. "mapping_peptides"
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid %s: %s", e.Field, e.Msg)
}

func invalidf(field string, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
