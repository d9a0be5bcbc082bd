package chart

import (
	"fmt"
	"strings"
)

// ParseError reports an input document that is not well-formed markup.
type ParseError struct {
	// Source names the document (a path or "<stream>").
	Source string

	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a document or record that does not follow the
// expected element structure, such as a record missing a required field.
type SchemaError struct {
	Model  string
	ID     string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema violation")
	if e.Model != "" {
		fmt.Fprintf(&b, ": %s", e.Model)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " record %q", e.ID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// ReferenceError reports output references that do not resolve inside the
// emitted document.
type ReferenceError struct {
	Problems []string
}

func (e *ReferenceError) Error() string {
	if len(e.Problems) == 1 {
		return "unresolved reference: " + e.Problems[0]
	}
	return fmt.Sprintf("%d unresolved references:\n  %s", len(e.Problems), strings.Join(e.Problems, "\n  "))
}
