// =============================================================================
// Account NL Converter - Reference Integrity Validation
// =============================================================================
//
// The transforms copy type and parent references straight from the source
// document into the output, assuming the identifier spaces line up. This
// module checks that assumption on the finished output: every reference
// field must name a record of the expected model that is present in the same
// output document.
//
// CHECKS:
//   1. Duplicate identifiers within one model
//   2. References to identifiers that are not emitted
//   3. References to identifiers emitted under the wrong model
//
// Findings are collected, not returned one at a time, so an operator sees the
// whole list in a single run.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/nfg/account-nl/internal/chart"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Rules reported in ValidationError.Rule.
const (
	RuleDuplicateID   = "duplicate_id"
	RuleDanglingRef   = "dangling_reference"
	RuleWrongModelRef = "wrong_model_reference"
)

// ValidationError is a single finding.
type ValidationError struct {
	// Severity is "error" for findings that break the output and "warning"
	// otherwise.
	Severity string

	// Model and ID locate the record holding the bad field.
	Model string
	ID    string

	// Field is the reference field name, empty for record-level findings.
	Field string

	// Value is the referenced identifier.
	Value string

	// Rule is one of the Rule* constants.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s %q: %s", strings.ToUpper(e.Severity), e.Model, e.ID, e.Message)
	}
	return fmt.Sprintf("[%s] %s %q field %q: %s (value: %q)",
		strings.ToUpper(e.Severity), e.Model, e.ID, e.Field, e.Message, e.Value)
}

// =============================================================================
// REFERENCE TARGETS
// =============================================================================

// referenceTargets names, per output model, the model each reference field
// must point into.
var referenceTargets = map[string]map[string]string{
	chart.TargetAccountType: {
		"parent": chart.TargetAccountType,
	},
	chart.TargetAccount: {
		"parent": chart.TargetAccount,
		"type":   chart.TargetAccountType,
	},
	chart.TargetTaxCode: {
		"parent":  chart.TargetTaxCode,
		"account": chart.TargetAccount,
	},
}

// TargetModel returns the model a reference field must resolve into, or ""
// when any emitted record will do.
func TargetModel(model, field string) string {
	return referenceTargets[model][field]
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate checks the output records and returns every finding in record
// order. An empty result means every reference resolves.
func Validate(records []chart.Record) []*ValidationError {
	var findings []*ValidationError

	// model -> id set, and id -> models for wrong-model reporting.
	ids := make(map[string]map[string]bool)
	owners := make(map[string][]string)

	for _, r := range records {
		set := ids[r.Model]
		if set == nil {
			set = make(map[string]bool)
			ids[r.Model] = set
		}
		if set[r.ID] {
			findings = append(findings, &ValidationError{
				Severity: "error",
				Model:    r.Model,
				ID:       r.ID,
				Rule:     RuleDuplicateID,
				Message:  "identifier emitted more than once",
			})
			continue
		}
		set[r.ID] = true
		owners[r.ID] = append(owners[r.ID], r.Model)
	}

	for _, r := range records {
		for _, f := range r.Refs() {
			want := TargetModel(r.Model, f.Name)
			if want == "" {
				if len(owners[f.Value]) == 0 {
					findings = append(findings, dangling(r, f))
				}
				continue
			}
			if ids[want][f.Value] {
				continue
			}
			if got := owners[f.Value]; len(got) > 0 {
				findings = append(findings, &ValidationError{
					Severity: "error",
					Model:    r.Model,
					ID:       r.ID,
					Field:    f.Name,
					Value:    f.Value,
					Rule:     RuleWrongModelRef,
					Message:  fmt.Sprintf("points at a %s record, want %s", strings.Join(got, "/"), want),
				})
				continue
			}
			findings = append(findings, dangling(r, f))
		}
	}

	return findings
}

func dangling(r chart.Record, f chart.Field) *ValidationError {
	return &ValidationError{
		Severity: "error",
		Model:    r.Model,
		ID:       r.ID,
		Field:    f.Name,
		Value:    f.Value,
		Rule:     RuleDanglingRef,
		Message:  "reference does not resolve in the output document",
	}
}

// =============================================================================
// ERROR REPORTING
// =============================================================================

// FormatErrors renders findings one per line.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Validation found %d problem(s):\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, e.Error())
	}
	return b.String()
}

// AsReferenceError folds findings into a single fatal error, or nil when
// there are none.
func AsReferenceError(errs []*ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	problems := make([]string, len(errs))
	for i, e := range errs {
		problems[i] = e.Error()
	}
	return &chart.ReferenceError{Problems: problems}
}
