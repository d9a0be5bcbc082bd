// =============================================================================
// Account NL Converter - Shared Chart Types
// =============================================================================
//
// This package contains the record types shared by the parser, the
// transforms, the validator and the writers. Keeping them here avoids import
// cycles between:
//   - source
//   - converter
//   - validation
//   - xmlwriter
//   - report
//
// A record is the same shape on both sides of the conversion: a model tag,
// an identifier and an ordered list of fields. Only the model vocabulary and
// the field names differ between the source and the target schema.
//
// =============================================================================

package chart

// =============================================================================
// MODEL TAGS
// =============================================================================

// Source models (OpenERP record format).
const (
	SourceAccountType = "account.account.type"
	SourceAccount     = "account.account.template"
	SourceTaxCode     = "account.tax.code.template"

	SourceTaxTemplate = "account.tax.template"
	SourceTaxRule     = "account.fiscal.position.template"
	SourceTaxRuleLine = "account.fiscal.position.tax.template"
)

// Target models (Tryton template format).
const (
	TargetAccountType = "account.account.type.template"
	TargetAccount     = "account.account.template"
	TargetTaxCode     = "account.tax.code.template"

	TargetTaxTemplate = "account.tax.template"
	TargetTaxRule     = "account.tax.rule.template"
	TargetTaxRuleLine = "account.tax.rule.line.template"
)

// Identifiers synthesized by the converter.
const (
	AccountTypeRootID = "nl"
	AccountRootID     = "a_root"
	TaxCodeRootID     = "tax_code_nl"
)

// =============================================================================
// FIELDS
// =============================================================================

// FieldKind tells how a field carries its value.
type FieldKind int

const (
	// Text is inline element content.
	Text FieldKind = iota

	// Ref is the identifier of another record (the "ref" attribute).
	Ref

	// Eval is a literal expression (the "eval" attribute).
	Eval
)

// String returns the attribute name used for the kind.
func (k FieldKind) String() string {
	switch k {
	case Ref:
		return "ref"
	case Eval:
		return "eval"
	default:
		return "text"
	}
}

// Field is a single named value of a record.
type Field struct {
	// Name is the value of the field's "name" attribute.
	Name string

	// Kind selects how Value is rendered.
	Kind FieldKind

	// Value is the inline text, the referenced identifier or the literal.
	Value string
}

// TextField returns an inline text field.
func TextField(name, value string) Field {
	return Field{Name: name, Kind: Text, Value: value}
}

// RefField returns a reference field.
func RefField(name, id string) Field {
	return Field{Name: name, Kind: Ref, Value: id}
}

// EvalField returns a literal field.
func EvalField(name, literal string) Field {
	return Field{Name: name, Kind: Eval, Value: literal}
}

// =============================================================================
// RECORDS
// =============================================================================

// Record is one <record> element: model tag, identifier and fields in
// document order.
type Record struct {
	// Model is the value of the "model" attribute.
	Model string

	// ID is the value of the "id" attribute, unique within the model.
	ID string

	// Fields are kept in document order; serialization follows this order.
	Fields []Field
}

// NewRecord builds a record from its fields.
func NewRecord(model, id string, fields ...Field) Record {
	return Record{Model: model, ID: id, Fields: fields}
}

// Field returns the first field with the given name.
func (r Record) Field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Require returns the named field or a SchemaError when it is absent.
func (r Record) Require(name string) (Field, error) {
	f, ok := r.Field(name)
	if !ok {
		return Field{}, &SchemaError{
			Model:  r.Model,
			ID:     r.ID,
			Field:  name,
			Reason: "required field is missing",
		}
	}
	return f, nil
}

// Refs returns the reference fields of the record in order.
func (r Record) Refs() []Field {
	var refs []Field
	for _, f := range r.Fields {
		if f.Kind == Ref {
			refs = append(refs, f)
		}
	}
	return refs
}
