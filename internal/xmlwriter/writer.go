// =============================================================================
// Account NL Converter - XML Writer Module
// =============================================================================
//
// This module renders output records as a Tryton data document.
//
// XML STRUCTURE:
//
//   <?xml version="1.0" encoding="UTF-8"?>        <!-- optional -->
//   <tryton>
//     <data>
//       <record model="account.account.type.template" id="nl">
//         <field name="name">Dutch Account Type Chart</field>
//         <field name="sequence" eval="10"/>
//       </record>
//       <record model="account.account.type.template" id="A1">
//         <field name="name">Assets</field>
//         <field name="sequence" eval="20"/>
//         <field name="parent" ref="nl"/>
//         <field name="balance_sheet" eval="True"/>
//       </record>
//     </data>
//   </tryton>
//
// Elements without content are written self-closing. Output always ends with
// a single newline.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/nfg/account-nl/internal/chart"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls rendering.
type Options struct {
	// Indent is the number of spaces per nesting level.
	Indent int

	// Declaration adds the XML declaration with the UTF-8 encoding.
	Declaration bool
}

// DefaultOptions are used by the converter unless configured otherwise.
func DefaultOptions() Options {
	return Options{Indent: 2, Declaration: true}
}

const (
	rootElement = "tryton"
	dataElement = "data"
)

// =============================================================================
// DOCUMENT BUILDING
// =============================================================================

// Envelope builds <tryton><data>records...</data></tryton>. Records keep the
// order given.
func Envelope(records []chart.Record) *etree.Document {
	doc := etree.NewDocument()
	data := doc.CreateElement(rootElement).CreateElement(dataElement)
	for _, r := range records {
		AppendRecord(data, r)
	}
	return doc
}

// AppendRecord adds a <record> element for r under parent.
func AppendRecord(parent *etree.Element, r chart.Record) *etree.Element {
	el := parent.CreateElement("record")
	el.CreateAttr("model", r.Model)
	el.CreateAttr("id", r.ID)
	for _, f := range r.Fields {
		appendField(el, f)
	}
	return el
}

// appendField writes a field in the form its kind dictates:
//
//   <field name="name">text</field>
//   <field name="parent" ref="nl"/>
//   <field name="sequence" eval="10"/>
func appendField(parent *etree.Element, f chart.Field) {
	el := parent.CreateElement("field")
	el.CreateAttr("name", f.Name)
	switch f.Kind {
	case chart.Ref:
		el.CreateAttr("ref", f.Value)
	case chart.Eval:
		el.CreateAttr("eval", f.Value)
	default:
		if f.Value != "" {
			el.SetText(f.Value)
		}
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// Render serializes doc with indentation and a trailing newline.
func Render(doc *etree.Document, opts Options) ([]byte, error) {
	if doc.Root() == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	if opts.Indent < 0 {
		return nil, fmt.Errorf("negative indent %d", opts.Indent)
	}

	out := etree.NewDocument()
	if opts.Declaration {
		out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	}
	out.SetRoot(doc.Root().Copy())
	out.Indent(opts.Indent)

	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}

	text := strings.TrimRight(buf.String(), "\n") + "\n"
	return []byte(text), nil
}

// RenderRecords is a shortcut for Render(Envelope(records), opts).
func RenderRecords(records []chart.Record, opts Options) ([]byte, error) {
	return Render(Envelope(records), opts)
}
