// =============================================================================
// Account NL Converter - Source Document Parser
// =============================================================================
//
// This module loads an OpenERP record document and exposes its records by
// model tag, in document order.
//
// EXPECTED STRUCTURE:
//
//   <openerp>
//     <data>
//       <record model="account.account.type" id="A1">
//         <field name="name">Assets</field>              <!-- inline text -->
//         <field name="close_method">balance</field>
//         <field name="parent_id" ref="A0"/>             <!-- reference -->
//         <field name="reconcile" eval="True"/>          <!-- literal -->
//       </record>
//     </data>
//   </openerp>
//
// Documents rooted at <odoo> are accepted as well. Every <data> section is
// scanned; other elements (comments, <menuitem>, <function>, ...) are ignored.
//
// =============================================================================

package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/nfg/account-nl/internal/chart"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls how a document is decoded.
type Options struct {
	// Encoding forces the character encoding of the input (for example
	// "iso-8859-1"). When empty the encoding declared by the document is used.
	Encoding string
}

// rootElements are the accepted document roots.
var rootElements = []string{"openerp", "odoo"}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a parsed source document.
type Document struct {
	// Name identifies the document in errors and logs.
	Name string

	records []chart.Record
	byModel map[string][]int
}

// Records returns the records of the given model in document order.
func (d *Document) Records(model string) []chart.Record {
	idx := d.byModel[model]
	out := make([]chart.Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, d.records[i])
	}
	return out
}

// Count returns the number of records of the given model.
func (d *Document) Count(model string) int {
	return len(d.byModel[model])
}

// Len returns the total number of records.
func (d *Document) Len() int {
	return len(d.records)
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads and parses the document at path.
func Load(path string, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source document: %w", err)
	}
	defer f.Close()

	return Read(f, path, opts)
}

// ParseString parses a document held in memory.
func ParseString(s string, opts Options) (*Document, error) {
	return Read(strings.NewReader(s), "<string>", opts)
}

// Read parses a document from r. name is used in errors.
func Read(r io.Reader, name string, opts Options) (*Document, error) {
	doc := etree.NewDocument()

	if opts.Encoding != "" {
		dec, err := decoderFor(opts.Encoding, r)
		if err != nil {
			return nil, err
		}
		r = dec
		// The stream is already UTF-8; ignore whatever the prolog declares.
		doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
			return input, nil
		}
	} else {
		doc.ReadSettings.CharsetReader = decoderFor
	}

	if _, err := doc.ReadFrom(r); err != nil {
		return nil, &chart.ParseError{Source: name, Err: err}
	}

	root := doc.Root()
	if root == nil {
		return nil, &chart.ParseError{Source: name, Err: errors.New("document has no root element")}
	}
	if !isRootElement(root.Tag) {
		return nil, &chart.SchemaError{
			Reason: fmt.Sprintf("unexpected root element <%s>, want one of %s", root.Tag, strings.Join(rootElements, ", ")),
		}
	}

	d := &Document{Name: name, byModel: make(map[string][]int)}
	for _, data := range root.SelectElements("data") {
		for _, el := range data.SelectElements("record") {
			rec, err := parseRecord(el, len(d.records)+1)
			if err != nil {
				return nil, err
			}
			d.byModel[rec.Model] = append(d.byModel[rec.Model], len(d.records))
			d.records = append(d.records, rec)
		}
	}

	return d, nil
}

// parseRecord converts a <record> element.
// pos is the 1-based position of the record in the document.
func parseRecord(el *etree.Element, pos int) (chart.Record, error) {
	model := el.SelectAttrValue("model", "")
	id := el.SelectAttrValue("id", "")
	if model == "" || id == "" {
		return chart.Record{}, &chart.SchemaError{
			Model:  model,
			ID:     id,
			Reason: fmt.Sprintf("record #%d needs both model and id attributes", pos),
		}
	}

	rec := chart.Record{Model: model, ID: id}
	for _, fe := range el.SelectElements("field") {
		name := fe.SelectAttrValue("name", "")
		if name == "" {
			return chart.Record{}, &chart.SchemaError{Model: model, ID: id, Reason: "field without name attribute"}
		}
		rec.Fields = append(rec.Fields, parseField(name, fe))
	}
	return rec, nil
}

// parseField picks the field kind: a ref attribute wins over eval, which
// wins over inline text.
func parseField(name string, fe *etree.Element) chart.Field {
	if a := fe.SelectAttr("ref"); a != nil {
		return chart.RefField(name, a.Value)
	}
	if a := fe.SelectAttr("eval"); a != nil {
		return chart.EvalField(name, a.Value)
	}
	return chart.TextField(name, fe.Text())
}

func isRootElement(tag string) bool {
	for _, r := range rootElements {
		if tag == r {
			return true
		}
	}
	return false
}

// decoderFor returns a reader that decodes input from the named charset to
// UTF-8. It is also used as the etree CharsetReader.
func decoderFor(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8", "":
		return input, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported character encoding %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
