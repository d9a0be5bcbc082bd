// =============================================================================
// Account NL Converter - Self Check
// =============================================================================
//
// This module runs the converter end to end on an embedded canonical chart
// and verifies the properties every conversion must have:
//
//   envelope-shape      empty and minimal envelopes render to fixed text
//   type-sequences      10 for the root, then +10 per source type
//   balance-sheet       set exactly on types closed by "balance"
//   account-root        one synthetic a_root, source root dropped
//   deferral            deferral is the negated reconcile literal
//   tax-code-root       one tax_code_nl, root children re-homed to it
//   references          every output reference resolves
//   deterministic       two runs render identical bytes
//
// The fixture lists a tax code before its root so the re-homing check also
// covers forward references.
//
// =============================================================================

package selfcheck

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"github.com/nfg/account-nl/internal/chart"
	"github.com/nfg/account-nl/internal/config"
	"github.com/nfg/account-nl/internal/converter"
	"github.com/nfg/account-nl/internal/literal"
	"github.com/nfg/account-nl/internal/logger"
	"github.com/nfg/account-nl/internal/source"
	"github.com/nfg/account-nl/internal/validation"
	"github.com/nfg/account-nl/internal/xmlwriter"
)

//go:embed fixtures/canonical.xml
var canonical []byte

// Check is the outcome of one property check.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Report collects the checks of a run in execution order.
type Report struct {
	Checks []Check
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass.
func (r *Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

func (r *Report) add(name string, detail string, ok bool) {
	if ok && detail == "" {
		detail = "ok"
	}
	r.Checks = append(r.Checks, Check{Name: name, Passed: ok, Detail: detail})
}

// Run checks the embedded canonical chart.
func Run(log *logger.Logger) (*Report, error) {
	return run(canonical, log)
}

// run checks an arbitrary chart document. The error is reserved for a
// document that cannot be parsed; conversion failures are reported as a
// failed check.
func run(data []byte, log *logger.Logger) (*Report, error) {
	if log == nil {
		log = logger.Nop()
	}

	doc, err := source.Read(bytes.NewReader(data), "canonical.xml", source.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to load self-check document: %w", err)
	}

	rep := &Report{}
	rep.add(checkShape())

	cfg := config.Default()
	conv := converter.New(cfg, log)

	res, err := conv.Convert(doc)
	if err != nil {
		rep.add("convert", err.Error(), false)
		return rep, nil
	}

	rep.add(checkSequences(doc, res))
	rep.add(checkBalanceSheet(doc, res))
	rep.add(checkAccountRoot(res))
	rep.add(checkDeferral(doc, res))
	rep.add(checkTaxCodeRoot(doc, res))
	rep.add(checkReferences(res))
	rep.add(checkDeterminism(conv, doc))

	for _, c := range rep.Checks {
		ev := log.Debug()
		if !c.Passed {
			ev = log.Warn()
		}
		ev.Str("check", c.Name).Bool("passed", c.Passed).Msg(c.Detail)
	}
	return rep, nil
}

// =============================================================================
// CHECKS
// =============================================================================

func checkShape() (string, string, bool) {
	const name = "envelope-shape"
	opts := xmlwriter.Options{Indent: 2}

	empty, err := xmlwriter.RenderRecords(nil, opts)
	if err != nil {
		return name, err.Error(), false
	}
	if want := "<tryton>\n  <data/>\n</tryton>\n"; string(empty) != want {
		return name, fmt.Sprintf("empty envelope rendered %q, want %q", empty, want), false
	}

	minimal, err := xmlwriter.RenderRecords([]chart.Record{chart.NewRecord(chart.TargetAccountType, chart.AccountTypeRootID)}, opts)
	if err != nil {
		return name, err.Error(), false
	}
	want := "<tryton>\n  <data>\n    <record model=\"" + chart.TargetAccountType + "\" id=\"nl\"/>\n  </data>\n</tryton>\n"
	if string(minimal) != want {
		return name, fmt.Sprintf("minimal record rendered %q, want %q", minimal, want), false
	}
	return name, "", true
}

func checkSequences(doc *source.Document, res *converter.Result) (string, string, bool) {
	const name = "type-sequences"

	if got, want := len(res.AccountTypes), doc.Count(chart.SourceAccountType)+1; got != want {
		return name, fmt.Sprintf("%d account types emitted, want %d", got, want), false
	}
	for i, r := range res.AccountTypes {
		f, ok := r.Field("sequence")
		want := literal.FormatInt((i + 1) * 10)
		if !ok || f.Value != want {
			return name, fmt.Sprintf("%s has sequence %q, want %s", r.ID, f.Value, want), false
		}
	}
	return name, "", true
}

func checkBalanceSheet(doc *source.Document, res *converter.Result) (string, string, bool) {
	const name = "balance-sheet"

	emitted := make(map[string]bool)
	for _, r := range res.AccountTypes {
		if f, ok := r.Field("balance_sheet"); ok && f.Value == literal.FormatBool(true) {
			emitted[r.ID] = true
		}
	}

	for _, src := range doc.Records(chart.SourceAccountType) {
		cm, _ := src.Field("close_method")
		want := cm.Value == "balance"
		if emitted[src.ID] != want {
			return name, fmt.Sprintf("%s: balance_sheet=%t with close_method %q", src.ID, emitted[src.ID], cm.Value), false
		}
		delete(emitted, src.ID)
	}
	if len(emitted) > 0 {
		return name, "balance_sheet set on a synthesized type", false
	}
	return name, "", true
}

func checkAccountRoot(res *converter.Result) (string, string, bool) {
	const name = "account-root"

	n := 0
	for _, r := range res.Accounts {
		if r.ID == chart.AccountRootID {
			n++
		}
	}
	if n != 1 {
		return name, fmt.Sprintf("%d records named %s", n, chart.AccountRootID), false
	}
	root := res.Accounts[0]
	if root.ID != chart.AccountRootID {
		return name, "a_root is not the first account", false
	}
	if kind, _ := root.Field("kind"); kind.Value != "view" {
		return name, fmt.Sprintf("a_root kind %q, want view", kind.Value), false
	}
	return name, "", true
}

func checkDeferral(doc *source.Document, res *converter.Result) (string, string, bool) {
	const name = "deferral"

	out := index(res.Accounts)
	checked := 0
	for _, src := range doc.Records(chart.SourceAccount) {
		rec, ok := src.Field("reconcile")
		if !ok || src.ID == chart.AccountRootID {
			continue
		}
		v, err := literal.Parse(rec.Value)
		if err != nil {
			return name, err.Error(), false
		}
		d, ok := out[src.ID].Field("deferral")
		if want := literal.FormatBool(!v.Truthy()); !ok || d.Value != want {
			return name, fmt.Sprintf("%s: deferral %q for reconcile %q, want %s", src.ID, d.Value, rec.Value, want), false
		}
		checked++
	}
	return name, fmt.Sprintf("%d accounts checked", checked), true
}

func checkTaxCodeRoot(doc *source.Document, res *converter.Result) (string, string, bool) {
	const name = "tax-code-root"

	out := index(res.TaxCodes)
	n := 0
	for _, r := range res.TaxCodes {
		if r.ID == chart.TaxCodeRootID {
			n++
		}
	}
	if n != 1 {
		return name, fmt.Sprintf("%d records named %s", n, chart.TaxCodeRootID), false
	}

	var origRoot string
	for _, src := range doc.Records(chart.SourceTaxCode) {
		if p, ok := src.Field("parent_id"); ok && p.Kind == chart.Eval {
			origRoot = src.ID
		}
	}
	if _, ok := out[origRoot]; ok {
		return name, fmt.Sprintf("original root %s emitted under its own id", origRoot), false
	}

	var rehomed []string
	for _, src := range doc.Records(chart.SourceTaxCode) {
		p, ok := src.Field("parent_id")
		if !ok || p.Kind != chart.Ref || p.Value != origRoot {
			continue
		}
		got, _ := out[src.ID].Field("parent")
		if got.Value != chart.TaxCodeRootID {
			return name, fmt.Sprintf("%s has parent %q, want %s", src.ID, got.Value, chart.TaxCodeRootID), false
		}
		rehomed = append(rehomed, src.ID)
	}
	return name, "re-homed " + strings.Join(rehomed, ", "), true
}

func checkReferences(res *converter.Result) (string, string, bool) {
	const name = "references"
	if errs := validation.Validate(res.Records()); len(errs) > 0 {
		return name, validation.FormatErrors(errs), false
	}
	return name, "", true
}

func checkDeterminism(conv *converter.Converter, doc *source.Document) (string, string, bool) {
	const name = "deterministic"

	var outputs [2][]byte
	for i := range outputs {
		res, err := conv.Convert(doc)
		if err != nil {
			return name, err.Error(), false
		}
		if outputs[i], err = conv.Render(res); err != nil {
			return name, err.Error(), false
		}
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		return name, "two runs rendered different output", false
	}
	return name, fmt.Sprintf("%d bytes", len(outputs[0])), true
}

func index(records []chart.Record) map[string]chart.Record {
	m := make(map[string]chart.Record, len(records))
	for _, r := range records {
		m[r.ID] = r
	}
	return m
}
