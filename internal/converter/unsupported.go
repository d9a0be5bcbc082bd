package converter

import (
	"github.com/nfg/account-nl/internal/chart"
	"github.com/nfg/account-nl/internal/source"
)

// Omission records a source model the converter does not translate.
type Omission struct {
	// SourceModel is the model tag in the input document.
	SourceModel string

	// TargetModel is the model the records would have become.
	TargetModel string

	// Count is the number of source records dropped.
	Count int
}

// OmissionReason is the operator-facing explanation attached to every omission.
const OmissionReason = "unsupported model, intentionally omitted"

// unsupportedModels lists the models whose conversion is not implemented, in
// the order their (empty) output sections appear in the document.
var unsupportedModels = []struct{ source, target string }{
	{chart.SourceTaxTemplate, chart.TargetTaxTemplate},
	{chart.SourceTaxRule, chart.TargetTaxRule},
	{chart.SourceTaxRuleLine, chart.TargetTaxRuleLine},
}

// buildUnsupported produces no records for tax templates, tax rules and tax
// rule lines. Source records of those models are counted and logged so the
// gap is visible instead of silent.
func (c *Converter) buildUnsupported(doc *source.Document) []Omission {
	omitted := make([]Omission, 0, len(unsupportedModels))
	for _, m := range unsupportedModels {
		n := doc.Count(m.source)
		omitted = append(omitted, Omission{SourceModel: m.source, TargetModel: m.target, Count: n})
		if n > 0 {
			c.log.Warn().
				Str("model", m.source).
				Str("target", m.target).
				Int("records", n).
				Msg(OmissionReason)
		}
	}
	return omitted
}

// String describes the omission for reports.
func (o Omission) String() string {
	return o.SourceModel + ": " + OmissionReason
}
