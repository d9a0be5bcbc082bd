// =============================================================================
// Account NL Converter - Converter Module
// =============================================================================
//
// This module orchestrates a conversion run, from the OpenERP source
// document to the Tryton template document.
//
// CONVERSION PIPELINE:
//   1. Parse the source document
//   2. Account types  (account.account.type        -> account.account.type.template)
//   3. Accounts       (account.account.template    -> account.account.template)
//   4. Tax codes      (account.tax.code.template   -> account.tax.code.template)
//   5. Tax templates, tax rules, tax rule lines: not converted, reported
//   6. Check that every output reference resolves
//   7. Render the envelope and write the output file
//
// The transforms run one after the other and only read the parsed document.
// Any error aborts the run; the output file is written only when every step
// succeeded.
//
// =============================================================================

package converter

import (
	"fmt"
	"time"

	"github.com/nfg/account-nl/internal/chart"
	"github.com/nfg/account-nl/internal/config"
	"github.com/nfg/account-nl/internal/logger"
	"github.com/nfg/account-nl/internal/source"
	"github.com/nfg/account-nl/internal/validation"
	"github.com/nfg/account-nl/internal/xmlwriter"
	"github.com/nfg/account-nl/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of a conversion.
type Result struct {
	// InputFile and OutputFile are set by Run.
	InputFile  string
	OutputFile string

	// Output records per transform, in emission order.
	AccountTypes []chart.Record
	Accounts     []chart.Record
	TaxCodes     []chart.Record

	// Omitted lists the source models that were not converted.
	Omitted []Omission

	// Findings are the reference-integrity problems. A strict run fails
	// instead of returning any.
	Findings []*validation.ValidationError

	Stats ProcessingStats
}

// ProcessingStats contains counters about the run.
type ProcessingStats struct {
	// SourceRecords is the number of records in the input document.
	SourceRecords int

	// OutputRecords is the number of records written.
	OutputRecords int

	// SkippedTaxCodes counts tax codes without a parent_id.
	SkippedTaxCodes int

	// OmittedRecords counts records of unsupported models.
	OmittedRecords int

	ProcessingTime time.Duration
}

// Records returns every output record in document order: account types,
// accounts, tax codes. Tax templates, tax rules and tax rule lines
// contribute nothing.
func (r *Result) Records() []chart.Record {
	out := make([]chart.Record, 0, len(r.AccountTypes)+len(r.Accounts)+len(r.TaxCodes))
	out = append(out, r.AccountTypes...)
	out = append(out, r.Accounts...)
	out = append(out, r.TaxCodes...)
	return out
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options are the settings the transforms need.
type Options struct {
	// TypeRootName names the synthetic account-type root.
	TypeRootName string

	// AccountRootName names the synthetic account root.
	AccountRootName string

	// StrictReferences makes unresolved references fatal.
	StrictReferences bool
}

// Converter turns a parsed source document into output records.
type Converter struct {
	cfg  *config.Config
	opts Options
	log  *logger.Logger
}

// New creates a Converter from the run configuration.
func New(cfg *config.Config, log *logger.Logger) *Converter {
	if log == nil {
		log = logger.Nop()
	}
	return &Converter{
		cfg: cfg,
		opts: Options{
			TypeRootName:     cfg.Chart.TypeRootName,
			AccountRootName:  cfg.Chart.AccountRootName,
			StrictReferences: cfg.StrictReferences,
		},
		log: log,
	}
}

// =============================================================================
// CONVERSION
// =============================================================================

// Convert runs the transforms over doc in fixed order and checks the
// references of the result.
func (c *Converter) Convert(doc *source.Document) (*Result, error) {
	start := time.Now()
	res := &Result{}
	res.Stats.SourceRecords = doc.Len()

	var err error

	res.AccountTypes, err = c.buildAccountTypes(doc.Records(chart.SourceAccountType))
	if err != nil {
		return nil, fmt.Errorf("failed to convert account types: %w", err)
	}
	c.log.Debug().Int("records", len(res.AccountTypes)).Msg("account types converted")

	res.Accounts, err = c.buildAccounts(doc.Records(chart.SourceAccount))
	if err != nil {
		return nil, fmt.Errorf("failed to convert accounts: %w", err)
	}
	c.log.Debug().Int("records", len(res.Accounts)).Msg("accounts converted")

	res.TaxCodes, res.Stats.SkippedTaxCodes, err = c.buildTaxCodes(doc.Records(chart.SourceTaxCode))
	if err != nil {
		return nil, fmt.Errorf("failed to convert tax codes: %w", err)
	}
	c.log.Debug().Int("records", len(res.TaxCodes)).Msg("tax codes converted")

	res.Omitted = c.buildUnsupported(doc)
	for _, o := range res.Omitted {
		res.Stats.OmittedRecords += o.Count
	}

	records := res.Records()
	res.Stats.OutputRecords = len(records)

	findings := validation.Validate(records)
	if len(findings) > 0 {
		if c.opts.StrictReferences {
			return nil, validation.AsReferenceError(findings)
		}
		for _, f := range findings {
			f.Severity = "warning"
			c.log.Warn().Str("rule", f.Rule).Msg(f.Error())
		}
		res.Findings = findings
	}

	res.Stats.ProcessingTime = time.Since(start)
	return res, nil
}

// Render serializes the result as configured.
func (c *Converter) Render(res *Result) ([]byte, error) {
	doc := xmlwriter.Envelope(res.Records())
	return xmlwriter.Render(doc, xmlwriter.Options{
		Indent:      c.cfg.XML.Indent,
		Declaration: c.cfg.XML.Declaration,
	})
}

// Run converts the configured input file and writes the configured output
// file. Nothing is written when any step fails.
func (c *Converter) Run() (*Result, error) {
	return c.ConvertFile(c.cfg.Input, c.cfg.Output)
}

// ConvertFile parses in, converts it and writes the rendered document to out.
func (c *Converter) ConvertFile(in, out string) (*Result, error) {
	c.log.Info().Str("input", in).Msg("reading source document")

	doc, err := source.Load(in, source.Options{Encoding: c.cfg.SourceEncoding})
	if err != nil {
		return nil, err
	}

	res, err := c.Convert(doc)
	if err != nil {
		return nil, err
	}
	res.InputFile = in

	data, err := c.Render(res)
	if err != nil {
		return nil, fmt.Errorf("failed to render output: %w", err)
	}

	if err := utils.WriteFileAtomic(out, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	res.OutputFile = out

	c.log.Info().
		Str("output", out).
		Int("source_records", res.Stats.SourceRecords).
		Int("output_records", res.Stats.OutputRecords).
		Int("skipped_tax_codes", res.Stats.SkippedTaxCodes).
		Int("omitted_records", res.Stats.OmittedRecords).
		Dur("elapsed", res.Stats.ProcessingTime).
		Msg("conversion complete")

	return res, nil
}
