// =============================================================================
// Account NL Converter - Chart Report
// =============================================================================
//
// This module writes an XLSX workbook describing a conversion so the chart
// can be reviewed in a spreadsheet before the generated XML replaces the
// package's account_nl.xml.
//
// WORKBOOK LAYOUT:
//
//   | Sheet         | Rows                                              |
//   |---------------|---------------------------------------------------|
//   | Summary       | run counters (records in, records out, skipped)   |
//   | Account Types | ID, Name, Sequence, Parent, Balance Sheet         |
//   | Accounts      | ID, Code, Name, Kind, Type, Parent, Deferral      |
//   | Tax Codes     | ID, Code, Name, Parent, Account                   |
//   | Omitted       | unsupported source models and their record counts |
//   | Findings      | reference problems (lenient runs only)            |
//
// Row order follows the output document.
//
// =============================================================================

package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/nfg/account-nl/internal/chart"
	"github.com/nfg/account-nl/internal/converter"
	"github.com/nfg/account-nl/pkg/utils"
)

// Sheet names.
const (
	SheetSummary      = "Summary"
	SheetAccountTypes = "Account Types"
	SheetAccounts     = "Accounts"
	SheetTaxCodes     = "Tax Codes"
	SheetOmitted      = "Omitted"
	SheetFindings     = "Findings"
)

// =============================================================================
// COLUMN DEFINITIONS
// =============================================================================

// column describes one sheet column: its header, width and the output field
// it shows. An empty field means the record identifier.
type column struct {
	header string
	width  float64
	field  string
}

var (
	accountTypeColumns = []column{
		{"ID", 28, ""},
		{"Name", 40, "name"},
		{"Sequence", 10, "sequence"},
		{"Parent", 20, "parent"},
		{"Balance Sheet", 14, "balance_sheet"},
	}

	accountColumns = []column{
		{"ID", 28, ""},
		{"Code", 10, "code"},
		{"Name", 48, "name"},
		{"Kind", 12, "kind"},
		{"Type", 28, "type"},
		{"Parent", 28, "parent"},
		{"Deferral", 10, "deferral"},
	}

	taxCodeColumns = []column{
		{"ID", 28, ""},
		{"Code", 10, "code"},
		{"Name", 56, "name"},
		{"Parent", 28, "parent"},
		{"Account", 12, "account"},
	}
)

// =============================================================================
// WRITING
// =============================================================================

// Write builds the workbook for res and stores it at path. The file is
// replaced atomically.
func Write(path string, res *converter.Result) error {
	f, err := Build(res)
	if err != nil {
		return err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := utils.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Build creates the workbook in memory. The caller closes it.
func Build(res *converter.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	w := &writer{f: f}
	w.header, w.err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})

	if w.err == nil {
		w.err = f.SetSheetName("Sheet1", SheetSummary)
	}
	w.summary(res)
	w.records(SheetAccountTypes, accountTypeColumns, res.AccountTypes)
	w.records(SheetAccounts, accountColumns, res.Accounts)
	w.records(SheetTaxCodes, taxCodeColumns, res.TaxCodes)
	w.omitted(res.Omitted)
	if len(res.Findings) > 0 {
		w.findings(res)
	}

	if w.err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to build report: %w", w.err)
	}
	return f, nil
}

// writer keeps the first error so the sheet builders can run unchecked.
type writer struct {
	f      *excelize.File
	header int
	err    error
}

func (w *writer) sheet(name string) {
	if w.err != nil || name == SheetSummary {
		return
	}
	_, w.err = w.f.NewSheet(name)
}

func (w *writer) row(sheet string, n int, values []interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *writer) headerRow(sheet string, headers []string, widths []float64) {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	w.row(sheet, 1, values)
	if w.err != nil {
		return
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(sheet, "A1", last+"1", w.header)

	for i, width := range widths {
		if w.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			w.err = err
			return
		}
		w.err = w.f.SetColWidth(sheet, col, col, width)
	}
}

// =============================================================================
// SHEETS
// =============================================================================

func (w *writer) summary(res *converter.Result) {
	w.headerRow(SheetSummary, []string{"Item", "Value"}, []float64{24, 48})

	rows := [][]interface{}{
		{"Input", res.InputFile},
		{"Output", res.OutputFile},
		{"Source records", res.Stats.SourceRecords},
		{"Output records", res.Stats.OutputRecords},
		{"Account types", len(res.AccountTypes)},
		{"Accounts", len(res.Accounts)},
		{"Tax codes", len(res.TaxCodes)},
		{"Skipped tax codes", res.Stats.SkippedTaxCodes},
		{"Omitted records", res.Stats.OmittedRecords},
		{"Reference findings", len(res.Findings)},
	}
	for i, r := range rows {
		w.row(SheetSummary, i+2, r)
	}
}

func (w *writer) records(sheet string, cols []column, records []chart.Record) {
	w.sheet(sheet)

	headers := make([]string, len(cols))
	widths := make([]float64, len(cols))
	for i, c := range cols {
		headers[i] = c.header
		widths[i] = c.width
	}
	w.headerRow(sheet, headers, widths)

	for i, r := range records {
		values := make([]interface{}, len(cols))
		for j, c := range cols {
			if c.field == "" {
				values[j] = r.ID
				continue
			}
			if f, ok := r.Field(c.field); ok {
				values[j] = f.Value
			} else {
				values[j] = ""
			}
		}
		w.row(sheet, i+2, values)
	}
}

func (w *writer) omitted(omitted []converter.Omission) {
	w.sheet(SheetOmitted)
	w.headerRow(SheetOmitted, []string{"Source Model", "Target Model", "Records", "Reason"},
		[]float64{40, 36, 10, 44})

	for i, o := range omitted {
		w.row(SheetOmitted, i+2, []interface{}{o.SourceModel, o.TargetModel, o.Count, converter.OmissionReason})
	}
}

func (w *writer) findings(res *converter.Result) {
	w.sheet(SheetFindings)
	w.headerRow(SheetFindings, []string{"Severity", "Rule", "Model", "ID", "Field", "Value", "Message"},
		[]float64{10, 22, 32, 28, 10, 36, 56})

	for i, e := range res.Findings {
		w.row(SheetFindings, i+2, []interface{}{e.Severity, e.Rule, e.Model, e.ID, e.Field, e.Value, e.Message})
	}
}
