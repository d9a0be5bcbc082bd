// =============================================================================
// Account NL Converter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which runs a full conversion.
//
// COMMAND USAGE:
//   accountnl convert [flags]
//
// FLAGS:
//   --input, -i       : Source OpenERP document (default account_chart_netherlands.xml)
//   --output, -o      : Tryton document to write (default account_nl.xml.new)
//   --report          : Also write an XLSX review workbook to this path
//   --encoding        : Force the source character encoding
//   --no-declaration  : Omit the <?xml ...?> declaration
//   --lenient         : Log unresolved references instead of failing
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Parse the source document
//   3. Convert account types, accounts and tax codes
//   4. Check references
//   5. Write the output document (atomically)
//   6. Optionally write the report
//   7. Print a summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfg/account-nl/internal/config"
	"github.com/nfg/account-nl/internal/converter"
	"github.com/nfg/account-nl/internal/report"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// noDeclaration drops the XML declaration from the output.
var noDeclaration bool

// lenientRefs downgrades unresolved references to warnings.
var lenientRefs bool

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the OpenERP chart to a Tryton template document",
	Long: `The convert command reads the OpenERP chart of accounts and writes the
Tryton template document.

Output order is fixed: account types, accounts, tax codes. Tax templates,
fiscal positions and their tax mappings are not converted; they are counted
and reported as omitted.

On error nothing is written and the existing output file, if any, is left
untouched.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if noDeclaration {
			cfg.XML.Declaration = false
		}
		if lenientRefs {
			cfg.StrictReferences = false
		}
		return runConvert(cfg, cmd.OutOrStdout())
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("input", "i", config.DefaultInput, "Source OpenERP document")
	convertCmd.Flags().StringP("output", "o", config.DefaultOutput, "Tryton document to write")
	convertCmd.Flags().String("report", "", "Write an XLSX review workbook to this path")
	convertCmd.Flags().String("encoding", "", "Force the source character encoding (e.g. iso-8859-1)")

	convertCmd.Flags().BoolVar(
		&noDeclaration,
		"no-declaration",
		false,
		"Omit the XML declaration",
	)

	convertCmd.Flags().BoolVar(
		&lenientRefs,
		"lenient",
		false,
		"Log unresolved references instead of failing",
	)
}

// =============================================================================
// MAIN CONVERSION FUNCTION
// =============================================================================

func runConvert(cfg *config.Config, out io.Writer) error {
	startTime := time.Now()
	log := newLogger(cfg)

	conv := converter.New(cfg, log)
	res, err := conv.Run()
	if err != nil {
		log.Error().Err(err).Msg("conversion failed")
		return err
	}

	if cfg.Report != "" {
		if err := report.Write(cfg.Report, res); err != nil {
			return err
		}
		log.Info().Str("report", cfg.Report).Msg("report written")
	}

	printSummary(out, res, time.Since(startTime))
	return nil
}

// printSummary writes the run summary for the operator.
func printSummary(out io.Writer, res *converter.Result, elapsed time.Duration) {
	fmt.Fprintln(out, "=== Conversion Complete ===")
	fmt.Fprintf(out, "Input:             %s\n", res.InputFile)
	fmt.Fprintf(out, "Output:            %s\n", res.OutputFile)
	fmt.Fprintf(out, "Account types:     %d\n", len(res.AccountTypes))
	fmt.Fprintf(out, "Accounts:          %d\n", len(res.Accounts))
	fmt.Fprintf(out, "Tax codes:         %d\n", len(res.TaxCodes))
	fmt.Fprintf(out, "Skipped tax codes: %d\n", res.Stats.SkippedTaxCodes)
	fmt.Fprintf(out, "Time elapsed:      %s\n", elapsed)

	for _, o := range res.Omitted {
		if o.Count > 0 {
			fmt.Fprintf(out, "  ! %s (%d records)\n", o, o.Count)
		}
	}
	for _, f := range res.Findings {
		fmt.Fprintf(out, "  ! %s\n", f.Error())
	}
}
