// =============================================================================
// Account NL Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   accountnl convert       - Convert the OpenERP chart to Tryton templates
//   accountnl selfcheck     - Run the built-in conversion checks
//   accountnl config init   - Write the default configuration file
//   accountnl version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing, conversion, validation, rendering, reporting
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/nfg/account-nl/cmd"
)

func main() {
	cmd.Execute()
}
