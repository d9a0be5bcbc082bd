// =============================================================================
// Account NL Converter - Selfcheck Command
// =============================================================================
//
// This file defines the 'selfcheck' command. It converts the built-in
// canonical chart and verifies the conversion properties, without touching
// any file.
//
// COMMAND USAGE:
//   accountnl selfcheck
//
// Exits non-zero when any check fails.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nfg/account-nl/internal/logger"
	"github.com/nfg/account-nl/internal/selfcheck"
)

var selfcheckCmd = &cobra.Command{
	Use:   "selfcheck",
	Short: "Run the built-in conversion checks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runSelfcheck(newLogger(cfg), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(selfcheckCmd)
}

func runSelfcheck(log *logger.Logger, out io.Writer) error {
	rep, err := selfcheck.Run(log)
	if err != nil {
		return err
	}

	for _, c := range rep.Checks {
		mark := "✓"
		if !c.Passed {
			mark = "✗"
		}
		fmt.Fprintf(out, "  %s %-16s %s\n", mark, c.Name, c.Detail)
	}

	if failed := rep.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d checks failed", len(failed), len(rep.Checks))
	}
	fmt.Fprintf(out, "All %d checks passed.\n", len(rep.Checks))
	return nil
}
