// =============================================================================
// Account NL Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand is
// attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (accountnl)
//   ├── convertCmd   (accountnl convert)
//   ├── selfcheckCmd (accountnl selfcheck)
//   ├── configCmd    (accountnl config init)
//   └── versionCmd   (accountnl version)
//
// The root command owns the flags shared by all subcommands (--config,
// --verbose, --log-level) and the helpers that turn them into a loaded
// configuration and a logger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nfg/account-nl/internal/config"
	"github.com/nfg/account-nl/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "accountnl",
	Short: "Convert the Dutch OpenERP chart of accounts to Tryton templates",
	Long: `accountnl converts the Dutch chart of accounts published as OpenERP data
(account_chart_netherlands.xml) into the Tryton template format used by the
account_nl module.

The converter emits account types, accounts and tax codes under synthetic
roots (nl, a_root, tax_code_nl) and checks that every reference in the
result resolves before anything is written.

Example Usage:
  accountnl convert                          # account_chart_netherlands.xml -> account_nl.xml.new
  accountnl convert -i chart.xml -o out.xml  # explicit paths
  accountnl convert --report chart.xlsx      # also write a review workbook
  accountnl selfcheck                        # run the built-in property checks
  accountnl config init                      # write accountnl.yaml with defaults`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigFile,
		"Path to the configuration file (ignored when missing)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().String(
		"log-level",
		"info",
		"Log level: trace, debug, info, warn, error",
	)
}

// =============================================================================
// HELPERS
// =============================================================================

// loadConfig builds the configuration for cmd: defaults, the --config file,
// ACCOUNTNL_* variables, then the flags cmd defines.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger creates the run logger. Each run gets its own run_id so log lines
// of concurrent invocations can be told apart.
func newLogger(cfg *config.Config) *logger.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Config{
		Format: cfg.LogFormat,
		Level:  level,
	}).With("run_id", uuid.New().String())
}
