// =============================================================================
// Account NL Converter - Configuration Module
// =============================================================================
//
// This module loads the converter configuration. Values are layered, later
// layers winning:
//
//   1. Built-in defaults (the fixed input and output paths, root names)
//   2. An optional YAML file (--config, default accountnl.yaml)
//   3. ACCOUNTNL_* environment variables (ACCOUNTNL_XML_INDENT, ...)
//   4. Command-line flags bound by the calling command
//
// EXAMPLE FILE:
//
//   input: account_chart_netherlands.xml
//   output: account_nl.xml.new
//   strict_references: true
//   xml:
//     indent: 2
//     declaration: true
//   chart:
//     type_root_name: Dutch Account Type Chart
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nfg/account-nl/internal/logger"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultInput is the OpenERP chart shipped next to the converter.
	DefaultInput = "account_chart_netherlands.xml"

	// DefaultOutput is written beside the package's account_nl.xml so the
	// two can be compared before replacing it.
	DefaultOutput = "account_nl.xml.new"

	// DefaultConfigFile is read when present; its absence is not an error.
	DefaultConfigFile = "accountnl.yaml"

	DefaultTypeRootName    = "Dutch Account Type Chart"
	DefaultAccountRootName = "NEDERLANDS STANDAARD GROOTBOEKSCHEMA"

	envPrefix = "ACCOUNTNL"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the converter settings.
type Config struct {
	// Input is the source document path.
	Input string `mapstructure:"input" yaml:"input"`

	// Output is the converted document path.
	Output string `mapstructure:"output" yaml:"output"`

	// Report is an optional XLSX summary path. Empty disables the report.
	Report string `mapstructure:"report" yaml:"report,omitempty"`

	// LogLevel: trace, debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// LogFormat: console or json.
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// SourceEncoding forces the input character encoding.
	SourceEncoding string `mapstructure:"source_encoding" yaml:"source_encoding,omitempty"`

	// StrictReferences makes unresolved output references fatal. When false
	// they are only logged.
	StrictReferences bool `mapstructure:"strict_references" yaml:"strict_references"`

	XML   XMLConfig   `mapstructure:"xml" yaml:"xml"`
	Chart ChartConfig `mapstructure:"chart" yaml:"chart"`
}

// XMLConfig controls serialization of the output document.
type XMLConfig struct {
	// Indent is the number of spaces per nesting level.
	Indent int `mapstructure:"indent" yaml:"indent"`

	// Declaration adds <?xml version="1.0" encoding="UTF-8"?>.
	Declaration bool `mapstructure:"declaration" yaml:"declaration"`
}

// ChartConfig names the synthesized root records.
type ChartConfig struct {
	TypeRootName    string `mapstructure:"type_root_name" yaml:"type_root_name"`
	AccountRootName string `mapstructure:"account_root_name" yaml:"account_root_name"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Input:            DefaultInput,
		Output:           DefaultOutput,
		LogLevel:         "info",
		LogFormat:        "console",
		StrictReferences: true,
		XML: XMLConfig{
			Indent:      2,
			Declaration: true,
		},
		Chart: ChartConfig{
			TypeRootName:    DefaultTypeRootName,
			AccountRootName: DefaultAccountRootName,
		},
	}
}

// flagKeys maps command flags to configuration keys.
var flagKeys = map[string]string{
	"input":     "input",
	"output":    "output",
	"report":    "report",
	"log-level": "log_level",
	"encoding":  "source_encoding",
}

// =============================================================================
// LOADING
// =============================================================================

// Load builds the configuration from defaults, the file at path (skipped when
// it does not exist), the environment and the flags that are present in
// flags. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// Defaults apply.
		default:
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so environment variables are picked up
// for all of them.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("input", d.Input)
	v.SetDefault("output", d.Output)
	v.SetDefault("report", d.Report)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("source_encoding", d.SourceEncoding)
	v.SetDefault("strict_references", d.StrictReferences)
	v.SetDefault("xml.indent", d.XML.Indent)
	v.SetDefault("xml.declaration", d.XML.Declaration)
	v.SetDefault("chart.type_root_name", d.Chart.TypeRootName)
	v.SetDefault("chart.account_root_name", d.Chart.AccountRootName)
}

// applyDefaults fills values a file may have set to empty.
func applyDefaults(cfg *Config) {
	if cfg.Input == "" {
		cfg.Input = DefaultInput
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.Chart.TypeRootName == "" {
		cfg.Chart.TypeRootName = DefaultTypeRootName
	}
	if cfg.Chart.AccountRootName == "" {
		cfg.Chart.AccountRootName = DefaultAccountRootName
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Input == c.Output {
		return fmt.Errorf("input and output are the same file: %s", c.Input)
	}
	if c.XML.Indent < 0 || c.XML.Indent > 8 {
		return fmt.Errorf("xml.indent must be between 0 and 8, got %d", c.XML.Indent)
	}
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
