// Package cmd provides the quarry command-line interface. Configuration
// layers, highest priority first: command-line flags, QUARRY_ environment
// variables, manifest.toml in the site root, built-in defaults.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/quarry/internal/config"
	"github.com/conneroisu/quarry/internal/logging"
)

var siteRoot string

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "A static site build engine for schema-typed content",
	Long: `Quarry turns a directory of schema-typed TOML content records and Liquid
templates into a static HTML tree.

Site layout:
  objects.toml       schema declaring object types and fields
  objects/<type>/    one TOML record per content object
  pages/             Liquid templates (underscore prefix = partial)
  layout/            named layouts for the {% layout %} tag
  public/            static files copied into the build
  manifest.toml      optional configuration overrides

Quick start:
  quarry build               Build the site into dist/
  quarry serve               Watch, rebuild, and live-reload`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Accept underscore spellings for flag names, matching the manifest keys.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	rootCmd.PersistentFlags().StringVarP(&siteRoot, "root", "r", ".", "site root directory")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text or json)")
}

// newLogger builds the process logger from the persistent flags.
func newLogger(cmd *cobra.Command) *logging.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	return logging.New(&logging.Config{Level: level, Format: format})
}

// loadConfig resets viper state and loads the site configuration for the
// given invocation.
func loadConfig(cmd *cobra.Command, log *logging.Logger) (*config.Config, error) {
	viper.Reset()
	if f := cmd.Flags().Lookup("port"); f != nil {
		viper.BindPFlag("serve_port", f)
	}
	return config.Load(siteRoot, log)
}
