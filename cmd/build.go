package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/quarry/internal/builder"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the site into the build directory",
	Long: `Build renders every page and object template, copies asset directories,
and syncs the static directory into the build directory.

Schema errors and duplicate object names abort the build. A malformed
content object or a failing page is reported and skipped.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)
	cfg, err := loadConfig(cmd, log)
	if err != nil {
		return err
	}

	b, err := builder.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing builder: %w", err)
	}
	if err := b.Load(); err != nil {
		return err
	}
	if err := b.WriteAll(); err != nil {
		return err
	}

	for _, buildErr := range b.Errors() {
		log.Warn(buildErr, "build completed with errors")
	}
	log.Info("site built", "dir", cfg.BuildDir, "errors", len(b.Errors()))
	return nil
}
