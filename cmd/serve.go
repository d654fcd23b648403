package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/quarry/internal/builder"
	"github.com/conneroisu/quarry/internal/classify"
	"github.com/conneroisu/quarry/internal/config"
	"github.com/conneroisu/quarry/internal/devserver"
	"github.com/conneroisu/quarry/internal/logging"
	"github.com/conneroisu/quarry/internal/watcher"
)

const debounceWindow = 200 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site with rebuild-on-change and live reload",
	Long: `Serve builds the site, serves the build directory over HTTP, watches the
site for changes, and pushes a reload to connected browsers after every
rebuild.

A rebuild failure is reported and the watch loop keeps running; the next
change retries.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", config.DefaultServePort, "port to serve on")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)
	cfg, err := loadConfig(cmd, log)
	if err != nil {
		return err
	}
	cfg.DevMode = true

	b, err := builder.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing builder: %w", err)
	}
	if err := b.Load(); err != nil {
		// The watch loop can recover once the source is fixed.
		log.Error(err, "initial load failed")
	} else if err := b.WriteAll(); err != nil {
		log.Error(err, "initial build failed")
	}

	srv := devserver.New(cfg, log)
	if err := srv.Start(); err != nil {
		return err
	}

	app := &serveApp{cfg: cfg, log: log, builder: b, server: srv}

	w, err := watcher.New(debounceWindow, log)
	if err != nil {
		return err
	}
	w.AddFilter(watcher.IgnoreHidden)
	w.AddFilter(watcher.IgnoreDir(cfg.BuildDir))
	w.AddHandler(app.handleBatch)
	if err := w.AddRecursive(cfg.Root); err != nil {
		return fmt.Errorf("watching %s: %w", cfg.Root, err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	w.Start(ctx)

	log.Info("serving site", "url", fmt.Sprintf("http://localhost:%d", srv.Port()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	cancel()
	w.Stop()

	// Let an in-flight rebuild finish so the output tree is never torn.
	app.rebuildMu.Lock()
	app.rebuildMu.Unlock()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// serveApp wires one watch batch through classification into the matching
// rebuild operation and a reload push.
type serveApp struct {
	cfg     *config.Config
	log     *logging.Logger
	builder *builder.Builder
	server  *devserver.Server

	rebuildMu sync.Mutex
}

func (a *serveApp) handleBatch(events []watcher.Event) error {
	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	var (
		full    bool
		pages   []builder.Change
		objects []builder.Change
		assets  []builder.Change
	)
	for _, event := range events {
		change := builder.Change{Path: event.Path, Removed: event.Kind == watcher.Removed}
		switch target := classify.Classify(event.Path, a.cfg); target {
		case classify.Pages:
			pages = append(pages, change)
		case classify.Objects:
			objects = append(objects, change)
		case classify.Assets:
			assets = append(assets, change)
		case classify.Layout, classify.Config:
			full = true
		case classify.None:
			continue
		}
	}

	changed := false
	if full {
		if err := a.builder.FullRebuild(); err != nil {
			// The watch loop survives a failed rebuild.
			a.log.Error(err, "full rebuild failed")
			return nil
		}
		changed = true
	} else {
		for _, step := range []struct {
			changes []builder.Change
			run     func([]builder.Change) error
			name    string
		}{
			{pages, a.builder.UpdatePages, "pages"},
			{objects, a.builder.UpdateObjects, "objects"},
			{assets, a.builder.UpdateAssets, "assets"},
		} {
			if len(step.changes) == 0 {
				continue
			}
			if err := step.run(step.changes); err != nil {
				a.log.Error(err, "partial rebuild failed", "target", step.name)
				continue
			}
			changed = true
		}
	}

	if changed {
		a.log.Info("rebuilt", "events", len(events), "errors", len(a.builder.Errors()))
		a.server.NotifyReload()
	}
	return nil
}
