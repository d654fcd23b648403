// Package builder orchestrates the load, render, write pipeline. It owns the
// in-memory page and object tables for the current build generation and
// exposes full and partial rebuild operations keyed by change classification.
//
// The tables are single-writer: only the rebuild path mutates them, and a
// finished generation is swapped in atomically so concurrent readers never
// observe a partially rebuilt state.
package builder

import (
	"fmt"
	"os"
	"sync"

	"github.com/conneroisu/quarry/internal/config"
	"github.com/conneroisu/quarry/internal/content"
	qerrors "github.com/conneroisu/quarry/internal/errors"
	"github.com/conneroisu/quarry/internal/logging"
	"github.com/conneroisu/quarry/internal/templates"
)

// Builder renders a site generation into the build directory.
type Builder struct {
	cfg       *config.Config
	log       *logging.Logger
	engine    *templates.Engine
	layouts   *templates.LayoutCache
	store     *content.Store
	collector *qerrors.Collector

	mu          sync.RWMutex
	pages       map[string]*Page
	collections map[string]*content.Collection

	staticMu   sync.Mutex
	staticHash map[string]uint64
}

// New constructs a Builder and loads the schema. A missing pages or objects
// directory is fatal here; everything later degrades per unit.
func New(cfg *config.Config, log *logging.Logger) (*Builder, error) {
	for _, dir := range []string{cfg.PagesDir, cfg.ObjectsDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("required directory %s does not exist", dir)
		}
	}

	log = log.WithComponent("builder")
	collector := qerrors.NewCollector()
	layouts := templates.NewLayoutCache(cfg.LayoutDir)

	b := &Builder{
		cfg:        cfg,
		log:        log,
		engine:     templates.New(cfg, log, layouts),
		layouts:    layouts,
		store:      content.NewStore(cfg, log, collector),
		collector:  collector,
		staticHash: make(map[string]uint64),
	}
	if err := b.store.LoadDefinitions(); err != nil {
		return nil, err
	}
	return b, nil
}

// Errors returns the per-unit failures gathered since the last full rebuild.
func (b *Builder) Errors() []error { return b.collector.Errors() }

// Load populates the page and object tables without writing output.
func (b *Builder) Load() error {
	collections, err := b.store.LoadAll()
	if err != nil {
		return err
	}
	pages, err := b.loadPages()
	if err != nil {
		return err
	}
	if err := b.checkTemplates(pages); err != nil {
		return err
	}

	b.mu.Lock()
	b.pages = pages
	b.collections = collections
	b.mu.Unlock()
	return nil
}

// checkTemplates verifies every type declaring a template binding has a
// matching pages file. Build-fatal: the type's objects would have no output.
func (b *Builder) checkTemplates(pages map[string]*Page) error {
	bound := make(map[string]bool)
	for _, page := range pages {
		if page.DynamicType != "" {
			bound[page.DynamicType] = true
		}
	}
	for _, def := range b.store.Definitions() {
		if def.Template != "" && !bound[def.Name] {
			return fmt.Errorf("type %s declares template %q but no pages file matches it", def.Name, def.Template)
		}
	}
	return nil
}

// FullRebuild clears the layout cache, reloads the schema and both tables,
// and rewrites all output. Required for layout, schema, or manifest changes,
// any of which can affect every page.
func (b *Builder) FullRebuild() error {
	b.layouts.Clear()
	b.collector.Reset()
	if err := b.store.LoadDefinitions(); err != nil {
		return err
	}
	if err := b.Load(); err != nil {
		return err
	}
	return b.WriteAll()
}

// snapshot returns the current tables for a render pass.
func (b *Builder) snapshot() (map[string]*Page, map[string]*content.Collection) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pages, b.collections
}
