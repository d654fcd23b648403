// Package classify maps a changed filesystem path to the build subsystem it
// affects. Classification is a pure function of the path and the site
// configuration; the watcher feeds it and the builder picks the rebuild
// strategy from the result.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/conneroisu/quarry/internal/config"
)

// Target names the subsystem a changed path belongs to.
type Target int

const (
	// None means the change is ignored.
	None Target = iota
	// Pages changes re-render the affected page templates.
	Pages
	// Objects changes re-parse the affected content objects.
	Objects
	// Assets changes are copied or removed individually.
	Assets
	// Layout changes force a full rebuild; any page may use any layout.
	Layout
	// Config covers the manifest and the schema, both of which can affect
	// every page. Full rebuild.
	Config
)

func (t Target) String() string {
	switch t {
	case Pages:
		return "pages"
	case Objects:
		return "objects"
	case Assets:
		return "assets"
	case Layout:
		return "layout"
	case Config:
		return "config"
	default:
		return "none"
	}
}

// FullRebuild reports whether a change to this target invalidates the whole
// generation rather than a partial update.
func (t Target) FullRebuild() bool { return t == Layout || t == Config }

// Classify tags a changed path. Directory containment checks compare path
// components, so a sibling directory that merely shares a name prefix with a
// watched directory is never misclassified. First match in priority order
// wins; unmatched paths are ignored.
func Classify(path string, cfg *config.Config) Target {
	switch {
	case contains(cfg.PagesDir, path):
		return Pages
	case contains(cfg.ObjectsDir, path):
		return Objects
	}
	for _, dir := range cfg.AssetDirs {
		if contains(dir, path) {
			return Assets
		}
	}
	switch {
	case contains(cfg.StaticDir, path):
		return Assets
	case contains(cfg.LayoutDir, path):
		return Layout
	}
	switch filepath.Base(path) {
	case config.ManifestFileName, config.SchemaFileName:
		return Config
	}
	return None
}

// contains reports whether path sits at or below dir.
func contains(dir, path string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
