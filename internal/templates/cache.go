package templates

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	qerrors "github.com/conneroisu/quarry/internal/errors"
)

// LayoutCache resolves layout names to files under the layout directory and
// memoizes both the resolution and the parsed template for the lifetime of a
// build generation. It is owned by the Builder and cleared only on full
// rebuild.
type LayoutCache struct {
	dir string

	mu    sync.RWMutex
	paths map[string]string
	tpls  map[string]*liquid.Template
}

// NewLayoutCache creates a cache over the given layout directory.
func NewLayoutCache(dir string) *LayoutCache {
	return &LayoutCache{
		dir:   dir,
		paths: make(map[string]string),
		tpls:  make(map[string]*liquid.Template),
	}
}

// Template returns the parsed layout cached under name, if present.
func (c *LayoutCache) Template(name string) (*liquid.Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tpl, ok := c.tpls[name]
	return tpl, ok
}

// StoreTemplate caches a parsed layout under name.
func (c *LayoutCache) StoreTemplate(name string, tpl *liquid.Template) {
	c.mu.Lock()
	c.tpls[name] = tpl
	c.mu.Unlock()
}

// Resolve maps a layout name to the single file whose extension-stripped
// basename equals name. Zero matches is a not-found error, more than one is
// an ambiguity error.
func (c *LayoutCache) Resolve(name string) (string, error) {
	c.mu.RLock()
	path, ok := c.paths[name]
	c.mu.RUnlock()
	if ok {
		return path, nil
	}

	// An unreadable layout directory means no layout can match.
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return "", &qerrors.LayoutError{Name: name, Kind: qerrors.LayoutNotFound}
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := entry.Name()
		if strings.TrimSuffix(base, filepath.Ext(base)) == name {
			matches = append(matches, filepath.Join(c.dir, base))
		}
	}

	switch len(matches) {
	case 0:
		return "", &qerrors.LayoutError{Name: name, Kind: qerrors.LayoutNotFound}
	case 1:
	default:
		return "", &qerrors.LayoutError{Name: name, Kind: qerrors.LayoutAmbiguous}
	}

	c.mu.Lock()
	c.paths[name] = matches[0]
	c.mu.Unlock()
	return matches[0], nil
}

// Clear drops every cached resolution and parsed template. Called at
// full-rebuild boundaries.
func (c *LayoutCache) Clear() {
	c.mu.Lock()
	c.paths = make(map[string]string)
	c.tpls = make(map[string]*liquid.Template)
	c.mu.Unlock()
}
