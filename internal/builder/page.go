package builder

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/osteele/liquid"
)

// Page is one parsed template from the pages tree. A page is either static
// (one output file mirroring its source path), dynamic (rendered once per
// object of the type whose schema binds it as a template), or a partial
// (underscore-prefixed, never rendered directly).
type Page struct {
	// Name is the basename with the .liquid and output extensions stripped.
	Name string
	// RelPath is the source path relative to the pages directory.
	RelPath string
	// OutputExt comes from a secondary extension ("feed.rss.liquid"
	// renders to feed.rss); plain .liquid files render to .html.
	OutputExt string
	// DynamicType is the object type this page is a per-object template
	// for, or empty for static pages.
	DynamicType string
	Partial     bool

	tpl    *liquid.Template
	source []byte
}

// TemplatePath is the extensionless output path bound as template_path in the
// render context, always slash-separated.
func (p *Page) TemplatePath() string {
	return filepath.ToSlash(filepath.Join(filepath.Dir(p.RelPath), p.Name))
}

// OutputRel is the output file path relative to the build directory. Dynamic
// pages have per-object outputs instead; see dynamicOutputRel.
func (p *Page) OutputRel() string {
	return filepath.Join(filepath.Dir(p.RelPath), p.Name+"."+p.OutputExt)
}

// splitTemplateName strips the .liquid suffix and an optional secondary
// output extension from a pages file name. Non-template files report ok
// false and are ignored by the page scan.
func splitTemplateName(base string) (name, ext string, ok bool) {
	name, found := strings.CutSuffix(base, ".liquid")
	if !found || name == "" {
		return "", "", false
	}
	if secondary := filepath.Ext(name); secondary != "" {
		return strings.TrimSuffix(name, secondary), secondary[1:], true
	}
	return name, "html", true
}

// loadPage reads and parses one pages-tree template.
func (b *Builder) loadPage(relPath string, dynamicTypes map[string]string) (*Page, error) {
	base := filepath.Base(relPath)
	name, ext, ok := splitTemplateName(base)
	if !ok {
		return nil, nil
	}

	source, err := os.ReadFile(filepath.Join(b.cfg.PagesDir, relPath))
	if err != nil {
		return nil, err
	}

	page := &Page{
		Name:      name,
		RelPath:   relPath,
		OutputExt: ext,
		Partial:   strings.HasPrefix(base, "_"),
		source:    source,
	}

	// A pages file whose extensionless relative path matches a schema
	// template binding renders once per object instead of once for itself.
	key := filepath.ToSlash(filepath.Join(filepath.Dir(relPath), name))
	page.DynamicType = dynamicTypes[key]

	if !page.Partial {
		tpl, err := b.engine.Parse(source, filepath.Join(b.cfg.PagesDir, relPath))
		if err != nil {
			return nil, err
		}
		page.tpl = tpl
	}
	return page, nil
}

// loadPages walks the pages tree and parses every template. The walk is
// iterative and tracks resolved directories so a symlink cycle cannot loop
// it forever. A page that fails to parse is reported and skipped.
func (b *Builder) loadPages() (map[string]*Page, error) {
	dynamicTypes := make(map[string]string)
	for _, def := range b.store.Definitions() {
		if def.Template != "" {
			dynamicTypes[def.Template] = def.Name
		}
	}

	pages := make(map[string]*Page)
	visited := make(map[string]bool)
	queue := []string{b.cfg.PagesDir}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			b.log.Warn(err, "skipping unreadable directory", "dir", dir)
			continue
		}
		if visited[resolved] {
			continue
		}
		visited[resolved] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				queue = append(queue, path)
				continue
			}
			rel, err := filepath.Rel(b.cfg.PagesDir, path)
			if err != nil {
				return nil, err
			}
			page, err := b.loadPage(rel, dynamicTypes)
			if err != nil {
				b.collector.Add(err)
				b.log.Warn(err, "skipping page", "path", rel)
				continue
			}
			if page != nil {
				pages[rel] = page
			}
		}
	}
	return pages, nil
}
