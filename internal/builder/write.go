package builder

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/quarry/internal/content"
)

// Change is one filesystem change handed to a partial update.
type Change struct {
	Path    string
	Removed bool
}

// WriteAll renders every page into the build directory, copies asset
// directories, and syncs the static directory. A page that fails to render
// is reported and skipped; schema-level problems have already aborted the
// pass before any file is written.
func (b *Builder) WriteAll() error {
	if err := os.MkdirAll(b.cfg.BuildDir, 0o755); err != nil {
		return err
	}

	pages, collections := b.snapshot()
	for _, page := range pages {
		b.writePage(page, collections)
	}

	// Asset copies are skipped in dev mode; the watcher pushes those
	// incrementally and the serve tag points at the source anyway.
	if !b.cfg.DevMode {
		for _, dir := range b.cfg.AssetDirs {
			if err := b.copyAssetDir(dir); err != nil {
				return err
			}
		}
	}
	return b.syncStatic()
}

// writePage renders and writes one page table entry, fanning out per object
// for dynamic templates. Render failures fail only the affected output.
func (b *Builder) writePage(page *Page, collections map[string]*content.Collection) {
	if page.Partial {
		return
	}
	if page.DynamicType != "" {
		coll := collections[page.DynamicType]
		if coll == nil {
			return
		}
		for _, obj := range coll.Objects {
			out, err := b.renderDynamic(page, obj, collections)
			if err != nil {
				b.reportRenderError(page.RelPath, err)
				continue
			}
			if err := b.writeOutput(dynamicOutputRel(page, obj), out); err != nil {
				b.reportRenderError(page.RelPath, err)
			}
		}
		return
	}

	out, err := b.renderStatic(page, collections)
	if err != nil {
		b.reportRenderError(page.RelPath, err)
		return
	}
	if err := b.writeOutput(page.OutputRel(), out); err != nil {
		b.reportRenderError(page.RelPath, err)
	}
}

func (b *Builder) reportRenderError(relPath string, err error) {
	b.collector.Add(err)
	b.log.Warn(err, "failed rendering", "page", relPath)
}

func (b *Builder) writeOutput(rel, content string) error {
	dest := filepath.Join(b.cfg.BuildDir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(content), 0o644)
}

// UpdatePages re-parses the changed pages and rewrites only their outputs.
// A changed partial re-renders every page, since any of them may include it.
func (b *Builder) UpdatePages(changes []Change) error {
	dynamicTypes := make(map[string]string)
	for _, def := range b.store.Definitions() {
		if def.Template != "" {
			dynamicTypes[def.Template] = def.Name
		}
	}

	renderAll := false
	var touched []*Page

	for _, change := range changes {
		rel, err := filepath.Rel(b.cfg.PagesDir, change.Path)
		if err != nil {
			continue
		}

		if change.Removed {
			b.mu.Lock()
			page := b.pages[rel]
			delete(b.pages, rel)
			b.mu.Unlock()
			if page != nil {
				b.removeOutputs(page)
				if page.Partial {
					renderAll = true
				}
			}
			continue
		}

		page, err := b.loadPage(rel, dynamicTypes)
		if err != nil {
			b.reportRenderError(rel, err)
			continue
		}
		if page == nil {
			continue
		}
		b.mu.Lock()
		b.pages[rel] = page
		b.mu.Unlock()
		if page.Partial {
			renderAll = true
		} else {
			touched = append(touched, page)
		}
	}

	pages, collections := b.snapshot()
	if renderAll {
		for _, page := range pages {
			b.writePage(page, collections)
		}
		return nil
	}
	for _, page := range touched {
		b.writePage(page, collections)
	}
	return nil
}

// UpdateObjects reloads the collections owning the changed object files and
// rewrites every page; the object graph is visible to all of them.
func (b *Builder) UpdateObjects(changes []Change) error {
	affected := make(map[string]bool)
	for _, change := range changes {
		rel, err := filepath.Rel(b.cfg.ObjectsDir, change.Path)
		if err != nil {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 2 {
			continue
		}
		affected[parts[0]] = true
	}

	for name := range affected {
		def := b.store.Definition(name)
		if def == nil {
			// Stray directories under the objects root are tolerated.
			continue
		}
		coll, err := b.store.LoadCollection(def)
		if err != nil {
			return err
		}
		b.mu.Lock()
		b.collections[name] = coll
		b.mu.Unlock()
	}

	pages, collections := b.snapshot()
	for _, page := range pages {
		b.writePage(page, collections)
	}
	return nil
}

// UpdateAssets copies or removes only the changed asset paths.
func (b *Builder) UpdateAssets(changes []Change) error {
	for _, change := range changes {
		rel, ok := b.assetDest(change.Path)
		if !ok {
			continue
		}
		dest := filepath.Join(b.cfg.BuildDir, rel)
		if change.Removed {
			if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
				return err
			}
			continue
		}
		if err := copyFile(change.Path, dest); err != nil {
			return err
		}
	}
	return nil
}

// assetDest maps an asset source path to its build-relative destination.
// Static directory contents land at the build root; configured asset
// directories keep their site-root-relative location.
func (b *Builder) assetDest(path string) (string, bool) {
	if rel, err := filepath.Rel(b.cfg.StaticDir, path); err == nil && !escapes(rel) {
		return rel, true
	}
	for _, dir := range b.cfg.AssetDirs {
		if rel, err := filepath.Rel(dir, path); err == nil && !escapes(rel) {
			root, err := filepath.Rel(b.cfg.Root, path)
			if err != nil {
				return "", false
			}
			return root, true
		}
	}
	return "", false
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// removeOutputs deletes the build artifacts of a removed page.
func (b *Builder) removeOutputs(page *Page) {
	if page.Partial {
		return
	}
	if page.DynamicType != "" {
		_, collections := b.snapshot()
		if coll := collections[page.DynamicType]; coll != nil {
			for _, obj := range coll.Objects {
				os.Remove(filepath.Join(b.cfg.BuildDir, dynamicOutputRel(page, obj)))
			}
		}
		return
	}
	os.Remove(filepath.Join(b.cfg.BuildDir, page.OutputRel()))
}

// copyAssetDir copies one configured asset directory verbatim, preserving
// its site-root-relative location under the build directory.
func (b *Builder) copyAssetDir(dir string) error {
	files, err := walkFiles(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, rel := range files {
		src := filepath.Join(dir, rel)
		root, err := filepath.Rel(b.cfg.Root, src)
		if err != nil {
			return err
		}
		if err := copyFile(src, filepath.Join(b.cfg.BuildDir, root)); err != nil {
			return err
		}
	}
	return nil
}

// syncStatic mirrors the static directory into the build root. File hashes
// from the previous pass skip unchanged copies; sources removed since then
// are deleted from the build directory.
func (b *Builder) syncStatic() error {
	b.staticMu.Lock()
	defer b.staticMu.Unlock()

	files, err := walkFiles(b.cfg.StaticDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	seen := make(map[string]bool, len(files))
	for _, rel := range files {
		src := filepath.Join(b.cfg.StaticDir, rel)
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		seen[rel] = true

		h := fnv.New64a()
		h.Write(data)
		sum := h.Sum64()
		if prev, ok := b.staticHash[rel]; ok && prev == sum {
			continue
		}

		dest := filepath.Join(b.cfg.BuildDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return err
		}
		b.staticHash[rel] = sum
	}

	for rel := range b.staticHash {
		if !seen[rel] {
			if err := os.Remove(filepath.Join(b.cfg.BuildDir, rel)); err != nil && !os.IsNotExist(err) {
				return err
			}
			delete(b.staticHash, rel)
		}
	}
	return nil
}

// walkFiles lists the files below root, relative to it. The traversal is
// iterative with a resolved-directory set guarding against symlink cycles.
func walkFiles(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	var files []string
	visited := make(map[string]bool)
	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
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
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil, err
			}
			files = append(files, rel)
		}
	}
	return files, nil
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}
