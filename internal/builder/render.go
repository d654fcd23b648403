package builder

import (
	"path/filepath"

	"github.com/conneroisu/quarry/internal/content"
)

// baseBindings assembles the shared render context: the page name, the site
// URL, every collection under its type name, and the same graph again under
// "objects" for generic iteration.
func (b *Builder) baseBindings(pageName string, collections map[string]*content.Collection) map[string]any {
	bindings := map[string]any{
		"page":     pageName,
		"site_url": b.cfg.SiteURL,
	}
	objects := make(map[string]any, len(collections))
	for name, coll := range collections {
		list := make([]map[string]any, len(coll.Objects))
		for i, obj := range coll.Objects {
			list[i] = objectBindings(obj)
		}
		objects[name] = list
		bindings[name] = list
	}
	bindings["objects"] = objects
	return bindings
}

func objectBindings(obj *content.Object) map[string]any {
	vals := make(map[string]any, len(obj.Values)+2)
	for k, v := range obj.Values {
		vals[k] = v
	}
	vals["object_name"] = obj.Name
	if obj.HasOrder {
		vals["order"] = obj.Order
	}
	return vals
}

// renderStatic renders one static page. The output is rendered twice: a
// markdown field may carry Liquid variables of its own, which only resolve
// once the surrounding HTML exists.
func (b *Builder) renderStatic(page *Page, collections map[string]*content.Collection) (string, error) {
	bindings := b.baseBindings(page.Name, collections)
	bindings["template_path"] = page.TemplatePath()
	return b.renderTwice(page, bindings)
}

// renderDynamic renders a dynamic template for one object. The object's
// fields are bound under the type name, along with object_name, order, and
// the object's output location relative to the render directory so content
// can link to itself.
func (b *Builder) renderDynamic(page *Page, obj *content.Object, collections map[string]*content.Collection) (string, error) {
	bindings := b.baseBindings(obj.Name, collections)

	vals := objectBindings(obj)
	rel, err := filepath.Rel(page.DynamicType, filepath.Join(page.DynamicType, obj.Name+"."+page.OutputExt))
	if err != nil {
		return "", err
	}
	vals["path"] = filepath.ToSlash(rel)

	bindings[page.DynamicType] = vals
	bindings["template_path"] = filepath.ToSlash(filepath.Join(page.DynamicType, obj.Name))
	return b.renderTwice(page, bindings)
}

func (b *Builder) renderTwice(page *Page, bindings map[string]any) (string, error) {
	out, err := b.engine.Render(page.tpl, bindings)
	if err != nil {
		return "", err
	}
	return b.engine.RenderString(out, filepath.Join(b.cfg.PagesDir, page.RelPath), bindings)
}

// dynamicOutputRel is the output path for one object of a dynamic type,
// relative to the build directory.
func dynamicOutputRel(page *Page, obj *content.Object) string {
	return filepath.Join(page.DynamicType, obj.Name+"."+page.OutputExt)
}
