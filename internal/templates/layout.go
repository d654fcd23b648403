package templates

import (
	"fmt"
	"os"

	"github.com/osteele/liquid"
	"github.com/osteele/liquid/render"

	qerrors "github.com/conneroisu/quarry/internal/errors"
)

// layoutTag implements {% layout 'name'[, key: expr]* %}. The tag wraps the
// remainder of its enclosing template: attributes are assigned into the
// current scope, the captured body renders there, and the located layout
// file renders with the result bound under page_content.
//
// Failures render inline as error text in the page's output instead of
// aborting the build, so a typo'd layout name shows up in the browser during
// authoring.
func (e *Engine) layoutTag(rc render.Context) (string, error) {
	out, err := e.renderLayout(rc)
	if err != nil {
		e.log.Warn(err, "layout tag failed", "template", rc.SourceFile())
		return err.Error(), nil
	}
	return out, nil
}

func (e *Engine) renderLayout(rc render.Context) (string, error) {
	nameExpr, attrs, err := parseTagArgs(rc.TagArgs())
	if err != nil {
		return "", &qerrors.LayoutError{Kind: qerrors.LayoutSyntax, Message: err.Error()}
	}

	nameVal, err := rc.EvaluateString(nameExpr)
	if err != nil {
		return "", &qerrors.LayoutError{Kind: qerrors.LayoutSyntax, Message: err.Error()}
	}
	name, ok := nameVal.(string)
	if !ok {
		return "", &qerrors.LayoutError{
			Kind:    qerrors.LayoutSyntax,
			Message: fmt.Sprintf("layout name must be a string, got %T", nameVal),
		}
	}

	bindings := make(map[string]any, len(attrs)+1)
	for _, attr := range attrs {
		val, err := rc.EvaluateString(attr.Expr)
		if err != nil {
			return "", &qerrors.LayoutError{
				Name:    name,
				Kind:    qerrors.LayoutSyntax,
				Message: fmt.Sprintf("attribute %s: %v", attr.Key, err),
			}
		}
		rc.Set(attr.Key, val)
		bindings[attr.Key] = val
	}

	content, err := rc.InnerString()
	if err != nil {
		return "", err
	}
	bindings["page_content"] = content

	tpl, err := e.layoutTemplate(name)
	if err != nil {
		return "", err
	}

	// The attribute assignments above already landed in the page scope; the
	// copy carries the rest of the page's environment into the layout.
	merged := make(map[string]any, len(rc.Bindings())+len(bindings))
	for k, v := range rc.Bindings() {
		merged[k] = v
	}
	for k, v := range bindings {
		merged[k] = v
	}

	out, err := e.Render(tpl, merged)
	if err != nil {
		return "", &qerrors.LayoutError{Name: name, Kind: qerrors.LayoutSyntax, Message: err.Error()}
	}
	return out, nil
}

// layoutTemplate resolves and parses the named layout, caching the parsed
// template alongside the name resolution for the rest of the generation.
func (e *Engine) layoutTemplate(name string) (*liquid.Template, error) {
	if tpl, ok := e.layouts.Template(name); ok {
		return tpl, nil
	}
	path, err := e.layouts.Resolve(name)
	if err != nil {
		return nil, err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &qerrors.LayoutError{Name: name, Kind: qerrors.LayoutSyntax, Message: err.Error()}
	}
	tpl, err := e.Parse(source, path)
	if err != nil {
		return nil, &qerrors.LayoutError{Name: name, Kind: qerrors.LayoutSyntax, Message: err.Error()}
	}
	e.layouts.StoreTemplate(name, tpl)
	return tpl, nil
}
