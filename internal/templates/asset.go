package templates

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/osteele/liquid/render"

	qerrors "github.com/conneroisu/quarry/internal/errors"
)

// assetTag implements {% asset 'path'[, serve: true] %}. The path names a
// file under the asset root; the emitted reference is rewritten relative to
// the directory of the rendering template's output path. With serve set in
// dev mode the tag emits an absolute URL on the dev server instead, so the
// browser fetches assets that have not been copied into the build tree yet.
//
// Unlike the layout tag, a misconfigured asset tag is a real render error: a
// missing template_path means the caller forgot to thread the render context
// and no sensible inline fallback exists.
func (e *Engine) assetTag(rc render.Context) (string, error) {
	pathExpr, attrs, err := parseTagArgs(rc.TagArgs())
	if err != nil {
		return "", &qerrors.AssetError{Message: err.Error()}
	}

	pathVal, err := rc.EvaluateString(pathExpr)
	if err != nil {
		return "", &qerrors.AssetError{Message: err.Error()}
	}
	assetPath, ok := pathVal.(string)
	if !ok {
		return "", &qerrors.AssetError{Message: fmt.Sprintf("path must be a string, got %T", pathVal)}
	}
	assetPath = path.Clean(strings.TrimPrefix(assetPath, "/"))

	serve := false
	for _, attr := range attrs {
		if attr.Key != "serve" {
			return "", &qerrors.AssetError{Message: fmt.Sprintf("unknown attribute %q", attr.Key)}
		}
		val, err := rc.EvaluateString(attr.Expr)
		if err != nil {
			return "", &qerrors.AssetError{Message: err.Error()}
		}
		b, ok := val.(bool)
		if !ok {
			return "", &qerrors.AssetError{Message: fmt.Sprintf("serve must be a boolean, got %T", val)}
		}
		serve = b
	}

	templatePath, ok := rc.Get("template_path").(string)
	if !ok || templatePath == "" {
		return "", &qerrors.AssetError{Message: "no template_path in render context"}
	}

	resolved, aerr := e.resolveAssetPath(assetPath)
	if aerr != nil {
		return "", aerr
	}

	if serve && e.cfg.DevMode {
		return fmt.Sprintf("http://localhost:%d/%s", e.cfg.ServePort, resolved), nil
	}

	rel, err := filepath.Rel(filepath.Dir(filepath.FromSlash(templatePath)), filepath.FromSlash(resolved))
	if err != nil {
		return "", &qerrors.AssetError{Message: err.Error()}
	}
	return filepath.ToSlash(rel), nil
}

// resolveAssetPath maps an author-written asset path to its build-tree
// location. Assets under the default root land alongside pages, so the path
// passes through; a custom root copies into the build tree at its
// site-relative location, which prefixes every reference.
func (e *Engine) resolveAssetPath(assetPath string) (string, *qerrors.AssetError) {
	if e.cfg.AssetRoot == "" {
		return "", &qerrors.AssetError{Message: "no asset root configured"}
	}
	if e.cfg.AssetRoot == e.cfg.PagesDir {
		return assetPath, nil
	}
	prefix, err := filepath.Rel(e.cfg.Root, e.cfg.AssetRoot)
	if err != nil || prefix == ".." || strings.HasPrefix(prefix, ".."+string(filepath.Separator)) {
		return "", &qerrors.AssetError{Message: fmt.Sprintf("asset root %s is outside the site root", e.cfg.AssetRoot)}
	}
	return path.Join(filepath.ToSlash(prefix), assetPath), nil
}
