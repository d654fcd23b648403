package content

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// RenderMarkdown renders src to HTML. When rewrite is non-nil, every link and
// image destination is passed through it before rendering. Raw HTML in the
// source passes through unescaped.
func RenderMarkdown(src string, rewrite func(string) string) (string, error) {
	opts := []goldmark.Option{
		goldmark.WithRendererOptions(html.WithUnsafe()),
	}
	if rewrite != nil {
		opts = append(opts, goldmark.WithParserOptions(
			parser.WithASTTransformers(
				util.Prioritized(&linkRewriter{rewrite: rewrite}, 100),
			),
		))
	}
	md := goldmark.New(opts...)

	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// linkRewriter rewrites Link and Image destinations in the parsed AST.
// AutoLinks are left alone: they are absolute by construction.
type linkRewriter struct {
	rewrite func(string) string
}

func (r *linkRewriter) Transform(doc *gmast.Document, reader text.Reader, pc parser.Context) {
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Link:
			node.Destination = []byte(r.rewrite(string(node.Destination)))
		case *gmast.Image:
			node.Destination = []byte(r.rewrite(string(node.Destination)))
		}
		return gmast.WalkContinue, nil
	})
}

// OutputRelativeLinks returns a rewrite function mapping root-relative link
// targets to paths relative to outputDir, the directory the owning template
// renders into. External targets, anchors, and mailto links pass through.
func OutputRelativeLinks(outputDir string) func(string) string {
	if outputDir == "" {
		outputDir = "."
	}
	return func(target string) string {
		if target == "" ||
			strings.Contains(target, "://") ||
			strings.HasPrefix(target, "//") ||
			strings.HasPrefix(target, "#") ||
			strings.HasPrefix(target, "mailto:") {
			return target
		}
		rel, err := filepath.Rel(outputDir, strings.TrimPrefix(target, "/"))
		if err != nil {
			return target
		}
		return filepath.ToSlash(rel)
	}
}
