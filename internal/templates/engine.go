// Package templates wraps the Liquid engine with the two site-specific tags,
// layout inheritance and asset path rewriting, plus the layout name cache
// shared across a build generation.
package templates

import (
	"strings"

	"github.com/osteele/liquid"

	"github.com/conneroisu/quarry/internal/config"
	qerrors "github.com/conneroisu/quarry/internal/errors"
	"github.com/conneroisu/quarry/internal/logging"
)

// Engine parses and renders page templates. It is safe for concurrent
// rendering; the layout cache carries its own lock.
type Engine struct {
	cfg     *config.Config
	log     *logging.Logger
	layouts *LayoutCache
	liquid  *liquid.Engine
}

// New builds an Engine with the layout and asset tags registered.
func New(cfg *config.Config, log *logging.Logger, layouts *LayoutCache) *Engine {
	e := &Engine{
		cfg:     cfg,
		log:     log.WithComponent("templates"),
		layouts: layouts,
	}
	e.liquid = liquid.NewEngine()
	e.liquid.RegisterBlock("layout", e.layoutTag)
	e.liquid.RegisterTag("asset", e.assetTag)
	return e
}

// Layouts returns the cache the engine resolves layout names through.
func (e *Engine) Layouts() *LayoutCache { return e.layouts }

// Parse compiles a template source. Syntax failures are reported as
// ParseError for the given path.
func (e *Engine) Parse(source []byte, path string) (*liquid.Template, error) {
	tpl, err := e.liquid.ParseTemplateLocation(closeLayoutTags(source), path, 0)
	if err != nil {
		return nil, &qerrors.ParseError{Path: path, Err: err}
	}
	return tpl, nil
}

// Render evaluates a parsed template against bindings.
func (e *Engine) Render(tpl *liquid.Template, bindings map[string]any) (string, error) {
	out, err := tpl.Render(bindings)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RenderString parses and renders source in one step. Used for the second
// render pass over markdown-bearing output.
func (e *Engine) RenderString(source, path string, bindings map[string]any) (string, error) {
	tpl, err := e.Parse([]byte(source), path)
	if err != nil {
		return "", err
	}
	return e.Render(tpl, bindings)
}

// closeLayoutTags appends one closing marker per layout tag. The author-facing
// syntax has no close; the tag captures the rest of its enclosing template.
// Occurrences inside raw or comment blocks, or inside quoted strings, are
// left alone.
func closeLayoutTags(source []byte) []byte {
	opens := countLayoutTags(string(source))
	if opens == 0 {
		return source
	}
	const closer = "{% endlayout %}"
	out := make([]byte, 0, len(source)+opens*len(closer))
	out = append(out, source...)
	for range opens {
		out = append(out, closer...)
	}
	return out
}

// countLayoutTags walks the template delimiter by delimiter so that layout
// markers in verbatim blocks and string literals are not mistaken for tags.
func countLayoutTags(s string) int {
	opens := 0
	for i := 0; i+1 < len(s); {
		if s[i] != '{' {
			i++
			continue
		}
		switch s[i+1] {
		case '{':
			i = skipDelimited(s, i+2, "}}")
		case '%':
			name, end := scanTagName(s, i+2)
			end = skipDelimited(s, end, "%}")
			switch name {
			case "layout":
				opens++
			case "raw":
				end = skipVerbatim(s, end, "endraw")
			case "comment":
				end = skipVerbatim(s, end, "endcomment")
			}
			i = end
		default:
			i++
		}
	}
	return opens
}

// skipDelimited advances past the closing delimiter, ignoring any occurrence
// inside a quoted string.
func skipDelimited(s string, i int, closing string) int {
	var quote byte
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case strings.HasPrefix(s[i:], closing):
			return i + len(closing)
		}
	}
	return i
}

// scanTagName reads the tag name following an open delimiter, tolerating the
// whitespace-trimming dash.
func scanTagName(s string, i int) (string, int) {
	if i < len(s) && s[i] == '-' {
		i++
	}
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	start := i
	for i < len(s) && (s[i] == '_' || 'a' <= s[i] && s[i] <= 'z' || 'A' <= s[i] && s[i] <= 'Z' || '0' <= s[i] && s[i] <= '9') {
		i++
	}
	return s[start:i], i
}

// skipVerbatim advances past the named closing tag. Everything before it is
// literal text, including anything that looks like a tag.
func skipVerbatim(s string, i int, closeName string) int {
	for ; i+1 < len(s); i++ {
		if s[i] == '{' && s[i+1] == '%' {
			name, end := scanTagName(s, i+2)
			if name == closeName {
				return skipDelimited(s, end, "%}")
			}
		}
	}
	return len(s)
}
