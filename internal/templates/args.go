package templates

import (
	"fmt"
	"strings"
)

// tagAttr is one `key: expression` attribute from a tag argument list.
type tagAttr struct {
	Key  string
	Expr string
}

// parseTagArgs splits a tag argument list of the form
// `expr[, key: expr]*` into the leading expression and its attributes.
// Commas inside quoted strings do not split.
func parseTagArgs(args string) (string, []tagAttr, error) {
	segments := splitTopLevel(args)
	if len(segments) == 0 || strings.TrimSpace(segments[0]) == "" {
		return "", nil, fmt.Errorf("missing argument")
	}

	head := strings.TrimSpace(segments[0])
	var attrs []tagAttr
	for _, seg := range segments[1:] {
		key, expr, ok := strings.Cut(seg, ":")
		if !ok {
			return "", nil, fmt.Errorf("malformed attribute %q, want key: value", strings.TrimSpace(seg))
		}
		key = strings.TrimSpace(key)
		expr = strings.TrimSpace(expr)
		if key == "" || expr == "" {
			return "", nil, fmt.Errorf("malformed attribute %q, want key: value", strings.TrimSpace(seg))
		}
		attrs = append(attrs, tagAttr{Key: key, Expr: expr})
	}
	return head, attrs, nil
}

// splitTopLevel splits on commas outside single or double quotes.
func splitTopLevel(s string) []string {
	var (
		segments []string
		start    int
		quote    rune
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ',':
			segments = append(segments, s[start:i])
			start = i + 1
		}
	}
	segments = append(segments, s[start:])
	return segments
}
