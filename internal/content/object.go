package content

import (
	"fmt"
	"time"
)

// Object is one content record belonging to a definition. Name is derived
// from the source file; Order is the optional render-order value.
type Object struct {
	Name     string
	Type     string
	Order    int64
	HasOrder bool
	Values   map[string]any
}

// Accepted string layouts for date fields, tried in order. TOML datetimes
// arrive already parsed and bypass these.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04:05",
}

// ObjectParser coerces raw TOML tables into typed Objects.
//
// RenderMarkdown pre-renders markdown fields to HTML; it is injected by the
// Store so link targets can be rewritten relative to the owning template's
// output location. Warn reports recoverable oddities (unknown fields, bad
// order values) without failing the object.
type ObjectParser struct {
	RenderMarkdown func(src string) (string, error)
	Warn           func(msg string, fields ...any)
}

func (p *ObjectParser) warn(msg string, fields ...any) {
	if p.Warn != nil {
		p.Warn(msg, fields...)
	}
}

// Parse builds an Object named name from a decoded TOML table.
func (p *ObjectParser) Parse(def *Definition, name string, raw map[string]any) (*Object, error) {
	values, err := p.values(def, raw)
	if err != nil {
		return nil, err
	}
	obj := &Object{Name: name, Type: def.Name, Values: values}
	if rawOrder, ok := raw["order"]; ok {
		if order, ok := rawOrder.(int64); ok {
			obj.Order = order
			obj.HasOrder = true
		} else {
			p.warn("invalid order value, treating as absent", "object", name, "value", rawOrder)
		}
	}
	return obj, nil
}

func (p *ObjectParser) values(def *Definition, raw map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(raw))
	for key, value := range raw {
		if ft, ok := def.FieldType(key); ok {
			coerced, err := p.coerce(key, ft, value)
			if err != nil {
				return nil, err
			}
			values[key] = coerced
			continue
		}
		if child, ok := def.Child(key); ok {
			entries, err := p.childValues(key, child, value)
			if err != nil {
				return nil, err
			}
			values[key] = entries
			continue
		}
		if !reservedFields[key] {
			p.warn("unknown field skipped", "field", key, "type", def.Name)
		}
	}
	return values, nil
}

func (p *ObjectParser) childValues(key string, child *Definition, value any) ([]map[string]any, error) {
	var tables []map[string]any
	switch v := value.(type) {
	case []map[string]any:
		tables = v
	case []any:
		for i, entry := range v {
			table, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("field %s[%d]: expected a table, got %T", key, i, entry)
			}
			tables = append(tables, table)
		}
	default:
		return nil, fmt.Errorf("field %s: expected an array of tables, got %T", key, value)
	}

	entries := make([]map[string]any, 0, len(tables))
	for _, table := range tables {
		values, err := p.values(child, table)
		if err != nil {
			return nil, err
		}
		entries = append(entries, values)
	}
	return entries, nil
}

// coerce converts a raw TOML value per the field's declared type. The switch
// is exhaustive over FieldKind.
func (p *ObjectParser) coerce(field string, ft FieldType, raw any) (any, error) {
	switch ft.Kind {
	case KindString, KindImage, KindVideo, KindUpload, KindAudio:
		s, ok := raw.(string)
		if !ok {
			return nil, typeMismatch(field, ft, raw)
		}
		return s, nil

	case KindNumber:
		switch n := raw.(type) {
		case int64:
			return float64(n), nil
		case float64:
			return n, nil
		default:
			return nil, typeMismatch(field, ft, raw)
		}

	case KindDate:
		switch d := raw.(type) {
		case time.Time:
			return d, nil
		case string:
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, d); err == nil {
					return t, nil
				}
			}
			return nil, fmt.Errorf("field %q: invalid date %q", field, d)
		default:
			return nil, typeMismatch(field, ft, raw)
		}

	case KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, typeMismatch(field, ft, raw)
		}
		for _, option := range ft.Options {
			if s == option {
				return s, nil
			}
		}
		return nil, fmt.Errorf("field %q: value %q is not in %v", field, s, ft.Options)

	case KindMarkdown:
		s, ok := raw.(string)
		if !ok {
			return nil, typeMismatch(field, ft, raw)
		}
		if p.RenderMarkdown == nil {
			return s, nil
		}
		html, err := p.RenderMarkdown(s)
		if err != nil {
			return nil, fmt.Errorf("field %q: rendering markdown: %w", field, err)
		}
		return html, nil

	case KindBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, typeMismatch(field, ft, raw)
		}
		return b, nil

	case KindMeta:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, typeMismatch(field, ft, raw)
		}
		return m, nil

	case KindAlias:
		if ft.AliasOf == nil {
			return nil, fmt.Errorf("field %q: alias %q has no underlying type", field, ft.AliasName)
		}
		return p.coerce(field, *ft.AliasOf, raw)

	default:
		return nil, fmt.Errorf("field %q: unhandled field kind %d", field, ft.Kind)
	}
}

func typeMismatch(field string, ft FieldType, raw any) error {
	return fmt.Errorf("field %q: expected %s, got %T", field, ft, raw)
}
