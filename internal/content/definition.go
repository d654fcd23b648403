package content

import (
	"fmt"

	"github.com/BurntSushi/toml"

	qerrors "github.com/conneroisu/quarry/internal/errors"
)

// Field names that carry engine meaning and may not be declared in schemas.
var reservedFields = map[string]bool{
	"template":    true,
	"order":       true,
	"objects":     true,
	"object_name": true,
	"page":        true,
	"page_name":   true,
}

// Field is one named, typed slot of a definition. Order matters: fields keep
// the order they were declared in objects.toml.
type Field struct {
	Name string
	Type FieldType
}

// Definition declares the shape of one object type: its ordered fields, an
// optional dynamic template binding, and nested child definitions.
type Definition struct {
	Name     string
	Fields   []Field
	Template string
	Children []*Definition
}

// FieldType looks up a declared field by name.
func (d *Definition) FieldType(name string) (FieldType, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return FieldType{}, false
}

// Child looks up a nested child definition by name.
func (d *Definition) Child(name string) (*Definition, bool) {
	for _, c := range d.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// LoadDefinitions parses the schema file. Any malformed declaration is a
// SchemaError, which aborts the build.
func LoadDefinitions(path string, aliases map[string]string) ([]*Definition, error) {
	var raw map[string]any
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, &qerrors.SchemaError{File: path, Message: err.Error()}
	}
	if aliases == nil {
		aliases = map[string]string{}
	}

	var defs []*Definition
	for _, name := range childKeys(md, nil) {
		table, ok := raw[name].(map[string]any)
		if !ok {
			// Top-level scalars in the schema file carry no type declaration.
			continue
		}
		def, err := parseDefinition(name, table, md, []string{name}, aliases)
		if err != nil {
			return nil, &qerrors.SchemaError{File: path, Message: err.Error()}
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseDefinition(name string, table map[string]any, md toml.MetaData, prefix []string, aliases map[string]string) (*Definition, error) {
	if reservedFields[name] {
		return nil, fmt.Errorf("%s is a reserved name", name)
	}
	def := &Definition{Name: name}
	for _, key := range childKeys(md, prefix) {
		value := table[key]
		switch v := value.(type) {
		case string:
			if key == "template" {
				def.Template = v
				continue
			}
			if reservedFields[key] {
				return nil, fmt.Errorf("%s: %s is a reserved field", name, key)
			}
			ft, err := ParseFieldType(v, aliases)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, key, err)
			}
			def.Fields = append(def.Fields, Field{Name: key, Type: ft})
		case map[string]any:
			childPrefix := append(append([]string{}, prefix...), key)
			child, err := parseDefinition(key, v, md, childPrefix, aliases)
			if err != nil {
				return nil, err
			}
			def.Children = append(def.Children, child)
		case []any:
			options, err := enumOptions(key, v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if reservedFields[key] {
				return nil, fmt.Errorf("%s: %s is a reserved field", name, key)
			}
			def.Fields = append(def.Fields, Field{Name: key, Type: EnumType(options)})
		case []map[string]any:
			return nil, fmt.Errorf("%s.%s: arrays of tables are not valid field declarations", name, key)
		default:
			return nil, fmt.Errorf("%s.%s: unsupported declaration (%T)", name, key, value)
		}
	}
	return def, nil
}

func enumOptions(key string, values []any) ([]string, error) {
	options := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: only string enums are supported", key)
		}
		options = append(options, s)
	}
	return options, nil
}

// childKeys returns the direct children of prefix in document order,
// deduplicated (array-of-table headers repeat their key).
func childKeys(md toml.MetaData, prefix []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, key := range md.Keys() {
		ks := []string(key)
		if len(ks) != len(prefix)+1 {
			continue
		}
		matched := true
		for i, p := range prefix {
			if ks[i] != p {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		leaf := ks[len(ks)-1]
		if !seen[leaf] {
			seen[leaf] = true
			out = append(out, leaf)
		}
	}
	return out
}
