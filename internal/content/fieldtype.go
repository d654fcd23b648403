// Package content implements the schema-typed content model: object type
// definitions loaded from objects.toml, content objects loaded from
// objects/<type>/*.toml, and the ordered collections the builder renders.
package content

import (
	"fmt"
	"strings"
)

// FieldKind enumerates the closed set of field types. Every switch over
// FieldKind in this package is exhaustive; adding a kind is a compile-visible
// change at each coercion site.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindDate
	KindEnum
	KindMarkdown
	KindBoolean
	KindImage
	KindVideo
	KindUpload
	KindAudio
	KindMeta
	KindAlias
)

// FieldType is one member of the closed variant set. Enum carries its
// options; Alias carries the underlying type and the alternate name it was
// declared under.
type FieldType struct {
	Kind      FieldKind
	Options   []string
	AliasOf   *FieldType
	AliasName string
}

// ParseFieldType maps a schema type name to a FieldType. Names not in the
// builtin set are looked up in aliases (manifest [types] table).
func ParseFieldType(name string, aliases map[string]string) (FieldType, error) {
	switch name {
	case "string":
		return FieldType{Kind: KindString}, nil
	case "number":
		return FieldType{Kind: KindNumber}, nil
	case "date":
		return FieldType{Kind: KindDate}, nil
	case "markdown":
		return FieldType{Kind: KindMarkdown}, nil
	case "boolean":
		return FieldType{Kind: KindBoolean}, nil
	case "image":
		return FieldType{Kind: KindImage}, nil
	case "video":
		return FieldType{Kind: KindVideo}, nil
	case "upload":
		return FieldType{Kind: KindUpload}, nil
	case "audio":
		return FieldType{Kind: KindAudio}, nil
	case "meta":
		return FieldType{Kind: KindMeta}, nil
	}
	if underlying, ok := aliases[name]; ok {
		// Aliases may only point at builtin names, so the recursion is at
		// most one level deep unless the alias table chains them.
		delete(aliases, name)
		resolved, err := ParseFieldType(underlying, aliases)
		aliases[name] = underlying
		if err != nil {
			return FieldType{}, fmt.Errorf("alias %q: %w", name, err)
		}
		return FieldType{Kind: KindAlias, AliasOf: &resolved, AliasName: name}, nil
	}
	return FieldType{}, fmt.Errorf("unrecognized field type %q", name)
}

// EnumType builds an enum FieldType from its option list.
func EnumType(options []string) FieldType {
	return FieldType{Kind: KindEnum, Options: options}
}

// Resolve follows alias indirection to the concrete type.
func (t FieldType) Resolve() FieldType {
	ft := t
	for ft.Kind == KindAlias && ft.AliasOf != nil {
		ft = *ft.AliasOf
	}
	return ft
}

// String renders the type the way the schema declares it.
func (t FieldType) String() string {
	switch t.Kind {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindEnum:
		return "[" + strings.Join(t.Options, ",") + "]"
	case KindMarkdown:
		return "markdown"
	case KindBoolean:
		return "boolean"
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindUpload:
		return "upload"
	case KindAudio:
		return "audio"
	case KindMeta:
		return "meta"
	case KindAlias:
		return t.AliasName
	default:
		return "unknown"
	}
}

// IsFile reports whether the type refers to an uploaded file path.
func (t FieldType) IsFile() bool {
	switch t.Resolve().Kind {
	case KindImage, KindVideo, KindUpload, KindAudio:
		return true
	default:
		return false
	}
}
