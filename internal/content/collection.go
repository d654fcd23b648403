package content

import (
	"fmt"
	"sort"

	qerrors "github.com/conneroisu/quarry/internal/errors"
)

// Collection holds the objects of one type in render order.
//
// The order is total and deterministic: the sort key is the zero-padded order
// value when present, otherwise the object name; ties break by name.
type Collection struct {
	Type    string
	Objects []*Object
}

// NewCollection validates name uniqueness and sorts. Two objects resolving to
// the same name is a DuplicateKeyError, never a silent dedup.
func NewCollection(typeName string, objects []*Object) (*Collection, error) {
	seen := make(map[string]bool, len(objects))
	for _, obj := range objects {
		if seen[obj.Name] {
			return nil, &qerrors.DuplicateKeyError{Type: typeName, Name: obj.Name}
		}
		seen[obj.Name] = true
	}

	sorted := make([]*Object, len(objects))
	copy(sorted, objects)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sortKey(sorted[i]), sortKey(sorted[j])
		if a != b {
			return a < b
		}
		return sorted[i].Name < sorted[j].Name
	})

	return &Collection{Type: typeName, Objects: sorted}, nil
}

// sortKey zero-pads numeric order values so they compare correctly as
// strings against name keys.
func sortKey(obj *Object) string {
	if obj.HasOrder {
		return fmt.Sprintf("%010d", obj.Order)
	}
	return obj.Name
}

// Get returns the named object, or nil.
func (c *Collection) Get(name string) *Object {
	for _, obj := range c.Objects {
		if obj.Name == name {
			return obj
		}
	}
	return nil
}

// Names returns object names in render order.
func (c *Collection) Names() []string {
	names := make([]string, len(c.Objects))
	for i, obj := range c.Objects {
		names[i] = obj.Name
	}
	return names
}
