package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayoutErrorMessages(t *testing.T) {
	notFound := &LayoutError{Name: "teme", Kind: LayoutNotFound}
	assert.Equal(t, "No layouts named teme found.", notFound.Error())

	ambiguous := &LayoutError{Name: "theme", Kind: LayoutAmbiguous}
	assert.Equal(t, "Multiple layouts named theme found.", ambiguous.Error())

	syntax := &LayoutError{Name: "theme", Kind: LayoutSyntax, Message: "unexpected token"}
	assert.Contains(t, syntax.Error(), "theme")
	assert.Contains(t, syntax.Error(), "unexpected token")
}

func TestParseErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("bad toml")
	err := &ParseError{Path: "objects/artists/a.toml", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "objects/artists/a.toml")
}

func TestDuplicateKeyError(t *testing.T) {
	err := &DuplicateKeyError{Type: "artists", Name: "tormenta-rey"}
	assert.Contains(t, err.Error(), "tormenta-rey")
	assert.Contains(t, err.Error(), "artists")
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, 0, c.Len())

	c.Add(nil)
	assert.Equal(t, 0, c.Len(), "nil errors are ignored")

	c.Add(fmt.Errorf("one"))
	c.Add(fmt.Errorf("two"))
	assert.Equal(t, 2, c.Len())

	errs := c.Errors()
	assert.Len(t, errs, 2)

	// The returned slice is a copy.
	errs[0] = nil
	assert.NotNil(t, c.Errors()[0])

	c.Reset()
	assert.Equal(t, 0, c.Len())
}
