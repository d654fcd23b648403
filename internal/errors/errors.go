// Package errors defines the error taxonomy for the quarry build engine.
//
// Build-fatal conditions (SchemaError, DuplicateKeyError) abort a write pass.
// Per-unit conditions (ParseError, LayoutError, AssetError) fail only the
// object or page they belong to and are gathered in a Collector so a single
// bad file never stalls the rest of a rebuild. ProtocolError belongs to the
// dev server and terminates only the offending connection.
package errors

import (
	"fmt"
	"sync"
)

// ConfigError reports a bad manifest field. Config errors are never fatal;
// the loader logs them and falls back to the default value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config field %q: %s", e.Field, e.Message)
}

// SchemaError reports a malformed object definition file. Build-fatal.
type SchemaError struct {
	File    string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %s", e.File, e.Message)
}

// ParseError reports malformed per-object data or template syntax.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LayoutErrorKind distinguishes the ways layout resolution can fail.
type LayoutErrorKind int

const (
	LayoutNotFound LayoutErrorKind = iota
	LayoutAmbiguous
	LayoutSyntax
)

// LayoutError reports a failure locating or rendering a named layout.
// Layout errors render inline into the offending page's output.
type LayoutError struct {
	Name    string
	Kind    LayoutErrorKind
	Message string
}

func (e *LayoutError) Error() string {
	switch e.Kind {
	case LayoutNotFound:
		return fmt.Sprintf("No layouts named %s found.", e.Name)
	case LayoutAmbiguous:
		return fmt.Sprintf("Multiple layouts named %s found.", e.Name)
	default:
		return fmt.Sprintf("Layout %s failed: %s", e.Name, e.Message)
	}
}

// AssetError reports a misconfigured asset tag, such as a render context
// without a template_path or a missing asset root.
type AssetError struct {
	Message string
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset: %s", e.Message)
}

// DuplicateKeyError reports two content objects resolving to the same name
// within one collection. Build-fatal, never silently deduplicated.
type DuplicateKeyError struct {
	Type string
	Name string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate object %q in collection %q", e.Name, e.Type)
}

// ProtocolError reports a malformed inbound WebSocket frame. It terminates
// the offending connection, never the server.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation: %s", e.Reason)
}

// Collector gathers per-unit errors during a build pass.
type Collector struct {
	mu   sync.Mutex
	errs []error
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records an error. Nil errors are ignored.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// Errors returns a copy of the collected errors.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}

// Len reports how many errors have been collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Reset discards collected errors at a rebuild boundary.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = c.errs[:0]
}
