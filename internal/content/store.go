package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/conneroisu/quarry/internal/config"
	qerrors "github.com/conneroisu/quarry/internal/errors"
	"github.com/conneroisu/quarry/internal/logging"
)

// Store loads the schema and the content objects it declares.
//
// A malformed object file fails only that object: it is reported through the
// collector and skipped. Duplicate names within a type and schema errors are
// fatal. Directories under the objects root that no definition references are
// ignored.
type Store struct {
	cfg       *config.Config
	log       *logging.Logger
	collector *qerrors.Collector
	defs      []*Definition
}

// NewStore creates a Store. Definitions are not loaded until
// LoadDefinitions is called.
func NewStore(cfg *config.Config, log *logging.Logger, collector *qerrors.Collector) *Store {
	return &Store{
		cfg:       cfg,
		log:       log.WithComponent("content"),
		collector: collector,
	}
}

// LoadDefinitions parses objects.toml. Fatal on schema errors.
func (s *Store) LoadDefinitions() error {
	defs, err := LoadDefinitions(s.cfg.SchemaFile, s.cfg.TypeAliases)
	if err != nil {
		return err
	}
	s.defs = defs
	return nil
}

// Definitions returns the loaded definitions in declaration order.
func (s *Store) Definitions() []*Definition {
	return s.defs
}

// Definition returns the named definition, or nil.
func (s *Store) Definition(name string) *Definition {
	for _, def := range s.defs {
		if def.Name == name {
			return def
		}
	}
	return nil
}

// LoadAll scans objects/<type>/*.toml for every declared type and returns
// one sorted collection per type.
func (s *Store) LoadAll() (map[string]*Collection, error) {
	collections := make(map[string]*Collection, len(s.defs))
	for _, def := range s.defs {
		collection, err := s.loadCollection(def)
		if err != nil {
			return nil, err
		}
		collections[def.Name] = collection
	}
	return collections, nil
}

// LoadCollection reloads the objects of a single type. Used by incremental
// rebuilds after an object file changes.
func (s *Store) LoadCollection(def *Definition) (*Collection, error) {
	return s.loadCollection(def)
}

func (s *Store) loadCollection(def *Definition) (*Collection, error) {
	dir := filepath.Join(s.cfg.ObjectsDir, def.Name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Collection{Type: def.Name}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var objects []*Object
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		obj, err := s.LoadObjectFile(def, path)
		if err != nil {
			perr := &qerrors.ParseError{Path: path, Err: err}
			s.collector.Add(perr)
			s.log.Warn(perr, "skipping invalid object", "type", def.Name)
			continue
		}
		objects = append(objects, obj)
	}

	return NewCollection(def.Name, objects)
}

// LoadObjectFile parses one object record. The object name is the source
// file's basename without its extension.
func (s *Store) LoadObjectFile(def *Definition, path string) (*Object, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), ".toml")
	return s.parserFor(def).Parse(def, name, raw)
}

// parserFor wires markdown rendering for def: link targets are rewritten
// relative to the output directory of the template that owns the object.
func (s *Store) parserFor(def *Definition) *ObjectParser {
	outputDir := ""
	if def.Template != "" {
		outputDir = def.Name
	}
	rewrite := OutputRelativeLinks(outputDir)
	return &ObjectParser{
		RenderMarkdown: func(src string) (string, error) {
			return RenderMarkdown(src, rewrite)
		},
		Warn: s.log.Debug,
	}
}
