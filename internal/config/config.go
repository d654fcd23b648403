// Package config loads quarry site configuration from manifest.toml using
// Viper, with QUARRY_ environment variable overrides and command-line flag
// bindings layered on top.
//
// A missing or partially invalid manifest is never fatal: every field has a
// default and bad values are reported as ConfigError and replaced. The loaded
// Config is immutable for the duration of a build pass.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	qerrors "github.com/conneroisu/quarry/internal/errors"
	"github.com/conneroisu/quarry/internal/logging"
)

// Default directory layout, relative to the site root.
const (
	DefaultPagesDir   = "pages"
	DefaultObjectsDir = "objects"
	DefaultBuildDir   = "dist"
	DefaultStaticDir  = "public"
	DefaultLayoutDir  = "layout"
	SchemaFileName    = "objects.toml"
	ManifestFileName  = "manifest.toml"
	DefaultServePort  = 8080
)

// Config describes one site generation. All paths are absolute.
type Config struct {
	Root string

	PagesDir   string
	ObjectsDir string
	BuildDir   string
	StaticDir  string
	LayoutDir  string

	// AssetDirs are copied verbatim into the build dir (pushed incrementally
	// in dev mode).
	AssetDirs []string

	// AssetRoot anchors {% asset %} path resolution. Defaults to PagesDir.
	AssetRoot string

	SchemaFile   string
	ManifestFile string

	SiteURL   string
	ServePort int
	DevMode   bool

	// TypeAliases maps custom field type names to the builtin type each one
	// aliases, from the manifest [types] table.
	TypeAliases map[string]string
}

// Load reads manifest.toml under root, layering environment variables and any
// flag bindings registered with viper. Bad fields are logged and defaulted.
func Load(root string, log *logging.Logger) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving site root: %w", err)
	}

	viper.SetConfigName(strings.TrimSuffix(ManifestFileName, ".toml"))
	viper.SetConfigType("toml")
	viper.AddConfigPath(absRoot)
	viper.SetEnvPrefix("QUARRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing manifest is the common case for new sites; anything else
		// is still non-fatal but worth reporting.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			log.Warn(err, "manifest unreadable, using defaults", "file", ManifestFileName)
		}
	}

	cfg := &Config{
		Root:         absRoot,
		PagesDir:     subdir(absRoot, "pages_dir", DefaultPagesDir, log),
		ObjectsDir:   subdir(absRoot, "objects_dir", DefaultObjectsDir, log),
		BuildDir:     subdir(absRoot, "build_dir", DefaultBuildDir, log),
		StaticDir:    subdir(absRoot, "static_dir", DefaultStaticDir, log),
		LayoutDir:    subdir(absRoot, "layout_dir", DefaultLayoutDir, log),
		SchemaFile:   filepath.Join(absRoot, SchemaFileName),
		ManifestFile: filepath.Join(absRoot, ManifestFileName),
		SiteURL:      viper.GetString("site_url"),
		ServePort:    DefaultServePort,
		DevMode:      viper.GetBool("dev"),
		TypeAliases:  viper.GetStringMapString("types"),
	}

	if viper.IsSet("serve_port") {
		port := viper.GetInt("serve_port")
		if port < 1 || port > 65535 {
			cerr := &qerrors.ConfigError{
				Field:   "serve_port",
				Message: fmt.Sprintf("port %d is not in range 1-65535", port),
			}
			log.Warn(cerr, "using default port", "port", DefaultServePort)
		} else {
			cfg.ServePort = port
		}
	}

	for _, dir := range viper.GetStringSlice("assets") {
		resolved, ok := resolveSubdir(absRoot, dir)
		if !ok {
			cerr := &qerrors.ConfigError{Field: "assets", Message: fmt.Sprintf("invalid asset dir %q", dir)}
			log.Warn(cerr, "skipping asset dir")
			continue
		}
		cfg.AssetDirs = append(cfg.AssetDirs, resolved)
	}

	cfg.AssetRoot = cfg.PagesDir
	if viper.IsSet("asset_root") {
		if resolved, ok := resolveSubdir(absRoot, viper.GetString("asset_root")); ok {
			cfg.AssetRoot = resolved
		} else {
			cerr := &qerrors.ConfigError{Field: "asset_root", Message: "invalid path"}
			log.Warn(cerr, "falling back to pages dir")
		}
	}

	return cfg, nil
}

// subdir reads a directory field, falling back to def when the value is
// absent or escapes the site root.
func subdir(root, key, def string, log *logging.Logger) string {
	if !viper.IsSet(key) {
		return filepath.Join(root, def)
	}
	value := viper.GetString(key)
	if resolved, ok := resolveSubdir(root, value); ok {
		return resolved
	}
	cerr := &qerrors.ConfigError{Field: key, Message: fmt.Sprintf("path %q escapes the site root", value)}
	log.Warn(cerr, "using default", "default", def)
	return filepath.Join(root, def)
}

// resolveSubdir joins dir to root and rejects values that traverse outside
// the root.
func resolveSubdir(root, dir string) (string, bool) {
	if dir == "" || filepath.IsAbs(dir) {
		return "", false
	}
	clean := filepath.Clean(dir)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(root, clean), true
}
