package content

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/quarry/internal/config"
	qerrors "github.com/conneroisu/quarry/internal/errors"
	"github.com/conneroisu/quarry/internal/logging"
)

func storeFixture(t *testing.T) (*Store, *qerrors.Collector, string) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Root:       root,
		ObjectsDir: filepath.Join(root, "objects"),
		SchemaFile: filepath.Join(root, "objects.toml"),
	}
	log := logging.New(&logging.Config{Level: "error", Output: io.Discard})
	collector := qerrors.NewCollector()
	return NewStore(cfg, log, collector), collector, root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestStoreLoadAll(t *testing.T) {
	store, collector, root := storeFixture(t)
	writeFile(t, filepath.Join(root, "objects.toml"), "[artists]\nname = \"string\"\n")
	writeFile(t, filepath.Join(root, "objects/artists/b.toml"), "name = \"B\"\norder = 2\n")
	writeFile(t, filepath.Join(root, "objects/artists/a.toml"), "name = \"A\"\norder = 1\n")
	// A stray directory under the objects root is tolerated.
	writeFile(t, filepath.Join(root, "objects/scratch/note.toml"), "x = 1\n")

	require.NoError(t, store.LoadDefinitions())
	collections, err := store.LoadAll()
	require.NoError(t, err)

	require.Contains(t, collections, "artists")
	assert.Equal(t, []string{"a", "b"}, collections["artists"].Names())
	assert.NotContains(t, collections, "scratch")
	assert.Equal(t, 0, collector.Len())
}

func TestStoreSkipsMalformedObject(t *testing.T) {
	store, collector, root := storeFixture(t)
	writeFile(t, filepath.Join(root, "objects.toml"), "[artists]\nname = \"string\"\n")
	writeFile(t, filepath.Join(root, "objects/artists/good.toml"), "name = \"Good\"\n")
	writeFile(t, filepath.Join(root, "objects/artists/bad.toml"), "name = [broken\n")

	require.NoError(t, store.LoadDefinitions())
	collections, err := store.LoadAll()
	require.NoError(t, err, "one malformed object must not fail the load")

	assert.Equal(t, []string{"good"}, collections["artists"].Names())
	require.Equal(t, 1, collector.Len())

	var perr *qerrors.ParseError
	assert.ErrorAs(t, collector.Errors()[0], &perr)
}

func TestStoreMissingTypeDirIsEmptyCollection(t *testing.T) {
	store, _, root := storeFixture(t)
	writeFile(t, filepath.Join(root, "objects.toml"), "[artists]\nname = \"string\"\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "objects"), 0o755))

	require.NoError(t, store.LoadDefinitions())
	collections, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, collections["artists"].Objects)
}

func TestStoreSchemaErrorIsFatal(t *testing.T) {
	store, _, root := storeFixture(t)
	writeFile(t, filepath.Join(root, "objects.toml"), "[artists]\nname = \"nope\"\n")

	err := store.LoadDefinitions()
	require.Error(t, err)
	var serr *qerrors.SchemaError
	assert.ErrorAs(t, err, &serr)
}

func TestStoreMarkdownLinksRewrittenForTemplateTypes(t *testing.T) {
	store, _, root := storeFixture(t)
	writeFile(t, filepath.Join(root, "objects.toml"),
		"[artists]\nbio = \"markdown\"\ntemplate = \"artist\"\n")
	writeFile(t, filepath.Join(root, "objects/artists/a.toml"),
		"bio = \"[shows](/shows/list)\"\n")

	require.NoError(t, store.LoadDefinitions())
	collections, err := store.LoadAll()
	require.NoError(t, err)

	bio := collections["artists"].Get("a").Values["bio"].(string)
	assert.Contains(t, bio, `href="../shows/list"`,
		"links resolve relative to the dynamic template's output dir")
}
