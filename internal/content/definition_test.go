package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "objects.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const artistSchema = `
[artists]
name = "string"
meta = "meta"
genre = ["emo", "metal"]
template = "artist"

[artists.tour_dates]
date = "date"
ticket_link = "string"

[artists.numbers]
number = "number"

[example]
content = "markdown"

[example.links]
url = "string"
`

func TestLoadDefinitions(t *testing.T) {
	defs, err := LoadDefinitions(writeSchema(t, artistSchema), nil)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	artists := defs[0]
	assert.Equal(t, "artists", artists.Name)
	assert.Equal(t, "artist", artists.Template)

	// Field order follows declaration order; template is not a field.
	require.Len(t, artists.Fields, 3)
	assert.Equal(t, "name", artists.Fields[0].Name)
	assert.Equal(t, KindString, artists.Fields[0].Type.Kind)
	assert.Equal(t, "meta", artists.Fields[1].Name)
	assert.Equal(t, KindMeta, artists.Fields[1].Type.Kind)
	assert.Equal(t, "genre", artists.Fields[2].Name)
	assert.Equal(t, KindEnum, artists.Fields[2].Type.Kind)
	assert.Equal(t, []string{"emo", "metal"}, artists.Fields[2].Type.Options)

	require.Len(t, artists.Children, 2)
	assert.Equal(t, "tour_dates", artists.Children[0].Name)
	assert.Equal(t, "numbers", artists.Children[1].Name)

	dates, ok := artists.Child("tour_dates")
	require.True(t, ok)
	dateType, ok := dates.FieldType("date")
	require.True(t, ok)
	assert.Equal(t, KindDate, dateType.Kind)

	example := defs[1]
	assert.Equal(t, "example", example.Name)
	assert.Empty(t, example.Template)
	contentType, ok := example.FieldType("content")
	require.True(t, ok)
	assert.Equal(t, KindMarkdown, contentType.Kind)
}

func TestLoadDefinitionsReservedField(t *testing.T) {
	_, err := LoadDefinitions(writeSchema(t, "[posts]\norder = \"number\"\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestLoadDefinitionsUnknownType(t *testing.T) {
	_, err := LoadDefinitions(writeSchema(t, "[posts]\ntitle = \"wibble\"\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wibble")
}

func TestLoadDefinitionsAlias(t *testing.T) {
	defs, err := LoadDefinitions(
		writeSchema(t, "[posts]\nbody = \"prose\"\n"),
		map[string]string{"prose": "markdown"},
	)
	require.NoError(t, err)

	ft, ok := defs[0].FieldType("body")
	require.True(t, ok)
	assert.Equal(t, KindAlias, ft.Kind)
	assert.Equal(t, "prose", ft.AliasName)
	assert.Equal(t, KindMarkdown, ft.Resolve().Kind)
}

func TestLoadDefinitionsNonStringEnum(t *testing.T) {
	_, err := LoadDefinitions(writeSchema(t, "[posts]\nnums = [1, 2]\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enum")
}

func TestLoadDefinitionsMalformedFile(t *testing.T) {
	_, err := LoadDefinitions(writeSchema(t, "[posts\n"), nil)
	require.Error(t, err)
}
