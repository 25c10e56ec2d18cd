package locale

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogs(t *testing.T) {
	cat, err := Default("fr")
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "fr"}, cat.Languages())
	assert.Equal(t, "Retour", cat.Resolve("fr", "common.back", nil))
	assert.Equal(t, "Back", cat.Resolve("en-US", "common.back", nil))
	assert.Equal(t,
		"Hello Ana! I'm Jane, your AI diary. Feel free to confide in me.",
		cat.Resolve("en", "greeting.first", map[string]string{"name": "Ana"}))
	assert.Len(t, cat.Pool("en", "calendar.months"), 12)
	assert.Len(t, cat.Pool("fr", "calendar.weekdays"), 7)
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	cat, err := Default("en")
	require.NoError(t, err)

	for key := range cat.langs["en"] {
		assert.True(t, cat.Has("fr", key), "fr catalog misses %q", key)
	}
	for key := range cat.langs["fr"] {
		assert.True(t, cat.Has("en", key), "en catalog misses %q", key)
	}
}

func TestLoad_FallbackAndMissingKeys(t *testing.T) {
	fsys := fstest.MapFS{
		"en.yaml": {Data: []byte("hello: Hello {name}\nonly_en: English only\nanswers: [a, b]\n")},
		"fr.yaml": {Data: []byte("hello: Bonjour {name}\n")},
	}
	cat, err := Load(fsys, "en")
	require.NoError(t, err)

	assert.Equal(t, "Bonjour Zoé", cat.Resolve("fr", "hello", map[string]string{"name": "Zoé"}))
	assert.Equal(t, "English only", cat.Resolve("fr", "only_en", nil))
	assert.False(t, cat.Has("fr", "only_en"))
	assert.Equal(t, "Hello {name}", cat.Resolve("de", "hello", nil))
	assert.Equal(t, "missing.key", cat.Resolve("en", "missing.key", nil))
	assert.Equal(t, []string{"a", "b"}, cat.Pool("en", "answers"))
	assert.Equal(t, []string{"English only"}, cat.Pool("en", "only_en"))
	assert.Nil(t, cat.Pool("en", "missing.key"))
	assert.Equal(t, "a", cat.Resolve("en", "answers", nil))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(fstest.MapFS{}, "en")
	require.ErrorIs(t, err, ErrNoCatalogs)

	_, err = Load(fstest.MapFS{"fr.yaml": {Data: []byte("a: b\n")}}, "en")
	require.ErrorIs(t, err, ErrUnknownFallback)

	_, err = Load(fstest.MapFS{"en.yaml": {Data: []byte("a: [1, {b: c}]\n")}}, "en")
	require.Error(t, err)

	_, err = Load(fstest.MapFS{"en.yaml": {Data: []byte("a:\n")}}, "en")
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"fr-FR":  "fr",
		" EN_us": "en",
		"es":     "es",
		"":       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}
