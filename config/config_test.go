package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsMemoryBackend(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.NotNil(t, cfg.Splitter())
}

func TestParseOverridesDefaults(t *testing.T) {
	doc := `
[chunker]
width = 4

[store]
backend = "mysql"
dsn = "user:pass@tcp(127.0.0.1:3306)/prollydb"
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, uint8(4), cfg.Chunker.Width)
	assert.Equal(t, "mysql", cfg.Store.Backend)
	assert.Equal(t, "user:pass@tcp(127.0.0.1:3306)/prollydb", cfg.Store.DSN)
}

func TestParsePartialDocumentKeepsOtherDefaults(t *testing.T) {
	doc := `
[store]
backend = "mysql"
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Store.Backend)
	assert.Equal(t, "", cfg.Store.DSN)
}

func TestParseInvalidTOMLErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("not = [valid"))
	assert.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/prollydb.toml")
	assert.Error(t, err)
}
