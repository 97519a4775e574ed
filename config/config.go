// Package config loads prollydb's CLI configuration from a TOML file:
// which store backend to use and how big to make the chunker's nodes.
// Grounded on internal/parser/toml/parser.go's Parser.ParseFile/Parse
// (github.com/BurntSushi/toml NewDecoder.Decode), retargeted from a whole
// schema document to a small settings struct.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"prollydb/chunker"
)

// Config is prollydb's CLI configuration: the chunker width and which
// store.BlockStore backend to open (by the name passed to store.Open).
type Config struct {
	Chunker ChunkerConfig `toml:"chunker"`
	Store   StoreConfig   `toml:"store"`
}

// ChunkerConfig sets the content-defined chunker's width parameter: nodes
// hold about 2^Width entries on average (spec.md §4.3).
type ChunkerConfig struct {
	Width uint8 `toml:"width"`
}

// StoreConfig selects a store.BlockStore backend ("memory" or "mysql") and,
// for "mysql", its connection string and LRU cache size (in blocks; 0 uses
// cache.DefaultSize).
type StoreConfig struct {
	Backend   string `toml:"backend"`
	DSN       string `toml:"dsn"`
	CacheSize int    `toml:"cache_size"`
}

// Default returns prollydb's configuration when no file is given: an
// in-memory store with the chunker's package-default width.
func Default() Config {
	return Config{
		Chunker: ChunkerConfig{Width: chunker.DefaultWidth},
		Store:   StoreConfig{Backend: "memory"},
	}
}

// Load opens and parses the TOML file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a TOML document from r, filling in Default()'s values for
// anything the document omits.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Splitter builds the chunker.Splitter named by c's Chunker settings.
func (c Config) Splitter() chunker.Splitter {
	if c.Chunker.Width == 0 {
		return chunker.Default
	}
	return chunker.New(c.Chunker.Width)
}
