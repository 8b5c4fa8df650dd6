// Package config loads application configuration from a YAML file, with
// working defaults when no file exists. All components receive their
// configuration by injection at process start; nothing reads config globally
// at call time.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig selects and configures the embedder implementation.
// The same configuration must be used for ingestion and querying.
type EmbedderConfig struct {
	Type      string `yaml:"type"` // "hash" or "openai"
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
	Normalize bool   `yaml:"normalize"`
	Dimension int    `yaml:"dimension"` // hash embedder only
}

// ChunkerConfig configures how page text is split into chunks.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig selects and configures the vector store implementation.
type StoreConfig struct {
	Type    string       `yaml:"type"` // "sqlite" or "qdrant"
	DataDir string       `yaml:"data_dir"`
	Qdrant  QdrantConfig `yaml:"qdrant"`
}

// Config is the root application configuration.
type Config struct {
	Embedder EmbedderConfig `yaml:"embedder"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Store    StoreConfig    `yaml:"store"`
	MaxPages int            `yaml:"max_pages"`
}

// Load reads a config from path. A missing file returns the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present: the
// deterministic local embedder over the embedded SQLite store.
func Default() *Config {
	return &Config{
		Embedder: EmbedderConfig{
			Type:      "hash",
			Model:     "text-embedding-3-small",
			BatchSize: 128,
			Normalize: true,
		},
		Chunker:  ChunkerConfig{ChunkSize: 1000, Overlap: 100},
		Store:    StoreConfig{Type: "sqlite", DataDir: "vector_store", Qdrant: QdrantConfig{Host: "localhost", Port: 6334}},
		MaxPages: 500,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Chunker.ChunkSize <= 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.Overlap < 0 {
		cfg.Chunker.Overlap = 100
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = "vector_store"
	}
	if cfg.Store.Qdrant.Host == "" {
		cfg.Store.Qdrant.Host = "localhost"
	}
	if cfg.Store.Qdrant.Port == 0 {
		cfg.Store.Qdrant.Port = 6334
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 500
	}
}
