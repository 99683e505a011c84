// Package config provides unified configuration for the table store
// and its tooling.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the store configuration.
type Config struct {
	// DataDir is the base directory for extracted and built stores
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Storage selects and configures the chunk storage medium
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Chunking bounds the size of individual chunks
	Chunking ChunkingConfig `json:"chunking" yaml:"chunking"`
}

// StorageConfig holds storage medium configuration.
type StorageConfig struct {
	// Type is the storage type: file, memory, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for file type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Prefix is the key prefix stores live under
	Prefix string `json:"prefix" yaml:"prefix"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// ChunkingConfig bounds the size of one chunk.
type ChunkingConfig struct {
	// MaxChunkKB is the byte budget of one chunk in kilobytes (default 1024)
	MaxChunkKB int `json:"max_chunk_kb" yaml:"max_chunk_kb"`

	// MaxColumns caps columns per chunk regardless of byte budget (default 100)
	MaxColumns int `json:"max_columns" yaml:"max_columns"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/cfstore",
		Storage: StorageConfig{
			Type: "file",
		},
		Chunking: ChunkingConfig{
			MaxChunkKB: 1024,
			MaxColumns: 100,
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/cfstore"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	switch c.Storage.Type {
	case "file", "memory", "s3":
	default:
		return fmt.Errorf("invalid storage type: %s (must be file, memory or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}
	if c.Chunking.MaxChunkKB <= 0 {
		return fmt.Errorf("chunking.max_chunk_kb must be positive, got %d", c.Chunking.MaxChunkKB)
	}
	if c.Chunking.MaxColumns <= 0 {
		return fmt.Errorf("chunking.max_columns must be positive, got %d", c.Chunking.MaxColumns)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the CFS_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("CFS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CFS_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("CFS_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("CFS_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("CFS_S3_PREFIX"); v != "" {
		cfg.Storage.S3.Prefix = v
	}
	if v := os.Getenv("CFS_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("CFS_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("CFS_MAX_CHUNK_KB"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Chunking.MaxChunkKB)
	}
	if v := os.Getenv("CFS_MAX_COLUMNS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Chunking.MaxColumns)
	}
}
