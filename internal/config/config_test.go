package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.Storage.Type != "file" {
		t.Errorf("default storage type = %s", cfg.Storage.Type)
	}
	if cfg.Chunking.MaxChunkKB != 1024 || cfg.Chunking.MaxColumns != 100 {
		t.Errorf("default chunking = %+v", cfg.Chunking)
	}
	if cfg.Storage.Path == "" {
		t.Error("Resolve should derive a storage path")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
		{"bad storage type", func(c *Config) { c.Storage.Type = "tape" }, true},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, true},
		{"s3 with bucket", func(c *Config) {
			c.Storage.Type = "s3"
			c.Storage.S3.Bucket = "results"
		}, false},
		{"zero chunk budget", func(c *Config) { c.Chunking.MaxChunkKB = 0 }, true},
		{"negative column cap", func(c *Config) { c.Chunking.MaxColumns = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := []byte(`
data_dir: /var/lib/cfstore
storage:
  type: s3
  s3:
    bucket: results
    region: eu-west-1
chunking:
  max_chunk_kb: 512
`)
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile failed: %v", err)
		}
		if cfg.DataDir != "/var/lib/cfstore" || cfg.Storage.S3.Bucket != "results" {
			t.Errorf("loaded config = %+v", cfg)
		}
		if cfg.Chunking.MaxChunkKB != 512 {
			t.Errorf("max_chunk_kb = %d", cfg.Chunking.MaxChunkKB)
		}
		// Unset fields keep their defaults.
		if cfg.Chunking.MaxColumns != 100 {
			t.Errorf("max_columns should default, got %d", cfg.Chunking.MaxColumns)
		}
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		content := []byte(`{"data_dir": "/opt/cfstore", "storage": {"type": "memory"}}`)
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile failed: %v", err)
		}
		if cfg.DataDir != "/opt/cfstore" || cfg.Storage.Type != "memory" {
			t.Errorf("loaded config = %+v", cfg)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("x = 1"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFromFile(path); err == nil {
			t.Error("expected error for unsupported format")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CFS_DATA_DIR", "/env/cfstore")
	t.Setenv("CFS_STORAGE_TYPE", "s3")
	t.Setenv("CFS_S3_BUCKET", "env-bucket")
	t.Setenv("CFS_MAX_CHUNK_KB", "2048")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.DataDir != "/env/cfstore" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.Storage.Type != "s3" || cfg.Storage.S3.Bucket != "env-bucket" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Chunking.MaxChunkKB != 2048 {
		t.Errorf("MaxChunkKB = %d", cfg.Chunking.MaxChunkKB)
	}
}
