package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultHistoryPath(t *testing.T) {
	// Test with XDG_CACHE_HOME set
	t.Run("with XDG_CACHE_HOME", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "/custom/cache")
		path := DefaultHistoryPath()

		expected := "/custom/cache/fetchd/history.db"
		if path != expected {
			t.Errorf("DefaultHistoryPath() = %q, want %q", path, expected)
		}
	})

	// Test without XDG_CACHE_HOME
	t.Run("without XDG_CACHE_HOME", func(t *testing.T) {
		original := os.Getenv("XDG_CACHE_HOME")
		defer os.Setenv("XDG_CACHE_HOME", original)

		os.Unsetenv("XDG_CACHE_HOME")
		path := DefaultHistoryPath()

		if !strings.HasSuffix(path, filepath.Join(".cache", "fetchd", "history.db")) {
			t.Errorf("DefaultHistoryPath() = %q, want suffix .cache/fetchd/history.db", path)
		}
	})
}

func TestConfig_ApplyFile(t *testing.T) {
	content := `
port = 9090
rpc_url = "http://aria2:6800/jsonrpc"
rpc_secret = "hunter2"
update_interval = "30s"
max_concurrent = 3
`
	path := filepath.Join(t.TempDir(), "fetchd.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := &Config{
		Port:           8080,
		RPCURL:         "http://localhost:6800/jsonrpc",
		UpdateInterval: 10 * time.Second,
		MaxConcurrent:  5,
		NotifyURL:      "http://relay:5001/forward",
	}
	if err := cfg.applyFile(path); err != nil {
		t.Fatalf("applyFile() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.RPCURL != "http://aria2:6800/jsonrpc" {
		t.Errorf("RPCURL = %q, want file value", cfg.RPCURL)
	}
	if cfg.RPCSecret != "hunter2" {
		t.Errorf("RPCSecret = %q, want %q", cfg.RPCSecret, "hunter2")
	}
	if cfg.UpdateInterval != 30*time.Second {
		t.Errorf("UpdateInterval = %s, want 30s", cfg.UpdateInterval)
	}
	if cfg.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", cfg.MaxConcurrent)
	}
	// Keys absent from the file keep their values
	if cfg.NotifyURL != "http://relay:5001/forward" {
		t.Errorf("NotifyURL = %q, want untouched", cfg.NotifyURL)
	}
}

func TestConfig_ApplyFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad TOML", "port = = 1"},
		{"bad duration", `update_interval = "soon"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fetchd.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg := &Config{}
			if err := cfg.applyFile(path); err == nil {
				t.Error("applyFile() expected error, got nil")
			}
		})
	}
}

func TestConfig_ApplyFileMissing(t *testing.T) {
	cfg := &Config{}
	if err := cfg.applyFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("applyFile() on missing file expected error, got nil")
	}
}
