package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration.
type Config struct {
	Port           int
	RPCURL         string
	RPCSecret      string
	APISecret      string
	NotifyURL      string
	UpdateInterval time.Duration
	MaxConcurrent  int
	HistoryPath    string
}

// fileConfig mirrors Config for the optional TOML config file.
type fileConfig struct {
	Port           int    `toml:"port"`
	RPCURL         string `toml:"rpc_url"`
	RPCSecret      string `toml:"rpc_secret"`
	APISecret      string `toml:"api_secret"`
	NotifyURL      string `toml:"notify_url"`
	UpdateInterval string `toml:"update_interval"`
	MaxConcurrent  int    `toml:"max_concurrent"`
	HistoryPath    string `toml:"history_path"`
}

// DefaultHistoryPath returns the default history database path using
// XDG_CACHE_HOME.
func DefaultHistoryPath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "fetchd", "history.db")
}

// Load parses the optional config file, flags and environment to build
// Config. Precedence: file < flags < env.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           8080,
		RPCURL:         "http://localhost:6800/jsonrpc",
		UpdateInterval: 10 * time.Second,
		MaxConcurrent:  5,
		HistoryPath:    DefaultHistoryPath(),
	}

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to TOML config file")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.RPCURL, "rpc-url", cfg.RPCURL, "aria2 JSON-RPC endpoint")
	flag.StringVar(&cfg.RPCSecret, "rpc-secret", "", "aria2 RPC secret token")
	flag.StringVar(&cfg.APISecret, "api-secret", "", "Shared secret for submission request signing")
	flag.StringVar(&cfg.NotifyURL, "notify-url", "", "Message relay endpoint (empty logs notifications)")
	flag.DurationVar(&cfg.UpdateInterval, "update-interval", cfg.UpdateInterval, "Progress poll interval")
	flag.IntVar(&cfg.MaxConcurrent, "max-concurrent", cfg.MaxConcurrent, "Per-user concurrent download limit")
	flag.StringVar(&cfg.HistoryPath, "history", cfg.HistoryPath, "History database path")
	flag.Parse()

	if configPath == "" {
		configPath = os.Getenv("FETCHD_CONFIG")
	}
	if configPath != "" {
		if err := cfg.applyFile(configPath); err != nil {
			return nil, err
		}
		// Flags set explicitly win over the file.
		flag.Parse()
	}

	// Env overrides
	if v := os.Getenv("FETCHD_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("ARIA2_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("ARIA2_RPC_SECRET"); v != "" {
		cfg.RPCSecret = v
	}
	if v := os.Getenv("FETCHD_API_SECRET"); v != "" {
		cfg.APISecret = v
	}
	if v := os.Getenv("FETCHD_NOTIFY_URL"); v != "" {
		cfg.NotifyURL = v
	}
	if v := os.Getenv("FETCHD_UPDATE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.UpdateInterval = d
		}
	}
	if v := os.Getenv("FETCHD_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrent = n
		}
	}
	if v := os.Getenv("FETCHD_HISTORY"); v != "" {
		cfg.HistoryPath = v
	}

	if cfg.MaxConcurrent < 1 {
		return nil, fmt.Errorf("max-concurrent must be at least 1, got %d", cfg.MaxConcurrent)
	}
	if cfg.UpdateInterval <= 0 {
		return nil, fmt.Errorf("update-interval must be positive, got %s", cfg.UpdateInterval)
	}
	return cfg, nil
}

// applyFile overlays values from a TOML config file.
func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if fc.Port != 0 {
		c.Port = fc.Port
	}
	if fc.RPCURL != "" {
		c.RPCURL = fc.RPCURL
	}
	if fc.RPCSecret != "" {
		c.RPCSecret = fc.RPCSecret
	}
	if fc.APISecret != "" {
		c.APISecret = fc.APISecret
	}
	if fc.NotifyURL != "" {
		c.NotifyURL = fc.NotifyURL
	}
	if fc.UpdateInterval != "" {
		d, err := time.ParseDuration(fc.UpdateInterval)
		if err != nil {
			return fmt.Errorf("config file %s: update_interval: %w", path, err)
		}
		c.UpdateInterval = d
	}
	if fc.MaxConcurrent != 0 {
		c.MaxConcurrent = fc.MaxConcurrent
	}
	if fc.HistoryPath != "" {
		c.HistoryPath = fc.HistoryPath
	}
	return nil
}
