package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeTempConfig writes content to a temporary YAML file and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

const minimalConfig = `app:
  name: "TestApp"
  version: "1.0"
chain:
  name: "Ethereum"
protocols: ["uniswap"]
cache:
  series_ttl: 10m
`

func TestLoadConfig(t *testing.T) {
	t.Setenv("APP_ENV", "")
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.App.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.App.Name)
	}
	if len(cfg.Protocols) != 1 || cfg.Protocols[0] != "uniswap" {
		t.Errorf("unexpected protocols: %v", cfg.Protocols)
	}
	if cfg.Cache.SeriesTTL != 10*time.Minute {
		t.Errorf("unexpected series ttl: %s", cfg.Cache.SeriesTTL)
	}
	if cfg.Cache.SnapshotTTL != 300*time.Second {
		t.Errorf("default snapshot ttl not applied: %s", cfg.Cache.SnapshotTTL)
	}
	if cfg.Providers.CoinGecko.BaseURL != "https://api.coingecko.com/api/v3" {
		t.Errorf("default coingecko url not applied: %s", cfg.Providers.CoinGecko.BaseURL)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("COINGECKO_API_KEY", " key-123 ")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("NETGDP_ADDRESS", ":9090")
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Providers.CoinGecko.APIKey != "key-123" {
		t.Errorf("api key override not trimmed: %q", cfg.Providers.CoinGecko.APIKey)
	}
	if cfg.Cache.Redis.Addr != "redis:6379" {
		t.Errorf("redis override missing: %s", cfg.Cache.Redis.Addr)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("address override missing: %s", cfg.Server.Address)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoadConfigBundledFile(t *testing.T) {
	t.Setenv("APP_ENV", "")
	cfg, err := LoadConfig("config.yml")
	if err != nil {
		t.Fatalf("bundled config invalid: %v", err)
	}
	if len(cfg.Protocols) != 10 {
		t.Fatalf("expected 10 basket protocols, got %d", len(cfg.Protocols))
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing name", func(c *Config) { c.App.Name = "" }, "app.name is required"},
		{"missing chain", func(c *Config) { c.Chain.Name = "" }, "chain.name is required"},
		{"bad url", func(c *Config) { c.Providers.DefiLlama.BaseURL = "llama" }, "providers.defillama.base_url"},
		{"zero timeout", func(c *Config) { c.Providers.Binance.Timeout = 0 }, "providers.binance.timeout"},
		{"no protocols", func(c *Config) { c.Protocols = nil }, "protocols must list"},
		{"bad backend", func(c *Config) { c.Cache.Backend = "disk" }, "cache.backend 'disk' is invalid"},
		{"redis without addr", func(c *Config) {
			c.Cache.Backend = "redis"
			c.Cache.Redis.Addr = ""
		}, "cache.redis.addr is required"},
		{"refresh without schedule", func(c *Config) { c.Refresh.Schedule = "" }, "refresh.schedule is required"},
		{"zero stream interval", func(c *Config) { c.Stream.Interval = 0 }, "stream.interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
