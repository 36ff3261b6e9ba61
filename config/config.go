package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "config/config.yml"

type Config struct {
	App         AppConfig         `yaml:"app"`
	Server      ServerConfig      `yaml:"server"`
	Chain       ChainConfig       `yaml:"chain"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Protocols   []string          `yaml:"protocols"`
	Stablecoins StablecoinsConfig `yaml:"stablecoins"`
	Features    FeaturesConfig    `yaml:"features"`
	Cache       CacheConfig       `yaml:"cache"`
	Refresh     RefreshConfig     `yaml:"refresh"`
	Stream      StreamConfig      `yaml:"stream"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ServerConfig struct {
	Address         string          `yaml:"address"`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	SnapshotTTL     time.Duration   `yaml:"snapshot_ttl"`
	SeriesTTL       time.Duration   `yaml:"series_ttl"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig describes a token bucket. Zero RequestsPerSecond disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// ChainConfig names the tracked chain in each upstream's vocabulary.
type ChainConfig struct {
	Name            string `yaml:"name"`
	CoinGeckoID     string `yaml:"coingecko_id"`
	CryptoStatsName string `yaml:"cryptostats_name"`
	BinanceSymbol   string `yaml:"binance_symbol"`
}

type ProvidersConfig struct {
	CoinGecko   ProviderConfig `yaml:"coingecko"`
	DefiLlama   ProviderConfig `yaml:"defillama"`
	Stablecoins ProviderConfig `yaml:"stablecoins"`
	Yields      ProviderConfig `yaml:"yields"`
	CryptoStats ProviderConfig `yaml:"cryptostats"`
	Binance     ProviderConfig `yaml:"binance"`
}

type ProviderConfig struct {
	BaseURL   string          `yaml:"base_url"`
	APIKey    string          `yaml:"api_key"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type StablecoinsConfig struct {
	Tracked []string `yaml:"tracked"`
}

type FeaturesConfig struct {
	Cultural bool `yaml:"cultural"`
}

type CacheConfig struct {
	Backend     string        `yaml:"backend"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
	SeriesTTL   time.Duration `yaml:"series_ttl"`
	Redis       RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RefreshConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

type StreamConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type MetricsConfig struct {
	EventBuffer int              `yaml:"event_buffer"`
	CloudWatch  CloudWatchConfig `yaml:"cloudwatch"`
}

// DiagnosticsConfig sizes the in-process log and host resource history
// served under /api/diagnostics.
type DiagnosticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	LogHistory       int           `yaml:"log_history"`
	ResourceHistory  int           `yaml:"resource_history"`
	ResourceInterval time.Duration `yaml:"resource_interval"`
}

type CloudWatchConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	Namespace       string `yaml:"namespace"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level          string        `yaml:"level"`
	Format         string        `yaml:"format"`
	Output         string        `yaml:"output"`
	MaxAge         int           `yaml:"max_age"`
	ReportInterval time.Duration `yaml:"report_interval"`
}

// Default returns the configuration used for keys the YAML file omits.
func Default() Config {
	return Config{
		App: AppConfig{Name: "netgdp", Version: "dev"},
		Server: ServerConfig{
			Address:         "0.0.0.0:8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			SnapshotTTL:     60 * time.Second,
			SeriesTTL:       300 * time.Second,
			RateLimit:       RateLimitConfig{RequestsPerSecond: 10, Burst: 20},
		},
		Chain: ChainConfig{
			Name:            "Ethereum",
			CoinGeckoID:     "ethereum",
			CryptoStatsName: "ethereum",
			BinanceSymbol:   "ETHUSDT",
		},
		Providers: ProvidersConfig{
			CoinGecko: ProviderConfig{
				BaseURL:   "https://api.coingecko.com/api/v3",
				Timeout:   10 * time.Second,
				RateLimit: RateLimitConfig{RequestsPerSecond: 0.5, Burst: 5},
			},
			DefiLlama:   ProviderConfig{BaseURL: "https://api.llama.fi", Timeout: 10 * time.Second},
			Stablecoins: ProviderConfig{BaseURL: "https://stablecoins.llama.fi", Timeout: 10 * time.Second},
			Yields:      ProviderConfig{BaseURL: "https://yields.llama.fi", Timeout: 10 * time.Second},
			CryptoStats: ProviderConfig{BaseURL: "https://api.cryptostats.community/api/v1", Timeout: 10 * time.Second},
			Binance:     ProviderConfig{BaseURL: "https://api.binance.com", Timeout: 10 * time.Second},
		},
		Protocols: []string{
			"uniswap", "aave", "chainlink", "maker", "compound-governance-token",
			"curve-dao-token", "synthetix-network-token", "lido-dao", "arbitrum", "optimism",
		},
		Stablecoins: StablecoinsConfig{Tracked: []string{"USDT", "USDC", "DAI"}},
		Features:    FeaturesConfig{Cultural: false},
		Cache: CacheConfig{
			Backend:     "memory",
			SnapshotTTL: 300 * time.Second,
			SeriesTTL:   3600 * time.Second,
			Redis:       RedisConfig{Addr: "localhost:6379"},
		},
		Refresh: RefreshConfig{Enabled: true, Schedule: "@every 5m"},
		Stream:  StreamConfig{Interval: 30 * time.Second},
		Metrics: MetricsConfig{
			EventBuffer: 500,
			CloudWatch:  CloudWatchConfig{Namespace: "NetGDP"},
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:          true,
			LogHistory:       200,
			ResourceHistory:  120,
			ResourceInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "json",
			Output:         "stdout",
			ReportInterval: time.Minute,
		},
	}
}

// LoadConfig reads the YAML file at path (or the APP_ENV specific file) on top
// of Default, applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	path = configPathFor(path, DefaultPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		config.Providers.CoinGecko.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.Cache.Redis.Addr = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		config.Cache.Redis.Password = strings.TrimSpace(v)
	}
	if v := os.Getenv("NETGDP_ADDRESS"); v != "" {
		config.Server.Address = strings.TrimSpace(v)
	}
	if config.Metrics.CloudWatch.Enabled {
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Metrics.CloudWatch.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Metrics.CloudWatch.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Metrics.CloudWatch.SecretAccessKey = strings.TrimSpace(v)
		}
	}
	config.Chain.Name = strings.TrimSpace(config.Chain.Name)
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if cfg.Chain.Name == "" {
		return fmt.Errorf("chain.name is required")
	}
	if cfg.Chain.CoinGeckoID == "" {
		return fmt.Errorf("chain.coingecko_id is required")
	}

	providers := map[string]ProviderConfig{
		"coingecko":   cfg.Providers.CoinGecko,
		"defillama":   cfg.Providers.DefiLlama,
		"stablecoins": cfg.Providers.Stablecoins,
		"yields":      cfg.Providers.Yields,
		"cryptostats": cfg.Providers.CryptoStats,
		"binance":     cfg.Providers.Binance,
	}
	for name, p := range providers {
		if p.BaseURL == "" {
			return fmt.Errorf("providers.%s.base_url is required", name)
		}
		if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("providers.%s.base_url '%s' is invalid", name, p.BaseURL)
		}
		if p.Timeout <= 0 {
			return fmt.Errorf("providers.%s.timeout must be greater than 0", name)
		}
		if p.RateLimit.RequestsPerSecond < 0 {
			return fmt.Errorf("providers.%s.rate_limit.requests_per_second must not be negative", name)
		}
	}

	if len(cfg.Protocols) == 0 {
		return fmt.Errorf("protocols must list at least one coin id")
	}

	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend '%s' is invalid", cfg.Cache.Backend)
	}
	if cfg.Cache.SnapshotTTL <= 0 {
		return fmt.Errorf("cache.snapshot_ttl must be greater than 0")
	}
	if cfg.Cache.SeriesTTL <= 0 {
		return fmt.Errorf("cache.series_ttl must be greater than 0")
	}

	if cfg.Server.SnapshotTTL < 0 || cfg.Server.SeriesTTL < 0 {
		return fmt.Errorf("server response cache ttl must not be negative")
	}
	if cfg.Refresh.Enabled && cfg.Refresh.Schedule == "" {
		return fmt.Errorf("refresh.schedule is required when refresh is enabled")
	}
	if cfg.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be greater than 0")
	}

	if cfg.Diagnostics.Enabled && cfg.Diagnostics.ResourceInterval <= 0 {
		return fmt.Errorf("diagnostics.resource_interval must be greater than 0")
	}

	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Namespace == "" {
		return fmt.Errorf("metrics.cloudwatch.namespace is required when CloudWatch is enabled")
	}

	return nil
}
