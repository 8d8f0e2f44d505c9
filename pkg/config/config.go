package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"tao_dividends_api/internal/adapter/substrate"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type Config struct {
	Server struct {
		Address     string
		APIPrefix   string   `mapstructure:"API_V1_STR"`
		Token       string   `mapstructure:"API_TOKEN"`
		CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
	}
	LogLevel  string
	Bittensor struct {
		Network   string
		Endpoints map[substrate.Network]string
	}
	Chain struct {
		MaxRetries  int           `mapstructure:"CHAIN_MAX_RETRIES"`
		Backoff     time.Duration `mapstructure:"CHAIN_RETRY_BACKOFF"`
		DialTimeout time.Duration `mapstructure:"CHAIN_DIAL_TIMEOUT"`
	}
	Cache struct {
		Backend    string
		TTL        time.Duration `mapstructure:"CACHE_EXPIRATION_SECONDS"`
		KeyPrefix  string        `mapstructure:"CACHE_KEY_PREFIX"`
		MaxEntries int           `mapstructure:"CACHE_MEMORY_MAX_ENTRIES"`
	}
	Redis struct {
		Host     string
		Port     int
		Password string
		DB       int
		Timeout  time.Duration
	}
}

// Load reads .env from the working directory when present, then the
// environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)

	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("API_V1_STR", "/api/v1")
	v.SetDefault("API_TOKEN", "test-api-token")
	v.SetDefault("CORS_ORIGINS", []string{})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BITTENSOR_NETWORK", string(substrate.NetworkTest))
	v.SetDefault("BITTENSOR_FINNEY_ENDPOINT", "wss://entrypoint-finney.opentensor.ai:443")
	v.SetDefault("BITTENSOR_TEST_ENDPOINT", "wss://test.finney.opentensor.ai:443")
	v.SetDefault("BITTENSOR_LOCAL_ENDPOINT", "ws://127.0.0.1:9944")
	v.SetDefault("CHAIN_MAX_RETRIES", 3)
	v.SetDefault("CHAIN_RETRY_BACKOFF", "1s")
	v.SetDefault("CHAIN_DIAL_TIMEOUT", "10s")
	v.SetDefault("CACHE_BACKEND", CacheBackendRedis)
	v.SetDefault("CACHE_EXPIRATION_SECONDS", 120)
	v.SetDefault("CACHE_KEY_PREFIX", "tao_dividends")
	v.SetDefault("CACHE_MEMORY_MAX_ENTRIES", 1024)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TIMEOUT", "3s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	cfg.Server.Address = v.GetString("SERVER_ADDRESS")
	cfg.Server.APIPrefix = v.GetString("API_V1_STR")
	cfg.Server.Token = v.GetString("API_TOKEN")
	cfg.Server.CORSOrigins = v.GetStringSlice("CORS_ORIGINS")
	cfg.LogLevel = v.GetString("LOG_LEVEL")

	cfg.Bittensor.Network = v.GetString("BITTENSOR_NETWORK")
	cfg.Bittensor.Endpoints = map[substrate.Network]string{
		substrate.NetworkFinney: v.GetString("BITTENSOR_FINNEY_ENDPOINT"),
		substrate.NetworkTest:   v.GetString("BITTENSOR_TEST_ENDPOINT"),
		substrate.NetworkLocal:  v.GetString("BITTENSOR_LOCAL_ENDPOINT"),
	}

	cfg.Chain.MaxRetries = v.GetInt("CHAIN_MAX_RETRIES")
	cfg.Chain.Backoff = v.GetDuration("CHAIN_RETRY_BACKOFF")
	cfg.Chain.DialTimeout = v.GetDuration("CHAIN_DIAL_TIMEOUT")

	cfg.Cache.Backend = v.GetString("CACHE_BACKEND")
	cfg.Cache.TTL = time.Duration(v.GetInt("CACHE_EXPIRATION_SECONDS")) * time.Second
	cfg.Cache.KeyPrefix = v.GetString("CACHE_KEY_PREFIX")
	cfg.Cache.MaxEntries = v.GetInt("CACHE_MEMORY_MAX_ENTRIES")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.Timeout = v.GetDuration("REDIS_TIMEOUT")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("SERVER_ADDRESS must not be empty")
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") {
		return fmt.Errorf("API_V1_STR must start with /")
	}
	if c.Server.Token == "" {
		return fmt.Errorf("API_TOKEN must not be empty")
	}
	if _, err := substrate.ParseNetwork(c.Bittensor.Network); err != nil {
		return fmt.Errorf("BITTENSOR_NETWORK: %w", err)
	}
	if c.Chain.MaxRetries < 1 {
		return fmt.Errorf("CHAIN_MAX_RETRIES must be >= 1")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_EXPIRATION_SECONDS must be positive")
	}
	if c.Cache.KeyPrefix == "" {
		return fmt.Errorf("CACHE_KEY_PREFIX must not be empty")
	}
	switch c.Cache.Backend {
	case CacheBackendRedis:
	case CacheBackendMemory:
		if c.Cache.MaxEntries < 1 {
			return fmt.Errorf("CACHE_MEMORY_MAX_ENTRIES must be >= 1")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND %q is not one of redis, memory", c.Cache.Backend)
	}
	return nil
}
