package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tao_dividends_api/internal/adapter/substrate"
	"tao_dividends_api/pkg/config"
)

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadFile(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "/api/v1", cfg.Server.APIPrefix)
	assert.Equal(t, "test-api-token", cfg.Server.Token)
	assert.Empty(t, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "test", cfg.Bittensor.Network)
	assert.Equal(t, "wss://test.finney.opentensor.ai:443", cfg.Bittensor.Endpoints[substrate.NetworkTest])
	assert.Equal(t, "ws://127.0.0.1:9944", cfg.Bittensor.Endpoints[substrate.NetworkLocal])
	assert.Equal(t, 3, cfg.Chain.MaxRetries)
	assert.Equal(t, time.Second, cfg.Chain.Backoff)
	assert.Equal(t, config.CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 120*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "tao_dividends", cfg.Cache.KeyPrefix)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 3*time.Second, cfg.Redis.Timeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_TOKEN", "secret")
	t.Setenv("BITTENSOR_NETWORK", "finney")
	t.Setenv("CACHE_EXPIRATION_SECONDS", "30")
	t.Setenv("CHAIN_RETRY_BACKOFF", "250ms")
	t.Setenv("CORS_ORIGINS", "http://a.example http://b.example")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := config.LoadFile(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Server.Token)
	assert.Equal(t, "finney", cfg.Bittensor.Network)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Chain.Backoff)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 6380, cfg.Redis.Port)
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CACHE_BACKEND=memory\nCACHE_MEMORY_MAX_ENTRIES=16\nBITTENSOR_NETWORK=local\n"), 0o600))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 16, cfg.Cache.MaxEntries)
	assert.Equal(t, "local", cfg.Bittensor.Network)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown network":  {"BITTENSOR_NETWORK": "mainnet"},
		"zero retries":     {"CHAIN_MAX_RETRIES": "0"},
		"zero ttl":         {"CACHE_EXPIRATION_SECONDS": "0"},
		"unknown backend":  {"CACHE_BACKEND": "memcached"},
		"empty prefix":     {"CACHE_KEY_PREFIX": ""},
		"empty token":      {"API_TOKEN": ""},
		"memory size zero": {"CACHE_BACKEND": "memory", "CACHE_MEMORY_MAX_ENTRIES": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := config.LoadFile(missingFile(t))
			assert.Error(t, err)
		})
	}
}
