package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
server:
  listen: ":9000"
  postgresDsn: "host=db dbname=where"
  redisAddr: "redis:6379"
  memcachedAddr: "memcached:11211"
s5:
  baseURL: "https://s5.example.com"
auth:
  issuer: "where-test"
  tokenTTL: 1h
`), 0o600)
	require.NoError(t, err)

	t.Setenv("S5_ADMIN_API_KEY", "from-env")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("S5_BASE_URL", "")

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", conf.Server.Listen)
	assert.Equal(t, "host=db dbname=where", conf.Server.PostgresDsn)
	assert.Equal(t, "redis:6379", conf.Server.RedisAddr)
	assert.Equal(t, "https://s5.example.com", conf.S5.BaseURL)
	assert.Equal(t, "from-env", conf.S5.AdminKey)
	assert.Equal(t, "where-test", conf.Auth.Issuer)
	assert.Equal(t, time.Hour, conf.Auth.TokenTTL)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("S5_BASE_URL", "")
	t.Setenv("S5_ADMIN_API_KEY", "")

	conf, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultS5BaseURL, conf.S5.BaseURL)
	assert.Empty(t, conf.S5.AdminKey)
	assert.Equal(t, ":8000", conf.Server.Listen)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"S5_BASE_URL":      "https://other.example.com",
		"WHERE_JWT_SECRET": "jwt",
		"DATABASE_URL":     "postgres://x",
	}
	conf := Config{}
	conf.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "https://other.example.com", conf.S5.BaseURL)
	assert.Equal(t, "jwt", conf.Auth.Secret)
	assert.Equal(t, "postgres://x", conf.Server.PostgresDsn)

	empty := Config{}
	empty.applyEnv(func(string) string { return "" })
	assert.Equal(t, DefaultS5BaseURL, empty.S5.BaseURL)
}
