package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	cfg, err := Load(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(data))

	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, CacheMemory, cfg.Cache.Kind)
	assert.Equal(t, 1024, cfg.Cache.Size)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	custom := `backend: postgres
dsn: postgres://localhost/pantry
data_dir: /srv/pantry
catalog: /etc/pantry/catalog.yaml
cache:
  kind: redis
  redis_url: redis://cache:6379/1
  ttl: 2m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte(custom), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, types.BackendPostgres, cfg.Backend)
	assert.Equal(t, "postgres://localhost/pantry", cfg.DSN)
	assert.Equal(t, "/srv/pantry", cfg.DataDir)
	assert.Equal(t, "/etc/pantry/catalog.yaml", cfg.Catalog)
	assert.Equal(t, CacheRedis, cfg.Cache.Kind)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, DefaultCacheSize, cfg.Cache.Size, "unset keys keep defaults")
	assert.NoError(t, cfg.Validate())

	data, err := os.ReadFile(filepath.Join(dir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PANTRY_BACKEND", "postgres")
	t.Setenv("PANTRY_DSN", "postgres://env/pantry")
	t.Setenv("PANTRY_CACHE_KIND", "none")
	t.Setenv("PANTRY_CACHE_TTL", "5s")
	t.Setenv("PANTRY_DATA_DIR", "/ignored/here")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, types.BackendPostgres, cfg.Backend)
	assert.Equal(t, "postgres://env/pantry", cfg.DSN)
	assert.Equal(t, CacheNone, cfg.Cache.Kind)
	assert.Equal(t, 5*time.Second, cfg.Cache.TTL)
	assert.Empty(t, cfg.DataDir, "data dir precedence is resolved by paths")
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte("backend: [unclosed\n"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Backend: types.BackendSQLite,
			Cache:   Cache{Kind: CacheMemory, Size: 10, TTL: time.Second},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no cache skips cache checks", mutate: func(c *Config) { c.Cache = Cache{Kind: CacheNone} }},
		{name: "empty backend", mutate: func(c *Config) { c.Backend = "" }, wantErr: types.ErrBackendEmpty},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Backend = types.BackendPostgres }, wantErr: types.ErrDSNRequired},
		{name: "unknown cache", mutate: func(c *Config) { c.Cache.Kind = "disk" }, wantErr: ErrCacheKindUnknown},
		{name: "zero size", mutate: func(c *Config) { c.Cache.Size = 0 }, wantErr: ErrCacheSize},
		{name: "zero ttl", mutate: func(c *Config) { c.Cache.TTL = 0 }, wantErr: ErrCacheTTL},
		{name: "redis without url", mutate: func(c *Config) { c.Cache.Kind = CacheRedis }, wantErr: ErrRedisURLRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStore(t *testing.T) {
	c := &Config{Backend: types.BackendPostgres, DSN: "postgres://x"}
	assert.Equal(t, types.Config{Backend: types.BackendPostgres, DataDir: "/d", DSN: "postgres://x"}, c.Store("/d"))
}
