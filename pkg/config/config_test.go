package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pointfit/pkg/cache"
	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/relax"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"POINTFIT_STORAGE", "POINTFIT_CACHE_DIR", "POINTFIT_REDIS_URL", "POINTFIT_MONGO_URI",
		"POINTFIT_S3_ENDPOINT", "POINTFIT_S3_ACCESS_KEY", "POINTFIT_S3_SECRET_KEY", "POINTFIT_ADDR",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	opts := cfg.RelaxOptions()
	assert.Equal(t, relax.DefaultStepSize, opts.StepSize)
	assert.Equal(t, relax.DefaultMaxRounds, opts.MaxRounds)
	assert.Equal(t, relax.DefaultSeed, opts.Seed)
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "pointfit.toml", `
[optimizer]
step_size = 0.25
max_rounds = 40
seed = 7
duplicate = true

[storage]
backend = "memory"

[server]
addr = ":9090"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Optimizer.StepSize)
	assert.Equal(t, 40, cfg.Optimizer.MaxRounds)
	assert.Equal(t, uint64(7), cfg.Optimizer.Seed)
	assert.True(t, cfg.Optimizer.Duplicate)
	assert.Equal(t, relax.DefaultTolerance, cfg.Optimizer.Tolerance, "unset keys keep defaults")
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "pointfit.yml", `
optimizer:
  shrink_factor: 1.5
storage:
  backend: redis
  redis_url: redis://localhost:6379/0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.Optimizer.ShrinkFactor)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.RedisURL)
}

func TestLoadEmptyYAML(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		file    string
		content string
		code    errors.Code
	}{
		{"unknown toml key", "c.toml", "[optimizer]\nstep = 1\n", errors.ErrCodeInvalidFormat},
		{"unknown yaml key", "c.yaml", "optimizer:\n  step: 1\n", errors.ErrCodeInvalidFormat},
		{"bad syntax", "c.toml", "[optimizer\n", errors.ErrCodeInvalidFormat},
		{"extension", "c.ini", "x=1", errors.ErrCodeUnsupported},
		{"shrink factor", "c.toml", "[optimizer]\nshrink_factor = 1.0\n", errors.ErrCodeInvalidOptions},
		{"backend", "c.toml", "[storage]\nbackend = \"etcd\"\n", errors.ErrCodeInvalidOptions},
		{"redis without url", "c.toml", "[storage]\nbackend = \"redis\"\n", errors.ErrCodeInvalidOptions},
		{"concurrency", "c.toml", "[server]\nmax_concurrent = 0\n", errors.ErrCodeInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err), err.Error())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POINTFIT_STORAGE", "redis")
	t.Setenv("POINTFIT_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("POINTFIT_ADDR", "127.0.0.1:7000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis://cache:6379/1", cfg.Storage.RedisURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
}

func TestStorageOpen(t *testing.T) {
	ctx := context.Background()

	c, err := Storage{Backend: BackendMemory}.Open(ctx)
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)

	c, err = Storage{Backend: BackendNull}.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	dir := t.TempDir()
	c, err = Storage{Backend: BackendFile, Dir: dir}.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	data, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("v"), data)

	_, err = Storage{Backend: BackendMongo}.Open(ctx)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidOptions))
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := CacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", AppName), dir)
}
