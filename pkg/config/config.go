// Package config loads pointfit's optional configuration file.
//
// The file is TOML or YAML, chosen by extension. Every key is optional;
// missing keys keep their defaults, and command-line flags are applied on
// top by the caller.
//
//	[optimizer]
//	step_size = 0.5
//	max_rounds = 250
//	seed = 42
//
//	[storage]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[server]
//	addr = ":8080"
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/points"
	"github.com/matzehuels/pointfit/pkg/relax"
)

// AppName is used for directories and environment variable prefixes.
const AppName = "pointfit"

// Config is the complete configuration.
type Config struct {
	Optimizer Optimizer `toml:"optimizer" yaml:"optimizer"`
	Storage   Storage   `toml:"storage" yaml:"storage"`
	Server    Server    `toml:"server" yaml:"server"`
}

// Optimizer mirrors [relax.Options].
type Optimizer struct {
	StepSize     float64 `toml:"step_size" yaml:"step_size"`
	MaxRounds    int     `toml:"max_rounds" yaml:"max_rounds"`
	Tolerance    float64 `toml:"tolerance" yaml:"tolerance"`
	ShrinkFactor float64 `toml:"shrink_factor" yaml:"shrink_factor"`
	InitRange    float64 `toml:"init_range" yaml:"init_range"`
	Seed         uint64  `toml:"seed" yaml:"seed"`
	Duplicate    bool    `toml:"duplicate" yaml:"duplicate"`
}

// Server configures the HTTP API.
type Server struct {
	Addr            string        `toml:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	// MaxConcurrent bounds the number of estimates running at once.
	MaxConcurrent int `toml:"max_concurrent" yaml:"max_concurrent"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Optimizer: Optimizer{
			StepSize:     relax.DefaultStepSize,
			MaxRounds:    relax.DefaultMaxRounds,
			Tolerance:    relax.DefaultTolerance,
			ShrinkFactor: relax.DefaultShrinkFactor,
			InitRange:    points.DefaultRange,
			Seed:         relax.DefaultSeed,
		},
		Storage: Storage{
			Backend:         BackendFile,
			MongoDatabase:   AppName,
			S3Bucket:        AppName,
			S3Secure:        true,
			MongoCollection: "checkpoints",
		},
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			MaxConcurrent:   4,
		},
	}
}

// Load reads path on top of [Default] and applies environment overrides.
// An empty path returns the defaults with overrides applied.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "read config %s", path)
		}
		if err := decode(path, data, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return errors.New(errors.ErrCodeInvalidFormat, "%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", path)
		}
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported config file %q (want .toml, .yaml or .yml)", path)
	}
	return nil
}

// applyEnv applies POINTFIT_* environment overrides. Secrets are usually
// supplied this way rather than written into the file.
func (c *Config) applyEnv() {
	env := map[string]*string{
		"POINTFIT_STORAGE":       &c.Storage.Backend,
		"POINTFIT_CACHE_DIR":     &c.Storage.Dir,
		"POINTFIT_REDIS_URL":     &c.Storage.RedisURL,
		"POINTFIT_MONGO_URI":     &c.Storage.MongoURI,
		"POINTFIT_S3_ENDPOINT":   &c.Storage.S3Endpoint,
		"POINTFIT_S3_ACCESS_KEY": &c.Storage.S3AccessKey,
		"POINTFIT_S3_SECRET_KEY": &c.Storage.S3SecretKey,
		"POINTFIT_ADDR":          &c.Server.Addr,
	}
	for name, field := range env {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*field = v
		}
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.RelaxOptions().Validate(); err != nil {
		return err
	}
	if c.Server.MaxConcurrent < 1 {
		return errors.New(errors.ErrCodeInvalidOptions, "server.max_concurrent must be at least 1, got %d", c.Server.MaxConcurrent)
	}
	return c.Storage.Validate()
}

// RelaxOptions converts the optimizer section into optimizer options.
func (c Config) RelaxOptions() relax.Options {
	o := c.Optimizer
	return relax.Options{
		StepSize:     o.StepSize,
		MaxRounds:    o.MaxRounds,
		Tolerance:    o.Tolerance,
		ShrinkFactor: o.ShrinkFactor,
		InitRange:    o.InitRange,
		Seed:         o.Seed,
	}
}
