package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/pointfit/pkg/cache"
	"github.com/matzehuels/pointfit/pkg/errors"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendNull   = "null"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendS3     = "s3"
)

// Storage selects and configures the cache backend that holds results and
// checkpoints.
type Storage struct {
	Backend string `toml:"backend" yaml:"backend"`

	// Dir is the file backend's directory. Defaults to the XDG cache dir.
	Dir string `toml:"dir" yaml:"dir"`

	RedisURL string `toml:"redis_url" yaml:"redis_url"`

	MongoURI        string `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database" yaml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection" yaml:"mongo_collection"`

	S3Endpoint  string `toml:"s3_endpoint" yaml:"s3_endpoint"`
	S3Bucket    string `toml:"s3_bucket" yaml:"s3_bucket"`
	S3Prefix    string `toml:"s3_prefix" yaml:"s3_prefix"`
	S3AccessKey string `toml:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key" yaml:"s3_secret_key"`
	S3Secure    bool   `toml:"s3_secure" yaml:"s3_secure"`
}

// Validate checks that the selected backend has what it needs.
func (s Storage) Validate() error {
	switch s.Backend {
	case BackendFile, BackendNull, BackendMemory:
		return nil
	case BackendRedis:
		if s.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidOptions, "storage.redis_url is required for the redis backend")
		}
	case BackendMongo:
		if s.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidOptions, "storage.mongo_uri is required for the mongo backend")
		}
	case BackendS3:
		if s.S3Endpoint == "" || s.S3Bucket == "" {
			return errors.New(errors.ErrCodeInvalidOptions, "storage.s3_endpoint and storage.s3_bucket are required for the s3 backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidOptions, "unknown storage backend %q", s.Backend)
	}
	return nil
}

// Open connects to the configured backend.
func (s Storage) Open(ctx context.Context) (cache.Cache, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var (
		c   cache.Cache
		err error
	)
	switch s.Backend {
	case BackendNull:
		return cache.NewNullCache(), nil
	case BackendMemory:
		return cache.NewMemoryCache(), nil
	case BackendFile:
		dir := s.Dir
		if dir == "" {
			if dir, err = CacheDir(); err != nil {
				return nil, errors.Wrap(errors.ErrCodeStorage, err, "locate cache directory")
			}
		}
		c, err = cache.NewFileCache(dir)
	case BackendRedis:
		c, err = cache.NewRedisCache(ctx, s.RedisURL)
	case BackendMongo:
		c, err = cache.NewMongoCache(ctx, s.MongoURI, s.MongoDatabase, s.MongoCollection)
	case BackendS3:
		c, err = cache.NewObjectCache(ctx, cache.ObjectCacheConfig{
			Endpoint:  s.S3Endpoint,
			AccessKey: s.S3AccessKey,
			SecretKey: s.S3SecretKey,
			Bucket:    s.S3Bucket,
			Prefix:    s.S3Prefix,
			Secure:    s.S3Secure,
		})
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open %s storage", s.Backend)
	}
	return c, nil
}

// CacheDir returns the cache directory using XDG standard (~/.cache/pointfit/).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
