package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectCacheConfig configures an S3-compatible bucket.
type ObjectCacheConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// ObjectCache stores entries as objects in an S3-compatible bucket. Each
// object holds the same JSON envelope as [FileCache].
type ObjectCache struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewObjectCache connects to the endpoint in cfg and creates the bucket if
// it does not exist.
func NewObjectCache(ctx context.Context, cfg ObjectCacheConfig) (*ObjectCache, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, transient(err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return NewObjectCacheFromClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewObjectCacheFromClient wraps an existing client. prefix is prepended to
// every object name.
func NewObjectCacheFromClient(client *minio.Client, bucket, prefix string) *ObjectCache {
	return &ObjectCache{client: client, bucket: bucket, prefix: prefix}
}

func (c *ObjectCache) key(key string) string {
	return path.Join(c.prefix, Hash([]byte(key))+".json")
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Get retrieves a value.
func (c *ObjectCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var raw []byte
	err := RetryWithBackoff(ctx, func() error {
		obj, err := c.client.GetObject(ctx, c.bucket, c.key(key), minio.GetObjectOptions{})
		if err != nil {
			return transient(err)
		}
		defer obj.Close()
		raw, err = io.ReadAll(obj)
		return transient(err)
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = c.Delete(ctx, key)
		return nil, false, nil
	}
	if entry.expired() {
		_ = c.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Set uploads a value. S3 has no per-object TTL, so expiry is enforced on
// read.
func (c *ObjectCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	body, err := json.Marshal(newEntry(data, ttl))
	if err != nil {
		return err
	}
	return RetryWithBackoff(ctx, func() error {
		_, err := c.client.PutObject(ctx, c.bucket, c.key(key), bytes.NewReader(body), int64(len(body)),
			minio.PutObjectOptions{ContentType: "application/json"})
		return transient(err)
	})
}

// Delete removes a value. Missing objects are not an error.
func (c *ObjectCache) Delete(ctx context.Context, key string) error {
	err := c.client.RemoveObject(ctx, c.bucket, c.key(key), minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return err
	}
	return nil
}

// Close does nothing; minio clients hold no persistent connection state.
func (c *ObjectCache) Close() error {
	return nil
}

var _ Cache = (*ObjectCache)(nil)
