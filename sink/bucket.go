package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/utilitygods/sitegen/og"
)

// BucketConfig locates an S3-compatible bucket.
type BucketConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Prefix    string `yaml:"prefix"`
}

func (c BucketConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	return nil
}

// Bucket uploads images to object storage, keeping their content type and
// cache policy as object metadata.
type Bucket struct {
	client *minio.Client
	cfg    BucketConfig
}

// NewBucket creates a client for cfg. It does not contact the server.
func NewBucket(cfg BucketConfig) (*Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Bucket{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (b *Bucket) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", b.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.cfg.Bucket, minio.MakeBucketOptions{Region: b.cfg.Region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", b.cfg.Bucket, err)
	}
	return nil
}

// Key returns the object key for sitePath.
func (b *Bucket) Key(sitePath string) (string, error) {
	rel, err := cleanPath(sitePath)
	if err != nil {
		return "", err
	}
	prefix := strings.Trim(b.cfg.Prefix, "/")
	if prefix == "" {
		return rel, nil
	}
	return path.Join(prefix, rel), nil
}

func (b *Bucket) Put(ctx context.Context, sitePath string, img og.RasterImage) error {
	key, err := b.Key(sitePath)
	if err != nil {
		return err
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = og.ContentTypePNG
	}
	_, err = b.client.PutObject(ctx, b.cfg.Bucket, key, bytes.NewReader(img.Data), int64(len(img.Data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			CacheControl: img.CacheControl,
		})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", b.cfg.Bucket, key, err)
	}
	return nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
