package clients

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
}

// S3Client is the alternative storage backend for billets and exports
// when the terminal should not keep files on local disk.
type S3Client struct {
	raw    *minio.Client
	bucket string
	prefix string
	urlTTL time.Duration
}

func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &S3Client{
		raw:    client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		urlTTL: 30 * time.Minute,
	}, nil
}

// Upload stores data under the configured prefix and returns the object key.
func (c *S3Client) Upload(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	if c.raw == nil {
		return "", fmt.Errorf("s3 client is nil")
	}

	key := c.prefix + fileName

	reader := bytes.NewReader(data)
	size := int64(len(data))

	_, err := c.raw.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q failed: %w", key, err)
	}

	return key, nil
}

// Save stores an export spreadsheet; it mirrors StorageClient.Save so the
// export pipeline can use either backend.
func (c *S3Client) Save(ctx context.Context, fileName string, data []byte) (string, error) {
	return c.Upload(ctx, fileName, data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// SaveBillet stores a billet PDF and returns the key plus a presigned URL.
func (c *S3Client) SaveBillet(ctx context.Context, fileName string, pdf []byte) (string, string, error) {
	key, err := c.Upload(ctx, fileName, pdf, "application/pdf")
	if err != nil {
		return "", "", err
	}
	url, err := c.GetTemporaryURL(ctx, key, c.urlTTL)
	if err != nil {
		return "", "", err
	}
	return key, url, nil
}

// GetURL returns a presigned URL for the object; errors degrade to an
// empty string so callers can fall back to re-requesting later.
func (c *S3Client) GetURL(key string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url, err := c.GetTemporaryURL(ctx, key, c.urlTTL)
	if err != nil {
		return ""
	}
	return url
}

func (c *S3Client) GetTemporaryURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if c.raw == nil {
		return "", fmt.Errorf("s3 client is nil")
	}

	u, err := c.raw.PresignedGetObject(ctx, c.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign get object %q failed: %w", key, err)
	}

	return u.String(), nil
}
