package kv

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the settings of an S3 compatible bucket.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accesskey"`
	SecretKey string `mapstructure:"secretkey"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"usessl"`
}

// S3Namespace stores every key as an object in a bucket.
type S3Namespace struct {
	client *minio.Client
	bucket string
}

// NewS3Namespace connects to the bucket and creates it if it does not exist.
func NewS3Namespace(ctx context.Context, cfg S3Config) (*S3Namespace, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("s3 access key and secret key are required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	n := &S3Namespace{
		client: client,
		bucket: cfg.Bucket,
	}
	if err := n.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *S3Namespace) ensureBucket(ctx context.Context) error {
	exists, err := n.client.BucketExists(ctx, n.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return n.client.MakeBucket(ctx, n.bucket, minio.MakeBucketOptions{})
}

func (n *S3Namespace) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := n.client.GetObject(ctx, n.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	defer obj.Close()

	// GetObject is lazy, a missing key shows up on first read
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (n *S3Namespace) Put(ctx context.Context, key string, value []byte) error {
	_, err := n.client.PutObject(ctx, n.bucket, key, bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (n *S3Namespace) Delete(ctx context.Context, key string) error {
	return n.client.RemoveObject(ctx, n.bucket, key, minio.RemoveObjectOptions{})
}

func (n *S3Namespace) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	for obj := range n.client.ListObjects(ctx, n.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (n *S3Namespace) Close() error { return nil }
