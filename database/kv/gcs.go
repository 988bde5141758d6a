package kv

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig holds the settings of a Google Cloud Storage bucket.
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	ProjectID       string `mapstructure:"projectid"`
	CredentialsFile string `mapstructure:"credentialsfile"`
}

// GCSNamespace stores every key as an object in a GCS bucket.
type GCSNamespace struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewGCSNamespace connects to the bucket. The bucket is created if a
// project id is configured.
func NewGCSNamespace(ctx context.Context, cfg GCSConfig) (*GCSNamespace, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	n := &GCSNamespace{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
	}
	if _, err := n.bucket.Attrs(ctx); err != nil {
		if !errors.Is(err, storage.ErrBucketNotExist) || strings.TrimSpace(cfg.ProjectID) == "" {
			client.Close()
			return nil, err
		}
		if err := n.bucket.Create(ctx, cfg.ProjectID, nil); err != nil {
			client.Close()
			return nil, err
		}
	}
	return n, nil
}

func (n *GCSNamespace) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r, err := n.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (n *GCSNamespace) Put(ctx context.Context, key string, value []byte) error {
	w := n.bucket.Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (n *GCSNamespace) Delete(ctx context.Context, key string) error {
	err := n.bucket.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (n *GCSNamespace) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	it := n.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (n *GCSNamespace) Close() error { return n.client.Close() }
