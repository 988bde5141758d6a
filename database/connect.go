package database

import (
	"context"
	"fmt"

	"github.com/erikbos/moontv-server/database/kv"
	"github.com/erikbos/moontv-server/database/model"
	"github.com/erikbos/moontv-server/database/noop"
	"github.com/erikbos/moontv-server/database/redis"
	"github.com/erikbos/moontv-server/database/sqlstore"
)

var (
	_ Storage = (*noop.Store)(nil)
	_ Storage = (*kv.Store)(nil)
	_ Storage = (*redis.Store)(nil)
	_ Storage = (*sqlstore.Store)(nil)
)

// Config holds the storage configuration of all backends, only the
// section matching Kind is used.
type Config struct {
	Type     string              `mapstructure:"type"`
	SQLite   sqlstore.ConfigFile `mapstructure:"sqlite"`
	Postgres sqlstore.ConfigFile `mapstructure:"postgres"`
	Redis    redis.ConfigFile    `mapstructure:"redis"`
	S3       kv.S3Config         `mapstructure:"s3"`
	GCS      kv.GCSConfig        `mapstructure:"gcs"`
}

// Kind returns the configured storage kind.
func (c *Config) Kind() (model.StorageKind, error) {
	return model.ParseStorageKind(c.Type)
}

// NewConnector returns the connector for the configured kind. It returns a
// nil connector for kinds that store nothing server side.
func NewConnector(c *Config) (Connector, error) {
	kind, err := c.Kind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case model.KindDisabled, model.KindLocalStorage:
		return nil, nil
	case model.KindMemory:
		return func(context.Context) (Storage, error) {
			return kv.New(kind, kv.NewMemoryNamespace()), nil
		}, nil
	case model.KindS3:
		return func(ctx context.Context) (Storage, error) {
			ns, err := kv.NewS3Namespace(ctx, c.S3)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", model.ErrBackendUnavailable, err)
			}
			return kv.New(kind, ns), nil
		}, nil
	case model.KindGCS:
		return func(ctx context.Context) (Storage, error) {
			ns, err := kv.NewGCSNamespace(ctx, c.GCS)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", model.ErrBackendUnavailable, err)
			}
			return kv.New(kind, ns), nil
		}, nil
	case model.KindRedis:
		return func(ctx context.Context) (Storage, error) {
			s, err := redis.New(ctx, &c.Redis)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", model.ErrBackendUnavailable, err)
			}
			return s, nil
		}, nil
	case model.KindSQLite, model.KindPostgres:
		o := &c.SQLite
		if kind == model.KindPostgres {
			o = &c.Postgres
		}
		return func(ctx context.Context) (Storage, error) {
			s, err := sqlstore.New(ctx, kind, o)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", model.ErrBackendUnavailable, err)
			}
			return s, nil
		}, nil
	}
	return nil, fmt.Errorf("%w: storage kind %q", model.ErrUnsupported, kind)
}
