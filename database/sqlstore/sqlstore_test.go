package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/erikbos/moontv-server/database"
	"github.com/erikbos/moontv-server/database/model"
	"github.com/erikbos/moontv-server/database/sqlstore"
	"github.com/erikbos/moontv-server/database/storagetest"
)

func newSQLite(t *testing.T, dsn string) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.New(context.Background(), model.KindSQLite, &sqlstore.ConfigFile{DSN: dsn})
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	return s
}

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) database.Storage {
		return newSQLite(t, filepath.Join(t.TempDir(), "moontv.db"))
	})
}

func TestSQLitePersists(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "moontv.db")

	s := newSQLite(t, dsn)
	if err := s.RegisterUser(ctx, "alice", "pw"); err != nil {
		t.Fatalf("RegisterUser error = %v", err)
	}
	if err := s.SetAdminConfig(ctx, storagetest.AdminConfig()); err != nil {
		t.Fatalf("SetAdminConfig error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}

	// reopening runs the schema statements again
	s = newSQLite(t, dsn)
	defer s.Close()
	if ok, _ := s.VerifyUser(ctx, "alice", "pw"); !ok {
		t.Fatalf("user lost after reopen")
	}
	if cfg, _ := s.GetAdminConfig(ctx); cfg == nil || cfg.SiteConfig.SiteName != "MoonTV" {
		t.Fatalf("admin config lost after reopen: %+v", cfg)
	}
}

func TestNewRejectsInMemorySQLite(t *testing.T) {
	for _, dsn := range []string{":memory:", "file::memory:?cache=shared", "file:test.db?mode=memory"} {
		_, err := sqlstore.New(context.Background(), model.KindSQLite, &sqlstore.ConfigFile{DSN: dsn})
		if !errors.Is(err, model.ErrMalformed) {
			t.Fatalf("New(%q) error = %v, want ErrMalformed", dsn, err)
		}
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := sqlstore.New(context.Background(), model.KindSQLite, &sqlstore.ConfigFile{}); err == nil {
		t.Fatalf("New without dsn error = nil")
	}
	if _, err := sqlstore.New(context.Background(), model.KindRedis, &sqlstore.ConfigFile{DSN: "x"}); err == nil {
		t.Fatalf("New with redis kind error = nil")
	}
}
