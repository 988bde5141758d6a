package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/erikbos/moontv-server/database/kv"
	"github.com/erikbos/moontv-server/database/model"
	"github.com/erikbos/moontv-server/database/noop"
)

func memoryConnector(calls *atomic.Int32) Connector {
	return func(context.Context) (Storage, error) {
		calls.Add(1)
		return kv.New(model.KindMemory, kv.NewMemoryNamespace()), nil
	}
}

func TestResolveConcurrentSingleInstance(t *testing.T) {
	var calls atomic.Int32
	m := New(&Options{Kind: model.KindMemory})
	m.Bind(memoryConnector(&calls))

	const n = 32
	results := make([]Storage, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = m.Resolve(context.Background())
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("connector called %d times, want 1", calls.Load())
	}
	for i, s := range results {
		if s != results[0] {
			t.Fatalf("result %d is a different instance", i)
		}
	}
	if _, ok := results[0].(*kv.Store); !ok {
		t.Fatalf("resolved %T, want *kv.Store", results[0])
	}
}

func TestUnboundServesNoopWithoutMemoizing(t *testing.T) {
	ctx := context.Background()
	m := New(&Options{Kind: model.KindRedis})

	if _, ok := m.Resolve(ctx).(*noop.Store); !ok {
		t.Fatalf("unbound manager did not resolve to noop")
	}
	if err := m.SavePlayRecord(ctx, "alice", "a", "1", &model.PlayRecord{Title: "T"}); err != nil {
		t.Fatalf("SavePlayRecord on unbound manager error = %v", err)
	}

	var calls atomic.Int32
	m.Bind(memoryConnector(&calls))
	if _, ok := m.Resolve(ctx).(*kv.Store); !ok {
		t.Fatalf("binding after first use did not take effect")
	}
}

func TestDisabledMemoizesNoop(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []model.StorageKind{model.KindDisabled, model.KindLocalStorage} {
		m := New(&Options{Kind: kind})
		var calls atomic.Int32
		m.Bind(memoryConnector(&calls))

		if _, ok := m.Resolve(ctx).(*noop.Store); !ok {
			t.Fatalf("%s manager did not resolve to noop", kind)
		}
		if calls.Load() != 0 {
			t.Fatalf("%s manager ran the connector", kind)
		}
		if err := m.ClearAllData(ctx); !errors.Is(err, model.ErrUnsupported) {
			t.Fatalf("ClearAllData on %s error = %v, want ErrUnsupported", kind, err)
		}
	}
}

func TestConnectorErrorRetried(t *testing.T) {
	ctx := context.Background()
	m := New(&Options{Kind: model.KindRedis})

	attempts := 0
	m.Bind(func(context.Context) (Storage, error) {
		attempts++
		if attempts == 1 {
			return nil, model.ErrBackendUnavailable
		}
		return kv.New(model.KindMemory, kv.NewMemoryNamespace()), nil
	})

	if _, ok := m.Resolve(ctx).(*noop.Store); !ok {
		t.Fatalf("failed connect did not degrade to noop")
	}
	if _, ok := m.Resolve(ctx).(*kv.Store); !ok {
		t.Fatalf("second resolve did not retry the connector")
	}
	m.Resolve(ctx)
	if attempts != 2 {
		t.Fatalf("connector ran %d times, want 2", attempts)
	}
}

func TestPing(t *testing.T) {
	ctx := context.Background()

	if err := New(&Options{Kind: model.KindLocalStorage}).Ping(ctx); err != nil {
		t.Fatalf("Ping localstorage error = %v", err)
	}

	m := New(&Options{Kind: model.KindRedis})
	if err := m.Ping(ctx); !errors.Is(err, model.ErrBackendUnavailable) {
		t.Fatalf("Ping unbound error = %v, want ErrBackendUnavailable", err)
	}
	var calls atomic.Int32
	m.Bind(memoryConnector(&calls))
	if err := m.Ping(ctx); err != nil {
		t.Fatalf("Ping bound error = %v", err)
	}
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	m := New(&Options{Kind: model.KindMemory})
	var calls atomic.Int32
	m.Bind(memoryConnector(&calls))

	record := &model.PlayRecord{Title: "T"}
	checks := map[string]error{
		"username with colon": m.SavePlayRecord(ctx, "a:b", "src", "1", record),
		"empty username":      m.SavePlayRecord(ctx, "", "src", "1", record),
		"source with plus":    m.SavePlayRecord(ctx, "alice", "s+rc", "1", record),
		"id with plus":        m.SaveFavorite(ctx, "alice", "src", "1+2", &model.Favorite{}),
		"empty id":            m.SetSkipConfig(ctx, "alice", "src", "", &model.SkipConfig{}),
		"nil record":          m.SavePlayRecord(ctx, "alice", "src", "1", nil),
		"empty keyword":       m.AddSearchHistory(ctx, "alice", "   "),
		"empty hash":          m.RestoreCredential(ctx, "alice", ""),
		"nil admin config":    m.SaveAdminConfig(ctx, nil),
	}
	for name, err := range checks {
		if !errors.Is(err, model.ErrMalformed) {
			t.Fatalf("%s: error = %v, want ErrMalformed", name, err)
		}
	}
}

func TestPassThrough(t *testing.T) {
	ctx := context.Background()
	m := New(&Options{Kind: model.KindMemory})
	var calls atomic.Int32
	m.Bind(memoryConnector(&calls))

	if err := m.SaveFavorite(ctx, "alice", "heimuer", "42", &model.Favorite{Title: "T"}); err != nil {
		t.Fatalf("SaveFavorite error = %v", err)
	}
	if ok, err := m.IsFavorited(ctx, "alice", "heimuer", "42"); err != nil || !ok {
		t.Fatalf("IsFavorited = %v, %v", ok, err)
	}
	if ok, _ := m.IsFavorited(ctx, "alice", "heimuer", "43"); ok {
		t.Fatalf("IsFavorited for unknown title = true")
	}
	all, err := m.GetAllFavorites(ctx, "alice")
	if err != nil || all[model.SourceKey("heimuer", "42")] == nil {
		t.Fatalf("GetAllFavorites = %v, %v", all, err)
	}

	if err := m.AddSearchHistory(ctx, "alice", "  spaced  "); err != nil {
		t.Fatalf("AddSearchHistory error = %v", err)
	}
	if h, _ := m.GetSearchHistory(ctx, "alice"); len(h) != 1 || h[0] != "spaced" {
		t.Fatalf("GetSearchHistory = %v", h)
	}

	if err := m.ClearAllData(ctx); err != nil {
		t.Fatalf("ClearAllData error = %v", err)
	}
	if ok, _ := m.IsFavorited(ctx, "alice", "heimuer", "42"); ok {
		t.Fatalf("favorite survived ClearAllData")
	}
}

func TestNewConnector(t *testing.T) {
	for _, typ := range []string{"disabled", "localstorage", ""} {
		c, err := NewConnector(&Config{Type: typ})
		if err != nil || c != nil {
			t.Fatalf("NewConnector(%q) error = %v, connector nil = %t, want nil connector", typ, err, c == nil)
		}
	}
	c, err := NewConnector(&Config{Type: "memory"})
	if err != nil || c == nil {
		t.Fatalf("NewConnector(memory) error = %v, connector nil = %t", err, c == nil)
	}
	s, err := c(context.Background())
	if err != nil || s.Kind() != model.KindMemory {
		t.Fatalf("memory connector = %v, %v", s, err)
	}

	c, err = NewConnector(&Config{Type: "sqlite"})
	if err != nil {
		t.Fatalf("NewConnector(sqlite) error = %v", err)
	}
	if _, err := c(context.Background()); !errors.Is(err, model.ErrBackendUnavailable) {
		t.Fatalf("sqlite connector without dsn error = %v, want ErrBackendUnavailable", err)
	}

	if _, err := NewConnector(&Config{Type: "cassandra"}); !errors.Is(err, model.ErrMalformed) {
		t.Fatalf("NewConnector(cassandra) error = %v", err)
	}
}
