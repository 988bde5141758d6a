package model

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestSourceKeyInverse(t *testing.T) {
	pairs := [][2]string{
		{"heimuer", "12345"},
		{"a", "b"},
		{"ffzy", "abc-def_01"},
		{"source with space", "id:with:colons"},
	}
	seen := map[string]bool{}
	for _, p := range pairs {
		key := SourceKey(p[0], p[1])
		if seen[key] {
			t.Fatalf("SourceKey(%q, %q) = %q collides", p[0], p[1], key)
		}
		seen[key] = true

		source, id, ok := ParseSourceKey(key)
		if !ok || source != p[0] || id != p[1] {
			t.Fatalf("ParseSourceKey(%q) = %q, %q, %v", key, source, id, ok)
		}
	}
}

func TestParseSourceKeyInvalid(t *testing.T) {
	for _, key := range []string{"", "+", "a+", "+b", "noseparator", "a+b+c"} {
		if _, _, ok := ParseSourceKey(key); ok {
			t.Fatalf("ParseSourceKey(%q) ok = true, want false", key)
		}
	}
}

func TestValidUsername(t *testing.T) {
	if !ValidUsername("alice") {
		t.Fatalf("ValidUsername(alice) = false")
	}
	for _, name := range []string{"", "  ", "a:b"} {
		if ValidUsername(name) {
			t.Fatalf("ValidUsername(%q) = true", name)
		}
	}
}

func TestPushSearchHistory(t *testing.T) {
	var history []string
	for i := range 25 {
		history = PushSearchHistory(history, fmt.Sprintf("q%d", i))
	}
	if len(history) != MaxSearchHistory {
		t.Fatalf("len(history) = %d, want %d", len(history), MaxSearchHistory)
	}
	if history[0] != "q24" || history[19] != "q5" {
		t.Fatalf("history = %v, want q24..q5", history)
	}

	history = PushSearchHistory(history, "q10")
	if history[0] != "q10" {
		t.Fatalf("history[0] = %q, want q10", history[0])
	}
	if len(history) != MaxSearchHistory {
		t.Fatalf("len(history) after re-insert = %d", len(history))
	}
	count := 0
	for _, k := range history {
		if k == "q10" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("q10 present %d times, want 1", count)
	}

	history = RemoveSearchHistory(history, "q10")
	if slices.Contains(history, "q10") {
		t.Fatalf("q10 still present after remove")
	}
}

func TestParseStorageKind(t *testing.T) {
	tests := map[string]StorageKind{
		"":             KindLocalStorage,
		"localstorage": KindLocalStorage,
		"upstash":      KindRedis,
		"Redis":        KindRedis,
		"s3":           KindS3,
		"gcs":          KindGCS,
		"sqlite":       KindSQLite,
		"postgres":     KindPostgres,
		"memory":       KindMemory,
		"disabled":     KindDisabled,
	}
	for in, want := range tests {
		got, err := ParseStorageKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseStorageKind(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseStorageKind("cassandra"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("ParseStorageKind(cassandra) error = %v, want ErrMalformed", err)
	}
	if KindLocalStorage.ServerSide() || KindDisabled.ServerSide() || !KindRedis.ServerSide() {
		t.Fatalf("ServerSide classification wrong")
	}
}

func TestUnsupportedError(t *testing.T) {
	var err error = fmt.Errorf("clear: %w", &UnsupportedError{Op: "clearAllData", Kind: KindDisabled})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("errors.Is(ErrUnsupported) = false")
	}
	var ue *UnsupportedError
	if !errors.As(err, &ue) || ue.Op != "clearAllData" || ue.Kind != KindDisabled {
		t.Fatalf("errors.As = %+v", ue)
	}
}
