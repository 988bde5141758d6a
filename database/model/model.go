package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrMalformed          = errors.New("malformed input")
	ErrUnsupported        = errors.New("operation not supported by this storage kind")
	ErrBackendUnavailable = errors.New("storage backend unavailable")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrForbidden          = errors.New("permission denied")
)

// UnsupportedError is returned when a backend cannot perform an operation.
// It matches ErrUnsupported with errors.Is.
type UnsupportedError struct {
	// Op is the name of the rejected operation, e.g. "clearAllData".
	Op string
	// Kind is the storage kind that rejected it.
	Kind StorageKind
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s (storage kind %q)", e.Op, ErrUnsupported, e.Kind)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// StorageKind selects the storage backend.
type StorageKind string

const (
	// KindDisabled turns server side storage off, all reads are empty.
	KindDisabled StorageKind = "disabled"
	// KindLocalStorage keeps user state in the client, the server stores nothing.
	KindLocalStorage StorageKind = "localstorage"
	// KindMemory stores everything in process memory.
	KindMemory StorageKind = "memory"
	// KindS3 is a key-value store on top of an S3 compatible bucket.
	KindS3 StorageKind = "s3"
	// KindGCS is a key-value store on top of a Google Cloud Storage bucket.
	KindGCS StorageKind = "gcs"
	// KindRedis uses a redis compatible server as database.
	KindRedis StorageKind = "redis"
	// KindSQLite stores data in a local sqlite file.
	KindSQLite StorageKind = "sqlite"
	// KindPostgres stores data in PostgreSQL.
	KindPostgres StorageKind = "postgres"
)

// ParseStorageKind maps a configured storage type onto a StorageKind.
// An empty value selects localstorage.
func ParseStorageKind(s string) (StorageKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "localstorage", "local":
		return KindLocalStorage, nil
	case "disabled", "none":
		return KindDisabled, nil
	case "memory":
		return KindMemory, nil
	case "s3", "minio":
		return KindS3, nil
	case "gcs":
		return KindGCS, nil
	// upstash and kvrocks speak the redis protocol
	case "redis", "upstash", "kvrocks":
		return KindRedis, nil
	case "sqlite":
		return KindSQLite, nil
	case "postgres", "postgresql":
		return KindPostgres, nil
	}
	return "", fmt.Errorf("%w: unknown storage kind %q", ErrMalformed, s)
}

// ServerSide returns true if the kind persists data in a server side store.
func (k StorageKind) ServerSide() bool {
	return k != KindDisabled && k != KindLocalStorage
}

// SourceKeySeparator joins source and id into a source key.
const SourceKeySeparator = "+"

// SourceKey returns the storage key for a (source, id) pair.
func SourceKey(source, id string) string {
	return source + SourceKeySeparator + id
}

// ParseSourceKey splits a source key into source and id.
func ParseSourceKey(key string) (source, id string, ok bool) {
	source, id, ok = strings.Cut(key, SourceKeySeparator)
	if !ok || source == "" || id == "" || strings.Contains(id, SourceKeySeparator) {
		return "", "", false
	}
	return source, id, true
}

// ValidSourceKeyPart returns true if s can be used as source or id in a source key.
func ValidSourceKeyPart(s string) bool {
	return s != "" && !strings.Contains(s, SourceKeySeparator)
}

// ValidUsername returns true if name can be used to namespace per-user keys.
func ValidUsername(name string) bool {
	return strings.TrimSpace(name) != "" && !strings.Contains(name, ":")
}

// MaxSearchHistory is the number of search terms kept per user.
const MaxSearchHistory = 20

// PushSearchHistory puts keyword in front of history, removing any earlier
// occurrence, and truncates the result to MaxSearchHistory entries.
func PushSearchHistory(history []string, keyword string) []string {
	result := make([]string, 0, min(len(history)+1, MaxSearchHistory))
	result = append(result, keyword)
	for _, k := range history {
		if len(result) == MaxSearchHistory {
			break
		}
		if k != keyword {
			result = append(result, k)
		}
	}
	return result
}

// RemoveSearchHistory returns history without keyword.
func RemoveSearchHistory(history []string, keyword string) []string {
	result := make([]string, 0, len(history))
	for _, k := range history {
		if k != keyword {
			result = append(result, k)
		}
	}
	return result
}
