// Package kv implements the storage backend on top of a flat key-value namespace.
//
// Key layout:
//
//	user:<username>                          password hash
//	playrecord:<username>:<source>+<id>      play record JSON
//	favorite:<username>:<source>+<id>        favorite JSON
//	searchhistory:<username>                 JSON array of search terms
//	skipconfig:<username>:<source>+<id>      skip config JSON
//	admin:config                             admin config JSON
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/erikbos/moontv-server/crypt"
	"github.com/erikbos/moontv-server/database/model"
)

// Namespace is a flat key-value store.
type Namespace interface {
	// Get returns the value of key, ok is false if the key does not exist.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put stores value under key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns all keys starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

const (
	userPrefix          = "user:"
	playRecordPrefix    = "playrecord:"
	favoritePrefix      = "favorite:"
	searchHistoryPrefix = "searchhistory:"
	skipConfigPrefix    = "skipconfig:"
	adminConfigKey      = "admin:config"
)

// Store maps all entities onto keys of a Namespace.
type Store struct {
	ns   Namespace
	kind model.StorageKind
}

// New returns a store on top of ns.
func New(kind model.StorageKind, ns Namespace) *Store {
	return &Store{ns: ns, kind: kind}
}

func (s *Store) Kind() model.StorageKind { return s.kind }

func (s *Store) Close() error { return s.ns.Close() }

func userKey(userName string) string { return userPrefix + userName }

func playRecordUserPrefix(userName string) string { return playRecordPrefix + userName + ":" }

func favoriteUserPrefix(userName string) string { return favoritePrefix + userName + ":" }

func skipConfigUserPrefix(userName string) string { return skipConfigPrefix + userName + ":" }

func searchHistoryKey(userName string) string { return searchHistoryPrefix + userName }

func (s *Store) GetPlayRecord(ctx context.Context, userName, key string) (*model.PlayRecord, error) {
	return getJSON[model.PlayRecord](ctx, s.ns, playRecordUserPrefix(userName)+key)
}

func (s *Store) SetPlayRecord(ctx context.Context, userName, key string, record *model.PlayRecord) error {
	return putJSON(ctx, s.ns, playRecordUserPrefix(userName)+key, record)
}

func (s *Store) GetAllPlayRecords(ctx context.Context, userName string) (map[string]*model.PlayRecord, error) {
	return getAllJSON[model.PlayRecord](ctx, s.ns, playRecordUserPrefix(userName))
}

func (s *Store) DeletePlayRecord(ctx context.Context, userName, key string) error {
	return s.ns.Delete(ctx, playRecordUserPrefix(userName)+key)
}

func (s *Store) GetFavorite(ctx context.Context, userName, key string) (*model.Favorite, error) {
	return getJSON[model.Favorite](ctx, s.ns, favoriteUserPrefix(userName)+key)
}

func (s *Store) SetFavorite(ctx context.Context, userName, key string, favorite *model.Favorite) error {
	return putJSON(ctx, s.ns, favoriteUserPrefix(userName)+key, favorite)
}

func (s *Store) GetAllFavorites(ctx context.Context, userName string) (map[string]*model.Favorite, error) {
	return getAllJSON[model.Favorite](ctx, s.ns, favoriteUserPrefix(userName))
}

func (s *Store) DeleteFavorite(ctx context.Context, userName, key string) error {
	return s.ns.Delete(ctx, favoriteUserPrefix(userName)+key)
}

func (s *Store) RegisterUser(ctx context.Context, userName, password string) error {
	hash, err := crypt.HashPassword(password)
	if err != nil {
		return err
	}
	return s.ns.Put(ctx, userKey(userName), []byte(hash))
}

func (s *Store) VerifyUser(ctx context.Context, userName, password string) (bool, error) {
	stored, ok, err := s.ns.Get(ctx, userKey(userName))
	if err != nil || !ok {
		return false, err
	}
	return crypt.VerifyPassword(password, string(stored)), nil
}

func (s *Store) CheckUserExist(ctx context.Context, userName string) (bool, error) {
	_, ok, err := s.ns.Get(ctx, userKey(userName))
	return ok, err
}

func (s *Store) ChangePassword(ctx context.Context, userName, newPassword string) error {
	exists, err := s.CheckUserExist(ctx, userName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("user %s: %w", userName, model.ErrNotFound)
	}
	return s.RegisterUser(ctx, userName, newPassword)
}

// DeleteUser removes the credential and all data of a user. It keeps going
// after a failed delete and returns all errors joined.
func (s *Store) DeleteUser(ctx context.Context, userName string) error {
	var errs []error
	del := func(key string) {
		if err := s.ns.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	del(userKey(userName))
	del(searchHistoryKey(userName))

	for _, prefix := range []string{
		playRecordUserPrefix(userName),
		favoriteUserPrefix(userName),
		skipConfigUserPrefix(userName),
	} {
		keys, err := s.ns.List(ctx, prefix)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s: %w", prefix, err))
			continue
		}
		for _, key := range keys {
			del(key)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) GetAllUsers(ctx context.Context) ([]string, error) {
	keys, err := s.ns.List(ctx, userPrefix)
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(keys))
	for _, key := range keys {
		users = append(users, strings.TrimPrefix(key, userPrefix))
	}
	return users, nil
}

func (s *Store) ExportableCredential(ctx context.Context, userName string) (string, bool, error) {
	stored, ok, err := s.ns.Get(ctx, userKey(userName))
	if err != nil || !ok {
		return "", false, err
	}
	return string(stored), true, nil
}

func (s *Store) RestoreCredential(ctx context.Context, userName, passwordHash string) error {
	return s.ns.Put(ctx, userKey(userName), []byte(passwordHash))
}

func (s *Store) GetSearchHistory(ctx context.Context, userName string) ([]string, error) {
	history, err := getJSON[[]string](ctx, s.ns, searchHistoryKey(userName))
	if err != nil {
		return nil, err
	}
	if history == nil {
		return []string{}, nil
	}
	return *history, nil
}

func (s *Store) AddSearchHistory(ctx context.Context, userName, keyword string) error {
	history, err := s.GetSearchHistory(ctx, userName)
	if err != nil {
		return err
	}
	history = model.PushSearchHistory(history, keyword)
	return putJSON(ctx, s.ns, searchHistoryKey(userName), history)
}

func (s *Store) DeleteSearchHistory(ctx context.Context, userName, keyword string) error {
	if keyword == "" {
		return s.ns.Delete(ctx, searchHistoryKey(userName))
	}
	history, err := s.GetSearchHistory(ctx, userName)
	if err != nil {
		return err
	}
	history = model.RemoveSearchHistory(history, keyword)
	return putJSON(ctx, s.ns, searchHistoryKey(userName), history)
}

func (s *Store) GetSkipConfig(ctx context.Context, userName, source, id string) (*model.SkipConfig, error) {
	return getJSON[model.SkipConfig](ctx, s.ns, skipConfigUserPrefix(userName)+model.SourceKey(source, id))
}

func (s *Store) SetSkipConfig(ctx context.Context, userName, source, id string, config *model.SkipConfig) error {
	return putJSON(ctx, s.ns, skipConfigUserPrefix(userName)+model.SourceKey(source, id), config)
}

func (s *Store) DeleteSkipConfig(ctx context.Context, userName, source, id string) error {
	return s.ns.Delete(ctx, skipConfigUserPrefix(userName)+model.SourceKey(source, id))
}

func (s *Store) GetAllSkipConfigs(ctx context.Context, userName string) (map[string]*model.SkipConfig, error) {
	return getAllJSON[model.SkipConfig](ctx, s.ns, skipConfigUserPrefix(userName))
}

func (s *Store) GetAdminConfig(ctx context.Context) (*model.AdminConfig, error) {
	return getJSON[model.AdminConfig](ctx, s.ns, adminConfigKey)
}

func (s *Store) SetAdminConfig(ctx context.Context, config *model.AdminConfig) error {
	return putJSON(ctx, s.ns, adminConfigKey, config)
}

// ClearAllData deletes every key in the namespaces this store writes.
func (s *Store) ClearAllData(ctx context.Context) error {
	var errs []error
	for _, prefix := range []string{
		userPrefix, playRecordPrefix, favoritePrefix,
		searchHistoryPrefix, skipConfigPrefix, adminConfigKey,
	} {
		keys, err := s.ns.List(ctx, prefix)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s: %w", prefix, err))
			continue
		}
		for _, key := range keys {
			if err := s.ns.Delete(ctx, key); err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
			}
		}
	}
	return errors.Join(errs...)
}

func getJSON[T any](ctx context.Context, ns Namespace, key string) (*T, error) {
	data, ok, err := ns.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

func putJSON(ctx context.Context, ns Namespace, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return ns.Put(ctx, key, data)
}

// getAllJSON lists keys by prefix and reads them one by one. The returned map
// is keyed by the remainder of the key after prefix.
func getAllJSON[T any](ctx context.Context, ns Namespace, prefix string) (map[string]*T, error) {
	keys, err := ns.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	result := make(map[string]*T, len(keys))
	for _, key := range keys {
		v, err := getJSON[T](ctx, ns, key)
		if err != nil {
			return nil, err
		}
		// deleted between list and get
		if v == nil {
			continue
		}
		result[strings.TrimPrefix(key, prefix)] = v
	}
	return result, nil
}
