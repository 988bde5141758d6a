// Package noop implements a storage backend that stores nothing.
package noop

import (
	"context"

	"github.com/erikbos/moontv-server/database/model"
)

// Store returns empty results for every read and discards every write.
type Store struct {
	kind model.StorageKind
}

// New returns a noop store that reports kind as its storage kind.
func New(kind model.StorageKind) *Store {
	return &Store{kind: kind}
}

func (s *Store) Kind() model.StorageKind { return s.kind }

func (s *Store) GetPlayRecord(context.Context, string, string) (*model.PlayRecord, error) {
	return nil, nil
}

func (s *Store) SetPlayRecord(context.Context, string, string, *model.PlayRecord) error {
	return nil
}

func (s *Store) GetAllPlayRecords(context.Context, string) (map[string]*model.PlayRecord, error) {
	return map[string]*model.PlayRecord{}, nil
}

func (s *Store) DeletePlayRecord(context.Context, string, string) error { return nil }

func (s *Store) GetFavorite(context.Context, string, string) (*model.Favorite, error) {
	return nil, nil
}

func (s *Store) SetFavorite(context.Context, string, string, *model.Favorite) error { return nil }

func (s *Store) GetAllFavorites(context.Context, string) (map[string]*model.Favorite, error) {
	return map[string]*model.Favorite{}, nil
}

func (s *Store) DeleteFavorite(context.Context, string, string) error { return nil }

func (s *Store) RegisterUser(context.Context, string, string) error { return nil }

func (s *Store) VerifyUser(context.Context, string, string) (bool, error) { return false, nil }

func (s *Store) CheckUserExist(context.Context, string) (bool, error) { return false, nil }

func (s *Store) ChangePassword(context.Context, string, string) error { return nil }

func (s *Store) DeleteUser(context.Context, string) error { return nil }

func (s *Store) GetAllUsers(context.Context) ([]string, error) { return []string{}, nil }

func (s *Store) ExportableCredential(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (s *Store) RestoreCredential(context.Context, string, string) error { return nil }

func (s *Store) GetSearchHistory(context.Context, string) ([]string, error) {
	return []string{}, nil
}

func (s *Store) AddSearchHistory(context.Context, string, string) error { return nil }

func (s *Store) DeleteSearchHistory(context.Context, string, string) error { return nil }

func (s *Store) GetSkipConfig(context.Context, string, string, string) (*model.SkipConfig, error) {
	return nil, nil
}

func (s *Store) SetSkipConfig(context.Context, string, string, string, *model.SkipConfig) error {
	return nil
}

func (s *Store) DeleteSkipConfig(context.Context, string, string, string) error { return nil }

func (s *Store) GetAllSkipConfigs(context.Context, string) (map[string]*model.SkipConfig, error) {
	return map[string]*model.SkipConfig{}, nil
}

func (s *Store) GetAdminConfig(context.Context) (*model.AdminConfig, error) { return nil, nil }

func (s *Store) SetAdminConfig(context.Context, *model.AdminConfig) error { return nil }

// ClearAllData is not supported, there is nothing to clear.
func (s *Store) ClearAllData(context.Context) error {
	return &model.UnsupportedError{Op: "clearAllData", Kind: s.kind}
}

func (s *Store) Close() error { return nil }
