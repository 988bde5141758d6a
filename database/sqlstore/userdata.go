package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erikbos/moontv-server/database/model"
)

const (
	playRecordTable = "playrecords"
	favoriteTable   = "favorites"
	skipConfigTable = "skipconfigs"
)

func (s *Store) GetPlayRecord(ctx context.Context, userName, key string) (*model.PlayRecord, error) {
	return getItem[model.PlayRecord](ctx, s, playRecordTable, userName, key)
}

func (s *Store) SetPlayRecord(ctx context.Context, userName, key string, record *model.PlayRecord) error {
	return s.upsertItem(ctx, playRecordTable, userName, key, record)
}

func (s *Store) GetAllPlayRecords(ctx context.Context, userName string) (map[string]*model.PlayRecord, error) {
	return getAllItems[model.PlayRecord](ctx, s, playRecordTable, userName)
}

func (s *Store) DeletePlayRecord(ctx context.Context, userName, key string) error {
	return s.deleteItem(ctx, playRecordTable, userName, key)
}

func (s *Store) GetFavorite(ctx context.Context, userName, key string) (*model.Favorite, error) {
	return getItem[model.Favorite](ctx, s, favoriteTable, userName, key)
}

func (s *Store) SetFavorite(ctx context.Context, userName, key string, favorite *model.Favorite) error {
	return s.upsertItem(ctx, favoriteTable, userName, key, favorite)
}

func (s *Store) GetAllFavorites(ctx context.Context, userName string) (map[string]*model.Favorite, error) {
	return getAllItems[model.Favorite](ctx, s, favoriteTable, userName)
}

func (s *Store) DeleteFavorite(ctx context.Context, userName, key string) error {
	return s.deleteItem(ctx, favoriteTable, userName, key)
}

func (s *Store) GetSkipConfig(ctx context.Context, userName, source, id string) (*model.SkipConfig, error) {
	return getItem[model.SkipConfig](ctx, s, skipConfigTable, userName, model.SourceKey(source, id))
}

func (s *Store) SetSkipConfig(ctx context.Context, userName, source, id string, config *model.SkipConfig) error {
	return s.upsertItem(ctx, skipConfigTable, userName, model.SourceKey(source, id), config)
}

func (s *Store) DeleteSkipConfig(ctx context.Context, userName, source, id string) error {
	return s.deleteItem(ctx, skipConfigTable, userName, model.SourceKey(source, id))
}

func (s *Store) GetAllSkipConfigs(ctx context.Context, userName string) (map[string]*model.SkipConfig, error) {
	return getAllItems[model.SkipConfig](ctx, s, skipConfigTable, userName)
}

// GetAdminConfig retrieves the site configuration.
func (s *Store) GetAdminConfig(ctx context.Context) (*model.AdminConfig, error) {
	return getJSON[model.AdminConfig](ctx, s.dbReadHandle, `SELECT data FROM adminconfig WHERE id=1`)
}

// SetAdminConfig upserts the site configuration.
func (s *Store) SetAdminConfig(ctx context.Context, config *model.AdminConfig) error {
	data, err := json.Marshal(config)
	if err != nil {
		return err
	}
	const query = `INSERT INTO adminconfig (id, data) VALUES (1, ?)
ON CONFLICT (id) DO UPDATE SET data = excluded.data`
	_, err = s.dbWriteHandle.ExecContext(ctx, s.dbWriteHandle.Rebind(query), string(data))
	return err
}

func getItem[T any](ctx context.Context, s *Store, table, userName, key string) (*T, error) {
	query := "SELECT data FROM " + table + " WHERE username=? AND itemkey=? LIMIT 1"
	return getJSON[T](ctx, s.dbReadHandle, query, userName, key)
}

func getAllItems[T any](ctx context.Context, s *Store, table, userName string) (map[string]*T, error) {
	var rows []struct {
		Key  string `db:"itemkey"`
		Data string `db:"data"`
	}
	query := s.dbReadHandle.Rebind("SELECT itemkey, data FROM " + table + " WHERE username=?")
	if err := s.dbReadHandle.SelectContext(ctx, &rows, query, userName); err != nil {
		return nil, err
	}
	result := make(map[string]*T, len(rows))
	for _, row := range rows {
		var v T
		if err := json.Unmarshal([]byte(row.Data), &v); err != nil {
			return nil, fmt.Errorf("decode %s %s/%s: %w", table, userName, row.Key, err)
		}
		result[row.Key] = &v
	}
	return result, nil
}

func (s *Store) upsertItem(ctx context.Context, table, userName, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	query := s.dbWriteHandle.Rebind("INSERT INTO " + table + ` (username, itemkey, data) VALUES (?, ?, ?)
ON CONFLICT (username, itemkey) DO UPDATE SET data = excluded.data`)
	_, err = s.dbWriteHandle.ExecContext(ctx, query, userName, key, string(data))
	return err
}

func (s *Store) deleteItem(ctx context.Context, table, userName, key string) error {
	query := s.dbWriteHandle.Rebind("DELETE FROM " + table + " WHERE username=? AND itemkey=?")
	_, err := s.dbWriteHandle.ExecContext(ctx, query, userName, key)
	return err
}
