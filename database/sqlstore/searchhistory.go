package sqlstore

import (
	"context"

	"github.com/erikbos/moontv-server/database/model"
)

// GetSearchHistory returns the search terms of a user, most recent first.
func (s *Store) GetSearchHistory(ctx context.Context, userName string) ([]string, error) {
	history := []string{}
	query := s.dbReadHandle.Rebind(`SELECT keyword FROM searchhistory WHERE username=? ORDER BY seq DESC`)
	if err := s.dbReadHandle.SelectContext(ctx, &history, query, userName); err != nil {
		return nil, err
	}
	return history, nil
}

// AddSearchHistory gives keyword the highest sequence number of the user and
// drops everything beyond the newest MaxSearchHistory terms.
func (s *Store) AddSearchHistory(ctx context.Context, userName, keyword string) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.GetContext(ctx, &seq,
		tx.Rebind(`SELECT COALESCE(MAX(seq), 0) + 1 FROM searchhistory WHERE username=?`), userName); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO searchhistory (username, keyword, seq) VALUES (?, ?, ?)
ON CONFLICT (username, keyword) DO UPDATE SET seq = excluded.seq`), userName, keyword, seq); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM searchhistory WHERE username=? AND seq NOT IN
(SELECT seq FROM searchhistory WHERE username=? ORDER BY seq DESC LIMIT ?)`),
		userName, userName, model.MaxSearchHistory); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteSearchHistory removes one keyword, or all keywords if keyword is empty.
func (s *Store) DeleteSearchHistory(ctx context.Context, userName, keyword string) error {
	query := `DELETE FROM searchhistory WHERE username=?`
	args := []any{userName}
	if keyword != "" {
		query += ` AND keyword=?`
		args = append(args, keyword)
	}
	_, err := s.dbWriteHandle.ExecContext(ctx, s.dbWriteHandle.Rebind(query), args...)
	return err
}
