package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erikbos/moontv-server/crypt"
	"github.com/erikbos/moontv-server/database/model"
)

// RegisterUser upserts a user with a freshly hashed password.
func (s *Store) RegisterUser(ctx context.Context, userName, password string) error {
	hash, err := crypt.HashPassword(password)
	if err != nil {
		return err
	}
	return s.RestoreCredential(ctx, userName, hash)
}

// VerifyUser checks if the user exists and the password is correct.
func (s *Store) VerifyUser(ctx context.Context, userName, password string) (bool, error) {
	stored, ok, err := s.ExportableCredential(ctx, userName)
	if err != nil || !ok {
		return false, err
	}
	return crypt.VerifyPassword(password, stored), nil
}

func (s *Store) CheckUserExist(ctx context.Context, userName string) (bool, error) {
	_, ok, err := s.ExportableCredential(ctx, userName)
	return ok, err
}

// ChangePassword updates the password of an existing user.
func (s *Store) ChangePassword(ctx context.Context, userName, newPassword string) error {
	hash, err := crypt.HashPassword(newPassword)
	if err != nil {
		return err
	}
	const query = `UPDATE users SET password=? WHERE username=?`
	result, err := s.dbWriteHandle.ExecContext(ctx, s.dbWriteHandle.Rebind(query), hash, userName)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userName, model.ErrNotFound)
	}
	return nil
}

// DeleteUser removes a user and all data of the user in one transaction.
func (s *Store) DeleteUser(ctx context.Context, userName string) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"users", "playrecords", "favorites", "skipconfigs", "searchhistory"} {
		query := tx.Rebind("DELETE FROM " + table + " WHERE username=?")
		if _, err := tx.ExecContext(ctx, query, userName); err != nil {
			return fmt.Errorf("delete user %s from %s: %w", userName, table, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetAllUsers(ctx context.Context) ([]string, error) {
	users := []string{}
	const query = `SELECT username FROM users ORDER BY username`
	if err := s.dbReadHandle.SelectContext(ctx, &users, query); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) ExportableCredential(ctx context.Context, userName string) (string, bool, error) {
	var stored string
	const query = `SELECT password FROM users WHERE username=? LIMIT 1`
	err := s.dbReadHandle.GetContext(ctx, &stored, s.dbReadHandle.Rebind(query), userName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return stored, true, nil
}

// RestoreCredential upserts a user with an already hashed password.
func (s *Store) RestoreCredential(ctx context.Context, userName, passwordHash string) error {
	const query = `INSERT INTO users (username, password) VALUES (?, ?)
ON CONFLICT (username) DO UPDATE SET password = excluded.password`
	_, err := s.dbWriteHandle.ExecContext(ctx, s.dbWriteHandle.Rebind(query), userName, passwordHash)
	return err
}
