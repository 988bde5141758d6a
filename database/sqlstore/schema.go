package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// tables in the order they are cleared
var tables = []string{"playrecords", "favorites", "skipconfigs", "searchhistory", "users", "adminconfig"}

var commonSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
username TEXT NOT NULL PRIMARY KEY,
password TEXT NOT NULL);`,

	`CREATE TABLE IF NOT EXISTS playrecords (
username TEXT NOT NULL,
itemkey TEXT NOT NULL,
data TEXT NOT NULL,
PRIMARY KEY (username, itemkey));`,

	`CREATE TABLE IF NOT EXISTS favorites (
username TEXT NOT NULL,
itemkey TEXT NOT NULL,
data TEXT NOT NULL,
PRIMARY KEY (username, itemkey));`,

	`CREATE TABLE IF NOT EXISTS skipconfigs (
username TEXT NOT NULL,
itemkey TEXT NOT NULL,
data TEXT NOT NULL,
PRIMARY KEY (username, itemkey));`,

	`CREATE TABLE IF NOT EXISTS searchhistory (
username TEXT NOT NULL,
keyword TEXT NOT NULL,
seq BIGINT NOT NULL,
PRIMARY KEY (username, keyword));`,

	`CREATE INDEX IF NOT EXISTS searchhistory_seq_idx ON searchhistory (username, seq);`,

	`CREATE TABLE IF NOT EXISTS adminconfig (
id INTEGER NOT NULL PRIMARY KEY,
data TEXT NOT NULL);`,
}

var sqliteSchema = append([]string{
	// This is needed to improve concurrent reads and writes.
	`PRAGMA journal_mode = WAL;`,
}, commonSchema...)

var postgresSchema = commonSchema

func dbInitSchema(ctx context.Context, d *sqlx.DB, schema []string) error {
	for _, query := range schema {
		if _, err := d.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("dbInitSchema: %w", err)
		}
	}
	return nil
}
