package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gymdesk/internal/adapters/storage"
)

// SQLiteBackend implements Backend on the kv table.
type SQLiteBackend struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteBackend creates a backend over a migrated database.
func NewSQLiteBackend(db storage.SQLDB) *SQLiteBackend {
	return &SQLiteBackend{db: db, now: time.Now}
}

// Read returns the stored value for key.
func (b *SQLiteBackend) Read(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Write upserts the value for key.
func (b *SQLiteBackend) Write(ctx context.Context, key, value string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, b.now().UTC().Format(time.RFC3339Nano))
	return err
}

// Delete removes key.
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}
