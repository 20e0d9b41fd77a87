package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const instanceKey = "app_instance_id"

// ResolveInstanceID returns the tag attributing rows to this install. A
// configured id wins and is persisted; otherwise the stored id is reused or
// a new one generated and stored.
func ResolveInstanceID(ctx context.Context, db *sql.DB, configured string) (string, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS app_meta (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
)`); err != nil {
		return "", fmt.Errorf("create app_meta: %w", err)
	}

	if configured != "" {
		if err := putMeta(ctx, db, instanceKey, configured); err != nil {
			return "", err
		}
		return configured, nil
	}

	var stored string
	err := db.QueryRowContext(ctx, "SELECT value FROM app_meta WHERE key = ?", instanceKey).Scan(&stored)
	switch {
	case err == nil:
		return stored, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("read instance id: %w", err)
	}

	id := uuid.NewString()
	if err := putMeta(ctx, db, instanceKey, id); err != nil {
		return "", err
	}
	return id, nil
}

func putMeta(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO app_meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}
