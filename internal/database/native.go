package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"gradebook/internal/config"
	"gradebook/internal/logger"
)

const nativeDriver = "sqlite"

// newBackOff bounds how long opening waits on a locked database file.
var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

type nativeHandle struct {
	db   *sql.DB
	name string
	path string
}

// NativePath returns the database file for cfg: <DataDir>/<name>SQLite.db.
func NativePath(cfg config.StorageConfig) string {
	name := cfg.NativeName
	if name == "" {
		name = NativeDatabaseName
	}
	return filepath.Join(cfg.DataDir, name+"SQLite.db")
}

func nativeDSN(path string, busyTimeoutMs int) string {
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = 5000
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, busyTimeoutMs)
}

func openNative(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (Handle, error) {
	name := cfg.NativeName
	if name == "" {
		name = NativeDatabaseName
	}

	if err := nativeConns.closeStale(name); err != nil {
		if !errors.Is(err, errNoOpenConnections) {
			return nil, fmt.Errorf("close stale connection: %w", err)
		}
		log.Log(logger.Fields{
			"component": "database",
			"event":     "db_connection_check",
			"status":    "success",
			"msg":       "no open connections to close",
			"db_name":   name,
		})
	}

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	driverName, err := tracedDriver(nativeDriver)
	if err != nil {
		return nil, err
	}

	path := NativePath(cfg)
	db, err := sqlOpen(driverName, nativeDSN(path, cfg.BusyTimeoutMs))
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := pingWithRetry(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	nativeConns.register(name, db)
	return &nativeHandle{db: db, name: name, path: path}, nil
}

func pingWithRetry(ctx context.Context, db *sql.DB) error {
	op := func() error {
		err := db.PingContext(ctx)
		if err == nil || isBusy(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(op, backoff.WithContext(newBackOff(), ctx))
}

func isBusy(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code()&0xff == sqlite3lib.SQLITE_BUSY
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (h *nativeHandle) DB() *sql.DB { return h.db }

func (h *nativeHandle) Target() Target { return TargetNative }

func (h *nativeHandle) Flush(context.Context) error { return nil }

func (h *nativeHandle) Ping(ctx context.Context) error { return h.db.PingContext(ctx) }

func (h *nativeHandle) Snapshot(ctx context.Context) ([]byte, error) {
	return vacuumInto(ctx, h.db)
}

func (h *nativeHandle) Close() error {
	nativeConns.release(h.name, h.db)
	return h.db.Close()
}

// vacuumInto writes a compacted copy of db to a scratch file and returns
// its bytes.
func vacuumInto(ctx context.Context, db *sql.DB) ([]byte, error) {
	dir, err := os.MkdirTemp("", "gradebook-snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("snapshot temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return b, nil
}
