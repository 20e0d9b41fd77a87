package database

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gradebook/internal/config"
	"gradebook/internal/errs"
)

// sqliteHeader starts every SQLite database file.
const sqliteHeader = "SQLite format 3\x00"

// Restore replaces the durable database selected by cfg with snapshot. It
// runs before the backend is opened: the native file is swapped in place and
// the browser blob is overwritten in the key-value file.
func Restore(ctx context.Context, cfg config.StorageConfig, snapshot []byte) error {
	if !bytes.HasPrefix(snapshot, []byte(sqliteHeader)) {
		return errs.Validation("snapshot", "", "not a SQLite database")
	}
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	switch target := DetectTarget(cfg.Target); target {
	case TargetNative:
		return restoreNative(cfg, snapshot)
	case TargetBrowser:
		return restoreVirtual(ctx, cfg, snapshot)
	default:
		return fmt.Errorf("restore: unknown target %q", target)
	}
}

func restoreNative(cfg config.StorageConfig, snapshot []byte) error {
	name := cfg.NativeName
	if name == "" {
		name = NativeDatabaseName
	}
	if nativeConns.has(name) {
		return errs.Conflict("restore", "database", name, "database is open")
	}

	path := NativePath(cfg)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".restore-*")
	if err != nil {
		return fmt.Errorf("restore temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(snapshot); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	// A leftover WAL would be replayed on top of the restored file.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", suffix, err)
		}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace database file: %w", err)
	}
	return nil
}

// rollbackJournal marks a database file as rollback-journal mode by
// resetting the file format versions at header offsets 18 and 19. The
// working copy of the browser backend runs without shared memory, so a
// WAL-mode snapshot taken on the native target is converted first.
func rollbackJournal(snapshot []byte) []byte {
	out := append([]byte(nil), snapshot...)
	if len(out) >= 20 {
		out[18], out[19] = 1, 1
	}
	return out
}

func restoreVirtual(ctx context.Context, cfg config.StorageConfig, snapshot []byte) error {
	snapshot = rollbackJournal(snapshot)
	kv, err := OpenKVStore(KVPath(cfg))
	if err != nil {
		return err
	}
	defer kv.Close()

	if err := kv.Put(ctx, storeKey(cfg), snapshot); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}
