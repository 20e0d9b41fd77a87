package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"gradebook/internal/config"
	"gradebook/internal/logger"
)

const virtualDriver = "sqlite3"

func init() {
	setupWASMCache()
}

// setupWASMCache keeps compiled SQLite WASM in the user cache directory so
// only the first start pays for compilation.
func setupWASMCache() {
	var cache wazero.CompilationCache
	if dir, err := os.UserCacheDir(); err == nil {
		if c, err := wazero.NewCompilationCacheWithDir(filepath.Join(dir, "gradebook", "wasm")); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
}

// virtualHandle runs SQLite compiled to WASM on a scratch working copy.
// The durable state is the blob stored under key in kv; Flush replaces it.
type virtualHandle struct {
	db      *sql.DB
	kv      *KVStore
	key     string
	scratch string

	mu sync.Mutex
}

func openVirtual(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (Handle, error) {
	key := storeKey(cfg)
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	kv, err := OpenKVStore(KVPath(cfg))
	if err != nil {
		return nil, err
	}

	h, err := newVirtualHandle(ctx, kv, key, cfg.BusyTimeoutMs)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	log.Log(logger.Fields{
		"component": "database",
		"event":     "db_virtual_loaded",
		"status":    "success",
		"store_key": key,
	})
	return h, nil
}

// KVPath returns the key-value file holding the browser database blob.
func KVPath(cfg config.StorageConfig) string {
	kvFile := cfg.KVFile
	if kvFile == "" {
		kvFile = "gradebook.kv"
	}
	return filepath.Join(cfg.DataDir, kvFile)
}

func storeKey(cfg config.StorageConfig) string {
	if cfg.StoreKey == "" {
		return BrowserStoreKey
	}
	return cfg.StoreKey
}

func newVirtualHandle(ctx context.Context, kv *KVStore, key string, busyTimeoutMs int) (*virtualHandle, error) {
	blob, err := kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load stored database: %w", err)
	}

	scratch, err := os.MkdirTemp("", "gradebook-virtual-*")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	path := filepath.Join(scratch, "working.db")
	if len(blob) > 0 {
		if err := os.WriteFile(path, blob, 0o600); err != nil {
			_ = os.RemoveAll(scratch)
			return nil, fmt.Errorf("restore stored database: %w", err)
		}
	}

	driverName, err := tracedDriver(virtualDriver)
	if err != nil {
		_ = os.RemoveAll(scratch)
		return nil, err
	}
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", path, busyTimeoutMs)
	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		_ = os.RemoveAll(scratch)
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = os.RemoveAll(scratch)
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return &virtualHandle{db: db, kv: kv, key: key, scratch: scratch}, nil
}

func (h *virtualHandle) DB() *sql.DB { return h.db }

func (h *virtualHandle) Target() Target { return TargetBrowser }

func (h *virtualHandle) Ping(ctx context.Context) error { return h.db.PingContext(ctx) }

func (h *virtualHandle) Snapshot(ctx context.Context) ([]byte, error) {
	return vacuumInto(ctx, h.db)
}

// Flush serializes the working copy and stores it under the handle's key.
func (h *virtualHandle) Flush(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	blob, err := vacuumInto(ctx, h.db)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := h.kv.Put(ctx, h.key, blob); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (h *virtualHandle) Close() error {
	dbErr := h.db.Close()
	kvErr := h.kv.Close()
	_ = os.RemoveAll(h.scratch)
	if dbErr != nil {
		return dbErr
	}
	return kvErr
}
