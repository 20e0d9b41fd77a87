// Package database selects and constructs the SQLite backend the gradebook
// runs on. Callers only see Handle; the engine behind it is either a file
// database opened through modernc.org/sqlite or a WASM SQLite working copy
// whose bytes live in a key-value store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"gradebook/internal/config"
	"gradebook/internal/errs"
	"gradebook/internal/logger"
)

const (
	// NativeDatabaseName is the fixed name of the native database.
	NativeDatabaseName = "gradebook"
	// BrowserStoreKey is the fixed key holding the browser database blob.
	BrowserStoreKey = "gradebook.sqlite"
)

// Handle is an opened, pingable storage backend.
type Handle interface {
	DB() *sql.DB
	Target() Target
	// Flush persists pending state. It is a no-op for file backed databases.
	Flush(ctx context.Context) error
	Ping(ctx context.Context) error
	// Snapshot returns a consistent copy of the database file.
	Snapshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Factory constructs the backend for one target.
type Factory func(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (Handle, error)

var (
	backendsMu sync.RWMutex
	backends   = map[Target]Factory{}
)

// RegisterBackend makes a backend available to Open. A second registration
// for the same target replaces the first.
func RegisterBackend(target Target, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[target] = f
}

func init() {
	RegisterBackend(TargetNative, openNative)
	RegisterBackend(TargetBrowser, openVirtual)
}

var sqlOpen = sql.Open

// Open detects the target from cfg and the runtime and constructs its
// backend. Every failure is reported as a backend construction error.
func Open(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (Handle, error) {
	if log == nil {
		log = logger.Nop()
	}
	target := DetectTarget(cfg.Target)

	backendsMu.RLock()
	factory, ok := backends[target]
	backendsMu.RUnlock()
	if !ok {
		return nil, errs.BackendConstruction(string(target), fmt.Errorf("unknown target %q", target))
	}

	h, err := factory(ctx, cfg, log)
	if err != nil {
		log.Log(logger.Fields{
			"component":     "database",
			"event":         "db_open_failed",
			"status":        "error",
			"target":        string(target),
			"error_message": err.Error(),
		})
		return nil, errs.BackendConstruction(string(target), err)
	}

	log.Log(logger.Fields{
		"component": "database",
		"event":     "db_open",
		"status":    "success",
		"target":    string(target),
	})
	return h, nil
}

var (
	tracedMu      sync.Mutex
	tracedDrivers = map[string]string{}
)

// tracedDriver wraps driverName with otelsql once per process.
func tracedDriver(driverName string) (string, error) {
	tracedMu.Lock()
	defer tracedMu.Unlock()
	if name, ok := tracedDrivers[driverName]; ok {
		return name, nil
	}
	name, err := otelsql.Register(driverName, otelsql.WithAttributes(semconv.DBSystemSqlite))
	if err != nil {
		return "", fmt.Errorf("failed to register otelsql: %w", err)
	}
	tracedDrivers[driverName] = name
	return name, nil
}
