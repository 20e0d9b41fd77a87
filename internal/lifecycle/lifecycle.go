// Package lifecycle owns the process-wide storage handle. Initialization
// runs at most once at a time: concurrent callers share the in-flight
// attempt and its outcome, and a failed attempt leaves nothing behind so a
// later call can retry.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gradebook/internal/config"
	"gradebook/internal/database"
	"gradebook/internal/database/migration"
	"gradebook/internal/errs"
	"gradebook/internal/logger"
	"gradebook/internal/repository"
	"gradebook/internal/repository/sqlite"
)

// Opener constructs a backend. database.Open is the default.
type Opener func(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (database.Handle, error)

type Lifecycle struct {
	cfg         config.StorageConfig
	log         *logger.Logger
	open        Opener
	observer    repository.Observer
	migrateOpts []migration.Option

	group singleflight.Group

	mu         sync.RWMutex
	handle     database.Handle
	repos      repository.Set
	instanceID string
}

type Option func(*Lifecycle)

func WithOpener(open Opener) Option {
	return func(l *Lifecycle) { l.open = open }
}

func WithLogger(log *logger.Logger) Option {
	return func(l *Lifecycle) { l.log = log }
}

// WithObserver reports every repository operation to o.
func WithObserver(o repository.Observer) Option {
	return func(l *Lifecycle) { l.observer = o }
}

func WithMigrationOptions(opts ...migration.Option) Option {
	return func(l *Lifecycle) { l.migrateOpts = append(l.migrateOpts, opts...) }
}

func New(cfg config.StorageConfig, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		cfg:  cfg,
		log:  logger.Nop(),
		open: database.Open,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// InitializeStorage opens the backend, resolves the instance id, migrates
// the schema and builds the repositories. Once it has succeeded further
// calls return the same handle without side effects.
func (l *Lifecycle) InitializeStorage(ctx context.Context) (database.Handle, error) {
	if h := l.current(); h != nil {
		return h, nil
	}

	v, err, _ := l.group.Do("storage", func() (any, error) {
		if h := l.current(); h != nil {
			return h, nil
		}
		return l.initialize(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(database.Handle), nil
}

func (l *Lifecycle) current() database.Handle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.handle
}

func (l *Lifecycle) initialize(ctx context.Context) (database.Handle, error) {
	start := time.Now()
	target := database.DetectTarget(l.cfg.Target)

	h, err := l.open(ctx, l.cfg, l.log)
	if err != nil {
		if errs.KindOf(err) != errs.KindBackendConstruction {
			err = errs.BackendConstruction(string(target), err)
		}
		l.failed(start, "open", err)
		return nil, err
	}

	instanceID, err := database.ResolveInstanceID(ctx, h.DB(), l.cfg.InstanceID)
	if err != nil {
		_ = h.Close()
		err = errs.BackendConstruction(string(target), err)
		l.failed(start, "instance_id", err)
		return nil, err
	}

	opts := append([]migration.Option{
		migration.WithLogger(l.log),
		migration.WithInstanceID(instanceID),
	}, l.migrateOpts...)
	applied, err := migration.NewRunner(h, opts...).Run(ctx)
	if err != nil {
		_ = h.Close()
		l.failed(start, "migrate", err)
		return nil, err
	}
	// The runner only flushes when it applied something; the instance id
	// may still be new.
	if len(applied) == 0 {
		if err := h.Flush(ctx); err != nil {
			_ = h.Close()
			err = errs.BackendConstruction(string(target), err)
			l.failed(start, "flush", err)
			return nil, err
		}
	}

	repoOpts := []sqlite.Option{sqlite.WithInstanceID(instanceID)}
	if l.observer != nil {
		repoOpts = append(repoOpts, sqlite.WithObserver(l.observer))
	}
	if l.cfg.AutoSave {
		repoOpts = append(repoOpts, sqlite.WithFlusher(h))
	}
	repos := sqlite.NewSet(h.DB(), repoOpts...)

	l.mu.Lock()
	l.handle = h
	l.repos = repos
	l.instanceID = instanceID
	l.mu.Unlock()

	l.log.Log(logger.Fields{
		"component":       "lifecycle",
		"event":           "storage_initialized",
		"status":          "success",
		"target":          string(h.Target()),
		"app_instance_id": instanceID,
		"duration_ms":     time.Since(start).Milliseconds(),
	})
	return h, nil
}

func (l *Lifecycle) failed(start time.Time, step string, err error) {
	l.log.Log(logger.Fields{
		"component":     "lifecycle",
		"event":         "storage_init_failed",
		"status":        "error",
		"step":          step,
		"error_kind":    string(errs.KindOf(err)),
		"error_message": err.Error(),
		"duration_ms":   time.Since(start).Milliseconds(),
	})
}

// RevertMigrations undoes the newest steps migrations on a handle of its
// own and closes it again. It refuses to run while storage is initialized
// and returns the ids it reverted, newest first.
func (l *Lifecycle) RevertMigrations(ctx context.Context, steps int) ([]string, error) {
	if l.current() != nil {
		return nil, errs.Conflict("revert migrations", "storage", "", "storage is initialized")
	}
	target := database.DetectTarget(l.cfg.Target)
	h, err := l.open(ctx, l.cfg, l.log)
	if err != nil {
		if errs.KindOf(err) != errs.KindBackendConstruction {
			err = errs.BackendConstruction(string(target), err)
		}
		return nil, err
	}
	defer h.Close()

	opts := append([]migration.Option{migration.WithLogger(l.log)}, l.migrateOpts...)
	runner := migration.NewRunner(h, opts...)

	var reverted []string
	for i := 0; i < steps; i++ {
		id, err := runner.Revert(ctx)
		if err != nil {
			return reverted, err
		}
		if id == "" {
			break
		}
		reverted = append(reverted, id)
	}

	l.log.Log(logger.Fields{
		"component": "lifecycle",
		"event":     "migrations_reverted",
		"status":    "success",
		"target":    string(target),
		"reverted":  reverted,
	})
	return reverted, nil
}

// StorageHandle fails with a not-initialized error until InitializeStorage
// has succeeded.
func (l *Lifecycle) StorageHandle() (database.Handle, error) {
	if h := l.current(); h != nil {
		return h, nil
	}
	return nil, errs.NotInitialized("storage handle")
}

func (l *Lifecycle) Repositories() (repository.Set, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.handle == nil {
		return repository.Set{}, errs.NotInitialized("repositories")
	}
	return l.repos, nil
}

// InstanceID is empty before initialization.
func (l *Lifecycle) InstanceID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.instanceID
}

// Close releases the handle and returns the lifecycle to its
// uninitialized state.
func (l *Lifecycle) Close() error {
	l.mu.Lock()
	h := l.handle
	l.handle = nil
	l.repos = repository.Set{}
	l.instanceID = ""
	l.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Close()
}
