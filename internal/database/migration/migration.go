// Package migration upgrades the gradebook schema. Migrations are ordered by
// timestamp, each applied in its own transaction and recorded in the
// migrations table so a second run is a no-op.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"gradebook/internal/errs"
	"gradebook/internal/logger"
	"gradebook/internal/repository"
	"gradebook/internal/repository/sqlite"
)

const historyTable = `CREATE TABLE IF NOT EXISTS migrations (
  id        INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp INTEGER NOT NULL,
  name      TEXT    NOT NULL UNIQUE
)`

// SeedEnv is what a seeding step may depend on besides the repositories.
type SeedEnv struct {
	Now        time.Time
	InstanceID string
}

// SeedFunc inserts default rows through the repositories bound to the
// migration's transaction.
type SeedFunc func(ctx context.Context, repos repository.Set, env SeedEnv) error

type Migration struct {
	Timestamp int64
	Name      string
	Up        []string
	Down      []string
	Seed      SeedFunc
}

// ID is the identifier recorded in the history table, e.g. InitialSchema1700000000000.
func (m Migration) ID() string {
	return fmt.Sprintf("%s%d", m.Name, m.Timestamp)
}

// Store is the part of a database handle the runner needs.
type Store interface {
	DB() *sql.DB
	Flush(ctx context.Context) error
}

type Runner struct {
	store      Store
	migrations []Migration
	log        *logger.Component
	now        func() time.Time
	instanceID string
}

type Option func(*Runner)

// WithMigrations replaces the default migration list.
func WithMigrations(ms ...Migration) Option {
	return func(r *Runner) { r.migrations = ms }
}

func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l.With("database") }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithInstanceID tags rows created by seeding steps.
func WithInstanceID(id string) Option {
	return func(r *Runner) { r.instanceID = id }
}

func NewRunner(store Store, opts ...Option) *Runner {
	r := &Runner{
		store:      store,
		migrations: Defaults(),
		log:        logger.Nop().With("database"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	sorted := append([]Migration(nil), r.migrations...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })
	r.migrations = sorted
	return r
}

// Applied lists applied migration ids in the order they were applied.
func (r *Runner) Applied(ctx context.Context) ([]string, error) {
	db := r.store.DB()
	if _, err := db.ExecContext(ctx, historyTable); err != nil {
		return nil, errs.Migration("history", err)
	}
	return appliedIDs(ctx, db)
}

func appliedIDs(ctx context.Context, db repository.DBTX) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM migrations ORDER BY timestamp, id")
	if err != nil {
		return nil, errs.Migration("history", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Migration("history", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Migration("history", err)
	}
	return ids, nil
}

// Run applies every pending migration and returns the ids it applied. On
// failure the failing migration is rolled back, the run stops and the
// history keeps only the migrations committed before it.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	start := time.Now()
	db := r.store.DB()

	r.log.Log(logger.Fields{
		"event":  "db_migration_check",
		"status": "starting",
	})

	if _, err := db.ExecContext(ctx, historyTable); err != nil {
		r.fail(start, "history", err)
		return nil, errs.Migration("history", err)
	}
	done, err := appliedIDs(ctx, db)
	if err != nil {
		r.fail(start, "history", err)
		return nil, err
	}
	seen := make(map[string]bool, len(done))
	for _, id := range done {
		seen[id] = true
	}

	pending := make([]Migration, 0, len(r.migrations))
	for _, m := range r.migrations {
		if !seen[m.ID()] {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		r.log.Log(logger.Fields{
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema is up to date, skipping migration",
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return []string{}, nil
	}

	r.log.Log(logger.Fields{
		"event":   "db_migration_start",
		"status":  "in_progress",
		"pending": len(pending),
	})

	applied := make([]string, 0, len(pending))
	for _, m := range pending {
		stepStart := time.Now()
		if err := r.apply(ctx, db, m); err != nil {
			r.log.Log(logger.Fields{
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   m.ID(),
				"error_message":    err.Error(),
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return applied, errs.Migration(m.ID(), err)
		}
		applied = append(applied, m.ID())
		r.log.Log(logger.Fields{
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   m.ID(),
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	if err := r.store.Flush(ctx); err != nil {
		r.fail(start, "flush", err)
		return applied, fmt.Errorf("flush after migration: %w", err)
	}

	r.log.Log(logger.Fields{
		"event":       "db_migration_success",
		"status":      "success",
		"applied":     applied,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return applied, nil
}

func (r *Runner) apply(ctx context.Context, db *sql.DB, m Migration) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range m.Up {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	if m.Seed != nil {
		now := r.now().UTC()
		repos := sqlite.NewSet(tx,
			sqlite.WithInstanceID(r.instanceID),
			sqlite.WithClock(func() time.Time { return now }),
		)
		if err := m.Seed(ctx, repos, SeedEnv{Now: now, InstanceID: r.instanceID}); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (timestamp, name) VALUES (?, ?)", m.Timestamp, m.ID()); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Revert undoes the most recently applied migration with its Down
// statements and returns its id. It returns "" when nothing is applied.
// Foreign keys are switched off on the pinned connection while tables are
// rebuilt and checked again before commit.
func (r *Runner) Revert(ctx context.Context) (string, error) {
	start := time.Now()
	db := r.store.DB()

	if _, err := db.ExecContext(ctx, historyTable); err != nil {
		return "", errs.Migration("history", err)
	}
	done, err := appliedIDs(ctx, db)
	if err != nil {
		return "", err
	}
	if len(done) == 0 {
		return "", nil
	}
	last := done[len(done)-1]

	var target *Migration
	for i := range r.migrations {
		if r.migrations[i].ID() == last {
			target = &r.migrations[i]
			break
		}
	}
	if target == nil {
		return "", errs.Migration(last, fmt.Errorf("no migration registered under this id"))
	}

	if err := r.revert(ctx, db, *target); err != nil {
		r.log.Log(logger.Fields{
			"event":          "db_migration_revert_failed",
			"status":         "error",
			"migration_step": last,
			"error_message":  err.Error(),
		})
		return "", errs.Migration(last, err)
	}
	if err := r.store.Flush(ctx); err != nil {
		return last, fmt.Errorf("flush after revert: %w", err)
	}

	r.log.Log(logger.Fields{
		"event":          "db_migration_revert",
		"status":         "success",
		"migration_step": last,
		"duration_ms":    time.Since(start).Milliseconds(),
	})
	return last, nil
}

func (r *Runner) revert(ctx context.Context, db *sql.DB, m Migration) (err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, ferr := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); ferr != nil && err == nil {
			err = fmt.Errorf("enable foreign keys: %w", ferr)
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range m.Down {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("down statement %d: %w", i+1, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM migrations WHERE name = ?", m.ID()); err != nil {
		return fmt.Errorf("remove history: %w", err)
	}
	if err := checkForeignKeys(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		return fmt.Errorf("foreign key check: violations after revert")
	}
	return rows.Err()
}

func (r *Runner) fail(start time.Time, step string, err error) {
	r.log.Log(logger.Fields{
		"event":          "db_migration_failed",
		"status":         "error",
		"migration_step": step,
		"error_message":  err.Error(),
		"duration_ms":    time.Since(start).Milliseconds(),
	})
}
