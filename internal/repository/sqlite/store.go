// Package sqlite implements the repository contracts on SQLite. It works
// against repository.DBTX so the same code serves the native and browser
// backends and runs inside migration transactions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gradebook/internal/errs"
	"gradebook/internal/model"
	"gradebook/internal/repository"
)

var metaColumns = []string{"id", "created_at", "updated_at", "version", "app_instance_id"}

type store struct {
	db         repository.DBTX
	flusher    repository.Flusher
	observer   repository.Observer
	instanceID string
	now        func() time.Time
	newID      func() string
}

type Option func(*store)

// WithFlusher makes every successful write call f.Flush.
func WithFlusher(f repository.Flusher) Option {
	return func(s *store) { s.flusher = f }
}

func WithObserver(o repository.Observer) Option {
	return func(s *store) { s.observer = o }
}

// WithInstanceID sets the instance tag written on new rows.
func WithInstanceID(id string) Option {
	return func(s *store) { s.instanceID = id }
}

func WithClock(now func() time.Time) Option {
	return func(s *store) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *store) { s.newID = gen }
}

func newStore(db repository.DBTX, opts ...Option) *store {
	s := &store{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSet builds all repositories over one connection or transaction.
func NewSet(db repository.DBTX, opts ...Option) repository.Set {
	s := newStore(db, opts...)
	return repository.Set{
		Schools:   &Schools{crud: newCrud(s, schoolTable)},
		Semesters: &Semesters{crud: newCrud(s, semesterTable)},
		Subjects:  &Subjects{crud: newCrud(s, subjectTable)},
		Exams:     &Exams{crud: newCrud(s, examTable)},
		Grades:    &Grades{crud: newCrud(s, gradeTable)},
	}
}

// flush runs after a write has already been applied, so a failure is
// reported as a persistence error rather than a failed write.
func (s *store) flush(ctx context.Context, op, entity, id string) error {
	if s.flusher == nil {
		return nil
	}
	if err := s.flusher.Flush(ctx); err != nil {
		return errs.Persistence(op, entity, id, err)
	}
	return nil
}

func (s *store) observe(entity, op string, start time.Time, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveOperation(entity, op, err, time.Since(start).Seconds())
}

// parentRef is a foreign key that must point at an existing row.
type parentRef struct {
	field string
	table string
	id    string
}

// table describes how one entity maps onto its SQL table.
type table[T any, P any] struct {
	name     string
	columns  []string
	sortable map[string]string
	meta     func(*T) *model.Meta
	dest     func(*T) []any
	args     func(*T) []any
	validate func(*T) error
	apply    func(P, *T)
	parents  func(*T) []parentRef
	// conflict rejects writes that would break a uniqueness rule. selfID is
	// empty on insert.
	conflict func(ctx context.Context, db repository.DBTX, e *T, selfID string) error
}

type crud[T any, P any] struct {
	s *store
	t table[T, P]
}

func newCrud[T any, P any](s *store, t table[T, P]) *crud[T, P] {
	return &crud[T, P]{s: s, t: t}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func metaDest(m *model.Meta) []any {
	return []any{&m.ID, timeDest{&m.CreatedAt}, timeDest{&m.UpdatedAt}, &m.Version, &m.AppInstanceID}
}

func (c *crud[T, P]) columnList(prefix string) string {
	return qualify(prefix, metaColumns) + ", " + qualify(prefix, c.t.columns)
}

func (c *crud[T, P]) scan(r rowScanner, extra ...any) (T, error) {
	var e T
	dest := append(metaDest(c.t.meta(&e)), c.t.dest(&e)...)
	dest = append(dest, extra...)
	err := r.Scan(dest...)
	return e, err
}

func (c *crud[T, P]) orderClause(order []repository.OrderBy) (string, error) {
	if len(order) == 0 {
		return " ORDER BY created_at, id", nil
	}
	parts := make([]string, 0, len(order)+1)
	for _, o := range order {
		col, ok := c.t.sortable[o.Field]
		if !ok {
			return "", errs.Validation(c.t.name, "order", fmt.Sprintf("cannot sort by %q", o.Field))
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// query runs SELECT with an optional WHERE clause and ordering.
func (c *crud[T, P]) query(ctx context.Context, where string, args []any, order []repository.OrderBy, tail string, tailArgs ...any) ([]T, error) {
	orderBy, err := c.orderClause(order)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + c.columnList("") + " FROM " + c.t.name
	if where != "" {
		q += " WHERE " + where
	}
	q += orderBy + tail

	rows, err := c.s.db.QueryContext(ctx, q, append(args, tailArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		e, err := c.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *crud[T, P]) FindAll(ctx context.Context, order ...repository.OrderBy) (items []T, err error) {
	start := time.Now()
	defer func() { c.s.observe(c.t.name, "find_all", start, err) }()
	items, err = c.query(ctx, "", nil, order, "")
	if err != nil {
		return nil, translate("find all", c.t.name, "", err)
	}
	return items, nil
}

func (c *crud[T, P]) List(ctx context.Context, pq repository.PageQuery, order ...repository.OrderBy) (*repository.PageResult[T], error) {
	start := time.Now()

	var total int
	if err := c.s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.t.name).Scan(&total); err != nil {
		c.s.observe(c.t.name, "list", start, err)
		return nil, translate("list", c.t.name, "", err)
	}

	limit := pq.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := pq.Offset
	if offset < 0 {
		offset = 0
	}
	items, err := c.query(ctx, "", nil, order, " LIMIT ? OFFSET ?", limit, offset)
	c.s.observe(c.t.name, "list", start, err)
	if err != nil {
		return nil, translate("list", c.t.name, "", err)
	}
	return &repository.PageResult[T]{Items: items, Total: total}, nil
}

func (c *crud[T, P]) FindByID(ctx context.Context, id string) (*T, error) {
	start := time.Now()
	e, err := c.findByID(ctx, c.s.db, id)
	c.s.observe(c.t.name, "find_by_id", start, err)
	return e, err
}

func (c *crud[T, P]) findByID(ctx context.Context, db repository.DBTX, id string) (*T, error) {
	q := "SELECT " + c.columnList("") + " FROM " + c.t.name + " WHERE id = ?"
	e, err := c.scan(db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("find", c.t.name, id, err)
	}
	return &e, nil
}

// checkRefs validates e and verifies its parents and uniqueness rules.
func (c *crud[T, P]) checkRefs(ctx context.Context, e *T, selfID string) error {
	if err := c.t.validate(e); err != nil {
		return err
	}
	if c.t.parents != nil {
		for _, p := range c.t.parents(e) {
			if p.id == "" {
				continue
			}
			var one int
			err := c.s.db.QueryRowContext(ctx, "SELECT 1 FROM "+p.table+" WHERE id = ?", p.id).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return errs.Validation(c.t.name, p.field, fmt.Sprintf("references missing %s %s", p.table, p.id))
			}
			if err != nil {
				return translate("check", p.table, p.id, err)
			}
		}
	}
	if c.t.conflict != nil {
		return c.t.conflict(ctx, c.s.db, e, selfID)
	}
	return nil
}

func (c *crud[T, P]) Add(ctx context.Context, entity *T) (out *T, err error) {
	start := time.Now()
	defer func() { c.s.observe(c.t.name, "add", start, err) }()

	if entity == nil {
		return nil, errs.Validation(c.t.name, "", "must not be nil")
	}
	if err := c.checkRefs(ctx, entity, ""); err != nil {
		return nil, err
	}

	row := *entity
	m := c.t.meta(&row)
	now := c.s.now().UTC()
	m.ID = c.s.newID()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.Version = 1
	m.AppInstanceID = c.s.instanceID

	cols := append(append([]string{}, metaColumns...), c.t.columns...)
	args := append([]any{m.ID, formatTime(m.CreatedAt), formatTime(m.UpdatedAt), m.Version, m.AppInstanceID}, c.t.args(&row)...)
	q := "INSERT INTO " + c.t.name + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders(len(cols)) + ")"
	if _, err := c.s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, translate("add", c.t.name, m.ID, err)
	}
	if err := c.s.flush(ctx, "add", c.t.name, m.ID); err != nil {
		return nil, err
	}
	return &row, nil
}

func (c *crud[T, P]) Update(ctx context.Context, id string, patch P) (out *T, err error) {
	start := time.Now()
	defer func() { c.s.observe(c.t.name, "update", start, err) }()

	row, err := c.findByID(ctx, c.s.db, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errs.NotFound("update", c.t.name, id)
	}

	c.t.apply(patch, row)
	if err := c.checkRefs(ctx, row, id); err != nil {
		return nil, err
	}
	m := c.t.meta(row)
	m.Touch(c.s.now().UTC())

	sets := make([]string, 0, len(c.t.columns)+2)
	for _, col := range c.t.columns {
		sets = append(sets, col+" = ?")
	}
	sets = append(sets, "updated_at = ?", "version = ?")
	args := append(c.t.args(row), formatTime(m.UpdatedAt), m.Version, id)

	q := "UPDATE " + c.t.name + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := c.s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, translate("update", c.t.name, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, errs.NotFound("update", c.t.name, id)
	}
	if err := c.s.flush(ctx, "update", c.t.name, id); err != nil {
		return nil, err
	}
	return row, nil
}

func (c *crud[T, P]) Delete(ctx context.Context, id string) (_ string, err error) {
	start := time.Now()
	defer func() { c.s.observe(c.t.name, "delete", start, err) }()

	res, err := c.s.db.ExecContext(ctx, "DELETE FROM "+c.t.name+" WHERE id = ?", id)
	if err != nil {
		return "", translate("delete", c.t.name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", translate("delete", c.t.name, id, err)
	}
	if n == 0 {
		return "", errs.NotFound("delete", c.t.name, id)
	}
	if err := c.s.flush(ctx, "delete", c.t.name, id); err != nil {
		return "", err
	}
	return id, nil
}
