package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"gradebook/internal/errs"
	"gradebook/internal/model"
	"gradebook/internal/repository"
	"gradebook/internal/repository/sqlite"
)

type testStore struct {
	db      *sql.DB
	flushes int
}

func (s *testStore) DB() *sql.DB { return s.db }

func (s *testStore) Flush(context.Context) error {
	s.flushes++
	return nil
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migration.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return &testStore{db: db}
}

var fixedNow = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

func newRunner(store Store, opts ...Option) *Runner {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithInstanceID("inst-1"),
	}
	return NewRunner(store, append(base, opts...)...)
}

func schemaDump(t *testing.T, db *sql.DB) string {
	t.Helper()
	rows, err := db.Query("SELECT name, COALESCE(sql, '') FROM sqlite_master ORDER BY type, name")
	require.NoError(t, err)
	defer rows.Close()
	var b strings.Builder
	for rows.Next() {
		var name, stmt string
		require.NoError(t, rows.Scan(&name, &stmt))
		b.WriteString(name + ": " + stmt + "\n")
	}
	require.NoError(t, rows.Err())
	return b.String()
}

func columns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var c string
		require.NoError(t, rows.Scan(&c))
		cols = append(cols, c)
	}
	return cols
}

func count(t *testing.T, db *sql.DB, q string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(q).Scan(&n))
	return n
}

func TestMigrationID(t *testing.T) {
	assert.Equal(t, "InitialSchema1700000000000", initialSchema.ID())
	ids := make([]string, 0)
	for _, m := range Defaults() {
		ids = append(ids, m.ID())
	}
	assert.Equal(t, []string{
		"InitialSchema1700000000000",
		"AddSemester1705000000000",
		"AddExamDescriptionGradeComment1710000000000",
		"DropExamCompletedFlag1715000000000",
	}, ids)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newRunner(store)

	applied, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 4)
	assert.Equal(t, 1, store.flushes)

	assert.Contains(t, columns(t, store.db, "exam"), "description")
	assert.NotContains(t, columns(t, store.db, "exam"), "is_completed")
	assert.Contains(t, columns(t, store.db, "subject"), "semester_id")
	assert.Contains(t, columns(t, store.db, "grade"), "comment")

	var name, instance string
	require.NoError(t, store.db.QueryRow("SELECT name, app_instance_id FROM semester").Scan(&name, &instance))
	assert.Equal(t, "2026/2027", name)
	assert.Equal(t, "inst-1", instance)

	schemaBefore := schemaDump(t, store.db)
	historyBefore, err := r.Applied(ctx)
	require.NoError(t, err)

	again, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 1, store.flushes)

	historyAfter, err := r.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, historyBefore, historyAfter)
	assert.Equal(t, schemaBefore, schemaDump(t, store.db))
	assert.Equal(t, 1, count(t, store.db, "SELECT count(*) FROM semester"))
}

func TestRunStopsAtFailingMigration(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	good := Migration{Timestamp: 1, Name: "Good", Up: []string{`CREATE TABLE good (id INTEGER)`}}
	bad := Migration{Timestamp: 2, Name: "Bad", Up: []string{
		`CREATE TABLE partial (id INTEGER)`,
		`CREATE TABLE broken (`,
	}}
	later := Migration{Timestamp: 3, Name: "Later", Up: []string{`CREATE TABLE later (id INTEGER)`}}

	r := newRunner(store, WithMigrations(later, bad, good))
	applied, err := r.Run(ctx)

	assert.Equal(t, []string{"Good1"}, applied)
	assert.ErrorIs(t, err, errs.ErrMigration)
	assert.Contains(t, err.Error(), "Bad2")
	assert.Equal(t, 0, store.flushes)

	history, err := r.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Good1"}, history)
	assert.Equal(t, 0, count(t, store.db, "SELECT count(*) FROM sqlite_master WHERE name IN ('partial', 'later')"))
}

func TestRunSeedFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seeded := Migration{
		Timestamp: 1,
		Name:      "Seeded",
		Up:        []string{`CREATE TABLE seeded (id INTEGER)`},
		Seed: func(context.Context, repository.Set, SeedEnv) error {
			return errors.New("seed exploded")
		},
	}

	_, err := newRunner(store, WithMigrations(seeded)).Run(ctx)
	assert.Equal(t, errs.KindMigration, errs.KindOf(err))
	assert.Contains(t, err.Error(), "seed exploded")
	assert.Equal(t, 0, count(t, store.db, "SELECT count(*) FROM sqlite_master WHERE name = 'seeded'"))
}

func TestRevertAndReapply(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newRunner(store)

	_, err := r.Run(ctx)
	require.NoError(t, err)

	repos := sqlite.NewSet(store.db)
	semesters, err := repos.Semesters.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, semesters, 1)
	school, err := repos.Schools.Add(ctx, &model.School{Name: "Gymnasium"})
	require.NoError(t, err)
	subject, err := repos.Subjects.Add(ctx, &model.Subject{Name: "Englisch", SchoolID: school.ID, SemesterID: semesters[0].ID})
	require.NoError(t, err)
	exam, err := repos.Exams.Add(ctx, &model.Exam{Name: "Vokabeltest", Date: fixedNow, SubjectID: subject.ID})
	require.NoError(t, err)
	_, err = repos.Grades.Add(ctx, &model.Grade{Score: 5, Weight: 50, ExamID: exam.ID})
	require.NoError(t, err)

	reverted, err := r.Revert(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DropExamCompletedFlag1715000000000", reverted)
	assert.Contains(t, columns(t, store.db, "exam"), "is_completed")
	assert.Equal(t, 1, count(t, store.db, "SELECT is_completed FROM exam"))

	for _, want := range []string{"AddExamDescriptionGradeComment1710000000000", "AddSemester1705000000000"} {
		got, err := r.Revert(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.NotContains(t, columns(t, store.db, "subject"), "semester_id")
	assert.Equal(t, 1, count(t, store.db, "SELECT count(*) FROM subject"))
	assert.Equal(t, 1, count(t, store.db, "SELECT count(*) FROM exam"), "rebuilding subject must not cascade")
	assert.Equal(t, 0, count(t, store.db, "SELECT count(*) FROM sqlite_master WHERE name = 'semester'"))

	var fk int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	applied, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 3)
	assert.Equal(t, 1, count(t, store.db, "SELECT count(*) FROM semester"))

	for i := 0; i < 4; i++ {
		_, err := r.Revert(ctx)
		require.NoError(t, err)
	}
	last, err := r.Revert(ctx)
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestRunHistoryTableFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").WillReturnError(errors.New("disk I/O error"))

	_, err = newRunner(&testStore{db: db}).Run(context.Background())
	assert.ErrorIs(t, err, errs.ErrMigration)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := Migration{Timestamp: 7, Name: "Only", Up: []string{"CREATE TABLE only_one (id INTEGER)"}}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE only_one").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO migrations").WithArgs(int64(7), "Only7").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	applied, err := newRunner(&testStore{db: db}, WithMigrations(m)).Run(context.Background())
	assert.Empty(t, applied)
	assert.ErrorIs(t, err, errs.ErrMigration)
	assert.NoError(t, mock.ExpectationsWereMet())
}
