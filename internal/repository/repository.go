// Package repository contains the data access contracts for the gradebook
// entities. Implementations live in subpackages (sqlite) and see the
// database only through DBTX.
package repository

import (
	"context"
	"database/sql"

	"gradebook/internal/model"
)

// Repository is the CRUD contract shared by every entity. P is the entity's
// patch type used for partial updates.
//
// With auto-save enabled every write is followed by a flush. When that flush
// fails the write has still been applied and the method returns an
// errs.KindPersistence error; callers must not retry the write, a later
// successful write or flush saves it.
type Repository[T any, P any] interface {
	// FindAll returns every row, ordered by the given fields or by
	// created_at when none are given.
	FindAll(ctx context.Context, order ...OrderBy) ([]T, error)

	// List returns one page of rows and the total row count.
	List(ctx context.Context, pq PageQuery, order ...OrderBy) (*PageResult[T], error)

	// FindByID returns nil, nil when no row has id.
	FindByID(ctx context.Context, id string) (*T, error)

	// Add validates and inserts entity. The stored copy carries a generated
	// id, timestamps, revision 1 and the instance tag.
	Add(ctx context.Context, entity *T) (*T, error)

	// Update merges patch into the stored row, validates the result and
	// bumps the revision. Missing rows are reported as not found.
	Update(ctx context.Context, id string, patch P) (*T, error)

	// Delete removes the row and its descendants and returns the deleted id.
	Delete(ctx context.Context, id string) (string, error)
}

type SchoolRepository interface {
	Repository[model.School, model.SchoolPatch]
}

type SemesterRepository interface {
	Repository[model.Semester, model.SemesterPatch]
}

type SubjectRepository interface {
	Repository[model.Subject, model.SubjectPatch]
	FindBySchool(ctx context.Context, schoolID string) ([]model.Subject, error)
	FindBySemester(ctx context.Context, semesterID string) ([]model.Subject, error)
}

type ExamRepository interface {
	Repository[model.Exam, model.ExamPatch]
	FindBySubject(ctx context.Context, subjectID string) ([]model.Exam, error)
	// FindViews returns the subject's exams with their grade and derived status.
	FindViews(ctx context.Context, subjectID string) ([]model.ExamView, error)
}

type GradeRepository interface {
	Repository[model.Grade, model.GradePatch]
	// FindByExam returns nil, nil for an ungraded exam.
	FindByExam(ctx context.Context, examID string) (*model.Grade, error)
	// FindDetails returns every grade joined with its subject, school and semester ids.
	FindDetails(ctx context.Context) ([]model.GradeDetail, error)
}

// Set bundles the repositories handed out after initialization.
type Set struct {
	Schools   SchoolRepository
	Semesters SemesterRepository
	Subjects  SubjectRepository
	Exams     ExamRepository
	Grades    GradeRepository
}

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Flusher persists the database after a successful write.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Observer receives the outcome of every repository operation.
type Observer interface {
	ObserveOperation(entity, op string, err error, seconds float64)
}

// OrderBy sorts FindAll and List results. Field must be one of the
// entity's sortable columns.
type OrderBy struct {
	Field string
	Desc  bool
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
