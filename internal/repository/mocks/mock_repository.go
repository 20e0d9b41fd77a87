package mocks

import (
	"context"

	"gradebook/internal/model"
	"gradebook/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockRepository implements the CRUD half of repository.Repository for any
// entity; the per-entity mocks embed it.
type MockRepository[T any, P any] struct {
	mock.Mock
}

func (m *MockRepository[T, P]) FindAll(ctx context.Context, order ...repository.OrderBy) ([]T, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *MockRepository[T, P]) List(ctx context.Context, pq repository.PageQuery, order ...repository.OrderBy) (*repository.PageResult[T], error) {
	args := m.Called(ctx, pq, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[T]), args.Error(1)
}

func (m *MockRepository[T, P]) FindByID(ctx context.Context, id string) (*T, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRepository[T, P]) Add(ctx context.Context, entity *T) (*T, error) {
	args := m.Called(ctx, entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRepository[T, P]) Update(ctx context.Context, id string, patch P) (*T, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRepository[T, P]) Delete(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type MockSchoolRepository struct {
	MockRepository[model.School, model.SchoolPatch]
}

type MockSemesterRepository struct {
	MockRepository[model.Semester, model.SemesterPatch]
}

type MockSubjectRepository struct {
	MockRepository[model.Subject, model.SubjectPatch]
}

func (m *MockSubjectRepository) FindBySchool(ctx context.Context, schoolID string) ([]model.Subject, error) {
	args := m.Called(ctx, schoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Subject), args.Error(1)
}

func (m *MockSubjectRepository) FindBySemester(ctx context.Context, semesterID string) ([]model.Subject, error) {
	args := m.Called(ctx, semesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Subject), args.Error(1)
}

type MockExamRepository struct {
	MockRepository[model.Exam, model.ExamPatch]
}

func (m *MockExamRepository) FindBySubject(ctx context.Context, subjectID string) ([]model.Exam, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Exam), args.Error(1)
}

func (m *MockExamRepository) FindViews(ctx context.Context, subjectID string) ([]model.ExamView, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExamView), args.Error(1)
}

type MockGradeRepository struct {
	MockRepository[model.Grade, model.GradePatch]
}

func (m *MockGradeRepository) FindByExam(ctx context.Context, examID string) (*model.Grade, error) {
	args := m.Called(ctx, examID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Grade), args.Error(1)
}

func (m *MockGradeRepository) FindDetails(ctx context.Context) ([]model.GradeDetail, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.GradeDetail), args.Error(1)
}

// Set bundles fresh mocks and exposes them both individually and as a
// repository.Set.
type Set struct {
	Schools   *MockSchoolRepository
	Semesters *MockSemesterRepository
	Subjects  *MockSubjectRepository
	Exams     *MockExamRepository
	Grades    *MockGradeRepository
}

func NewSet() *Set {
	return &Set{
		Schools:   &MockSchoolRepository{},
		Semesters: &MockSemesterRepository{},
		Subjects:  &MockSubjectRepository{},
		Exams:     &MockExamRepository{},
		Grades:    &MockGradeRepository{},
	}
}

func (s *Set) Repositories() (repository.Set, error) {
	return repository.Set{
		Schools:   s.Schools,
		Semesters: s.Semesters,
		Subjects:  s.Subjects,
		Exams:     s.Exams,
		Grades:    s.Grades,
	}, nil
}

func (s *Set) AssertExpectations(t mock.TestingT) {
	s.Schools.AssertExpectations(t)
	s.Semesters.AssertExpectations(t)
	s.Subjects.AssertExpectations(t)
	s.Exams.AssertExpectations(t)
	s.Grades.AssertExpectations(t)
}
