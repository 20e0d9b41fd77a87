package mocks

import (
	"context"
	"time"

	"gradebook/internal/model"
	"gradebook/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockGradebookService struct {
	mock.Mock
}

func (m *MockGradebookService) SubjectAverage(ctx context.Context, subjectID string) (*service.Average, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Average), args.Error(1)
}

func (m *MockGradebookService) SchoolAverage(ctx context.Context, schoolID string) (*service.Average, error) {
	args := m.Called(ctx, schoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Average), args.Error(1)
}

func (m *MockGradebookService) OverallAverage(ctx context.Context) (*service.Average, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Average), args.Error(1)
}

func (m *MockGradebookService) SemesterAverage(ctx context.Context, semesterID string) (*service.Average, error) {
	args := m.Called(ctx, semesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Average), args.Error(1)
}

func (m *MockGradebookService) ExamOverview(ctx context.Context, subjectID string) ([]model.ExamView, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExamView), args.Error(1)
}

func (m *MockGradebookService) AttachGrade(ctx context.Context, examID string, in service.GradeInput) (*model.Grade, error) {
	args := m.Called(ctx, examID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Grade), args.Error(1)
}

func (m *MockGradebookService) DetachGrade(ctx context.Context, examID string) error {
	args := m.Called(ctx, examID)
	return args.Error(0)
}

type MockBackupService struct {
	mock.Mock
}

func (m *MockBackupService) Backup(ctx context.Context) (*service.Backup, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Backup), args.Error(1)
}

func (m *MockBackupService) Latest(ctx context.Context, expiry time.Duration) (*service.Backup, error) {
	args := m.Called(ctx, expiry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Backup), args.Error(1)
}
