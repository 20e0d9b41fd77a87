package service

import (
	"context"
	"fmt"

	"gradebook/internal/errs"
	"gradebook/internal/model"
	"gradebook/internal/repository"
	"gradebook/internal/stats"
)

// Scope names what an average is computed over.
type Scope string

const (
	ScopeSubject  Scope = "subject"
	ScopeSchool   Scope = "school"
	ScopeSemester Scope = "semester"
	ScopeOverall  Scope = "overall"
)

// Average is the service-level DTO for a weighted average. Value is nil
// when the average is undefined; Grades counts the grades that carried
// weight.
type Average struct {
	Scope  Scope    `json:"scope"`
	ID     string   `json:"id"`
	Value  *float64 `json:"value"`
	Grades int      `json:"grades"`
}

// GradeInput carries the user-editable fields of a grade.
type GradeInput struct {
	Score   float64 `json:"score"`
	Weight  float64 `json:"weight"`
	Comment string  `json:"comment,omitempty"`
}

// RepositoryProvider hands out the repositories once storage is ready.
// *lifecycle.Lifecycle satisfies it.
type RepositoryProvider interface {
	Repositories() (repository.Set, error)
}

// GradebookService combines the repositories with the aggregation engine.
type GradebookService interface {
	SubjectAverage(ctx context.Context, subjectID string) (*Average, error)
	SchoolAverage(ctx context.Context, schoolID string) (*Average, error)
	SemesterAverage(ctx context.Context, semesterID string) (*Average, error)
	// OverallAverage spans every stored grade; its ID is empty.
	OverallAverage(ctx context.Context) (*Average, error)

	// ExamOverview lists a subject's exams with their grade and status.
	ExamOverview(ctx context.Context, subjectID string) ([]model.ExamView, error)

	// AttachGrade completes an upcoming exam. A second grade for the same
	// exam is a conflict.
	AttachGrade(ctx context.Context, examID string, in GradeInput) (*model.Grade, error)

	// DetachGrade removes the exam's grade, returning it to upcoming.
	DetachGrade(ctx context.Context, examID string) error
}

type gradebookService struct {
	repos RepositoryProvider
}

func NewGradebookService(repos RepositoryProvider) GradebookService {
	return &gradebookService{repos: repos}
}

func requireID(entity, id string) error {
	if id == "" {
		return errs.Validation(entity, "id", "is required")
	}
	return nil
}

func (s *gradebookService) SubjectAverage(ctx context.Context, subjectID string) (*Average, error) {
	if err := requireID(model.EntitySubject, subjectID); err != nil {
		return nil, err
	}
	repos, err := s.repos.Repositories()
	if err != nil {
		return nil, err
	}
	subject, err := repos.Subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, errs.NotFound("subject average", model.EntitySubject, subjectID)
	}
	return s.average(ctx, repos, ScopeSubject, subjectID,
		func(g model.GradeDetail) bool { return g.SubjectID == subjectID },
		stats.AverageForSubject)
}

func (s *gradebookService) SchoolAverage(ctx context.Context, schoolID string) (*Average, error) {
	if err := requireID(model.EntitySchool, schoolID); err != nil {
		return nil, err
	}
	repos, err := s.repos.Repositories()
	if err != nil {
		return nil, err
	}
	school, err := repos.Schools.FindByID(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if school == nil {
		return nil, errs.NotFound("school average", model.EntitySchool, schoolID)
	}
	return s.average(ctx, repos, ScopeSchool, schoolID,
		func(g model.GradeDetail) bool { return g.SchoolID == schoolID },
		stats.AverageForSchool)
}

func (s *gradebookService) SemesterAverage(ctx context.Context, semesterID string) (*Average, error) {
	if err := requireID(model.EntitySemester, semesterID); err != nil {
		return nil, err
	}
	repos, err := s.repos.Repositories()
	if err != nil {
		return nil, err
	}
	semester, err := repos.Semesters.FindByID(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	if semester == nil {
		return nil, errs.NotFound("semester average", model.EntitySemester, semesterID)
	}
	return s.average(ctx, repos, ScopeSemester, semesterID,
		func(g model.GradeDetail) bool { return g.SemesterID == semesterID },
		stats.AverageForSemester)
}

func (s *gradebookService) OverallAverage(ctx context.Context) (*Average, error) {
	repos, err := s.repos.Repositories()
	if err != nil {
		return nil, err
	}
	return s.average(ctx, repos, ScopeOverall, "",
		func(model.GradeDetail) bool { return true },
		func(_ string, grades []model.GradeDetail) (float64, bool) { return stats.Weighted(grades) })
}

func (s *gradebookService) average(
	ctx context.Context,
	repos repository.Set,
	scope Scope,
	id string,
	match func(model.GradeDetail) bool,
	compute func(string, []model.GradeDetail) (float64, bool),
) (*Average, error) {
	details, err := repos.Grades.FindDetails(ctx)
	if err != nil {
		return nil, fmt.Errorf("load grades: %w", err)
	}

	out := &Average{Scope: scope, ID: id}
	for _, g := range details {
		if g.Weight > 0 && match(g) {
			out.Grades++
		}
	}
	if v, ok := compute(id, details); ok {
		out.Value = &v
	}
	return out, nil
}

func (s *gradebookService) ExamOverview(ctx context.Context, subjectID string) ([]model.ExamView, error) {
	if err := requireID(model.EntitySubject, subjectID); err != nil {
		return nil, err
	}
	repos, err := s.repos.Repositories()
	if err != nil {
		return nil, err
	}
	subject, err := repos.Subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, errs.NotFound("exam overview", model.EntitySubject, subjectID)
	}
	return repos.Exams.FindViews(ctx, subjectID)
}

func (s *gradebookService) AttachGrade(ctx context.Context, examID string, in GradeInput) (*model.Grade, error) {
	if err := requireID(model.EntityExam, examID); err != nil {
		return nil, err
	}
	repos, err := s.repos.Repositories()
	if err != nil {
		return nil, err
	}
	return repos.Grades.Add(ctx, &model.Grade{
		Score:   in.Score,
		Weight:  in.Weight,
		Comment: in.Comment,
		ExamID:  examID,
	})
}

func (s *gradebookService) DetachGrade(ctx context.Context, examID string) error {
	if err := requireID(model.EntityExam, examID); err != nil {
		return err
	}
	repos, err := s.repos.Repositories()
	if err != nil {
		return err
	}
	grade, err := repos.Grades.FindByExam(ctx, examID)
	if err != nil {
		return err
	}
	if grade == nil {
		return errs.NotFound("detach grade", model.EntityExam, examID)
	}
	if _, err := repos.Grades.Delete(ctx, grade.ID); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}
