package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"gradebook/internal/model"
	"gradebook/internal/service"
)

type averageFunc func(ctx context.Context, id string) (*service.Average, error)

func averageHandler(fn averageFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return nil
		}
		avg, err := fn(c.UserContext(), id)
		if err != nil {
			return writeStorageError(c, err)
		}
		return c.JSON(avg)
	}
}

// SubjectAverage godoc
// @Summary Weighted subject average
// @Tags averages
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} service.Average
// @Failure 404 {object} errorPayload
// @Router /subjects/{id}/average [get]
func SubjectAverage(svc service.GradebookService) fiber.Handler {
	return averageHandler(svc.SubjectAverage)
}

func SchoolAverage(svc service.GradebookService) fiber.Handler {
	return averageHandler(svc.SchoolAverage)
}

func SemesterAverage(svc service.GradebookService) fiber.Handler {
	return averageHandler(svc.SemesterAverage)
}

// OverallAverage godoc
// @Summary Weighted average over every grade
// @Tags averages
// @Produce json
// @Success 200 {object} service.Average
// @Router /averages [get]
func OverallAverage(svc service.GradebookService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		avg, err := svc.OverallAverage(c.UserContext())
		if err != nil {
			return writeStorageError(c, err)
		}
		return c.JSON(avg)
	}
}

// ExamOverview lists a subject's exams with their derived status.
func ExamOverview(svc service.GradebookService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return nil
		}
		views, err := svc.ExamOverview(c.UserContext(), id)
		if err != nil {
			return writeStorageError(c, err)
		}
		if views == nil {
			views = []model.ExamView{}
		}
		return c.JSON(fiber.Map{"data": views})
	}
}

func SubjectsBySchool(p RepositoryProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return nil
		}
		repos, err := p.Repositories()
		if err != nil {
			return writeStorageError(c, err)
		}
		subjects, err := repos.Subjects.FindBySchool(c.UserContext(), id)
		if err != nil {
			return writeStorageError(c, err)
		}
		return c.JSON(fiber.Map{"data": nonNil(subjects)})
	}
}

func SubjectsBySemester(p RepositoryProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return nil
		}
		repos, err := p.Repositories()
		if err != nil {
			return writeStorageError(c, err)
		}
		subjects, err := repos.Subjects.FindBySemester(c.UserContext(), id)
		if err != nil {
			return writeStorageError(c, err)
		}
		return c.JSON(fiber.Map{"data": nonNil(subjects)})
	}
}

func nonNil(s []model.Subject) []model.Subject {
	if s == nil {
		return []model.Subject{}
	}
	return s
}

func ExamGrade(p RepositoryProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return nil
		}
		repos, err := p.Repositories()
		if err != nil {
			return writeStorageError(c, err)
		}
		grade, err := repos.Grades.FindByExam(c.UserContext(), id)
		if err != nil {
			return writeStorageError(c, err)
		}
		if grade == nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "exam has no grade")
		}
		return c.JSON(grade)
	}
}

// AttachGrade godoc
// @Summary Attach a grade to an exam
// @Tags grades
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param grade body service.GradeInput true "Grade"
// @Success 201 {object} model.Grade
// @Failure 409 {object} errorPayload
// @Router /exams/{id}/grade [put]
func AttachGrade(svc service.GradebookService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return nil
		}
		var in service.GradeInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		grade, err := svc.AttachGrade(c.UserContext(), id, in)
		if err != nil {
			return writeStorageError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(grade)
	}
}

func DetachGrade(svc service.GradebookService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return nil
		}
		if err := svc.DetachGrade(c.UserContext(), id); err != nil {
			return writeStorageError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
