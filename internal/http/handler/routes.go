package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gradebook/internal/http/apidoc"
	"gradebook/internal/model"
	"gradebook/internal/repository"
	"gradebook/internal/service"
)

// Storage is what the routes need from the lifecycle.
type Storage interface {
	HandleProvider
	RepositoryProvider
}

type Deps struct {
	Storage   Storage
	Gradebook service.GradebookService
	// Backups is nil when object storage is disabled.
	Backups  service.BackupService
	Gatherer prometheus.Gatherer
}

func schools(s repository.Set) repository.Repository[model.School, model.SchoolPatch] {
	return s.Schools
}

func semesters(s repository.Set) repository.Repository[model.Semester, model.SemesterPatch] {
	return s.Semesters
}

func subjects(s repository.Set) repository.Repository[model.Subject, model.SubjectPatch] {
	return s.Subjects
}

func exams(s repository.Set) repository.Repository[model.Exam, model.ExamPatch] {
	return s.Exams
}

func grades(s repository.Set) repository.Repository[model.Grade, model.GradePatch] {
	return s.Grades
}

// RegisterRoutes attaches every HTTP route to app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.Storage))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	app.Get("/swagger/*", SwaggerUI())
	app.Get("/averages", OverallAverage(d.Gradebook))

	school := registerResource(app, "/schools", d.Storage, schools)
	school.Get("/:id/subjects", SubjectsBySchool(d.Storage))
	school.Get("/:id/average", SchoolAverage(d.Gradebook))

	semester := registerResource(app, "/semesters", d.Storage, semesters)
	semester.Get("/:id/subjects", SubjectsBySemester(d.Storage))
	semester.Get("/:id/average", SemesterAverage(d.Gradebook))

	subject := registerResource(app, "/subjects", d.Storage, subjects)
	subject.Get("/:id/exams", ExamOverview(d.Gradebook))
	subject.Get("/:id/average", SubjectAverage(d.Gradebook))

	exam := registerResource(app, "/exams", d.Storage, exams)
	exam.Get("/:id/grade", ExamGrade(d.Storage))
	exam.Put("/:id/grade", AttachGrade(d.Gradebook))
	exam.Delete("/:id/grade", DetachGrade(d.Gradebook))

	registerResource(app, "/grades", d.Storage, grades)

	if d.Backups != nil {
		app.Post("/backups", CreateBackup(d.Backups))
		app.Get("/backups/latest", LatestBackup(d.Backups))
	}
}

// SwaggerUI serves the registered API document with the request's host and
// scheme.
func SwaggerUI() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		apidoc.SwaggerInfo.Host = c.Get("Host")
		apidoc.SwaggerInfo.Schemes = []string{scheme}
		return swagger.HandlerDefault(c)
	}
}
