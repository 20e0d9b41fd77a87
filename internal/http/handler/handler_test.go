package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gradebook/internal/database"
	"gradebook/internal/errs"
	"gradebook/internal/model"
	"gradebook/internal/repository"
	repoMocks "gradebook/internal/repository/mocks"
	"gradebook/internal/service"
	serviceMocks "gradebook/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sqlHandle struct {
	db *sql.DB
}

func (h sqlHandle) DB() *sql.DB                              { return h.db }
func (h sqlHandle) Target() database.Target                  { return database.TargetNative }
func (h sqlHandle) Flush(context.Context) error              { return nil }
func (h sqlHandle) Ping(ctx context.Context) error           { return h.db.PingContext(ctx) }
func (h sqlHandle) Snapshot(context.Context) ([]byte, error) { return nil, nil }
func (h sqlHandle) Close() error                             { return h.db.Close() }

type testStorage struct {
	*repoMocks.Set
	handle database.Handle
}

func (s testStorage) StorageHandle() (database.Handle, error) {
	if s.handle == nil {
		return nil, errs.NotInitialized("storage handle")
	}
	return s.handle, nil
}

type uninitialized struct{}

func (uninitialized) StorageHandle() (database.Handle, error) {
	return nil, errs.NotInitialized("storage handle")
}

func (uninitialized) Repositories() (repository.Set, error) {
	return repository.Set{}, errs.NotInitialized("repositories")
}

func decodeError(t *testing.T, r io.Reader) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(testStorage{handle: sqlHandle{db: db}}))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "native", body["target"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("not initialized", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(uninitialized{}))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListResource(t *testing.T) {
	m := repoMocks.NewSet()
	app := fiber.New()
	app.Get("/schools", ListResource(testStorage{Set: m}, schools))

	t.Run("success", func(t *testing.T) {
		m.Schools.On("List", mock.Anything, repository.PageQuery{Limit: 10, Offset: 5},
			[]repository.OrderBy{{Field: "name", Desc: true}}).
			Return(&repository.PageResult[model.School]{
				Items: []model.School{{Meta: model.Meta{ID: uuid.NewString()}, Name: "Gymnasium"}},
				Total: 6,
			}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/schools?limit=10&offset=5&sort=name&desc=true", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result ListResult[model.School]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 6, result.Total)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		m.Schools.On("List", mock.Anything, repository.PageQuery{Limit: defaultLimit}, mock.Anything).
			Return(&repository.PageResult[model.School]{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/schools", nil))
		body, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"data":[],"total":0}`, string(body))
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/schools?limit=abc", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("negative offset", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/schools?offset=-1", nil))
		assert.Equal(t, "INVALID_OFFSET", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("unknown sort field", func(t *testing.T) {
		m.Schools.On("List", mock.Anything, mock.Anything, []repository.OrderBy{{Field: "secret"}}).
			Return(nil, errs.Validation(model.EntitySchool, "secret", "is not sortable")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/schools?sort=secret", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("storage not initialized", func(t *testing.T) {
		app := fiber.New()
		app.Get("/schools", ListResource(uninitialized{}, schools))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/schools", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "STORAGE_UNAVAILABLE", decodeError(t, resp.Body).Error.Code)
	})
	m.AssertExpectations(t)
}

func TestCreateResource(t *testing.T) {
	m := repoMocks.NewSet()
	app := fiber.New()
	app.Post("/subjects", CreateResource(testStorage{Set: m}, subjects))
	schoolID := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		m.Subjects.On("Add", mock.Anything, mock.MatchedBy(func(s *model.Subject) bool {
			return s.Name == "Englisch" && s.SchoolID == schoolID
		})).Return(&model.Subject{Meta: model.Meta{ID: "sub-1", Version: 1}, Name: "Englisch", SchoolID: schoolID}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/subjects", `{"name":"Englisch","school_id":"`+schoolID+`"}`))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var got model.Subject
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "sub-1", got.ID)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("validation error", func(t *testing.T) {
		m.Subjects.On("Add", mock.Anything, mock.Anything).
			Return(nil, errs.Validation(model.EntitySubject, "name", "is required")).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/subjects", `{"school_id":"`+schoolID+`"}`))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp.Body)
		assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
		assert.Contains(t, body.Error.Message, "name")
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/subjects", `{"name":`))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("internal error is not leaked", func(t *testing.T) {
		m.Subjects.On("Add", mock.Anything, mock.Anything).Return(nil, errors.New("disk I/O error")).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/subjects", `{"name":"Mathe","school_id":"`+schoolID+`"}`))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "internal server error", decodeError(t, resp.Body).Error.Message)
	})
	m.AssertExpectations(t)
}

func TestGetUpdateDeleteResource(t *testing.T) {
	m := repoMocks.NewSet()
	storage := testStorage{Set: m}
	app := fiber.New()
	app.Get("/exams/:id", GetResource(storage, exams))
	app.Patch("/exams/:id", UpdateResource(storage, exams))
	app.Delete("/exams/:id", DeleteResource(storage, exams))

	id := uuid.NewString()

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/exams/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("get missing", func(t *testing.T) {
		m.Exams.On("FindByID", mock.Anything, id).Return(nil, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/exams/"+id, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("get found", func(t *testing.T) {
		m.Exams.On("FindByID", mock.Anything, id).Return(&model.Exam{Meta: model.Meta{ID: id}, Name: "Vokabeltest"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/exams/"+id, nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("partial update", func(t *testing.T) {
		m.Exams.On("Update", mock.Anything, id, mock.MatchedBy(func(p model.ExamPatch) bool {
			return p.Description != nil && *p.Description == "Unit 3" && p.Name == nil && p.Date == nil
		})).Return(&model.Exam{Meta: model.Meta{ID: id, Version: 2}, Name: "Vokabeltest", Description: "Unit 3"}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPatch, "/exams/"+id, `{"description":"Unit 3"}`))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got model.Exam
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, 2, got.Version)
	})

	t.Run("update missing", func(t *testing.T) {
		m.Exams.On("Update", mock.Anything, id, mock.Anything).
			Return(nil, errs.NotFound("update", model.EntityExam, id)).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPatch, "/exams/"+id, `{"name":"x"}`))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		m.Exams.On("Delete", mock.Anything, id).Return(id, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/exams/"+id, nil))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
	m.AssertExpectations(t)
}

func TestAverages(t *testing.T) {
	svc := new(serviceMocks.MockGradebookService)
	app := fiber.New()
	app.Get("/subjects/:id/average", SubjectAverage(svc))
	app.Get("/schools/:id/average", SchoolAverage(svc))
	app.Get("/averages", OverallAverage(svc))

	subjectID, schoolID := uuid.NewString(), uuid.NewString()
	value := 4.0
	svc.On("SubjectAverage", mock.Anything, subjectID).
		Return(&service.Average{Scope: service.ScopeSubject, ID: subjectID}, nil).Once()
	svc.On("SchoolAverage", mock.Anything, schoolID).
		Return(&service.Average{Scope: service.ScopeSchool, ID: schoolID, Value: &value, Grades: 2}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/subjects/"+subjectID+"/average", nil))
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"scope":"subject","id":"`+subjectID+`","value":null,"grades":0}`, string(body))

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/schools/"+schoolID+"/average", nil))
	body, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"scope":"school","id":"`+schoolID+`","value":4,"grades":2}`, string(body))

	svc.On("OverallAverage", mock.Anything).
		Return(nil, errs.NotInitialized("repositories")).Once()
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/averages", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	svc.AssertExpectations(t)
}

func TestGradeRoutes(t *testing.T) {
	svc := new(serviceMocks.MockGradebookService)
	app := fiber.New()
	app.Put("/exams/:id/grade", AttachGrade(svc))
	app.Delete("/exams/:id/grade", DetachGrade(svc))

	examID := uuid.NewString()

	t.Run("attach", func(t *testing.T) {
		svc.On("AttachGrade", mock.Anything, examID, service.GradeInput{Score: 5, Weight: 50}).
			Return(&model.Grade{Meta: model.Meta{ID: "g-1"}, Score: 5, Weight: 50, ExamID: examID}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPut, "/exams/"+examID+"/grade", `{"score":5,"weight":50}`))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("attach twice conflicts", func(t *testing.T) {
		svc.On("AttachGrade", mock.Anything, examID, mock.Anything).
			Return(nil, errs.Conflict("add", model.EntityGrade, "", "exam already graded")).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPut, "/exams/"+examID+"/grade", `{"score":2,"weight":10}`))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONFLICT", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("detach", func(t *testing.T) {
		svc.On("DetachGrade", mock.Anything, examID).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/exams/"+examID+"/grade", nil))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
	svc.AssertExpectations(t)
}

func TestBackupRoutes(t *testing.T) {
	svc := new(serviceMocks.MockBackupService)
	app := fiber.New()
	app.Post("/backups", CreateBackup(svc))
	app.Get("/backups/latest", LatestBackup(svc))

	svc.On("Backup", mock.Anything).Return(&service.Backup{Key: "backups/inst-1/x.sqlite", Size: 4096}, nil).Once()
	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/backups", nil))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	svc.On("Latest", mock.Anything, time.Hour).Return(&service.Backup{Key: "backups/inst-1/x.sqlite", URL: "https://signed"}, nil).Once()
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/backups/latest?expiry=1h", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/backups/latest?expiry=forever", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	svc.On("Latest", mock.Anything, 15*time.Minute).Return(nil, errs.NotFound("latest backup", "backup", "inst-1")).Once()
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/backups/latest", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	svc.AssertExpectations(t)
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("secret detail") })

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeError(t, resp.Body)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "secret")

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)
}

func TestWriteStorageErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errs.Validation("grade", "score", "out of range"), http.StatusBadRequest},
		{errs.NotFound("get", "exam", "x"), http.StatusNotFound},
		{errs.Conflict("add", "grade", "", "exam already graded"), http.StatusConflict},
		{errs.NotInitialized("repositories"), http.StatusServiceUnavailable},
		{errs.Migration("Broken1", errors.New("syntax")), http.StatusServiceUnavailable},
		{errs.Persistence("add", "school", "x", errors.New("quota exceeded")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error { return writeStorageError(c, tt.err) })

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tt.status, resp.StatusCode, tt.err.Error())
	}
}
