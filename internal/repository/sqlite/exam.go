package sqlite

import (
	"context"
	"database/sql"
	"time"

	"gradebook/internal/model"
	"gradebook/internal/repository"
)

var examTable = table[model.Exam, model.ExamPatch]{
	name:    model.EntityExam,
	columns: []string{"name", "date", "description", "subject_id"},
	sortable: map[string]string{
		"name":       "name",
		"date":       "date",
		"created_at": "created_at",
	},
	meta: func(e *model.Exam) *model.Meta { return &e.Meta },
	dest: func(e *model.Exam) []any {
		return []any{&e.Name, timeDest{&e.Date}, optString{&e.Description}, &e.SubjectID}
	},
	args: func(e *model.Exam) []any {
		return []any{e.Name, formatTime(e.Date), e.Description, e.SubjectID}
	},
	validate: func(e *model.Exam) error { return e.Validate() },
	apply:    func(p model.ExamPatch, e *model.Exam) { p.Apply(e) },
	parents: func(e *model.Exam) []parentRef {
		return []parentRef{{field: "subject_id", table: model.EntitySubject, id: e.SubjectID}}
	},
}

type Exams struct {
	*crud[model.Exam, model.ExamPatch]
}

var _ repository.ExamRepository = (*Exams)(nil)

func NewExams(db repository.DBTX, opts ...Option) *Exams {
	return &Exams{crud: newCrud(newStore(db, opts...), examTable)}
}

func (r *Exams) FindBySubject(ctx context.Context, subjectID string) (items []model.Exam, err error) {
	start := time.Now()
	defer func() { r.s.observe(r.t.name, "find_by_subject", start, err) }()

	items, err = r.query(ctx, "subject_id = ?", []any{subjectID}, []repository.OrderBy{{Field: "date"}}, "")
	if err != nil {
		return nil, translate("find by subject", r.t.name, subjectID, err)
	}
	return items, nil
}

// FindViews joins each exam of the subject with its grade, if any.
func (r *Exams) FindViews(ctx context.Context, subjectID string) (views []model.ExamView, err error) {
	start := time.Now()
	defer func() { r.s.observe(r.t.name, "find_views", start, err) }()

	q := "SELECT " + r.columnList("e.") + ", g.id, g.created_at, g.updated_at, g.version, g.app_instance_id, g.score, g.weight, g.comment" +
		" FROM exam e LEFT JOIN grade g ON g.exam_id = e.id" +
		" WHERE e.subject_id = ? ORDER BY e.date, e.created_at, e.id"
	rows, err := r.s.db.QueryContext(ctx, q, subjectID)
	if err != nil {
		return nil, translate("find views", r.t.name, subjectID, err)
	}
	defer rows.Close()

	views = make([]model.ExamView, 0)
	for rows.Next() {
		var (
			g       model.Grade
			gradeID sql.NullString
			version sql.NullInt64
			score   sql.NullFloat64
			weight  sql.NullFloat64
		)
		exam, err := r.scan(rows,
			&gradeID, timeDest{&g.CreatedAt}, timeDest{&g.UpdatedAt}, &version,
			optString{&g.AppInstanceID}, &score, &weight, optString{&g.Comment},
		)
		if err != nil {
			return nil, translate("find views", r.t.name, subjectID, err)
		}

		var grade *model.Grade
		if gradeID.Valid {
			g.ID = gradeID.String
			g.Version = int(version.Int64)
			g.Score = score.Float64
			g.Weight = weight.Float64
			g.ExamID = exam.ID
			grade = &g
		}
		views = append(views, model.NewExamView(exam, grade))
	}
	if err := rows.Err(); err != nil {
		return nil, translate("find views", r.t.name, subjectID, err)
	}
	return views, nil
}
