package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gradebook/internal/errs"
	"gradebook/internal/model"
	"gradebook/internal/repository"
)

var gradeTable = table[model.Grade, model.GradePatch]{
	name:    model.EntityGrade,
	columns: []string{"score", "weight", "comment", "exam_id"},
	sortable: map[string]string{
		"score":      "score",
		"weight":     "weight",
		"created_at": "created_at",
	},
	meta: func(g *model.Grade) *model.Meta { return &g.Meta },
	dest: func(g *model.Grade) []any {
		return []any{&g.Score, &g.Weight, optString{&g.Comment}, &g.ExamID}
	},
	args: func(g *model.Grade) []any {
		return []any{g.Score, g.Weight, g.Comment, g.ExamID}
	},
	validate: func(g *model.Grade) error { return g.Validate() },
	apply:    func(p model.GradePatch, g *model.Grade) { p.Apply(g) },
	parents: func(g *model.Grade) []parentRef {
		return []parentRef{{field: "exam_id", table: model.EntityExam, id: g.ExamID}}
	},
	conflict: oneGradePerExam,
}

// oneGradePerExam rejects a grade for an exam that already has another one.
func oneGradePerExam(ctx context.Context, db repository.DBTX, g *model.Grade, selfID string) error {
	var existing string
	err := db.QueryRowContext(ctx, "SELECT id FROM grade WHERE exam_id = ? AND id <> ?", g.ExamID, selfID).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return translate("check", model.EntityGrade, g.ExamID, err)
	}
	op := "add"
	if selfID != "" {
		op = "update"
	}
	return errs.Conflict(op, model.EntityGrade, existing, "exam "+g.ExamID+" already has a grade")
}

type Grades struct {
	*crud[model.Grade, model.GradePatch]
}

var _ repository.GradeRepository = (*Grades)(nil)

func NewGrades(db repository.DBTX, opts ...Option) *Grades {
	return &Grades{crud: newCrud(newStore(db, opts...), gradeTable)}
}

func (r *Grades) FindByExam(ctx context.Context, examID string) (_ *model.Grade, err error) {
	start := time.Now()
	defer func() { r.s.observe(r.t.name, "find_by_exam", start, err) }()

	items, err := r.query(ctx, "exam_id = ?", []any{examID}, nil, " LIMIT 1")
	if err != nil {
		return nil, translate("find by exam", r.t.name, examID, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// FindDetails returns every grade with the subject, school and semester it
// rolls up to.
func (r *Grades) FindDetails(ctx context.Context) (details []model.GradeDetail, err error) {
	start := time.Now()
	defer func() { r.s.observe(r.t.name, "find_details", start, err) }()

	q := "SELECT " + r.columnList("g.") + ", s.id, s.school_id, s.semester_id" +
		" FROM grade g" +
		" JOIN exam e ON e.id = g.exam_id" +
		" JOIN subject s ON s.id = e.subject_id" +
		" ORDER BY g.created_at, g.id"
	rows, err := r.s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, translate("find details", r.t.name, "", err)
	}
	defer rows.Close()

	details = make([]model.GradeDetail, 0)
	for rows.Next() {
		var d model.GradeDetail
		g, err := r.scan(rows, &d.SubjectID, &d.SchoolID, optString{&d.SemesterID})
		if err != nil {
			return nil, translate("find details", r.t.name, "", err)
		}
		d.Grade = g
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("find details", r.t.name, "", err)
	}
	return details, nil
}
