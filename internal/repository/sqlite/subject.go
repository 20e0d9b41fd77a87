package sqlite

import (
	"context"
	"time"

	"gradebook/internal/model"
	"gradebook/internal/repository"
)

var subjectTable = table[model.Subject, model.SubjectPatch]{
	name:    model.EntitySubject,
	columns: []string{"name", "teacher", "school_id", "semester_id"},
	sortable: map[string]string{
		"name":       "name",
		"teacher":    "teacher",
		"created_at": "created_at",
		"updated_at": "updated_at",
	},
	meta: func(s *model.Subject) *model.Meta { return &s.Meta },
	dest: func(s *model.Subject) []any {
		return []any{&s.Name, optString{&s.Teacher}, &s.SchoolID, optString{&s.SemesterID}}
	},
	args: func(s *model.Subject) []any {
		return []any{s.Name, s.Teacher, s.SchoolID, nullable(s.SemesterID)}
	},
	validate: func(s *model.Subject) error { return s.Validate() },
	apply:    func(p model.SubjectPatch, s *model.Subject) { p.Apply(s) },
	parents: func(s *model.Subject) []parentRef {
		return []parentRef{
			{field: "school_id", table: model.EntitySchool, id: s.SchoolID},
			{field: "semester_id", table: model.EntitySemester, id: s.SemesterID},
		}
	},
}

type Subjects struct {
	*crud[model.Subject, model.SubjectPatch]
}

var _ repository.SubjectRepository = (*Subjects)(nil)

func NewSubjects(db repository.DBTX, opts ...Option) *Subjects {
	return &Subjects{crud: newCrud(newStore(db, opts...), subjectTable)}
}

func (r *Subjects) FindBySchool(ctx context.Context, schoolID string) ([]model.Subject, error) {
	return r.findBy(ctx, "find_by_school", "school_id", schoolID)
}

func (r *Subjects) FindBySemester(ctx context.Context, semesterID string) ([]model.Subject, error) {
	return r.findBy(ctx, "find_by_semester", "semester_id", semesterID)
}

func (r *Subjects) findBy(ctx context.Context, op, column, id string) (items []model.Subject, err error) {
	start := time.Now()
	defer func() { r.s.observe(r.t.name, op, start, err) }()

	items, err = r.query(ctx, column+" = ?", []any{id}, []repository.OrderBy{{Field: "name"}}, "")
	if err != nil {
		return nil, translate(op, r.t.name, id, err)
	}
	return items, nil
}
