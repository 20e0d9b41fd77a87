package sqlite

import (
	"gradebook/internal/model"
	"gradebook/internal/repository"
)

var semesterTable = table[model.Semester, model.SemesterPatch]{
	name:    model.EntitySemester,
	columns: []string{"name", "start_date", "end_date"},
	sortable: map[string]string{
		"name":       "name",
		"start_date": "start_date",
		"end_date":   "end_date",
		"created_at": "created_at",
	},
	meta: func(s *model.Semester) *model.Meta { return &s.Meta },
	dest: func(s *model.Semester) []any {
		return []any{&s.Name, timeDest{&s.StartDate}, timeDest{&s.EndDate}}
	},
	args: func(s *model.Semester) []any {
		return []any{s.Name, formatTime(s.StartDate), formatTime(s.EndDate)}
	},
	validate: func(s *model.Semester) error { return s.Validate() },
	apply:    func(p model.SemesterPatch, s *model.Semester) { p.Apply(s) },
}

// Semesters stores semesters. Deleting one detaches its subjects.
type Semesters struct {
	*crud[model.Semester, model.SemesterPatch]
}

var _ repository.SemesterRepository = (*Semesters)(nil)

func NewSemesters(db repository.DBTX, opts ...Option) *Semesters {
	return &Semesters{crud: newCrud(newStore(db, opts...), semesterTable)}
}
