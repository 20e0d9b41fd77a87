package sqlite

import (
	"gradebook/internal/model"
	"gradebook/internal/repository"
)

var schoolTable = table[model.School, model.SchoolPatch]{
	name:    model.EntitySchool,
	columns: []string{"name"},
	sortable: map[string]string{
		"name":       "name",
		"created_at": "created_at",
		"updated_at": "updated_at",
	},
	meta:     func(s *model.School) *model.Meta { return &s.Meta },
	dest:     func(s *model.School) []any { return []any{&s.Name} },
	args:     func(s *model.School) []any { return []any{s.Name} },
	validate: func(s *model.School) error { return s.Validate() },
	apply:    func(p model.SchoolPatch, s *model.School) { p.Apply(s) },
}

// Schools stores schools. Deleting a school removes its subjects, their
// exams and grades through ON DELETE CASCADE.
type Schools struct {
	*crud[model.School, model.SchoolPatch]
}

var _ repository.SchoolRepository = (*Schools)(nil)

func NewSchools(db repository.DBTX, opts ...Option) *Schools {
	return &Schools{crud: newCrud(newStore(db, opts...), schoolTable)}
}
