package model

// School owns zero or more subjects. Deleting a school deletes its subjects,
// their exams and their grades.
type School struct {
	Meta
	Name string `json:"name"`
}

func (s *School) Validate() error {
	return validateName(EntitySchool, "name", s.Name, true)
}

// SchoolPatch carries the fields of a partial update; nil means unchanged.
type SchoolPatch struct {
	Name *string `json:"name,omitempty"`
}

func (p SchoolPatch) Apply(s *School) {
	if p.Name != nil {
		s.Name = *p.Name
	}
}
