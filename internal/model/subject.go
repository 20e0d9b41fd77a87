package model

import "gradebook/internal/errs"

// Subject belongs to exactly one school and optionally to one semester.
type Subject struct {
	Meta
	Name       string `json:"name"`
	Teacher    string `json:"teacher,omitempty"`
	SchoolID   string `json:"school_id"`
	SemesterID string `json:"semester_id,omitempty"`
}

func (s *Subject) Validate() error {
	if err := validateName(EntitySubject, "name", s.Name, true); err != nil {
		return err
	}
	if err := validateName(EntitySubject, "teacher", s.Teacher, false); err != nil {
		return err
	}
	if s.SchoolID == "" {
		return errs.Validation(EntitySubject, "school_id", "is required")
	}
	return nil
}

// SubjectPatch updates a subject. An empty SemesterID detaches the subject
// from its semester.
type SubjectPatch struct {
	Name       *string `json:"name,omitempty"`
	Teacher    *string `json:"teacher,omitempty"`
	SchoolID   *string `json:"school_id,omitempty"`
	SemesterID *string `json:"semester_id,omitempty"`
}

func (p SubjectPatch) Apply(s *Subject) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Teacher != nil {
		s.Teacher = *p.Teacher
	}
	if p.SchoolID != nil {
		s.SchoolID = *p.SchoolID
	}
	if p.SemesterID != nil {
		s.SemesterID = *p.SemesterID
	}
}
