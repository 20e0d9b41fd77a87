package model

import (
	"time"

	"gradebook/internal/errs"
)

// ExamStatus is derived from the presence of a grade and never stored.
type ExamStatus string

const (
	ExamUpcoming  ExamStatus = "upcoming"
	ExamCompleted ExamStatus = "completed"
)

// StatusFor returns Completed when the exam has a grade attached.
func StatusFor(grade *Grade) ExamStatus {
	if grade != nil {
		return ExamCompleted
	}
	return ExamUpcoming
}

// Exam belongs to exactly one subject and has zero or one grade.
type Exam struct {
	Meta
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	SubjectID   string    `json:"subject_id"`
}

func (e *Exam) Validate() error {
	if err := validateName(EntityExam, "name", e.Name, true); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return errs.Validation(EntityExam, "date", "is required")
	}
	if e.SubjectID == "" {
		return errs.Validation(EntityExam, "subject_id", "is required")
	}
	return nil
}

type ExamPatch struct {
	Name        *string    `json:"name,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Description *string    `json:"description,omitempty"`
	SubjectID   *string    `json:"subject_id,omitempty"`
}

func (p ExamPatch) Apply(e *Exam) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.SubjectID != nil {
		e.SubjectID = *p.SubjectID
	}
}

// ExamView is an exam together with its grade, if any.
type ExamView struct {
	Exam
	Grade  *Grade     `json:"grade,omitempty"`
	Status ExamStatus `json:"status"`
}

func NewExamView(exam Exam, grade *Grade) ExamView {
	return ExamView{Exam: exam, Grade: grade, Status: StatusFor(grade)}
}
