package model

import (
	"fmt"
	"time"

	"gradebook/internal/errs"
)

// Semester groups subjects within a date range.
type Semester struct {
	Meta
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (s *Semester) Validate() error {
	if err := validateName(EntitySemester, "name", s.Name, true); err != nil {
		return err
	}
	if s.StartDate.IsZero() {
		return errs.Validation(EntitySemester, "start_date", "is required")
	}
	if s.EndDate.IsZero() {
		return errs.Validation(EntitySemester, "end_date", "is required")
	}
	if s.StartDate.After(s.EndDate) {
		return errs.Validation(EntitySemester, "end_date", "must not be before start_date")
	}
	return nil
}

type SemesterPatch struct {
	Name      *string    `json:"name,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

func (p SemesterPatch) Apply(s *Semester) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.StartDate != nil {
		s.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		s.EndDate = *p.EndDate
	}
}

// AcademicYear returns the default semester range containing now:
// Aug 15 to Jul 31 of the following year.
func AcademicYear(now time.Time) (start, end time.Time) {
	now = now.UTC()
	year := now.Year()
	if now.Before(time.Date(year, time.August, 15, 0, 0, 0, 0, time.UTC)) {
		year--
	}
	start = time.Date(year, time.August, 15, 0, 0, 0, 0, time.UTC)
	end = time.Date(year+1, time.July, 31, 0, 0, 0, 0, time.UTC)
	return start, end
}

// AcademicYearName labels a range produced by AcademicYear, e.g. "2025/2026".
func AcademicYearName(start, end time.Time) string {
	return fmt.Sprintf("%d/%d", start.Year(), end.Year())
}
