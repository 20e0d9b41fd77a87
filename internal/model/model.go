// Package model contains the persisted gradebook entities and their
// validation rules. It has no database dependencies.
package model

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gradebook/internal/errs"
)

const (
	// MaxNameLength bounds names, titles and teacher fields.
	MaxNameLength = 255

	MinScore  = 1.0
	MaxScore  = 6.0
	MinWeight = 0.0
	MaxWeight = 100.0
)

// Entity names used in errors, metrics and table lookups.
const (
	EntitySchool   = "school"
	EntitySemester = "semester"
	EntitySubject  = "subject"
	EntityExam     = "exam"
	EntityGrade    = "grade"
)

// Meta is the bookkeeping every entity carries.
type Meta struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int       `json:"version"`
	AppInstanceID string    `json:"app_instance_id"`
}

// Touch prepares meta for a new revision written at now.
func (m *Meta) Touch(now time.Time) {
	m.UpdatedAt = now
	m.Version++
}

func validateName(entity, field, value string, required bool) error {
	if strings.TrimSpace(value) == "" {
		if required {
			return errs.Validation(entity, field, "must not be empty")
		}
		return nil
	}
	if utf8.RuneCountInString(value) > MaxNameLength {
		return errs.Validation(entity, field, "must be at most 255 characters")
	}
	return nil
}

// hasAtMostTwoDecimals inspects the shortest decimal form of v, so 4.35 passes
// while 4.000000001 does not.
func hasAtMostTwoDecimals(v float64) bool {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	return dot < 0 || len(s)-dot-1 <= 2
}

func validateRange(entity, field string, v, min, max float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errs.Validation(entity, field, "must be a finite number")
	}
	if v < min || v > max {
		return errs.Validation(entity, field, "out of range")
	}
	if !hasAtMostTwoDecimals(v) {
		return errs.Validation(entity, field, "must have at most 2 decimal places")
	}
	return nil
}
