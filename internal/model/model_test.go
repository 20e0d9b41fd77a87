package model

import (
	"strings"
	"testing"
	"time"

	"gradebook/internal/errs"

	"github.com/stretchr/testify/assert"
)

func TestGradeValidate(t *testing.T) {
	tests := []struct {
		name    string
		score   float64
		weight  float64
		wantErr bool
	}{
		{name: "lower bounds", score: 1, weight: 0},
		{name: "upper bounds", score: 6, weight: 100},
		{name: "two decimals", score: 4.75, weight: 33.33},
		{name: "float noise", score: 4.35, weight: 0.07},
		{name: "score below range", score: 0.99, weight: 50, wantErr: true},
		{name: "score above range", score: 6.01, weight: 50, wantErr: true},
		{name: "score three decimals", score: 4.125, weight: 50, wantErr: true},
		{name: "negative weight", score: 4, weight: -1, wantErr: true},
		{name: "weight above range", score: 4, weight: 100.5, wantErr: true},
		{name: "weight three decimals", score: 4, weight: 12.345, wantErr: true},
		{name: "score hidden ninth decimal", score: 4.000000001, weight: 50, wantErr: true},
		{name: "weight hidden ninth decimal", score: 4, weight: 50.000000009, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Grade{Score: tt.score, Weight: tt.weight, ExamID: "exam-1"}
			err := g.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGradeValidateRequiresExam(t *testing.T) {
	err := (&Grade{Score: 5, Weight: 50}).Validate()
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, err.Error(), "exam_id")
}

func TestNameValidation(t *testing.T) {
	long := strings.Repeat("a", MaxNameLength+1)

	assert.ErrorIs(t, (&School{Name: "  "}).Validate(), errs.ErrValidation)
	assert.ErrorIs(t, (&School{Name: long}).Validate(), errs.ErrValidation)
	assert.NoError(t, (&School{Name: strings.Repeat("ä", MaxNameLength)}).Validate())

	assert.ErrorIs(t, (&Subject{Name: "Mathe"}).Validate(), errs.ErrValidation)
	assert.NoError(t, (&Subject{Name: "Mathe", SchoolID: "s1"}).Validate())
	assert.ErrorIs(t, (&Subject{Name: "Mathe", SchoolID: "s1", Teacher: long}).Validate(), errs.ErrValidation)

	assert.ErrorIs(t, (&Exam{Name: "Test", SubjectID: "x"}).Validate(), errs.ErrValidation)
	assert.NoError(t, (&Exam{Name: "Test", SubjectID: "x", Date: time.Now()}).Validate())
}

func TestSemesterValidate(t *testing.T) {
	start := time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, (&Semester{Name: "2025/2026", StartDate: start, EndDate: end}).Validate())
	assert.NoError(t, (&Semester{Name: "one day", StartDate: start, EndDate: start}).Validate())
	assert.ErrorIs(t, (&Semester{Name: "reversed", StartDate: end, EndDate: start}).Validate(), errs.ErrValidation)
	assert.ErrorIs(t, (&Semester{Name: "open", StartDate: start}).Validate(), errs.ErrValidation)
}

func TestAcademicYear(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart string
		wantEnd   string
	}{
		{
			name:      "before boundary",
			now:       time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC),
			wantStart: "2025-08-15",
			wantEnd:   "2026-07-31",
		},
		{
			name:      "on boundary",
			now:       time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC),
			wantStart: "2026-08-15",
			wantEnd:   "2027-07-31",
		},
		{
			name:      "between end and next start",
			now:       time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC),
			wantStart: "2025-08-15",
			wantEnd:   "2026-07-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := AcademicYear(tt.now)
			assert.Equal(t, tt.wantStart, start.Format("2006-01-02"))
			assert.Equal(t, tt.wantEnd, end.Format("2006-01-02"))
		})
	}

	start, end := AcademicYear(time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026/2027", AcademicYearName(start, end))
}

func TestPatchApplyKeepsUnsetFields(t *testing.T) {
	subject := Subject{Name: "Mathe", Teacher: "Frau Keller", SchoolID: "s1", SemesterID: "sem1"}
	name := "Mathematik"
	SubjectPatch{Name: &name}.Apply(&subject)

	assert.Equal(t, "Mathematik", subject.Name)
	assert.Equal(t, "Frau Keller", subject.Teacher)
	assert.Equal(t, "s1", subject.SchoolID)
	assert.Equal(t, "sem1", subject.SemesterID)

	detach := ""
	SubjectPatch{SemesterID: &detach}.Apply(&subject)
	assert.Empty(t, subject.SemesterID)
}

func TestExamStatusDerived(t *testing.T) {
	exam := Exam{Name: "Vokabeltest"}

	assert.Equal(t, ExamUpcoming, NewExamView(exam, nil).Status)
	assert.Equal(t, ExamCompleted, NewExamView(exam, &Grade{Score: 5}).Status)
}

func TestMetaTouch(t *testing.T) {
	m := Meta{Version: 1}
	now := time.Now().UTC()
	m.Touch(now)
	assert.Equal(t, 2, m.Version)
	assert.Equal(t, now, m.UpdatedAt)
}
