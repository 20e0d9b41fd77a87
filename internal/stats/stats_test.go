package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gradebook/internal/model"
)

func grade(subject, school, semester string, score, weight float64) model.GradeDetail {
	return model.GradeDetail{
		Grade:      model.Grade{Score: score, Weight: weight},
		SubjectID:  subject,
		SchoolID:   school,
		SemesterID: semester,
	}
}

func TestAverageForSubject(t *testing.T) {
	tests := []struct {
		name   string
		grades []model.GradeDetail
		want   float64
		wantOK bool
	}{
		{name: "no grades"},
		{
			name:   "single grade",
			grades: []model.GradeDetail{grade("en", "gym", "", 5, 50)},
			want:   5,
			wantOK: true,
		},
		{
			name:   "equal weights",
			grades: []model.GradeDetail{grade("en", "gym", "", 5, 50), grade("en", "gym", "", 3, 50)},
			want:   4,
			wantOK: true,
		},
		{
			name:   "unequal weights",
			grades: []model.GradeDetail{grade("en", "gym", "", 6, 75), grade("en", "gym", "", 2, 25)},
			want:   5,
			wantOK: true,
		},
		{
			name:   "other subjects ignored",
			grades: []model.GradeDetail{grade("en", "gym", "", 2, 10), grade("ma", "gym", "", 6, 90)},
			want:   2,
			wantOK: true,
		},
		{
			name:   "only zero weights",
			grades: []model.GradeDetail{grade("en", "gym", "", 4, 0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AverageForSubject("en", tt.grades)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestZeroWeightDoesNotChangeAverage(t *testing.T) {
	base := []model.GradeDetail{grade("en", "gym", "s1", 4.5, 30), grade("en", "gym", "s1", 2.25, 70)}
	want, ok := AverageForSubject("en", base)
	assert.True(t, ok)

	for _, score := range []float64{1, 2.5, 3.33, 6} {
		withZero := append(append([]model.GradeDetail{}, base...), grade("en", "gym", "s1", score, 0))
		got, ok := AverageForSubject("en", withZero)
		assert.True(t, ok)
		assert.Equal(t, want, got)

		got, _ = AverageForSchool("gym", withZero)
		school, _ := AverageForSchool("gym", base)
		assert.Equal(t, school, got)
	}
}

func TestAverageForSchoolAndSemester(t *testing.T) {
	grades := []model.GradeDetail{
		grade("en", "gym", "s1", 5, 50),
		grade("ma", "gym", "s2", 3, 50),
		grade("de", "real", "s1", 1, 100),
	}

	got, ok := AverageForSchool("gym", grades)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, got, 1e-9)

	got, ok = AverageForSemester("s1", grades)
	assert.True(t, ok)
	assert.InDelta(t, 7.0/3.0, got, 1e-9)

	_, ok = AverageForSemester("", grades)
	assert.False(t, ok)

	_, ok = AverageForSchool("none", grades)
	assert.False(t, ok)

	got, ok = Weighted(grades)
	assert.True(t, ok)
	assert.InDelta(t, 2.5, got, 1e-9)
}

func TestInputsAreNotModified(t *testing.T) {
	grades := []model.GradeDetail{grade("en", "gym", "", 5, 50), grade("en", "gym", "", 3, 0)}
	snapshot := append([]model.GradeDetail{}, grades...)

	AverageForSubject("en", grades)
	AverageForSchool("gym", grades)
	Weighted(grades)

	assert.Equal(t, snapshot, grades)
}
