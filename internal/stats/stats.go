// Package stats computes weighted grade averages. All functions are pure:
// they read the grades they are given and never modify them.
//
// An average is undefined, reported as ok == false, when no grade matches
// or every matching grade has weight 0.
package stats

import "gradebook/internal/model"

// Weighted returns sum(score*weight) / sum(weight) over grades with a
// positive weight.
func Weighted(grades []model.GradeDetail) (avg float64, ok bool) {
	return weighted(grades, func(model.GradeDetail) bool { return true })
}

func AverageForSubject(subjectID string, grades []model.GradeDetail) (float64, bool) {
	return weighted(grades, func(g model.GradeDetail) bool { return g.SubjectID == subjectID })
}

func AverageForSchool(schoolID string, grades []model.GradeDetail) (float64, bool) {
	return weighted(grades, func(g model.GradeDetail) bool { return g.SchoolID == schoolID })
}

func AverageForSemester(semesterID string, grades []model.GradeDetail) (float64, bool) {
	if semesterID == "" {
		return 0, false
	}
	return weighted(grades, func(g model.GradeDetail) bool { return g.SemesterID == semesterID })
}

func weighted(grades []model.GradeDetail, match func(model.GradeDetail) bool) (float64, bool) {
	var sum, total float64
	for _, g := range grades {
		if g.Weight <= 0 || !match(g) {
			continue
		}
		sum += g.Score * g.Weight
		total += g.Weight
	}
	if total == 0 {
		return 0, false
	}
	return sum / total, true
}
