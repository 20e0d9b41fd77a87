package model

import "gradebook/internal/errs"

// Grade is the result of one exam. Score is on the 1-6 scale, Weight is a
// percentage in [0, 100]; both keep at most two decimal places.
type Grade struct {
	Meta
	Score   float64 `json:"score"`
	Weight  float64 `json:"weight"`
	Comment string  `json:"comment,omitempty"`
	ExamID  string  `json:"exam_id"`
}

func (g *Grade) Validate() error {
	if err := validateRange(EntityGrade, "score", g.Score, MinScore, MaxScore); err != nil {
		return err
	}
	if err := validateRange(EntityGrade, "weight", g.Weight, MinWeight, MaxWeight); err != nil {
		return err
	}
	if g.ExamID == "" {
		return errs.Validation(EntityGrade, "exam_id", "is required")
	}
	return nil
}

type GradePatch struct {
	Score   *float64 `json:"score,omitempty"`
	Weight  *float64 `json:"weight,omitempty"`
	Comment *string  `json:"comment,omitempty"`
	ExamID  *string  `json:"exam_id,omitempty"`
}

func (p GradePatch) Apply(g *Grade) {
	if p.Score != nil {
		g.Score = *p.Score
	}
	if p.Weight != nil {
		g.Weight = *p.Weight
	}
	if p.Comment != nil {
		g.Comment = *p.Comment
	}
	if p.ExamID != nil {
		g.ExamID = *p.ExamID
	}
}

// GradeDetail is a grade joined with the ids of the exam's subject, the
// subject's school and the subject's semester.
type GradeDetail struct {
	Grade
	SubjectID  string `json:"subject_id"`
	SchoolID   string `json:"school_id"`
	SemesterID string `json:"semester_id,omitempty"`
}
