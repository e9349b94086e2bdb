package model

import "time"

// SummaryRow is the raw per-session aggregate read from the store.
type SummaryRow struct {
	SessionID     int64
	SkillName     *string
	Score         int
	Total         int
	SubmittedDate time.Time
}

// ExamSummary is one finalised session in the dashboard summary.
type ExamSummary struct {
	SessionID     int64     `json:"exam_id"`
	Test          string    `json:"test"`
	Skills        *string   `json:"skills,omitempty"`
	Score         int       `json:"score"`
	Total         int       `json:"total"`
	Percentage    string    `json:"percentage"`
	SubmittedDate time.Time `json:"submitted_date"`
}

// GeneralStats aggregates every finalised assignment of a user.
type GeneralStats struct {
	TotalExamTested int     `json:"total_exam_tested"`
	TotalQuestions  int     `json:"total_questions"`
	Score           int     `json:"score"`
	Total           int     `json:"total"`
	AverageScore    float64 `json:"average_score"`
}

// SkillPerformanceRow is the raw per-skill correctness count.
type SkillPerformanceRow struct {
	SkillID   int
	SkillName string
	Correct   int
	Incorrect int
}

// SkillPerformance is the per-skill correct/incorrect split.
type SkillPerformance struct {
	SkillID             int     `json:"skill_id"`
	SkillName           string  `json:"skills"`
	CorrectPercentage   float64 `json:"correct_percentage"`
	IncorrectPercentage float64 `json:"incorrect_percentage"`
}

// Dashboard bundles the reports shown on the user's landing page.
type Dashboard struct {
	Stats       GeneralStats       `json:"stat"`
	Summary     []ExamSummary      `json:"summary"`
	Performance []SkillPerformance `json:"performance"`
}
