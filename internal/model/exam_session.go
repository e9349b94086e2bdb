package model

import (
	"time"
)

// SessionStatus is the lifecycle state of an exam session. It is never
// stored; it is derived from the session's assignment rows on every read.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "NOT_STARTED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	// SessionStatusAnswered means every question has a selection but the
	// session has not been scored yet.
	SessionStatusAnswered  SessionStatus = "ANSWERED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// SessionProgress holds the assignment counts status is derived from.
type SessionProgress struct {
	Total    int `json:"question_count"`
	Answered int `json:"answered_count"`
	Finished int `json:"finished_count"`
}

// Exists reports whether the session has any assignment rows.
func (p SessionProgress) Exists() bool { return p.Total > 0 }

// InProgress is true while at least one assignment has no selection.
func (p SessionProgress) InProgress() bool { return p.Answered < p.Total }

// Completed is true when every assignment carries a finish timestamp.
func (p SessionProgress) Completed() bool { return p.Total > 0 && p.Finished == p.Total }

// Status derives the lifecycle state. Completion wins over selection state.
func (p SessionProgress) Status() SessionStatus {
	switch {
	case p.Completed():
		return SessionStatusCompleted
	case p.Answered == 0:
		return SessionStatusNotStarted
	case p.Answered < p.Total:
		return SessionStatusInProgress
	default:
		return SessionStatusAnswered
	}
}

// Add counts one assignment row.
func (p *SessionProgress) Add(selected, finished bool) {
	p.Total++
	if selected {
		p.Answered++
	}
	if finished {
		p.Finished++
	}
}

// ExamSession is one generated exam instance owned by a user.
type ExamSession struct {
	ID        int64     `json:"exam_id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"create_at"`
}

// Assignment pairs a session with one of its questions and carries the answer state.
type Assignment struct {
	SessionID        int64      `json:"exam_id"`
	QuestionID       int        `json:"question_id"`
	Position         int        `json:"position"`
	SelectedOptionID *int       `json:"selected_option_id"`
	IsCorrect        *bool      `json:"is_correct"`
	AttemptAt        *time.Time `json:"attempt_at"`
	FinishAt         *time.Time `json:"finish_at"`
	TimeTaken        *int       `json:"time_taken"`
}

// ScoringRow is an assignment joined with its question's correct option.
type ScoringRow struct {
	QuestionID       int
	SelectedOptionID *int
	CorrectOptionID  *int
	FinishAt         *time.Time
}

// ScoredAssignment is the correctness verdict written for one assignment.
// SelectedOptionID is the selection the verdict was computed from.
type ScoredAssignment struct {
	QuestionID       int
	SelectedOptionID int
	IsCorrect        bool
}

// SessionOverview is a row of the session list with its derived status.
type SessionOverview struct {
	SessionID   int64           `json:"exam_id"`
	UserID      int             `json:"user_id"`
	CreatedAt   time.Time       `json:"create_at"`
	AttemptAt   *time.Time      `json:"attempt_at"`
	FinishAt    *time.Time      `json:"finish_at"`
	TimeTaken   *int            `json:"time_taken"`
	Progress    SessionProgress `json:"progress"`
	Status      SessionStatus   `json:"status"`
	IsCompleted bool            `json:"is_completed"`
}

// CreatedSession is returned by both generators.
type CreatedSession struct {
	SessionID     int64     `json:"exam_id"`
	QuestionCount int       `json:"question_count"`
	Timestamp     time.Time `json:"timestamp"`
}

// SelectionResult is returned after recording a selection.
type SelectionResult struct {
	InProgress  bool          `json:"in_progress"`
	IsCompleted bool          `json:"is_completed"`
	Status      SessionStatus `json:"status"`
}

// ScoreResult is returned by scoring.
type ScoreResult struct {
	SessionID int64     `json:"exam_id"`
	Total     int       `json:"total"`
	Correct   int       `json:"correct"`
	FinishAt  time.Time `json:"finish_at"`
}

// SessionQuestion is one question of a session as shown to the taker.
// Correctness fields stay nil until the session is completed.
type SessionQuestion struct {
	SessionID        int64          `json:"exam_id"`
	QuestionID       int            `json:"question_id"`
	Position         int            `json:"position"`
	SkillID          int            `json:"skill_id"`
	SkillName        string         `json:"skill_name"`
	QuestionText     string         `json:"question_text"`
	SelectedOptionID *int           `json:"selected_option_id"`
	CorrectOptionID  *int           `json:"correct_option_id,omitempty"`
	IsCorrect        *bool          `json:"is_correct,omitempty"`
	FinishAt         *time.Time     `json:"finish_at,omitempty"`
	Options          []OptionOutput `json:"options"`
}

// SessionDetail is the full view of a session.
type SessionDetail struct {
	SessionID   int64             `json:"exam_id"`
	Status      SessionStatus     `json:"status"`
	IsCompleted bool              `json:"is_completed"`
	Questions   []SessionQuestion `json:"exam_detail"`
}

// GenerateRandomRequest is the payload for a uniformly sampled session.
// UserID defaults to the caller; only admins may generate for others.
type GenerateRandomRequest struct {
	UserID        *int `json:"user_id" binding:"omitempty,gt=0"`
	QuestionCount *int `json:"question_count" binding:"omitempty,gt=0"`
}

// SkillCount asks for Count questions from one skill.
type SkillCount struct {
	SkillID int `json:"skill_id" binding:"required,gt=0"`
	Count   int `json:"count" binding:"required,gt=0"`
}

// GenerateCustomRequest is the payload for a skill-weighted session.
type GenerateCustomRequest struct {
	UserID *int         `json:"user_id" binding:"omitempty,gt=0"`
	Skills []SkillCount `json:"skills" binding:"required,min=1,dive"`
}

// SelectOptionRequest records a choice for one question of a session.
type SelectOptionRequest struct {
	QuestionID int `json:"question_id" binding:"required,gt=0"`
	OptionID   int `json:"option_id" binding:"required,gt=0"`
}
