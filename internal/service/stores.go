package service

import (
	"context"
	"time"

	"github.com/stemsi/skilltest-backend/internal/model"
)

// The interfaces below are satisfied by the concrete repositories in
// internal/repository. Lookups that find nothing return pgx.ErrNoRows.

// UserStore reads and writes user accounts.
type UserStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	Exists(ctx context.Context, id int) (bool, error)
	Create(ctx context.Context, u *model.User) error
}

// QuestionStore reads the question bank.
type QuestionStore interface {
	ListAvailableIDs(ctx context.Context, skillID *int) ([]int, error)
	ListOptions(ctx context.Context, questionID int) ([]model.ChoiceOption, error)
	ListOptionsByQuestions(ctx context.Context, questionIDs []int) (map[int][]model.ChoiceOption, error)
}

// SkillStore lists skills.
type SkillStore interface {
	List(ctx context.Context) ([]model.Skill, error)
}

// SessionStore persists exam sessions and their assignments.
type SessionStore interface {
	Create(ctx context.Context, userID int, questionIDs []int) (*model.ExamSession, error)
	Owner(ctx context.Context, sessionID int64) (int, error)
	Progress(ctx context.Context, sessionID int64) (model.SessionProgress, error)
	ListOverviews(ctx context.Context, userID *int) ([]model.SessionOverview, error)
	ListQuestions(ctx context.Context, sessionID int64) ([]model.SessionQuestion, error)
	QuestionAt(ctx context.Context, sessionID int64, index int) (*model.SessionQuestion, error)
	UpdateSelection(ctx context.Context, sessionID int64, questionID, optionID int) (int64, error)
	ListScoringRows(ctx context.Context, sessionID int64) ([]model.ScoringRow, error)
	Finalize(ctx context.Context, sessionID int64, scored []model.ScoredAssignment, finishAt time.Time) error
}

// DashboardStore runs the aggregate report queries.
type DashboardStore interface {
	SummaryRows(ctx context.Context, userID int, skillID *int) ([]model.SummaryRow, error)
	Stats(ctx context.Context, userID int) (model.GeneralStats, error)
	SkillPerformance(ctx context.Context, userID int) ([]model.SkillPerformanceRow, error)
}
