package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/skilltest-backend/internal/model"
)

// ExamSessionService answers state queries about sessions and records
// option selections.
type ExamSessionService struct {
	sessions  SessionStore
	questions QuestionStore
	log       zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(sessions SessionStore, questions QuestionStore) *ExamSessionService {
	return &ExamSessionService{
		sessions:  sessions,
		questions: questions,
		log:       log.With().Str("component", "exam_session_service").Logger(),
	}
}

// ListSessions lists sessions with their derived status. A nil userID lists
// every user's sessions.
func (s *ExamSessionService) ListSessions(ctx context.Context, userID *int) ([]model.SessionOverview, error) {
	sessions, err := s.sessions.ListOverviews(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for i := range sessions {
		sessions[i].Status = sessions[i].Progress.Status()
		sessions[i].IsCompleted = sessions[i].Progress.Completed()
	}
	return sessions, nil
}

// Progress returns the assignment counts of a session. A session without
// assignments is NotFound.
func (s *ExamSessionService) Progress(ctx context.Context, sessionID int64) (model.SessionProgress, error) {
	p, err := s.sessions.Progress(ctx, sessionID)
	if err != nil {
		return p, fmt.Errorf("session progress: %w", err)
	}
	if !p.Exists() {
		return p, fmt.Errorf("%w: exam %d", ErrNotFound, sessionID)
	}
	return p, nil
}

// Status derives the lifecycle state of a session.
func (s *ExamSessionService) Status(ctx context.Context, sessionID int64) (model.SessionStatus, error) {
	p, err := s.Progress(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return p.Status(), nil
}

// IsInProgress is true while any assignment lacks a selection.
func (s *ExamSessionService) IsInProgress(ctx context.Context, sessionID int64) (bool, error) {
	p, err := s.Progress(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return p.InProgress(), nil
}

// IsCompleted is true when every assignment is finalised.
func (s *ExamSessionService) IsCompleted(ctx context.Context, sessionID int64) (bool, error) {
	p, err := s.Progress(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return p.Completed(), nil
}

// CountQuestions returns the number of questions in a session.
func (s *ExamSessionService) CountQuestions(ctx context.Context, sessionID int64) (int, error) {
	p, err := s.Progress(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return p.Total, nil
}

// Owner returns the user that owns a session.
func (s *ExamSessionService) Owner(ctx context.Context, sessionID int64) (int, error) {
	userID, err := s.sessions.Owner(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: exam %d", ErrNotFound, sessionID)
		}
		return 0, fmt.Errorf("session owner: %w", err)
	}
	return userID, nil
}

// GetQuestion returns the question at a zero-based presentation index.
func (s *ExamSessionService) GetQuestion(ctx context.Context, sessionID int64, index int) (*model.SessionQuestion, error) {
	p, err := s.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= p.Total {
		return nil, newValidationError("index", "index must be between 0 - %d", p.Total-1)
	}

	q, err := s.sessions.QuestionAt(ctx, sessionID, index)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: exam %d question %d", ErrNotFound, sessionID, index)
		}
		return nil, fmt.Errorf("question at index: %w", err)
	}

	options, err := s.questions.ListOptions(ctx, q.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	revealAnswers(q, options, p.Completed())
	return q, nil
}

// Detail returns every question of a session with its options and selection.
// Correctness is only revealed once the session is completed.
func (s *ExamSessionService) Detail(ctx context.Context, sessionID int64) (*model.SessionDetail, error) {
	questions, err := s.sessions.ListQuestions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: exam %d", ErrNotFound, sessionID)
	}

	ids := make([]int, len(questions))
	var p model.SessionProgress
	for i, q := range questions {
		ids[i] = q.QuestionID
		p.Add(q.SelectedOptionID != nil, q.FinishAt != nil)
	}

	options, err := s.questions.ListOptionsByQuestions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}

	completed := p.Completed()
	for i := range questions {
		revealAnswers(&questions[i], options[questions[i].QuestionID], completed)
	}

	return &model.SessionDetail{
		SessionID:   sessionID,
		Status:      p.Status(),
		IsCompleted: completed,
		Questions:   questions,
	}, nil
}

// SelectOption records the chosen option for one question of a session.
// Repeated calls before completion overwrite the previous selection.
func (s *ExamSessionService) SelectOption(ctx context.Context, sessionID int64, questionID, optionID int) (*model.SelectionResult, error) {
	options, err := s.questions.ListOptions(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: question %d has no options", ErrNotFound, questionID)
	}
	if !slices.ContainsFunc(options, func(o model.ChoiceOption) bool { return o.ID == optionID }) {
		lo, hi := optionBounds(options)
		return nil, newValidationError("option_id", "option_id must be between %d - %d", lo, hi)
	}

	p, err := s.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if p.Completed() {
		return nil, ErrSessionCompleted
	}

	updated, err := s.sessions.UpdateSelection(ctx, sessionID, questionID, optionID)
	if err != nil {
		return nil, fmt.Errorf("update selection: %w", err)
	}
	if updated == 0 {
		// Either the question is not part of the session or scoring won the race.
		p, err = s.Progress(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if p.Finished > 0 {
			return nil, ErrSessionCompleted
		}
		return nil, fmt.Errorf("%w: question %d is not part of exam %d", ErrNotFound, questionID, sessionID)
	}

	p, err = s.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int64("exam_id", sessionID).
		Int("question_id", questionID).
		Int("option_id", optionID).
		Msg("option selected")

	return &model.SelectionResult{
		InProgress:  p.InProgress(),
		IsCompleted: p.Completed(),
		Status:      p.Status(),
	}, nil
}

func optionBounds(options []model.ChoiceOption) (lo, hi int) {
	lo, hi = options[0].ID, options[0].ID
	for _, o := range options[1:] {
		lo = min(lo, o.ID)
		hi = max(hi, o.ID)
	}
	return lo, hi
}

// revealAnswers attaches options to q and strips correctness unless completed.
func revealAnswers(q *model.SessionQuestion, options []model.ChoiceOption, completed bool) {
	q.Options = make([]model.OptionOutput, len(options))
	for i, o := range options {
		q.Options[i] = model.OptionOutput{ID: o.ID, OptionText: o.OptionText}
		if completed {
			correct := o.IsCorrect
			q.Options[i].IsCorrect = &correct
		}
	}
	if !completed {
		q.CorrectOptionID = nil
		q.IsCorrect = nil
	}
}
