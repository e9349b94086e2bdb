package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/skilltest-backend/internal/model"
	"github.com/stemsi/skilltest-backend/internal/repository"
)

// ScoringService finalises sessions: every assignment gets a correctness
// verdict and a shared finish time, or none does.
type ScoringService struct {
	sessions SessionStore
	now      func() time.Time
	log      zerolog.Logger
}

// NewScoringService creates a new ScoringService.
func NewScoringService(sessions SessionStore) *ScoringService {
	return &ScoringService{
		sessions: sessions,
		now:      time.Now,
		log:      log.With().Str("component", "scoring_service").Logger(),
	}
}

// CheckAnswers scores a fully answered session. It fails without writing
// anything if the session is already completed or any question is unanswered.
func (s *ScoringService) CheckAnswers(ctx context.Context, sessionID int64) (*model.ScoreResult, error) {
	rows, err := s.sessions.ListScoringRows(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list scoring rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: exam %d", ErrNotFound, sessionID)
	}

	var p model.SessionProgress
	for _, r := range rows {
		p.Add(r.SelectedOptionID != nil, r.FinishAt != nil)
	}
	if p.Completed() {
		return nil, ErrSessionCompleted
	}

	scored := make([]model.ScoredAssignment, 0, len(rows))
	correct := 0
	for _, r := range rows {
		if r.SelectedOptionID == nil {
			return nil, newValidationError("question_id", "question_id: %d no selected option", r.QuestionID)
		}
		ok := r.CorrectOptionID != nil && *r.SelectedOptionID == *r.CorrectOptionID
		if ok {
			correct++
		}
		scored = append(scored, model.ScoredAssignment{
			QuestionID:       r.QuestionID,
			SelectedOptionID: *r.SelectedOptionID,
			IsCorrect:        ok,
		})
	}

	finishAt := s.now()
	if err := s.sessions.Finalize(ctx, sessionID, scored, finishAt); err != nil {
		if errors.Is(err, repository.ErrRowCountMismatch) {
			return nil, fmt.Errorf("%w: exam %d changed while scoring", ErrConflict, sessionID)
		}
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	s.log.Info().
		Int64("exam_id", sessionID).
		Int("total", len(rows)).
		Int("correct", correct).
		Msg("exam session scored")

	return &model.ScoreResult{
		SessionID: sessionID,
		Total:     len(rows),
		Correct:   correct,
		FinishAt:  finishAt,
	}, nil
}
