package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/model"
)

// ExamGeneratorService assembles new exam sessions from the question bank.
type ExamGeneratorService struct {
	users     UserStore
	questions QuestionStore
	sessions  SessionStore
	sampler   *Sampler
	cfg       config.ExamConfig
	log       zerolog.Logger
}

// NewExamGeneratorService creates a new ExamGeneratorService.
func NewExamGeneratorService(
	users UserStore,
	questions QuestionStore,
	sessions SessionStore,
	sampler *Sampler,
	cfg config.ExamConfig,
) *ExamGeneratorService {
	return &ExamGeneratorService{
		users:     users,
		questions: questions,
		sessions:  sessions,
		sampler:   sampler,
		cfg:       cfg,
		log:       log.With().Str("component", "exam_generator_service").Logger(),
	}
}

// GenerateRandom creates a session of questionCount questions drawn uniformly
// from every available question. A nil questionCount uses the configured default.
func (s *ExamGeneratorService) GenerateRandom(ctx context.Context, userID int, questionCount *int) (*model.CreatedSession, error) {
	count := s.cfg.DefaultQuestionCount
	if questionCount != nil {
		count = *questionCount
	}
	if count < 1 {
		return nil, newValidationError("question_count", "question_count must be at least 1")
	}
	if s.cfg.MaxQuestionCount > 0 && count > s.cfg.MaxQuestionCount {
		return nil, newValidationError("question_count", "question_count must not exceed %d", s.cfg.MaxQuestionCount)
	}

	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	pool, err := s.questions.ListAvailableIDs(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list available questions: %w", err)
	}
	if len(pool) < count {
		return nil, fmt.Errorf("%w: requested %d, %d available", ErrNoQuestionsAvailable, count, len(pool))
	}

	return s.create(ctx, userID, s.sampler.Sample(pool, count))
}

// GenerateCustom creates a session with the requested number of questions per
// skill. Entries naming the same skill draw disjoint questions. If any skill
// cannot supply its count the whole request fails.
func (s *ExamGeneratorService) GenerateCustom(ctx context.Context, userID int, skills []model.SkillCount) (*model.CreatedSession, error) {
	if len(skills) == 0 {
		return nil, newValidationError("skills", "skills must contain at least one entry")
	}
	total := 0
	for i, sc := range skills {
		if sc.SkillID <= 0 {
			return nil, newValidationError(fmt.Sprintf("skills[%d].skill_id", i), "skill_id is required")
		}
		if sc.Count <= 0 {
			return nil, newValidationError(fmt.Sprintf("skills[%d].count", i), "count must be at least 1")
		}
		total += sc.Count
	}
	if s.cfg.MaxQuestionCount > 0 && total > s.cfg.MaxQuestionCount {
		return nil, newValidationError("skills", "total question count must not exceed %d", s.cfg.MaxQuestionCount)
	}

	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	chosen := make(map[int]struct{}, total)
	ids := make([]int, 0, total)
	for _, sc := range skills {
		skillID := sc.SkillID
		pool, err := s.questions.ListAvailableIDs(ctx, &skillID)
		if err != nil {
			return nil, fmt.Errorf("list available questions for skill %d: %w", skillID, err)
		}

		remaining := pool[:0:0]
		for _, id := range pool {
			if _, taken := chosen[id]; !taken {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) < sc.Count {
			return nil, fmt.Errorf("%w: skill %d has %d of %d requested questions",
				ErrNoQuestionsAvailable, skillID, len(remaining), sc.Count)
		}

		for _, id := range s.sampler.Sample(remaining, sc.Count) {
			chosen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	s.sampler.Shuffle(ids)
	return s.create(ctx, userID, ids)
}

func (s *ExamGeneratorService) ensureUser(ctx context.Context, userID int) error {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return nil
}

func (s *ExamGeneratorService) create(ctx context.Context, userID int, questionIDs []int) (*model.CreatedSession, error) {
	session, err := s.sessions.Create(ctx, userID, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Int64("exam_id", session.ID).
		Int("user_id", userID).
		Int("question_count", len(questionIDs)).
		Msg("exam session generated")

	return &model.CreatedSession{
		SessionID:     session.ID,
		QuestionCount: len(questionIDs),
		Timestamp:     session.CreatedAt,
	}, nil
}
