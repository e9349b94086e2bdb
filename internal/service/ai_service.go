package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/model"
)

// TextGenerator produces free text for a prompt. It is satisfied by *textgen.Client.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	feedbackKindExplain = "explain"
	feedbackKindSuggest = "suggest"
)

// Feedback is generated text returned to the caller unmodified.
type Feedback struct {
	SessionID  int64  `json:"exam_id"`
	QuestionID *int   `json:"question_id,omitempty"`
	IsCorrect  *bool  `json:"is_correct,omitempty"`
	Text       string `json:"text"`
	Cached     bool   `json:"cached"`
}

// AIService builds explanation and study-suggestion prompts for completed
// sessions. It never writes exam state.
type AIService struct {
	sessions  SessionStore
	questions QuestionStore
	generator TextGenerator
	rdb       *redis.Client
	cacheTTL  time.Duration
	log       zerolog.Logger
}

// NewAIService creates a new AIService. A nil rdb disables response caching.
func NewAIService(sessions SessionStore, questions QuestionStore, generator TextGenerator, rdb *redis.Client, cacheTTL time.Duration) *AIService {
	return &AIService{
		sessions:  sessions,
		questions: questions,
		generator: generator,
		rdb:       rdb,
		cacheTTL:  cacheTTL,
		log:       log.With().Str("component", "ai_service").Logger(),
	}
}

// Explain asks why the declared correct option of one question is right,
// telling the generator whether the user chose it.
func (s *AIService) Explain(ctx context.Context, sessionID int64, questionID int) (*Feedback, error) {
	questions, err := s.completedQuestions(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var target *model.SessionQuestion
	for i := range questions {
		if questions[i].QuestionID == questionID {
			target = &questions[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: question %d is not part of exam %d", ErrNotFound, questionID, sessionID)
	}

	options, err := s.questions.ListOptions(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}

	correct := target.IsCorrect != nil && *target.IsCorrect
	prompt := buildExplainPrompt(target, options, correct)

	text, cached, err := s.generate(ctx, feedbackKindExplain, prompt)
	if err != nil {
		return nil, err
	}
	return &Feedback{SessionID: sessionID, QuestionID: &questionID, IsCorrect: &correct, Text: text, Cached: cached}, nil
}

// Suggest asks for study advice based on every result of the session.
func (s *AIService) Suggest(ctx context.Context, sessionID int64) (*Feedback, error) {
	questions, err := s.completedQuestions(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	text, cached, err := s.generate(ctx, feedbackKindSuggest, buildSuggestPrompt(questions))
	if err != nil {
		return nil, err
	}
	return &Feedback{SessionID: sessionID, Text: text, Cached: cached}, nil
}

func (s *AIService) completedQuestions(ctx context.Context, sessionID int64) ([]model.SessionQuestion, error) {
	questions, err := s.sessions.ListQuestions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: exam %d", ErrNotFound, sessionID)
	}
	for _, q := range questions {
		if q.FinishAt == nil {
			return nil, ErrSessionNotCompleted
		}
	}
	return questions, nil
}

func (s *AIService) generate(ctx context.Context, kind, prompt string) (string, bool, error) {
	sum := sha256.Sum256([]byte(prompt))
	key := config.CacheKey.AIResponseKey(kind, hex.EncodeToString(sum[:]))

	if s.rdb != nil {
		text, err := s.rdb.Get(ctx, key).Result()
		switch {
		case err == nil:
			return text, true, nil
		case !errors.Is(err, redis.Nil):
			s.log.Warn().Err(err).Str("key", key).Msg("ai cache read failed")
		}
	}

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.log.Error().Err(err).Str("kind", kind).Msg("text generation failed")
		return "", false, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, text, s.cacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("ai cache write failed")
		}
	}
	return text, false, nil
}

// optionLabel names the i-th choice A..Z, then AA..AZ, BA and so on.
func optionLabel(i int) string {
	var buf []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		buf = append([]byte{byte('A' + (n-1)%26)}, buf...)
	}
	return string(buf)
}

func buildExplainPrompt(q *model.SessionQuestion, options []model.ChoiceOption, correct bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Skill: %s\n", q.SkillName)
	fmt.Fprintf(&b, "Question: %s\n", q.QuestionText)
	b.WriteString("Choices:\n")
	var answer, chosen string
	for i, o := range options {
		label := optionLabel(i)
		fmt.Fprintf(&b, "%s. %s\n", label, o.OptionText)
		if o.IsCorrect {
			answer = label
		}
		if q.SelectedOptionID != nil && *q.SelectedOptionID == o.ID {
			chosen = label
		}
	}
	fmt.Fprintf(&b, "Correct choice: %s\n", answer)
	fmt.Fprintf(&b, "Learner chose: %s\n", chosen)
	if correct {
		b.WriteString("The learner answered correctly. Briefly confirm why this choice is right.\n")
	} else {
		b.WriteString("The learner answered incorrectly. Explain why the correct choice is right and where the chosen one goes wrong.\n")
	}
	return b.String()
}

func buildSuggestPrompt(questions []model.SessionQuestion) string {
	var b strings.Builder
	b.WriteString("Results of a multiple-choice test, one line per question:\n")
	for i, q := range questions {
		result := "incorrect"
		if q.IsCorrect != nil && *q.IsCorrect {
			result = "correct"
		}
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, q.SkillName, q.QuestionText, result)
	}
	b.WriteString("Suggest which skills the learner should study next and how.\n")
	return b.String()
}
