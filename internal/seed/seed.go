// Package seed loads a YAML question bank into the skills, questions and
// choice_options tables.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"github.com/stemsi/skilltest-backend/internal/database"
	"github.com/stemsi/skilltest-backend/internal/model"
)

// ErrInvalidBank is returned for a question bank that fails validation.
var ErrInvalidBank = errors.New("invalid question bank")

// SkillWriter upserts a skill by name.
type SkillWriter interface {
	Upsert(ctx context.Context, db database.DBTX, name string) (int, error)
}

// QuestionWriter inserts a question together with its options.
type QuestionWriter interface {
	Create(ctx context.Context, db database.DBTX, q *model.Question, options []model.ChoiceOption) error
}

// Result counts what Apply wrote.
type Result struct {
	Skills    int
	Questions int
	Options   int
}

// Parse decodes and validates a question bank.
func Parse(r io.Reader) (*model.QuestionBankFile, error) {
	var bank model.QuestionBankFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&bank); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	if err := Validate(&bank); err != nil {
		return nil, err
	}
	return &bank, nil
}

// Validate requires every question to have text, at least two options and
// exactly one correct option.
func Validate(bank *model.QuestionBankFile) error {
	if len(bank.Skills) == 0 {
		return fmt.Errorf("%w: no skills", ErrInvalidBank)
	}
	for si, s := range bank.Skills {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: skills[%d] has no name", ErrInvalidBank, si)
		}
		for qi, q := range s.Questions {
			where := fmt.Sprintf("skills[%d].questions[%d]", si, qi)
			if strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("%w: %s has no text", ErrInvalidBank, where)
			}
			if len(q.Options) < 2 {
				return fmt.Errorf("%w: %s needs at least 2 options", ErrInvalidBank, where)
			}
			correct := 0
			for _, o := range q.Options {
				if o.Correct {
					correct++
				}
			}
			if correct != 1 {
				return fmt.Errorf("%w: %s has %d correct options, want 1", ErrInvalidBank, where, correct)
			}
		}
	}
	return nil
}

// Apply writes the bank inside tx. Skills are matched by name; questions are
// always inserted.
func Apply(ctx context.Context, tx pgx.Tx, skills SkillWriter, questions QuestionWriter, bank *model.QuestionBankFile) (Result, error) {
	var res Result
	for _, s := range bank.Skills {
		skillID, err := skills.Upsert(ctx, tx, strings.TrimSpace(s.Name))
		if err != nil {
			return res, fmt.Errorf("upsert skill %q: %w", s.Name, err)
		}
		res.Skills++

		for _, q := range s.Questions {
			question := &model.Question{
				SkillID:      skillID,
				QuestionText: strings.TrimSpace(q.Text),
				IsAvailable:  q.Available == nil || *q.Available,
			}
			options := make([]model.ChoiceOption, 0, len(q.Options))
			for _, o := range q.Options {
				options = append(options, model.ChoiceOption{OptionText: o.Text, IsCorrect: o.Correct})
			}
			if err := questions.Create(ctx, tx, question, options); err != nil {
				return res, fmt.Errorf("create question %q: %w", question.QuestionText, err)
			}
			res.Questions++
			res.Options += len(options)
		}
	}
	return res, nil
}
