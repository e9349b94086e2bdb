package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/skilltest-backend/internal/database"
	"github.com/stemsi/skilltest-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListAvailableIDs returns the IDs of available questions, restricted to one
// skill when skillID is non-nil.
func (r *QuestionRepository) ListAvailableIDs(ctx context.Context, skillID *int) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id FROM questions
		 WHERE is_available AND ($1::int IS NULL OR skill_id = $1)
		 ORDER BY question_id`, skillID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListOptions retrieves the options of one question ordered by option ID.
func (r *QuestionRepository) ListOptions(ctx context.Context, questionID int) ([]model.ChoiceOption, error) {
	grouped, err := r.ListOptionsByQuestions(ctx, []int{questionID})
	if err != nil {
		return nil, err
	}
	return grouped[questionID], nil
}

// ListOptionsByQuestions retrieves the options of several questions, keyed by question ID.
func (r *QuestionRepository) ListOptionsByQuestions(ctx context.Context, questionIDs []int) (map[int][]model.ChoiceOption, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT option_id, question_id, option_text, is_correct
		 FROM choice_options WHERE question_id = ANY($1)
		 ORDER BY question_id, option_id`, questionIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := make(map[int][]model.ChoiceOption, len(questionIDs))
	for rows.Next() {
		var o model.ChoiceOption
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.OptionText, &o.IsCorrect); err != nil {
			return nil, err
		}
		grouped[o.QuestionID] = append(grouped[o.QuestionID], o)
	}
	return grouped, rows.Err()
}

// Create inserts a question and its options using db, which may be a transaction.
func (r *QuestionRepository) Create(ctx context.Context, db database.DBTX, q *model.Question, options []model.ChoiceOption) error {
	if err := db.QueryRow(ctx,
		`INSERT INTO questions (skill_id, question_text, is_available)
		 VALUES ($1, $2, $3)
		 RETURNING question_id`,
		q.SkillID, q.QuestionText, q.IsAvailable,
	).Scan(&q.ID); err != nil {
		return err
	}

	for i := range options {
		options[i].QuestionID = q.ID
		if err := db.QueryRow(ctx,
			`INSERT INTO choice_options (question_id, option_text, is_correct)
			 VALUES ($1, $2, $3)
			 RETURNING option_id`,
			q.ID, options[i].OptionText, options[i].IsCorrect,
		).Scan(&options[i].ID); err != nil {
			return err
		}
	}
	return nil
}
