package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/skilltest-backend/internal/database"
	"github.com/stemsi/skilltest-backend/internal/model"
)

// ErrRowCountMismatch is returned when a guarded bulk write touched fewer
// rows than expected. The surrounding transaction has been rolled back.
var ErrRowCountMismatch = errors.New("row count mismatch")

// ExamSessionRepository handles exam session and assignment data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Create inserts a session and one assignment per question in a single
// transaction. The slice order becomes the presentation order.
func (r *ExamSessionRepository) Create(ctx context.Context, userID int, questionIDs []int) (*model.ExamSession, error) {
	s := &model.ExamSession{UserID: userID}

	positions := make([]int, len(questionIDs))
	for i := range questionIDs {
		positions[i] = i
	}

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO exam_sessions (exam_id, user_id)
			 VALUES (nextval('exam_session_id_seq'), $1)
			 RETURNING exam_id, created_at`, userID,
		).Scan(&s.ID, &s.CreatedAt); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO exam_assignments (exam_id, question_id, position)
			 SELECT $1, u.question_id, u.position
			 FROM UNNEST($2::int[], $3::int[]) AS u (question_id, position)`,
			s.ID, questionIDs, positions,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != int64(len(questionIDs)) {
			return ErrRowCountMismatch
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Owner returns the user that owns a session.
func (r *ExamSessionRepository) Owner(ctx context.Context, sessionID int64) (int, error) {
	var userID int
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM exam_sessions WHERE exam_id = $1`, sessionID).Scan(&userID)
	return userID, err
}

// Progress counts a session's assignments, selections and finish stamps.
// A session without assignments yields a zero Total.
func (r *ExamSessionRepository) Progress(ctx context.Context, sessionID int64) (model.SessionProgress, error) {
	var p model.SessionProgress
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(selected_option_id),
		        COUNT(finish_at)
		 FROM exam_assignments WHERE exam_id = $1`, sessionID,
	).Scan(&p.Total, &p.Answered, &p.Finished)
	return p, err
}

// ListOverviews lists sessions with their assignment aggregates, optionally
// restricted to one user, newest first.
func (r *ExamSessionRepository) ListOverviews(ctx context.Context, userID *int) ([]model.SessionOverview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.exam_id, s.user_id, s.created_at,
		        MIN(a.attempt_at), MAX(a.finish_at), SUM(a.time_taken)::int,
		        COUNT(a.question_id), COUNT(a.selected_option_id), COUNT(a.finish_at)
		 FROM exam_sessions s
		 JOIN exam_assignments a ON a.exam_id = s.exam_id
		 WHERE $1::int IS NULL OR s.user_id = $1
		 GROUP BY s.exam_id, s.user_id, s.created_at
		 ORDER BY s.exam_id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.SessionOverview{}
	for rows.Next() {
		var o model.SessionOverview
		if err := rows.Scan(
			&o.SessionID, &o.UserID, &o.CreatedAt,
			&o.AttemptAt, &o.FinishAt, &o.TimeTaken,
			&o.Progress.Total, &o.Progress.Answered, &o.Progress.Finished,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, o)
	}
	return sessions, rows.Err()
}

const sessionQuestionColumns = `
	a.exam_id, a.question_id, a.position, q.skill_id, s.skill_name, q.question_text,
	a.selected_option_id, a.is_correct, a.finish_at,
	(SELECT o.option_id FROM choice_options o
	  WHERE o.question_id = a.question_id AND o.is_correct
	  ORDER BY o.option_id LIMIT 1)`

func scanSessionQuestion(row pgx.Row, q *model.SessionQuestion) error {
	return row.Scan(
		&q.SessionID, &q.QuestionID, &q.Position, &q.SkillID, &q.SkillName, &q.QuestionText,
		&q.SelectedOptionID, &q.IsCorrect, &q.FinishAt, &q.CorrectOptionID,
	)
}

// ListQuestions retrieves every assignment of a session joined with its
// question, in presentation order. Options are not loaded.
func (r *ExamSessionRepository) ListQuestions(ctx context.Context, sessionID int64) ([]model.SessionQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionQuestionColumns+`
		 FROM exam_assignments a
		 JOIN questions q ON q.question_id = a.question_id
		 JOIN skills s ON s.skill_id = q.skill_id
		 WHERE a.exam_id = $1
		 ORDER BY a.position`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.SessionQuestion
	for rows.Next() {
		var q model.SessionQuestion
		if err := scanSessionQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionAt retrieves the assignment at a zero-based presentation index.
func (r *ExamSessionRepository) QuestionAt(ctx context.Context, sessionID int64, index int) (*model.SessionQuestion, error) {
	q := &model.SessionQuestion{}
	err := scanSessionQuestion(r.pool.QueryRow(ctx,
		`SELECT `+sessionQuestionColumns+`
		 FROM exam_assignments a
		 JOIN questions q ON q.question_id = a.question_id
		 JOIN skills s ON s.skill_id = q.skill_id
		 WHERE a.exam_id = $1
		 ORDER BY a.position
		 OFFSET $2 LIMIT 1`, sessionID, index,
	), q)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// UpdateSelection overwrites the selected option of one assignment unless it
// is finalised. attempt_at keeps the first selection time. Returns the number
// of rows updated.
func (r *ExamSessionRepository) UpdateSelection(ctx context.Context, sessionID int64, questionID, optionID int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_assignments
		 SET selected_option_id = $1,
		     attempt_at = COALESCE(attempt_at, NOW())
		 WHERE exam_id = $2 AND question_id = $3 AND finish_at IS NULL`,
		optionID, sessionID, questionID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListScoringRows retrieves each assignment with its question's correct option.
func (r *ExamSessionRepository) ListScoringRows(ctx context.Context, sessionID int64) ([]model.ScoringRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.question_id, a.selected_option_id,
		        (SELECT o.option_id FROM choice_options o
		          WHERE o.question_id = a.question_id AND o.is_correct
		          ORDER BY o.option_id LIMIT 1),
		        a.finish_at
		 FROM exam_assignments a
		 WHERE a.exam_id = $1
		 ORDER BY a.position`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.ScoringRow
	for rows.Next() {
		var s model.ScoringRow
		if err := rows.Scan(&s.QuestionID, &s.SelectedOptionID, &s.CorrectOptionID, &s.FinishAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Finalize writes every verdict with one shared finish time in a single
// transaction. A row only matches while it is unfinalised and still carries
// the selection the verdict was computed from; if any row fails to match,
// nothing is written and ErrRowCountMismatch is returned.
func (r *ExamSessionRepository) Finalize(ctx context.Context, sessionID int64, scored []model.ScoredAssignment, finishAt time.Time) error {
	n := len(scored)
	questionIDs := make([]int, 0, n)
	selected := make([]int, 0, n)
	verdicts := make([]bool, 0, n)
	for _, s := range scored {
		questionIDs = append(questionIDs, s.QuestionID)
		selected = append(selected, s.SelectedOptionID)
		verdicts = append(verdicts, s.IsCorrect)
	}

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE exam_assignments AS a
			SET is_correct = t.is_correct,
			    finish_at = $5,
			    time_taken = GREATEST(0, EXTRACT(EPOCH FROM ($5 - COALESCE(a.attempt_at, $5)))::int)
			FROM (
				SELECT u.question_id, u.selected_option_id, u.is_correct
				FROM UNNEST(
					$2::int[],
					$3::int[],
					$4::bool[]
				) AS u (question_id, selected_option_id, is_correct)
			) AS t
			WHERE a.exam_id = $1
			  AND a.question_id = t.question_id
			  AND a.selected_option_id = t.selected_option_id
			  AND a.finish_at IS NULL`,
			sessionID, questionIDs, selected, verdicts, finishAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != int64(n) {
			return ErrRowCountMismatch
		}
		return nil
	})
}
