package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/skilltest-backend/internal/model"
)

// DashboardRepository handles the aggregate queries behind a user's dashboard.
// Only finalised assignments (finish_at set) are counted.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// SummaryRows returns per-session score and total for a user. When skillID is
// set only that skill's questions are counted and the skill name is returned.
func (r *DashboardRepository) SummaryRows(ctx context.Context, userID int, skillID *int) ([]model.SummaryRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.exam_id,
		        CASE WHEN $2::int IS NULL THEN NULL ELSE MAX(sk.skill_name) END,
		        COUNT(*) FILTER (WHERE a.is_correct),
		        COUNT(*),
		        MAX(a.finish_at)
		 FROM exam_assignments a
		 JOIN exam_sessions s ON s.exam_id = a.exam_id
		 JOIN questions q ON q.question_id = a.question_id
		 JOIN skills sk ON sk.skill_id = q.skill_id
		 WHERE s.user_id = $1
		   AND a.finish_at IS NOT NULL
		   AND ($2::int IS NULL OR q.skill_id = $2)
		 GROUP BY a.exam_id
		 ORDER BY a.exam_id, MAX(a.finish_at)`, userID, skillID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.SummaryRow
	for rows.Next() {
		var s model.SummaryRow
		if err := rows.Scan(&s.SessionID, &s.SkillName, &s.Score, &s.Total, &s.SubmittedDate); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Stats returns the raw counts behind a user's general statistics.
func (r *DashboardRepository) Stats(ctx context.Context, userID int) (model.GeneralStats, error) {
	var st model.GeneralStats
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT a.exam_id),
		        COUNT(a.question_id),
		        COUNT(*) FILTER (WHERE a.is_correct),
		        COUNT(*)
		 FROM exam_assignments a
		 JOIN exam_sessions s ON s.exam_id = a.exam_id
		 WHERE s.user_id = $1 AND a.finish_at IS NOT NULL`, userID,
	).Scan(&st.TotalExamTested, &st.TotalQuestions, &st.Score, &st.Total)
	return st, err
}

// SkillPerformance returns correct and incorrect counts per skill over a
// user's finalised assignments. Skills the user never answered appear with
// zero counts.
func (r *DashboardRepository) SkillPerformance(ctx context.Context, userID int) ([]model.SkillPerformanceRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sk.skill_id, sk.skill_name,
		        COUNT(a.question_id) FILTER (WHERE a.is_correct),
		        COUNT(a.question_id) FILTER (WHERE NOT a.is_correct)
		 FROM skills sk
		 LEFT JOIN questions q ON q.skill_id = sk.skill_id
		 LEFT JOIN exam_assignments a ON a.question_id = q.question_id
		      AND a.finish_at IS NOT NULL
		      AND a.exam_id IN (SELECT exam_id FROM exam_sessions WHERE user_id = $1)
		 GROUP BY sk.skill_id, sk.skill_name
		 ORDER BY sk.skill_id`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.SkillPerformanceRow
	for rows.Next() {
		var p model.SkillPerformanceRow
		if err := rows.Scan(&p.SkillID, &p.SkillName, &p.Correct, &p.Incorrect); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
