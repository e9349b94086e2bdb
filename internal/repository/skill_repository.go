package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/skilltest-backend/internal/database"
	"github.com/stemsi/skilltest-backend/internal/model"
)

// SkillRepository handles skill data access.
type SkillRepository struct {
	pool *pgxpool.Pool
}

// NewSkillRepository creates a new SkillRepository.
func NewSkillRepository(pool *pgxpool.Pool) *SkillRepository {
	return &SkillRepository{pool: pool}
}

// List retrieves all skills ordered by ID.
func (r *SkillRepository) List(ctx context.Context) ([]model.Skill, error) {
	rows, err := r.pool.Query(ctx, `SELECT skill_id, skill_name FROM skills ORDER BY skill_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skills := []model.Skill{}
	for rows.Next() {
		var s model.Skill
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

// Upsert returns the ID of the named skill, creating it if needed.
func (r *SkillRepository) Upsert(ctx context.Context, db database.DBTX, name string) (int, error) {
	var id int
	err := db.QueryRow(ctx,
		`INSERT INTO skills (skill_name) VALUES ($1)
		 ON CONFLICT (skill_name) DO UPDATE SET skill_name = EXCLUDED.skill_name
		 RETURNING skill_id`, name,
	).Scan(&id)
	return id, err
}
