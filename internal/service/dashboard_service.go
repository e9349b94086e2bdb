package service

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/stemsi/skilltest-backend/internal/model"
)

// DashboardService builds score summaries over a user's finalised sessions.
type DashboardService struct {
	dashboard DashboardStore
	skills    SkillStore
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(dashboard DashboardStore, skills SkillStore) *DashboardService {
	return &DashboardService{dashboard: dashboard, skills: skills}
}

// roundPercent returns part/whole as a percentage rounded to two decimals.
func roundPercent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)*10000/float64(whole)) / 100
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}

// Summary lists each finalised session of a user with its score. When
// skillID is set only that skill's questions are counted.
func (s *DashboardService) Summary(ctx context.Context, userID int, skillID *int) ([]model.ExamSummary, error) {
	rows, err := s.dashboard.SummaryRows(ctx, userID, skillID)
	if err != nil {
		return nil, fmt.Errorf("summary rows: %w", err)
	}

	summary := make([]model.ExamSummary, 0, len(rows))
	for _, r := range rows {
		summary = append(summary, model.ExamSummary{
			SessionID:     r.SessionID,
			Test:          fmt.Sprintf("Test %d", r.SessionID),
			Skills:        r.SkillName,
			Score:         r.Score,
			Total:         r.Total,
			Percentage:    formatPercent(roundPercent(r.Score, r.Total)),
			SubmittedDate: r.SubmittedDate,
		})
	}
	return summary, nil
}

// Stats aggregates every finalised assignment of a user.
func (s *DashboardService) Stats(ctx context.Context, userID int) (*model.GeneralStats, error) {
	st, err := s.dashboard.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("general stats: %w", err)
	}
	st.AverageScore = roundPercent(st.Score, st.Total)
	return &st, nil
}

// Performance returns the correct/incorrect split per skill.
func (s *DashboardService) Performance(ctx context.Context, userID int) ([]model.SkillPerformance, error) {
	rows, err := s.dashboard.SkillPerformance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("skill performance: %w", err)
	}

	perf := make([]model.SkillPerformance, 0, len(rows))
	for _, r := range rows {
		answered := r.Correct + r.Incorrect
		perf = append(perf, model.SkillPerformance{
			SkillID:             r.SkillID,
			SkillName:           r.SkillName,
			CorrectPercentage:   roundPercent(r.Correct, answered),
			IncorrectPercentage: roundPercent(r.Incorrect, answered),
		})
	}
	return perf, nil
}

// Skills lists every skill.
func (s *DashboardService) Skills(ctx context.Context) ([]model.Skill, error) {
	skills, err := s.skills.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return skills, nil
}

// Dashboard fetches stats, summary and performance concurrently.
func (s *DashboardService) Dashboard(ctx context.Context, userID int) (*model.Dashboard, error) {
	var d model.Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st, err := s.Stats(gctx, userID)
		if err != nil {
			return err
		}
		d.Stats = *st
		return nil
	})
	g.Go(func() error {
		summary, err := s.Summary(gctx, userID, nil)
		if err != nil {
			return err
		}
		d.Summary = summary
		return nil
	})
	g.Go(func() error {
		perf, err := s.Performance(gctx, userID)
		if err != nil {
			return err
		}
		d.Performance = perf
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
