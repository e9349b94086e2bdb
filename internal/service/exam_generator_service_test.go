package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/skilltest-backend/internal/model"
)

func TestGenerateRandomSamplesWithoutReplacement(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		created, err := env.generator.GenerateRandom(ctx, learnerID, intPtr(5))
		require.NoError(t, err)
		assert.Equal(t, 5, created.QuestionCount)

		ids := env.store.sessionQuestionIDs(created.SessionID)
		assert.Len(t, ids, 5)
		seen := map[int]bool{}
		for _, id := range ids {
			assert.False(t, seen[id], "duplicate question %d", id)
			assert.NotEqual(t, 10, id, "unavailable question sampled")
			seen[id] = true
		}
	}
}

func TestGenerateRandomUsesDefaultCount(t *testing.T) {
	env := newTestEnv(2)
	created, err := env.generator.GenerateRandom(context.Background(), learnerID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, created.QuestionCount)
	assert.False(t, created.Timestamp.IsZero())
}

func TestGenerateRandomSessionIDsAreUnique(t *testing.T) {
	env := newTestEnv(3)
	seen := map[int64]bool{}
	for i := 0; i < 10; i++ {
		created, err := env.generator.GenerateRandom(context.Background(), learnerID, intPtr(1))
		require.NoError(t, err)
		assert.False(t, seen[created.SessionID])
		seen[created.SessionID] = true
	}
}

func TestGenerateRandomErrors(t *testing.T) {
	tests := []struct {
		name    string
		user    int
		count   int
		wantErr error
	}{
		{"zero count", learnerID, 0, ErrValidation},
		{"negative count", learnerID, -2, ErrValidation},
		{"above max", learnerID, 9, ErrValidation},
		{"unknown user", 404, 3, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(4)
			_, err := env.generator.GenerateRandom(context.Background(), tt.user, intPtr(tt.count))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, env.store.createCalls)
		})
	}
}

func TestGenerateRandomPoolTooSmall(t *testing.T) {
	env := newTestEnv(5)
	for id := range env.store.questions {
		if id > 2 {
			q := env.store.questions[id]
			q.IsAvailable = false
			env.store.questions[id] = q
		}
	}

	_, err := env.generator.GenerateRandom(context.Background(), learnerID, intPtr(3))
	assert.ErrorIs(t, err, ErrNoQuestionsAvailable)
	assert.Zero(t, env.store.createCalls)
}

func TestGenerateCustomDrawsPerSkill(t *testing.T) {
	env := newTestEnv(6)
	created, err := env.generator.GenerateCustom(context.Background(), learnerID, []model.SkillCount{
		{SkillID: skillA, Count: 2},
		{SkillID: skillB, Count: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, created.QuestionCount)

	var a, b int
	for _, id := range env.store.sessionQuestionIDs(created.SessionID) {
		switch env.store.questions[id].SkillID {
		case skillA:
			a++
		case skillB:
			b++
		}
	}
	assert.Equal(t, 2, a)
	assert.Equal(t, 3, b)
}

func TestGenerateCustomRepeatedSkillDrawsDisjointQuestions(t *testing.T) {
	env := newTestEnv(7)
	created, err := env.generator.GenerateCustom(context.Background(), learnerID, []model.SkillCount{
		{SkillID: skillA, Count: 3},
		{SkillID: skillA, Count: 3},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, env.store.sessionQuestionIDs(created.SessionID))
}

func TestGenerateCustomUnderFulfilmentFails(t *testing.T) {
	env := newTestEnv(8)
	_, err := env.generator.GenerateCustom(context.Background(), learnerID, []model.SkillCount{
		{SkillID: skillA, Count: 1},
		{SkillID: skillB, Count: 4},
	})
	assert.ErrorIs(t, err, ErrNoQuestionsAvailable)
	assert.Contains(t, err.Error(), fmt.Sprintf("skill %d", skillB))
	assert.Zero(t, env.store.createCalls)
}

func TestGenerateCustomValidation(t *testing.T) {
	tests := []struct {
		name   string
		skills []model.SkillCount
		field  string
	}{
		{"empty", nil, "skills"},
		{"missing skill", []model.SkillCount{{Count: 1}}, "skills[0].skill_id"},
		{"zero count", []model.SkillCount{{SkillID: skillA, Count: 0}}, "skills[0].count"},
		{"above max", []model.SkillCount{{SkillID: skillA, Count: 5}, {SkillID: skillB, Count: 4}}, "skills"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(9)
			_, err := env.generator.GenerateCustom(context.Background(), learnerID, tt.skills)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

// A custom exam of two skill-A questions and one skill-B question always
// contains the same three ids; their order should be uniform over all six
// permutations rather than grouped by skill.
func TestGenerateCustomOrderIsUniformOverPermutations(t *testing.T) {
	env := newTestEnv(42)
	for id, q := range env.store.questions {
		if id != 1 && id != 2 && id != 7 {
			q.IsAvailable = false
			env.store.questions[id] = q
		}
	}

	const rounds = 6000
	counts := map[string]int{}
	for i := 0; i < rounds; i++ {
		created, err := env.generator.GenerateCustom(context.Background(), learnerID, []model.SkillCount{
			{SkillID: skillA, Count: 2},
			{SkillID: skillB, Count: 1},
		})
		require.NoError(t, err)
		counts[fmt.Sprint(env.store.sessionQuestionIDs(created.SessionID))]++
	}

	require.Len(t, counts, 6, "every permutation should occur")

	expected := float64(rounds) / 6
	chi2 := 0.0
	for _, observed := range counts {
		d := float64(observed) - expected
		chi2 += d * d / expected
	}
	// 5 degrees of freedom, p = 0.001.
	assert.Less(t, chi2, 20.52, "order distribution %v", counts)
}
