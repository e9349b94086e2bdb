package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/skilltest-backend/internal/model"
)

func newSession(t *testing.T, env *testEnv, count int) (int64, []int) {
	t.Helper()
	created, err := env.generator.GenerateRandom(context.Background(), learnerID, intPtr(count))
	require.NoError(t, err)
	return created.SessionID, env.store.sessionQuestionIDs(created.SessionID)
}

func answerAll(t *testing.T, env *testEnv, sessionID int64, ids []int, pick func(int) int) {
	t.Helper()
	for _, qid := range ids {
		_, err := env.sessions.SelectOption(context.Background(), sessionID, qid, pick(qid))
		require.NoError(t, err)
	}
}

func TestSelectOptionLastWriteWins(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()
	sid, ids := newSession(t, env, 3)

	_, err := env.sessions.SelectOption(ctx, sid, ids[0], wrongOption(ids[0]))
	require.NoError(t, err)
	res, err := env.sessions.SelectOption(ctx, sid, ids[0], correctOption(ids[0]))
	require.NoError(t, err)
	assert.True(t, res.InProgress)
	assert.Equal(t, model.SessionStatusInProgress, res.Status)

	for _, a := range env.store.snapshot(sid) {
		if a.QuestionID == ids[0] {
			require.NotNil(t, a.SelectedOptionID)
			assert.Equal(t, correctOption(ids[0]), *a.SelectedOptionID)
			assert.NotNil(t, a.AttemptAt)
		} else {
			assert.Nil(t, a.SelectedOptionID)
		}
	}
}

func TestSelectOptionStatusProgression(t *testing.T) {
	env := newTestEnv(2)
	ctx := context.Background()
	sid, ids := newSession(t, env, 2)

	status, err := env.sessions.Status(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusNotStarted, status)

	res, err := env.sessions.SelectOption(ctx, sid, ids[0], correctOption(ids[0]))
	require.NoError(t, err)
	assert.True(t, res.InProgress)

	res, err = env.sessions.SelectOption(ctx, sid, ids[1], correctOption(ids[1]))
	require.NoError(t, err)
	assert.False(t, res.InProgress)
	assert.False(t, res.IsCompleted)
	assert.Equal(t, model.SessionStatusAnswered, res.Status)
}

func TestSelectOptionValidation(t *testing.T) {
	env := newTestEnv(3)
	ctx := context.Background()
	sid, ids := newSession(t, env, 2)
	q := ids[0]

	_, err := env.sessions.SelectOption(ctx, sid, q, q*10+9)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "option_id", verr.Field)
	assert.Equal(t, "option_id must be between "+itoa(q*10+1)+" - "+itoa(q*10+4), verr.Message)

	// Option of another question.
	_, err = env.sessions.SelectOption(ctx, sid, q, correctOption(ids[1]))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSelectOptionNotFound(t *testing.T) {
	env := newTestEnv(4)
	ctx := context.Background()
	sid, ids := newSession(t, env, 2)

	_, err := env.sessions.SelectOption(ctx, sid, 999, 9991)
	assert.ErrorIs(t, err, ErrNotFound, "question without options")

	_, err = env.sessions.SelectOption(ctx, 999, ids[0], correctOption(ids[0]))
	assert.ErrorIs(t, err, ErrNotFound, "unknown session")

	outside := 0
	for id := 1; id <= 9; id++ {
		if id != ids[0] && id != ids[1] {
			outside = id
			break
		}
	}
	_, err = env.sessions.SelectOption(ctx, sid, outside, correctOption(outside))
	assert.ErrorIs(t, err, ErrNotFound, "question outside the session")
}

func TestSelectOptionAfterCompletionIsRejected(t *testing.T) {
	env := newTestEnv(5)
	ctx := context.Background()
	sid, ids := newSession(t, env, 3)
	answerAll(t, env, sid, ids, correctOption)
	_, err := env.scoring.CheckAnswers(ctx, sid)
	require.NoError(t, err)

	before := env.store.snapshot(sid)
	_, err = env.sessions.SelectOption(ctx, sid, ids[0], wrongOption(ids[0]))
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrSessionCompleted)
	assert.Equal(t, before, env.store.snapshot(sid))
}

func TestSessionQueriesOnUnknownSession(t *testing.T) {
	env := newTestEnv(6)
	ctx := context.Background()

	_, err := env.sessions.Status(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.sessions.IsInProgress(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.sessions.IsCompleted(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.sessions.CountQuestions(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.sessions.Detail(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.sessions.Owner(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountAndOwner(t *testing.T) {
	env := newTestEnv(7)
	ctx := context.Background()
	sid, _ := newSession(t, env, 4)

	n, err := env.sessions.CountQuestions(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	owner, err := env.sessions.Owner(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, learnerID, owner)
}

func TestGetQuestionByIndex(t *testing.T) {
	env := newTestEnv(8)
	ctx := context.Background()
	sid, ids := newSession(t, env, 3)

	q, err := env.sessions.GetQuestion(ctx, sid, 1)
	require.NoError(t, err)
	assert.Equal(t, ids[1], q.QuestionID)
	assert.Len(t, q.Options, 4)
	assert.Nil(t, q.CorrectOptionID)
	for _, o := range q.Options {
		assert.Nil(t, o.IsCorrect)
	}

	_, err = env.sessions.GetQuestion(ctx, sid, 3)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.sessions.GetQuestion(ctx, sid, -1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDetailRevealsCorrectnessOnlyAfterCompletion(t *testing.T) {
	env := newTestEnv(9)
	ctx := context.Background()
	sid, ids := newSession(t, env, 2)
	answerAll(t, env, sid, ids, wrongOption)

	d, err := env.sessions.Detail(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusAnswered, d.Status)
	for _, q := range d.Questions {
		assert.Nil(t, q.CorrectOptionID)
		assert.Nil(t, q.IsCorrect)
		for _, o := range q.Options {
			assert.Nil(t, o.IsCorrect)
		}
	}

	_, err = env.scoring.CheckAnswers(ctx, sid)
	require.NoError(t, err)

	d, err = env.sessions.Detail(ctx, sid)
	require.NoError(t, err)
	assert.True(t, d.IsCompleted)
	assert.Equal(t, model.SessionStatusCompleted, d.Status)
	for i, q := range d.Questions {
		assert.Equal(t, ids[i], q.QuestionID, "presentation order")
		require.NotNil(t, q.CorrectOptionID)
		assert.Equal(t, correctOption(q.QuestionID), *q.CorrectOptionID)
		require.NotNil(t, q.IsCorrect)
		assert.False(t, *q.IsCorrect)
		require.NotNil(t, q.Options[1].IsCorrect)
		assert.True(t, *q.Options[1].IsCorrect)
	}
}

func TestDetailStatusMatchesStoredProgress(t *testing.T) {
	env := newTestEnv(11)
	ctx := context.Background()
	sid, ids := newSession(t, env, 3)

	check := func(want model.SessionStatus) {
		t.Helper()
		d, err := env.sessions.Detail(ctx, sid)
		require.NoError(t, err)
		p, err := env.store.Progress(ctx, sid)
		require.NoError(t, err)
		assert.Equal(t, want, d.Status)
		assert.Equal(t, p.Status(), d.Status)
		assert.Equal(t, p.Completed(), d.IsCompleted)
	}

	check(model.SessionStatusNotStarted)
	answerAll(t, env, sid, ids[:1], correctOption)
	check(model.SessionStatusInProgress)
	answerAll(t, env, sid, ids[1:], correctOption)
	check(model.SessionStatusAnswered)
	_, err := env.scoring.CheckAnswers(ctx, sid)
	require.NoError(t, err)
	check(model.SessionStatusCompleted)
}

func TestListSessionsDerivesStatus(t *testing.T) {
	env := newTestEnv(10)
	ctx := context.Background()

	fresh, _ := newSession(t, env, 2)
	done, ids := newSession(t, env, 2)
	answerAll(t, env, done, ids, correctOption)
	_, err := env.scoring.CheckAnswers(ctx, done)
	require.NoError(t, err)

	uid := learnerID
	sessions, err := env.sessions.ListSessions(ctx, &uid)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	byID := map[int64]model.SessionOverview{}
	for _, s := range sessions {
		byID[s.SessionID] = s
	}
	assert.Equal(t, model.SessionStatusNotStarted, byID[fresh].Status)
	assert.False(t, byID[fresh].IsCompleted)
	assert.Equal(t, model.SessionStatusCompleted, byID[done].Status)
	assert.True(t, byID[done].IsCompleted)

	other := 1
	sessions, err = env.sessions.ListSessions(ctx, &other)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
