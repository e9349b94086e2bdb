package service

import (
	"context"
	"math/rand/v2"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/model"
	"github.com/stemsi/skilltest-backend/internal/repository"
)

// fakeStore is an in-memory stand-in for the PostgreSQL repositories.
type fakeStore struct {
	mu sync.Mutex

	users         map[int]*model.User
	skills        []model.Skill
	questions     map[int]model.Question
	options       map[int][]model.ChoiceOption
	sessions      map[int64]*model.ExamSession
	assignments   map[int64][]*model.Assignment
	nextUserID    int
	nextSessionID int64

	finalizeErr error
	createCalls int
}

// fakeUsers and fakeBank expose the UserStore and QuestionStore method sets.
// UserStore.Create collides with SessionStore.Create on fakeStore itself.
type fakeUsers struct{ *fakeStore }
type fakeBank struct{ *fakeStore }

const (
	skillA    = 1
	skillB    = 2
	learnerID = 7
)

// newFakeStore seeds learner 7, an admin (id 1), skill A with questions 1-6 and
// skill B with questions 7-9. Question q has options q*10+1..q*10+4 and the
// correct option is q*10+2. Question 10 is unavailable.
func newFakeStore() *fakeStore {
	f := &fakeStore{
		users: map[int]*model.User{
			1:         {ID: 1, Username: "admin", Email: "admin@example.com", Role: model.RoleAdmin},
			learnerID: {ID: learnerID, Username: "learner", Email: "learner@example.com", Role: model.RoleUser},
		},
		skills:        []model.Skill{{ID: skillA, Name: "Algebra"}, {ID: skillB, Name: "Biology"}},
		questions:     map[int]model.Question{},
		options:       map[int][]model.ChoiceOption{},
		sessions:      map[int64]*model.ExamSession{},
		assignments:   map[int64][]*model.Assignment{},
		nextUserID:    100,
		nextSessionID: 1,
	}
	for q := 1; q <= 10; q++ {
		skill := skillA
		if q > 6 {
			skill = skillB
		}
		f.addQuestion(q, skill, q != 10)
	}
	return f
}

func (f *fakeStore) addQuestion(id, skill int, available bool) {
	f.questions[id] = model.Question{
		ID:           id,
		SkillID:      skill,
		SkillName:    f.skillName(skill),
		QuestionText: "question " + string(rune('0'+id%10)),
		IsAvailable:  available,
	}
	opts := make([]model.ChoiceOption, 0, 4)
	for i := 1; i <= 4; i++ {
		opts = append(opts, model.ChoiceOption{
			ID:         id*10 + i,
			QuestionID: id,
			OptionText: "option " + string(rune('A'+i-1)),
			IsCorrect:  i == 2,
		})
	}
	f.options[id] = opts
}

func (f *fakeStore) skillName(id int) string {
	for _, s := range f.skills {
		if s.ID == id {
			return s.Name
		}
	}
	return ""
}

func correctOption(questionID int) int { return questionID*10 + 2 }
func wrongOption(questionID int) int   { return questionID*10 + 3 }

func (f *fakeStore) snapshot(sessionID int64) []model.Assignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Assignment, 0, len(f.assignments[sessionID]))
	for _, a := range f.assignments[sessionID] {
		out = append(out, *a)
	}
	return out
}

func (f *fakeStore) sessionQuestionIDs(sessionID int64) []int {
	var ids []int
	for _, a := range f.snapshot(sessionID) {
		ids = append(ids, a.QuestionID)
	}
	return ids
}

// UserStore

func (u fakeUsers) GetByID(_ context.Context, id int) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *usr
	return &cp, nil
}

func (u fakeUsers) GetByIdentifier(_ context.Context, identifier string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, usr := range u.users {
		if usr.Username == identifier || strings.EqualFold(usr.Email, identifier) {
			cp := *usr
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (u fakeUsers) Exists(_ context.Context, id int) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.users[id]
	return ok, nil
}

func (u fakeUsers) Create(_ context.Context, usr *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.users {
		if existing.Username == usr.Username || existing.Email == usr.Email {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	usr.ID = u.nextUserID
	usr.CreatedAt = time.Now()
	u.nextUserID++
	cp := *usr
	u.users[usr.ID] = &cp
	return nil
}

// QuestionStore

func (b fakeBank) ListAvailableIDs(_ context.Context, skillID *int) ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []int
	for id, q := range b.questions {
		if q.IsAvailable && (skillID == nil || q.SkillID == *skillID) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (b fakeBank) ListOptions(_ context.Context, questionID int) ([]model.ChoiceOption, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.options[questionID]), nil
}

func (b fakeBank) ListOptionsByQuestions(_ context.Context, questionIDs []int) (map[int][]model.ChoiceOption, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[int][]model.ChoiceOption, len(questionIDs))
	for _, id := range questionIDs {
		out[id] = slices.Clone(b.options[id])
	}
	return out, nil
}

// SkillStore

func (f *fakeStore) List(_ context.Context) ([]model.Skill, error) {
	return slices.Clone(f.skills), nil
}

// SessionStore

func (f *fakeStore) Create(_ context.Context, uid int, questionIDs []int) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	s := &model.ExamSession{ID: f.nextSessionID, UserID: uid, CreatedAt: time.Now()}
	f.nextSessionID++
	f.sessions[s.ID] = s
	rows := make([]*model.Assignment, len(questionIDs))
	for i, qid := range questionIDs {
		rows[i] = &model.Assignment{SessionID: s.ID, QuestionID: qid, Position: i}
	}
	f.assignments[s.ID] = rows
	cp := *s
	return &cp, nil
}

func (f *fakeStore) Owner(_ context.Context, sessionID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return s.UserID, nil
}

func (f *fakeStore) Progress(_ context.Context, sessionID int64) (model.SessionProgress, error) {
	var p model.SessionProgress
	for _, a := range f.snapshot(sessionID) {
		p.Add(a.SelectedOptionID != nil, a.FinishAt != nil)
	}
	return p, nil
}

func (f *fakeStore) ListOverviews(_ context.Context, uid *int) ([]model.SessionOverview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.SessionOverview{}
	for id, s := range f.sessions {
		if uid != nil && s.UserID != *uid {
			continue
		}
		o := model.SessionOverview{SessionID: id, UserID: s.UserID, CreatedAt: s.CreatedAt}
		for _, a := range f.assignments[id] {
			o.Progress.Add(a.SelectedOptionID != nil, a.FinishAt != nil)
			if a.FinishAt != nil {
				o.FinishAt = a.FinishAt
			}
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID > out[j].SessionID })
	return out, nil
}

func (f *fakeStore) sessionQuestion(a *model.Assignment) model.SessionQuestion {
	q := f.questions[a.QuestionID]
	sq := model.SessionQuestion{
		SessionID:        a.SessionID,
		QuestionID:       a.QuestionID,
		Position:         a.Position,
		SkillID:          q.SkillID,
		SkillName:        q.SkillName,
		QuestionText:     q.QuestionText,
		SelectedOptionID: a.SelectedOptionID,
		IsCorrect:        a.IsCorrect,
		FinishAt:         a.FinishAt,
	}
	for _, o := range f.options[a.QuestionID] {
		if o.IsCorrect {
			id := o.ID
			sq.CorrectOptionID = &id
			break
		}
	}
	return sq
}

func (f *fakeStore) ListQuestions(_ context.Context, sessionID int64) ([]model.SessionQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SessionQuestion
	for _, a := range f.assignments[sessionID] {
		out = append(out, f.sessionQuestion(a))
	}
	return out, nil
}

func (f *fakeStore) QuestionAt(_ context.Context, sessionID int64, index int) (*model.SessionQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.assignments[sessionID]
	if index < 0 || index >= len(rows) {
		return nil, pgx.ErrNoRows
	}
	sq := f.sessionQuestion(rows[index])
	return &sq, nil
}

func (f *fakeStore) UpdateSelection(_ context.Context, sessionID int64, questionID, optionID int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignments[sessionID] {
		if a.QuestionID == questionID && a.FinishAt == nil {
			opt := optionID
			a.SelectedOptionID = &opt
			if a.AttemptAt == nil {
				now := time.Now()
				a.AttemptAt = &now
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeStore) ListScoringRows(_ context.Context, sessionID int64) ([]model.ScoringRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ScoringRow
	for _, a := range f.assignments[sessionID] {
		sq := f.sessionQuestion(a)
		out = append(out, model.ScoringRow{
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID,
			CorrectOptionID:  sq.CorrectOptionID,
			FinishAt:         a.FinishAt,
		})
	}
	return out, nil
}

func (f *fakeStore) Finalize(_ context.Context, sessionID int64, scored []model.ScoredAssignment, finishAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return f.finalizeErr
	}

	byQuestion := make(map[int]*model.Assignment)
	for _, a := range f.assignments[sessionID] {
		byQuestion[a.QuestionID] = a
	}
	for _, s := range scored {
		a, ok := byQuestion[s.QuestionID]
		if !ok || a.FinishAt != nil || a.SelectedOptionID == nil || *a.SelectedOptionID != s.SelectedOptionID {
			return repository.ErrRowCountMismatch
		}
	}
	for _, s := range scored {
		a := byQuestion[s.QuestionID]
		ok := s.IsCorrect
		at := finishAt
		taken := 0
		a.IsCorrect = &ok
		a.FinishAt = &at
		a.TimeTaken = &taken
	}
	return nil
}

// DashboardStore

func (f *fakeStore) SummaryRows(_ context.Context, uid int, skillID *int) ([]model.SummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SummaryRow
	for id, s := range f.sessions {
		if s.UserID != uid {
			continue
		}
		row := model.SummaryRow{SessionID: id}
		for _, a := range f.assignments[id] {
			q := f.questions[a.QuestionID]
			if a.FinishAt == nil || (skillID != nil && q.SkillID != *skillID) {
				continue
			}
			row.Total++
			if a.IsCorrect != nil && *a.IsCorrect {
				row.Score++
			}
			if a.FinishAt.After(row.SubmittedDate) {
				row.SubmittedDate = *a.FinishAt
			}
			if skillID != nil {
				name := q.SkillName
				row.SkillName = &name
			}
		}
		if row.Total > 0 {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (f *fakeStore) Stats(_ context.Context, uid int) (model.GeneralStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var st model.GeneralStats
	for id, s := range f.sessions {
		if s.UserID != uid {
			continue
		}
		counted := false
		for _, a := range f.assignments[id] {
			if a.FinishAt == nil {
				continue
			}
			counted = true
			st.TotalQuestions++
			st.Total++
			if a.IsCorrect != nil && *a.IsCorrect {
				st.Score++
			}
		}
		if counted {
			st.TotalExamTested++
		}
	}
	return st, nil
}

func (f *fakeStore) SkillPerformance(_ context.Context, uid int) ([]model.SkillPerformanceRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make([]model.SkillPerformanceRow, len(f.skills))
	index := make(map[int]int, len(f.skills))
	for i, s := range f.skills {
		rows[i] = model.SkillPerformanceRow{SkillID: s.ID, SkillName: s.Name}
		index[s.ID] = i
	}
	for id, s := range f.sessions {
		if s.UserID != uid {
			continue
		}
		for _, a := range f.assignments[id] {
			if a.FinishAt == nil || a.IsCorrect == nil {
				continue
			}
			r := &rows[index[f.questions[a.QuestionID].SkillID]]
			if *a.IsCorrect {
				r.Correct++
			} else {
				r.Incorrect++
			}
		}
	}
	return rows, nil
}

type testEnv struct {
	store     *fakeStore
	generator *ExamGeneratorService
	sessions  *ExamSessionService
	scoring   *ScoringService
	dashboard *DashboardService
}

func newTestEnv(seed uint64) *testEnv {
	store := newFakeStore()
	sampler := NewSampler(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	cfg := config.ExamConfig{DefaultQuestionCount: 3, MaxQuestionCount: 8}
	return &testEnv{
		store:     store,
		generator: NewExamGeneratorService(fakeUsers{store}, fakeBank{store}, store, sampler, cfg),
		sessions:  NewExamSessionService(store, fakeBank{store}),
		scoring:   NewScoringService(store),
		dashboard: NewDashboardService(store, store),
	}
}

func intPtr(v int) *int { return &v }

func itoa(v int) string { return strconv.Itoa(v) }
