package dialogue

import (
	"context"
	"testing"
	"time"

	"diary-companion/internal/domain"
	"diary-companion/internal/locale"
)

// stubRand siempre elige el primer candidato y devuelve un Float64 fijo.
type stubRand struct{ f float64 }

func (stubRand) Intn(int) int        { return 0 }
func (r stubRand) Float64() float64 { return r.f }

type memoryLog struct {
	turns map[string][]domain.ConversationTurn
	err   error
}

func newMemoryLog() *memoryLog {
	return &memoryLog{turns: make(map[string][]domain.ConversationTurn)}
}

func (m *memoryLog) History(_ context.Context, accountID string) ([]domain.ConversationTurn, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.ConversationTurn(nil), m.turns[accountID]...), nil
}

func (m *memoryLog) Append(_ context.Context, accountID string, turns ...domain.ConversationTurn) error {
	m.turns[accountID] = append(m.turns[accountID], turns...)
	return nil
}

type memoryGoals struct {
	goals []domain.Goal
}

func (m *memoryGoals) AddGoal(_ context.Context, _ string, name string) (domain.Goal, error) {
	g := domain.Goal{Name: name, Status: domain.GoalInProgress, DateAdded: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	m.goals = append(m.goals, g)
	return g, nil
}

func (m *memoryGoals) ListGoals(context.Context, string) ([]domain.Goal, error) {
	return append([]domain.Goal(nil), m.goals...), nil
}

func (m *memoryGoals) MarkDone(_ context.Context, _ string, index int) (domain.Goal, error) {
	if index < 1 || index > len(m.goals) {
		return domain.Goal{}, domain.ErrIndexOutOfRange
	}
	m.goals[index-1].Status = domain.GoalDone
	return m.goals[index-1], nil
}

var fixedNow = time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)

type fixture struct {
	loc    *locale.Catalog
	tree   *Tree
	log    *memoryLog
	goals  *memoryGoals
	engine *Engine
}

func newFixture(t *testing.T, rnd Rand, fallback Resolver) *fixture {
	t.Helper()
	loc, err := locale.Default("en")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tree, err := DefaultTree(loc)
	if err != nil {
		t.Fatalf("load tree: %v", err)
	}
	responder, err := NewResponder(loc, "en", rnd, fallback)
	if err != nil {
		t.Fatalf("new responder: %v", err)
	}
	f := &fixture{loc: loc, tree: tree, log: newMemoryLog(), goals: &memoryGoals{}}
	f.engine = NewEngine(tree, loc, responder, f.log, f.goals,
		WithClock(func() time.Time { return fixedNow }),
		WithRand(rnd),
	)
	return f
}

func (f *fixture) en(key string, params map[string]string) string {
	return f.loc.Resolve("en", key, params)
}

func optionIDs(opts []OptionView) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.ID)
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
