package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"diary-companion/internal/domain"
)

var (
	ErrGoalServiceNotConfigured = errors.New("goal service not configured")
	ErrGoalNameEmpty            = errors.New("goal name empty")
)

// GoalService guarda las metas personales de cada cuenta.
type GoalService struct {
	accounts *AccountStore
	now      func() time.Time
}

func NewGoalService(accounts *AccountStore) *GoalService {
	return &GoalService{accounts: accounts, now: time.Now}
}

func (s *GoalService) AddGoal(ctx context.Context, accountID, name string) (domain.Goal, error) {
	if s == nil || s.accounts == nil {
		return domain.Goal{}, ErrGoalServiceNotConfigured
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Goal{}, ErrGoalNameEmpty
	}
	goal := domain.Goal{
		ID:        uuid.NewString(),
		Name:      name,
		DateAdded: s.now(),
		Status:    domain.GoalInProgress,
	}
	err := s.accounts.Update(ctx, accountID, func(rec *domain.AccountRecord) error {
		rec.Goals = append(rec.Goals, goal)
		return nil
	})
	if err != nil {
		return domain.Goal{}, err
	}
	return goal, nil
}

// ListGoals devuelve las metas en orden de creacion; los indices del
// seguimiento son posiciones 1-based en esta lista.
func (s *GoalService) ListGoals(ctx context.Context, accountID string) ([]domain.Goal, error) {
	if s == nil || s.accounts == nil {
		return nil, ErrGoalServiceNotConfigured
	}
	rec, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return rec.Goals, nil
}

func (s *GoalService) MarkDone(ctx context.Context, accountID string, index int) (domain.Goal, error) {
	if s == nil || s.accounts == nil {
		return domain.Goal{}, ErrGoalServiceNotConfigured
	}
	var done domain.Goal
	err := s.accounts.Update(ctx, accountID, func(rec *domain.AccountRecord) error {
		if index < 1 || index > len(rec.Goals) {
			return domain.ErrIndexOutOfRange
		}
		rec.Goals[index-1].Status = domain.GoalDone
		done = rec.Goals[index-1]
		return nil
	})
	if err != nil {
		return domain.Goal{}, err
	}
	return done, nil
}
