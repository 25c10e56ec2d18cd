package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"diary-companion/internal/domain"
)

// ConversationService administra el historial de chat libre de cada cuenta.
type ConversationService struct {
	accounts *AccountStore
	now      func() time.Time
}

var (
	ErrConversationNotConfigured = errors.New("conversation service not configured")
	ErrTurnInvalidInput          = errors.New("conversation turn invalid input")
)

func NewConversationService(accounts *AccountStore) *ConversationService {
	return &ConversationService{accounts: accounts, now: func() time.Time { return time.Now().UTC() }}
}

// History devuelve los turnos en orden de insercion.
func (s *ConversationService) History(ctx context.Context, accountID string) ([]domain.ConversationTurn, error) {
	if s == nil || s.accounts == nil {
		return nil, ErrConversationNotConfigured
	}
	rec, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return rec.Conversation, nil
}

// Append agrega los turnos en una sola escritura. Si alguno es invalido no
// se guarda ninguno.
func (s *ConversationService) Append(ctx context.Context, accountID string, turns ...domain.ConversationTurn) error {
	if s == nil || s.accounts == nil {
		return ErrConversationNotConfigured
	}
	if len(turns) == 0 {
		return nil
	}
	prepared := make([]domain.ConversationTurn, 0, len(turns))
	for _, turn := range turns {
		turn.Text = strings.TrimSpace(turn.Text)
		if !turn.Sender.Valid() || turn.Text == "" {
			return ErrTurnInvalidInput
		}
		if turn.ID == "" {
			turn.ID = uuid.NewString()
		}
		if turn.Timestamp.IsZero() {
			turn.Timestamp = s.now()
		}
		prepared = append(prepared, turn)
	}
	return s.accounts.Update(ctx, accountID, func(rec *domain.AccountRecord) error {
		rec.Conversation = append(rec.Conversation, prepared...)
		return nil
	})
}

// Clear borra el historial. El diario y las metas no se tocan.
func (s *ConversationService) Clear(ctx context.Context, accountID string) error {
	if s == nil || s.accounts == nil {
		return ErrConversationNotConfigured
	}
	return s.accounts.Update(ctx, accountID, func(rec *domain.AccountRecord) error {
		rec.Conversation = []domain.ConversationTurn{}
		return nil
	})
}

// ByDate agrupa el historial por fecha de calendario en la zona indicada,
// en orden cronologico.
func (s *ConversationService) ByDate(ctx context.Context, accountID string, loc *time.Location) ([]domain.DayBucket, error) {
	history, err := s.History(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	index := map[domain.JournalDate]int{}
	buckets := []domain.DayBucket{}
	for _, turn := range history {
		date := domain.DateOf(turn.Timestamp.In(loc))
		i, ok := index[date]
		if !ok {
			i = len(buckets)
			index[date] = i
			buckets = append(buckets, domain.DayBucket{Date: date})
		}
		buckets[i].Turns = append(buckets[i].Turns, turn)
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Date < buckets[j].Date })
	return buckets, nil
}
