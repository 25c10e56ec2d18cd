package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"diary-companion/internal/domain"
)

var (
	ErrJournalNotConfigured = errors.New("journal service not configured")
	ErrIncorrectSecret      = errors.New("incorrect secret")
)

// JournalService protege el diario privado con el mismo secreto del login.
type JournalService struct {
	accounts *AccountStore
}

func NewJournalService(accounts *AccountStore) *JournalService {
	return &JournalService{accounts: accounts}
}

// Unlock vuelve a pedir el secreto aunque la sesion ya este autenticada.
func (s *JournalService) Unlock(ctx context.Context, accountID, secret string) (*JournalView, error) {
	if s == nil || s.accounts == nil {
		return nil, ErrJournalNotConfigured
	}
	rec, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !secretMatches(rec.SecretHash, strings.TrimSpace(secret)) {
		return nil, ErrIncorrectSecret
	}
	return &JournalView{accounts: s.accounts, accountID: accountID}, nil
}

// JournalView solo ve las entradas de la cuenta desbloqueada.
type JournalView struct {
	accounts  *AccountStore
	accountID string
}

func (v *JournalView) AccountID() string {
	return v.accountID
}

// GetEntry devuelve "" si no hay entrada para la fecha.
func (v *JournalView) GetEntry(ctx context.Context, date domain.JournalDate) (string, error) {
	rec, err := v.accounts.Get(ctx, v.accountID)
	if err != nil {
		return "", err
	}
	return rec.Journal[date], nil
}

// SetEntry reemplaza la entrada del dia. Texto vacio borra la fecha.
func (v *JournalView) SetEntry(ctx context.Context, date domain.JournalDate, text string) error {
	if _, err := domain.ParseJournalDate(date.String()); err != nil {
		return err
	}
	return v.accounts.Update(ctx, v.accountID, func(rec *domain.AccountRecord) error {
		if strings.TrimSpace(text) == "" {
			delete(rec.Journal, date)
			return nil
		}
		rec.Journal[date] = text
		return nil
	})
}

func (v *JournalView) ListDatesDescending(ctx context.Context) ([]domain.JournalDate, error) {
	rec, err := v.accounts.Get(ctx, v.accountID)
	if err != nil {
		return nil, err
	}
	dates := make([]domain.JournalDate, 0, len(rec.Journal))
	for d := range rec.Journal {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] > dates[j] })
	return dates, nil
}
