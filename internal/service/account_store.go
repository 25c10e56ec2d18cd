package service

import (
	"context"
	"errors"
	"sync"

	"diary-companion/internal/domain"
	"diary-companion/internal/repository"
)

// AccountStore serializa las escrituras de registro completo sobre una cuenta.
// Lo comparten los servicios que modifican el mismo registro.
type AccountStore struct {
	repo  repository.AccountRepository
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAccountStore(repo repository.AccountRepository) *AccountStore {
	return &AccountStore{repo: repo, locks: make(map[string]*sync.Mutex)}
}

func (s *AccountStore) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *AccountStore) Get(ctx context.Context, id string) (domain.AccountRecord, error) {
	return s.repo.Get(ctx, id)
}

// Update lee, modifica y guarda el registro. Si fn falla no se escribe nada.
func (s *AccountStore) Update(ctx context.Context, id string, fn func(*domain.AccountRecord) error) error {
	unlock := s.lock(id)
	defer unlock()
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(&rec); err != nil {
		return err
	}
	return s.repo.Save(ctx, rec)
}

// Create guarda un registro nuevo salvo que la cuenta ya exista.
func (s *AccountStore) Create(ctx context.Context, rec domain.AccountRecord) (bool, error) {
	unlock := s.lock(rec.Account.Identifier)
	defer unlock()
	if _, err := s.repo.Get(ctx, rec.Account.Identifier); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return false, err
	}
	return true, s.repo.Save(ctx, rec)
}
