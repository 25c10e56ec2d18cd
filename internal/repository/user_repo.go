package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"diary-companion/internal/domain"
	"diary-companion/internal/kv"
)

const usersKeyPrefix = "users/"

var ErrAccountNotFound = errors.New("account not found")

// AccountRepository define el contrato de persistencia para cuentas.
// Cada cuenta es un unico registro que se lee y escribe completo.
type AccountRepository interface {
	Get(ctx context.Context, identifier string) (domain.AccountRecord, error)
	Save(ctx context.Context, record domain.AccountRecord) error
}

// KVAccountRepository implementa AccountRepository sobre un kv.Store.
type KVAccountRepository struct {
	store kv.Store
}

func NewKVAccountRepository(store kv.Store) *KVAccountRepository {
	return &KVAccountRepository{store: store}
}

func (r *KVAccountRepository) Get(ctx context.Context, identifier string) (domain.AccountRecord, error) {
	raw, err := r.store.Get(ctx, accountKey(identifier))
	if errors.Is(err, kv.ErrNotFound) {
		return domain.AccountRecord{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.AccountRecord{}, err
	}
	var rec domain.AccountRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.AccountRecord{}, fmt.Errorf("decode account %q: %w", identifier, err)
	}
	rec.Normalize()
	return rec, nil
}

func (r *KVAccountRepository) Save(ctx context.Context, record domain.AccountRecord) error {
	if strings.TrimSpace(record.Account.Identifier) == "" {
		return errors.New("account identifier required")
	}
	record.Normalize()
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode account %q: %w", record.Account.Identifier, err)
	}
	return r.store.Set(ctx, accountKey(record.Account.Identifier), raw)
}

func accountKey(identifier string) string {
	return usersKeyPrefix + identifier
}
