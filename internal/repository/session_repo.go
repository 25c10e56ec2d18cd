package repository

import (
	"context"
	"errors"
	"strings"

	"diary-companion/internal/kv"
)

const (
	currentUserKey = "currentUser"
	languageKey    = "language"
)

// PreferenceRepository guarda los registros globales del dispositivo:
// el marcador de sesion actual y el idioma de la interfaz.
type PreferenceRepository interface {
	CurrentSession(ctx context.Context) (string, error)
	SetCurrentSession(ctx context.Context, token string) error
	ClearCurrentSession(ctx context.Context) error
	Language(ctx context.Context) (string, error)
	SetLanguage(ctx context.Context, lang string) error
}

// KVPreferenceRepository implementa PreferenceRepository sobre un kv.Store.
type KVPreferenceRepository struct {
	store kv.Store
}

func NewKVPreferenceRepository(store kv.Store) *KVPreferenceRepository {
	return &KVPreferenceRepository{store: store}
}

// CurrentSession devuelve "" si no hay sesion guardada.
func (r *KVPreferenceRepository) CurrentSession(ctx context.Context) (string, error) {
	return r.getString(ctx, currentUserKey)
}

func (r *KVPreferenceRepository) SetCurrentSession(ctx context.Context, token string) error {
	return r.store.Set(ctx, currentUserKey, []byte(token))
}

func (r *KVPreferenceRepository) ClearCurrentSession(ctx context.Context) error {
	return r.store.Delete(ctx, currentUserKey)
}

// Language devuelve "" si el usuario nunca eligio idioma.
func (r *KVPreferenceRepository) Language(ctx context.Context) (string, error) {
	return r.getString(ctx, languageKey)
}

func (r *KVPreferenceRepository) SetLanguage(ctx context.Context, lang string) error {
	return r.store.Set(ctx, languageKey, []byte(strings.TrimSpace(lang)))
}

func (r *KVPreferenceRepository) getString(ctx context.Context, key string) (string, error) {
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
