package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"diary-companion/internal/kv"
)

// SessionTokenStore guarda el jti de cada sesion emitida y permite revocarla.
type SessionTokenStore interface {
	Store(jti, accountID string, ttl time.Duration) error
	Exists(jti string) (bool, error)
	Revoke(jti string) error
}

type memorySessionTokenStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func NewMemorySessionTokenStore() SessionTokenStore {
	return &memorySessionTokenStore{
		items: make(map[string]time.Time),
	}
}

func (s *memorySessionTokenStore) Store(jti, _ string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(jti) == "" {
		return nil
	}
	s.items[jti] = time.Now().UTC().Add(ttl)
	return nil
}

func (s *memorySessionTokenStore) Exists(jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[jti]
	if !ok {
		return false, nil
	}
	if time.Now().UTC().After(exp) {
		delete(s.items, jti)
		return false, nil
	}
	return true, nil
}

func (s *memorySessionTokenStore) Revoke(jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, jti)
	return nil
}

type redisKVClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionTokenStore struct {
	client redisKVClient
	prefix string
}

func NewRedisSessionTokenStore(client *redis.Client) SessionTokenStore {
	if client == nil {
		return nil
	}
	return &redisSessionTokenStore{
		client: client,
		prefix: "auth:session:",
	}
}

func (s *redisSessionTokenStore) Store(jti, accountID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+jti, accountID, ttl).Err()
}

func (s *redisSessionTokenStore) Exists(jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisSessionTokenStore) Revoke(jti string) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+jti).Err()
}

// kvSessionTokenStore persiste las sesiones en el mismo kv.Store que las
// cuentas, asi una sesion local sobrevive a un reinicio del proceso.
type kvSessionTokenStore struct {
	store  kv.Store
	prefix string
	now    func() time.Time
}

type storedSession struct {
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewKVSessionTokenStore(store kv.Store) SessionTokenStore {
	if store == nil {
		return nil
	}
	return &kvSessionTokenStore{
		store:  store,
		prefix: "sessions/",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *kvSessionTokenStore) Store(jti, accountID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	raw, err := json.Marshal(storedSession{AccountID: accountID, ExpiresAt: s.now().Add(ttl)})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.store.Set(ctx, s.prefix+jti, raw)
}

func (s *kvSessionTokenStore) Exists(jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, err := s.store.Get(ctx, s.prefix+jti)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var sess storedSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return false, nil
	}
	if s.now().After(sess.ExpiresAt) {
		_ = s.store.Delete(ctx, s.prefix+jti)
		return false, nil
	}
	return true, nil
}

func (s *kvSessionTokenStore) Revoke(jti string) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.store.Delete(ctx, s.prefix+jti)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	return err
}
