package service

import (
	"errors"
	"sync"

	"diary-companion/internal/domain"
	"diary-companion/internal/speech"
)

var ErrSessionBusy = errors.New("session busy")

// ChatSession es el estado efimero de una sesion abierta. Una sola operacion
// de dialogo avanza a la vez; las concurrentes reciben ErrSessionBusy.
type ChatSession struct {
	mu      sync.Mutex
	token   string
	account domain.Account
	state   domain.SessionState
	capture speech.Capture
	journal *JournalView
}

func newChatSession(token string, account domain.Account, lang string) *ChatSession {
	return &ChatSession{
		token:   token,
		account: account,
		state:   domain.NewSessionState(account.Identifier, lang),
	}
}

func (s *ChatSession) acquire() (func(), error) {
	if !s.mu.TryLock() {
		return nil, ErrSessionBusy
	}
	return s.mu.Unlock, nil
}

// SessionRegistry indexa las sesiones abiertas por token.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*ChatSession)}
}

func (r *SessionRegistry) Get(token string) (*ChatSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[token]
	return s, ok
}

// put conserva la sesion existente si otra llamada la registro primero.
func (r *SessionRegistry) put(s *ChatSession) *ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[s.token]; ok {
		return existing
	}
	r.sessions[s.token] = s
	return s
}

func (r *SessionRegistry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
