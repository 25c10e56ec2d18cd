package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"diary-companion/internal/domain"
	"diary-companion/internal/repository"
)

// ShortReturnThreshold separa el saludo de "vuelta rapida" del de "hace tiempo".
const ShortReturnThreshold = time.Hour

var (
	ErrAuthNotConfigured  = errors.New("auth service not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMalformedSecret    = errors.New("malformed secret")
	ErrRateLimited        = errors.New("rate limited")
	ErrCorruptedSession   = errors.New("corrupted session")
)

type authRecorder interface {
	RecordAuthAttempt(ctx context.Context, result string)
}

// AuthResult es el resultado de un login exitoso.
type AuthResult struct {
	Account         domain.Account
	IsNew           bool
	PreviousLoginAt time.Time
	Greeting        domain.GreetingKind
	Token           string
}

// AuthService autentica por identificador y PIN. Una cuenta desconocida se
// crea en el primer login.
type AuthService struct {
	logger     *zap.Logger
	accounts   *AccountStore
	tokens     *SessionTokenService
	limiter    AttemptLimiter
	requirePIN bool
	cost       int
	metrics    authRecorder
	now        func() time.Time
}

type AuthOption func(*AuthService)

func WithAttemptLimiter(l AttemptLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

func WithAuthMetrics(m authRecorder) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

// WithBcryptCost ajusta el costo del hash; los tests usan bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(logger *zap.Logger, accounts *AccountStore, tokens *SessionTokenService, requirePIN bool, opts ...AuthOption) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuthService{
		logger:     logger,
		accounts:   accounts,
		tokens:     tokens,
		requirePIN: requirePIN,
		cost:       bcrypt.DefaultCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Authenticate(ctx context.Context, identifier, secret string) (AuthResult, error) {
	if s == nil || s.accounts == nil || s.tokens == nil {
		return AuthResult{}, ErrAuthNotConfigured
	}
	identifier = strings.TrimSpace(identifier)
	secret = strings.TrimSpace(secret)
	if identifier == "" || secret == "" {
		s.record(ctx, "invalid")
		return AuthResult{}, ErrInvalidCredentials
	}
	if s.requirePIN && !isPIN(secret) {
		s.record(ctx, "malformed")
		return AuthResult{}, ErrMalformedSecret
	}
	if s.limiter != nil && !s.limiter.Allow(identifier) {
		s.record(ctx, "rate_limited")
		s.logger.Warn("login rate limited", zap.String("identifier", identifier))
		return AuthResult{}, ErrRateLimited
	}

	now := s.now()
	result, err := s.login(ctx, identifier, secret, now)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.record(ctx, "invalid")
		}
		return AuthResult{}, err
	}

	token, err := s.tokens.Issue(result.Account)
	if err != nil {
		return AuthResult{}, err
	}
	result.Token = token
	if result.IsNew {
		s.record(ctx, "created")
		s.logger.Info("account created", zap.String("identifier", identifier))
	} else {
		s.record(ctx, "ok")
	}
	return result, nil
}

func (s *AuthService) login(ctx context.Context, identifier, secret string, now time.Time) (AuthResult, error) {
	_, err := s.accounts.Get(ctx, identifier)
	if errors.Is(err, repository.ErrAccountNotFound) {
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
		if err != nil {
			return AuthResult{}, err
		}
		rec := domain.NewAccountRecord(identifier, string(hash), now)
		created, err := s.accounts.Create(ctx, rec)
		if err != nil {
			return AuthResult{}, err
		}
		if created {
			return AuthResult{Account: rec.Account, IsNew: true, Greeting: domain.GreetingFirst}, nil
		}
	} else if err != nil {
		return AuthResult{}, err
	}

	var result AuthResult
	err = s.accounts.Update(ctx, identifier, func(r *domain.AccountRecord) error {
		if !secretMatches(r.SecretHash, secret) {
			return ErrInvalidCredentials
		}
		result.PreviousLoginAt = r.Account.LastLoginAt
		r.Account.LastLoginAt = now
		result.Account = r.Account
		return nil
	})
	if err != nil {
		return AuthResult{}, err
	}
	result.Greeting = SelectGreeting(false, result.PreviousLoginAt, now)
	return result, nil
}

// RestoreSession valida el marcador guardado. Cualquier problema con el
// token o una cuenta borrada se reporta como ErrCorruptedSession.
func (s *AuthService) RestoreSession(ctx context.Context, token string) (domain.Account, error) {
	if s == nil || s.accounts == nil || s.tokens == nil {
		return domain.Account{}, ErrAuthNotConfigured
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Account{}, ErrCorruptedSession
	}
	rec, err := s.accounts.Get(ctx, claims.UserID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return domain.Account{}, ErrCorruptedSession
	}
	if err != nil {
		return domain.Account{}, err
	}
	return rec.Account, nil
}

// Logout revoca el token. Los datos de la cuenta no cambian.
func (s *AuthService) Logout(_ context.Context, token string) error {
	if s == nil || s.tokens == nil {
		return ErrAuthNotConfigured
	}
	err := s.tokens.Revoke(token)
	if errors.Is(err, ErrJWTInvalid) || errors.Is(err, ErrJWTExpired) {
		return nil
	}
	return err
}

// SelectGreeting es una funcion pura del estado de la cuenta y la hora.
func SelectGreeting(isNew bool, lastLoginAt, now time.Time) domain.GreetingKind {
	switch {
	case isNew:
		return domain.GreetingFirst
	case now.Sub(lastLoginAt) < ShortReturnThreshold:
		return domain.GreetingShortReturn
	default:
		return domain.GreetingLongReturn
	}
}

func (s *AuthService) record(ctx context.Context, result string) {
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt(ctx, result)
	}
}

func secretMatches(hash, secret string) bool {
	if hash == "" || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// isPIN exige exactamente cuatro digitos ASCII.
func isPIN(secret string) bool {
	if len(secret) != 4 {
		return false
	}
	for i := 0; i < len(secret); i++ {
		if secret[i] < '0' || secret[i] > '9' {
			return false
		}
	}
	return true
}
