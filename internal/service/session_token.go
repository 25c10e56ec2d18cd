package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"diary-companion/internal/domain"
	"diary-companion/internal/kv"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	sessionTokenType  = "session"
	tokenIssuer       = "diary-companion"
)

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

// SessionClaims es el marcador de sesion: identificador y ultimo login.
type SessionClaims struct {
	UserID    string `json:"uid"`
	LastLogin int64  `json:"last_login"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// SessionTokenService emite y valida los tokens de sesion.
type SessionTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	store  SessionTokenStore
	now    func() time.Time
}

func NewSessionTokenService(secret string, ttl time.Duration, store SessionTokenStore) *SessionTokenService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if store == nil {
		store = NewMemorySessionTokenStore()
	}
	return &SessionTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: tokenIssuer,
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue firma un token para la cuenta y registra su jti.
func (s *SessionTokenService) Issue(account domain.Account) (string, error) {
	if len(s.secret) == 0 || strings.TrimSpace(account.Identifier) == "" {
		return "", ErrJWTInvalid
	}
	now := s.now()
	jti := uuid.NewString()
	claims := SessionClaims{
		UserID:    account.Identifier,
		LastLogin: account.LastLoginAt.Unix(),
		TokenType: sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   account.Identifier,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	if err := s.store.Store(jti, account.Identifier, s.ttl); err != nil {
		return "", err
	}
	return signed, nil
}

// Parse valida firma, claims y que el jti no haya sido revocado.
func (s *SessionTokenService) Parse(token string) (SessionClaims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(token) == "" {
		return SessionClaims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return SessionClaims{}, err
	}
	if claims.TokenType != sessionTokenType || !s.isValidClaims(claims) || claims.ID == "" {
		return SessionClaims{}, ErrJWTInvalid
	}
	ok, err := s.store.Exists(claims.ID)
	if err != nil || !ok {
		return SessionClaims{}, ErrJWTInvalid
	}
	return claims, nil
}

// Revoke invalida el token. Un token ya revocado no es error.
func (s *SessionTokenService) Revoke(token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return ErrJWTInvalid
	}
	return s.store.Revoke(claims.ID)
}

func (s *SessionTokenService) parseToken(tokenString string) (SessionClaims, error) {
	var claims SessionClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrJWTExpired
		}
		return SessionClaims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *SessionTokenService) isValidClaims(claims SessionClaims) bool {
	if strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}

const sessionSecretKey = "sessionSecret"

// LoadOrCreateSessionSecret devuelve el secreto configurado o, si no hay, uno
// generado y guardado en el store para que los tokens sobrevivan reinicios.
func LoadOrCreateSessionSecret(ctx context.Context, configured string, store kv.Store) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured, nil
	}
	raw, err := store.Get(ctx, sessionSecretKey)
	if err == nil && len(raw) > 0 {
		return string(raw), nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return "", err
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	secret := hex.EncodeToString(buf)
	if err := store.Set(ctx, sessionSecretKey, []byte(secret)); err != nil {
		return "", err
	}
	return secret, nil
}
