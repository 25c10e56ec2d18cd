package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"diary-companion/internal/domain"
	"diary-companion/internal/kv"
	"diary-companion/internal/repository"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordedAuth struct {
	results []string
}

func (r *recordedAuth) RecordAuthAttempt(_ context.Context, result string) {
	r.results = append(r.results, result)
}

func newTestAccounts() *AccountStore {
	return NewAccountStore(repository.NewKVAccountRepository(kv.NewMemoryStore()))
}

func newTestAuth(t *testing.T, requirePIN bool, opts ...AuthOption) (*AuthService, *AccountStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)}
	accounts := newTestAccounts()
	tokens := NewSessionTokenService("test-secret", time.Hour, NewMemorySessionTokenStore())
	opts = append([]AuthOption{WithBcryptCost(bcrypt.MinCost), WithAuthClock(clock.Now)}, opts...)
	return NewAuthService(nil, accounts, tokens, requirePIN, opts...), accounts, clock
}

func TestAuthenticateCreatesThenVerifies(t *testing.T) {
	auth, accounts, clock := newTestAuth(t, true)
	ctx := context.Background()
	created := clock.Now()

	res, err := auth.Authenticate(ctx, " jane ", "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsNew || res.Greeting != domain.GreetingFirst || res.Token == "" {
		t.Fatalf("unexpected first login result %+v", res)
	}
	rec, err := accounts.Get(ctx, "jane")
	if err != nil {
		t.Fatalf("account not stored: %v", err)
	}
	if rec.SecretHash == "" || rec.SecretHash == "1234" {
		t.Fatalf("secret must be stored hashed")
	}

	clock.Advance(10 * time.Minute)
	res, err = auth.Authenticate(ctx, "jane", "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsNew || res.Greeting != domain.GreetingShortReturn {
		t.Fatalf("expected short return, got %+v", res)
	}
	if !res.PreviousLoginAt.Equal(created) {
		t.Fatalf("expected previous login %v, got %v", created, res.PreviousLoginAt)
	}

	clock.Advance(2 * time.Hour)
	res, err = auth.Authenticate(ctx, "jane", "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Greeting != domain.GreetingLongReturn {
		t.Fatalf("expected long return, got %s", res.Greeting)
	}
	lastLogin := res.Account.LastLoginAt

	clock.Advance(time.Minute)
	if _, err := auth.Authenticate(ctx, "jane", "9999"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	rec, _ = accounts.Get(ctx, "jane")
	if !rec.Account.LastLoginAt.Equal(lastLogin) {
		t.Fatalf("failed login must not touch the account")
	}
}

func TestAuthenticateValidation(t *testing.T) {
	cases := []struct {
		name       string
		requirePIN bool
		identifier string
		secret     string
		want       error
	}{
		{"empty identifier", true, "  ", "1234", ErrInvalidCredentials},
		{"empty secret", true, "jane", "", ErrInvalidCredentials},
		{"letters in pin", true, "jane", "12a4", ErrMalformedSecret},
		{"pin too long", true, "jane", "12345", ErrMalformedSecret},
		{"non ascii digits", true, "jane", "١٢٣٤", ErrMalformedSecret},
		{"free secret allowed", false, "jane", "hunter2", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth, accounts, _ := newTestAuth(t, tc.requirePIN)
			_, err := auth.Authenticate(context.Background(), tc.identifier, tc.secret)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want != nil {
				if _, err := accounts.Get(context.Background(), "jane"); !errors.Is(err, repository.ErrAccountNotFound) {
					t.Fatalf("rejected login must not create an account")
				}
			}
		})
	}
}

func TestAuthenticateRateLimited(t *testing.T) {
	metrics := &recordedAuth{}
	auth, _, _ := newTestAuth(t, true,
		WithAttemptLimiter(NewMemoryAttemptLimiter(time.Minute, 2)),
		WithAuthMetrics(metrics),
	)
	ctx := context.Background()

	if _, err := auth.Authenticate(ctx, "jane", "1234"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := auth.Authenticate(ctx, "jane", "0000"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := auth.Authenticate(ctx, "JANE", "1234"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	want := []string{"created", "invalid", "rate_limited"}
	if len(metrics.results) != len(want) {
		t.Fatalf("expected %v, got %v", want, metrics.results)
	}
	for i := range want {
		if metrics.results[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, metrics.results)
		}
	}
}

func TestRestoreSessionAndLogout(t *testing.T) {
	auth, _, _ := newTestAuth(t, true)
	ctx := context.Background()

	res, err := auth.Authenticate(ctx, "jane", "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acct, err := auth.RestoreSession(ctx, res.Token)
	if err != nil || acct.Identifier != "jane" {
		t.Fatalf("expected restored account, got %+v %v", acct, err)
	}
	if _, err := auth.RestoreSession(ctx, "not-a-token"); !errors.Is(err, ErrCorruptedSession) {
		t.Fatalf("expected ErrCorruptedSession, got %v", err)
	}

	ghost, err := auth.tokens.Issue(domain.Account{Identifier: "ghost"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := auth.RestoreSession(ctx, ghost); !errors.Is(err, ErrCorruptedSession) {
		t.Fatalf("missing account must be a corrupted session, got %v", err)
	}

	if err := auth.Logout(ctx, res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := auth.RestoreSession(ctx, res.Token); !errors.Is(err, ErrCorruptedSession) {
		t.Fatalf("revoked token must not restore, got %v", err)
	}
	if err := auth.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("logout of an unknown token should be a no-op, got %v", err)
	}
}

func TestSelectGreeting(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	cases := []struct {
		isNew bool
		last  time.Time
		want  domain.GreetingKind
	}{
		{true, now, domain.GreetingFirst},
		{false, now.Add(-59 * time.Minute), domain.GreetingShortReturn},
		{false, now.Add(-time.Hour), domain.GreetingLongReturn},
		{false, now.Add(-72 * time.Hour), domain.GreetingLongReturn},
	}
	for _, tc := range cases {
		if got := SelectGreeting(tc.isNew, tc.last, now); got != tc.want {
			t.Fatalf("SelectGreeting(%v, %v) = %s, want %s", tc.isNew, tc.last, got, tc.want)
		}
	}
}

func TestNilAuthService(t *testing.T) {
	var auth *AuthService
	if _, err := auth.Authenticate(context.Background(), "jane", "1234"); !errors.Is(err, ErrAuthNotConfigured) {
		t.Fatalf("expected ErrAuthNotConfigured, got %v", err)
	}
}
