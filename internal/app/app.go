// Package app arma el grafo de dependencias compartido por la API y la CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"diary-companion/internal/config"
	"diary-companion/internal/dialogue"
	"diary-companion/internal/kv"
	"diary-companion/internal/llm"
	"diary-companion/internal/locale"
	"diary-companion/internal/observe"
	"diary-companion/internal/repository"
	"diary-companion/internal/service"
	"diary-companion/internal/speech"
)

// App contiene los componentes ya conectados.
type App struct {
	Store     kv.Store
	Tokens    *service.SessionTokenService
	Goals     *service.GoalService
	Companion *service.Companion
	Locale    *locale.Catalog

	redis *redis.Client
}

// Build conecta storage, localizacion, dialogo y servicios segun cfg.
// metrics puede ser nil.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observe.Metrics) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := loadCatalogs(cfg)
	if err != nil {
		return nil, err
	}
	tree, err := dialogue.DefaultTree(loc)
	if err != nil {
		return nil, fmt.Errorf("dialogue tree: %w", err)
	}

	rnd := dialogue.NewRand(cfg.RandomSeed)
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	var (
		fallback    dialogue.Resolver
		transcriber speech.Transcriber
	)
	if cfg.RemoteEnabled() {
		client, err := llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("llm client: %w", err)
		}
		fallback = dialogue.NewRemoteResolver(client, loc)
		tr, err := speech.NewOpenAITranscriber(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.SpeechModel, timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("speech transcriber: %w", err)
		}
		transcriber = tr
		logger.Info("remote resolver enabled", zap.String("model", cfg.LLMModel))
	}
	responder, err := dialogue.NewResponder(loc, cfg.DefaultLanguage, rnd, fallback)
	if err != nil {
		return nil, fmt.Errorf("responder: %w", err)
	}
	logger.Debug("free text cascade", zap.Strings("strategies", responder.Strategies()))

	store, err := kv.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Store: store, Locale: loc}

	var (
		tokenStore = service.NewKVSessionTokenStore(store)
		limiter    service.AttemptLimiter
	)
	if cfg.AuthAttemptsPerMinute > 0 {
		limiter = service.NewMemoryAttemptLimiter(time.Minute, cfg.AuthAttemptsPerMinute)
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis ping failed, sessions stay in the local store", zap.Error(err))
			_ = client.Close()
		} else {
			a.redis = client
			tokenStore = service.NewRedisSessionTokenStore(client)
			if cfg.AuthAttemptsPerMinute > 0 {
				limiter = service.NewRedisAttemptLimiter(client, time.Minute, cfg.AuthAttemptsPerMinute)
			}
		}
	}

	secret, err := service.LoadOrCreateSessionSecret(ctx, cfg.SessionSecret, store)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("session secret: %w", err)
	}
	a.Tokens = service.NewSessionTokenService(secret, time.Duration(cfg.SessionTTLHours)*time.Hour, tokenStore)

	accounts := service.NewAccountStore(repository.NewKVAccountRepository(store))
	conversation := service.NewConversationService(accounts)
	a.Goals = service.NewGoalService(accounts)

	authOpts := []service.AuthOption{service.WithAuthMetrics(metrics)}
	if limiter != nil {
		authOpts = append(authOpts, service.WithAttemptLimiter(limiter))
	}
	engine := dialogue.NewEngine(tree, loc, responder, conversation, a.Goals,
		dialogue.WithLogger(logger),
		dialogue.WithMetrics(metrics),
		dialogue.WithRand(rnd),
	)

	a.Companion = service.NewCompanion(service.CompanionDeps{
		Auth:         service.NewAuthService(logger, accounts, a.Tokens, cfg.RequirePIN, authOpts...),
		Engine:       engine,
		Conversation: conversation,
		Journal:      service.NewJournalService(accounts),
		Goals:        a.Goals,
		Preferences:  repository.NewKVPreferenceRepository(store),
		Locale:       loc,
		Transcriber:  transcriber,
		DefaultLang:  cfg.DefaultLanguage,
	}, logger)
	return a, nil
}

func loadCatalogs(cfg *config.Config) (*locale.Catalog, error) {
	if cfg.LocaleDir != "" {
		loc, err := locale.LoadDir(cfg.LocaleDir, cfg.DefaultLanguage)
		if err != nil {
			return nil, fmt.Errorf("locale dir %q: %w", cfg.LocaleDir, err)
		}
		return loc, nil
	}
	return locale.Default(cfg.DefaultLanguage)
}

// Close libera el store y el cliente de Redis.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
