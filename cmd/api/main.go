package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"diary-companion/internal/app"
	"diary-companion/internal/config"
	apihttp "diary-companion/internal/http"
	"diary-companion/internal/observe"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := observe.InitProvider()
	if err != nil {
		logger.Fatal("metrics init", zap.Error(err))
	}

	a, err := app.Build(ctx, cfg, logger, provider.Metrics)
	if err != nil {
		logger.Fatal("build app", zap.Error(err))
	}
	defer a.Close()

	if cfg.SessionSecret == "" {
		logger.Warn("session secret not configured, using the one kept in the store")
	}

	router := apihttp.NewRouter(logger, provider.Metrics, a.Tokens,
		apihttp.NewAuthHandler(logger, a.Companion),
		apihttp.NewChatHandler(logger, a.Companion),
		apihttp.NewJournalHandler(logger, a.Companion),
		apihttp.NewHealthHandler(logger, a.Store),
		provider.Handler(),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("storage", cfg.StorageBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return provider.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}
