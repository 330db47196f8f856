// Command server runs the bookshop assistant HTTP and WebSocket API.
//
// @title        Bookshop Assistant API
// @version      1.0
// @description  Vietnamese bookshop chat assistant: recommendations, trending books, cart actions and coupons.
// @BasePath     /api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/internal/config"
	httpapi "github.com/tbourn/go-bookshop-assistant/internal/http"
	"github.com/tbourn/go-bookshop-assistant/internal/intent"
	"github.com/tbourn/go-bookshop-assistant/internal/observability"
	"github.com/tbourn/go-bookshop-assistant/internal/repo"
	"github.com/tbourn/go-bookshop-assistant/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout    = 15 * time.Second
	idempotencySweepIn = 10 * time.Minute
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	gin.SetMode(cfg.GinMode)
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DB.Driver, cfg.DB.ConnString())
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.DB.Driver, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if cfg.DB.Seed {
		n, err := repo.SeedCatalog(ctx, db)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if n > 0 {
			log.Info().Int("books", n).Msg("catalog seeded")
		}
	}

	clf, err := newClassifier(cfg.Intent)
	if err != nil {
		return err
	}

	r := gin.New()
	hub := httpapi.RegisterRoutes(r, db, clf, cfg)
	if hub != nil {
		go hub.Run(ctx)
	}
	go sweepIdempotency(ctx, db)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("db", cfg.DB.Driver).
			Str("intent", cfg.Intent.Backend).
			Bool("ws", cfg.WSEnabled).
			Msg("starting bookshop assistant")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// newClassifier builds the configured intent backend.
func newClassifier(cfg config.IntentConfig) (intent.Classifier, error) {
	switch cfg.Backend {
	case config.IntentRemote:
		return intent.NewRemoteClassifier(cfg.Endpoint, cfg.Timeout), nil
	case config.IntentOpenAI:
		return intent.NewOpenAIClassifier(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case config.IntentLexicon, "":
		return intent.NewLexiconClassifier(), nil
	default:
		return nil, fmt.Errorf("unknown intent backend %q", cfg.Backend)
	}
}

// sweepIdempotency deletes expired idempotency records until ctx is done.
func sweepIdempotency(ctx context.Context, db *gorm.DB) {
	t := time.NewTicker(idempotencySweepIn)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("idempotency sweep")
			}
		}
	}
}
