package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Meet/internal/adapters/http"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/chat"
	"github.com/dkeye/Meet/internal/app/lifecycle"
	"github.com/dkeye/Meet/internal/app/meeting"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/app/presence"
	"github.com/dkeye/Meet/internal/app/rooms"
	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/files"
	"github.com/dkeye/Meet/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	repo, err := store.New(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer repo.Close()

	uploads, err := files.NewOSStore(cfg.Files.Dir, cfg.Files.BaseURL, cfg.Files.MaxSize)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Files.Dir).Msg("failed to prepare uploads")
	}
	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init token verifier")
	}
	sfuTokens := auth.NewSFUTokens(cfg.LiveKit.URL, cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.TokenTTL)
	if !sfuTokens.Enabled() {
		log.Warn().Msg("livekit is not configured, sfu meetings have no media path")
	}

	meetings := meeting.NewService(repo, cfg.Meeting.CacheTTL)
	cleanup := lifecycle.NewScheduler(cfg.Lifecycle.Grace, repo, uploads)
	defer cleanup.Stop()

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms.NewRegistry(meetings),
		Policy:   app.SimplePolicy{},
		Chat:     chat.NewRelay(repo, cfg.Chat.HistoryLimit),
		Cleanup:  cleanup,
		Presence: presence.NewHub(32),
		Limiter:  app.NewRateLimiter(cfg.Chat.RateLimit, cfg.Chat.RateInterval),
	}
	o.Typing = chat.NewTyping(cfg.Chat.TypingTimeout, o.OnTyping)
	o.Chat.Files = uploads
	cleanup.Live = func(room domain.RoomID) bool {
		_, ok := o.Rooms.Get(room)
		return ok
	}

	r := router.SetupRouter(ctx, cfg, &router.Services{
		Orch:     o,
		Meetings: meetings,
		Files:    uploads,
		Verifier: verifier,
		SFU:      sfuTokens,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Meet server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
