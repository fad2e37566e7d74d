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

	router "github.com/mahendrakanna/edupravahaa-web/internal/adapters/http"
	"github.com/mahendrakanna/edupravahaa-web/internal/app"
	"github.com/mahendrakanna/edupravahaa-web/internal/app/orch"
	"github.com/mahendrakanna/edupravahaa-web/internal/auth"
	"github.com/mahendrakanna/edupravahaa-web/internal/config"
	"github.com/mahendrakanna/edupravahaa-web/internal/presence"
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

	var (
		store  presence.Store
		bridge *presence.Bridge
	)
	if cfg.RedisURL != "" {
		redisStore, err := presence.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect presence store")
		}
		store = redisStore
		bridge = presence.NewBridge(ctx, redisStore.Client())
		defer bridge.Close()
	} else {
		log.Warn().Msg("no redis url configured, using in-memory presence store")
		store = presence.NewMemoryStore()
	}

	var gate auth.Gate = auth.AllowAll{}
	if cfg.AuthzURL != "" {
		gate = auth.NewHTTPGate(cfg.AuthzURL)
	} else {
		log.Warn().Msg("no authz url configured, admitting everyone")
	}

	registry := app.NewRegistry(store)
	rooms := app.NewRoomManager(store)
	o := &orch.Orchestrator{
		Registry: registry,
		Rooms:    rooms,
		Store:    store,
		Gate:     gate,
		Policy:   app.DropPolicy{},
		Bridge:   bridge,
	}

	tokens := auth.NewTokenVerifier(cfg.Secret)
	r := router.SetupRouter(ctx, cfg, o, tokens)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("classroom signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
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
