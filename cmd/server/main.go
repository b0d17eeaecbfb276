// Command chathub-server starts the messaging backend HTTP server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvaz/chathub/internal/config"
	"github.com/mvaz/chathub/internal/domain"
	"github.com/mvaz/chathub/internal/events"
	"github.com/mvaz/chathub/internal/limiter"
	"github.com/mvaz/chathub/internal/metrics"
	"github.com/mvaz/chathub/internal/migrate"
	"github.com/mvaz/chathub/internal/repository/postgres"
	httpserver "github.com/mvaz/chathub/internal/server/http"
	"github.com/mvaz/chathub/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, wires the services and
// serves HTTP until interrupted.
func main() {
	addr := flag.String("addr", "", "listen address (overrides CHATHUB_ADDR)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides CHATHUB_DATABASE_DSN)")
	flag.Parse()
	if *addr != "" {
		_ = os.Setenv("CHATHUB_ADDR", *addr)
	}
	if *dsn != "" {
		_ = os.Setenv("CHATHUB_DATABASE_DSN", *dsn)
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	db := &postgres.DB{Pool: pool}
	trx := postgres.NewTxManager(db)

	usersDomain := domain.NewUsersDomain(
		domain.BcryptHasher{Cost: cfg.BcryptCost},
		domain.UsersConfig{
			TokenSizeInBytes: cfg.TokenSizeInBytes,
			TokenTTL:         cfg.TokenTTL,
			TokenRollingTTL:  cfg.TokenRollingTTL,
			MaxTokensPerUser: cfg.MaxTokensPerUser,
		},
	)

	lim := limiter.NewPG(pool, limiter.Config{
		Window:        cfg.LimiterWindow,
		MaxFailures:   cfg.LimiterMaxFails,
		BlockDuration: cfg.LimiterLockout,
	})

	m := metrics.New()

	hub := events.NewHub(cfg.EventBuffer, logger)
	hub.OnDrop(func() { m.MessagesDropped.Inc() })
	go hub.RunKeepAlive(cfg.KeepAliveInterval)

	userSvc := service.NewUserService(trx, usersDomain, lim, time.Now, logger)
	channelSvc := service.NewChannelService(trx, usersDomain, logger)
	invitationSvc := service.NewInvitationService(trx, logger)
	messageSvc := service.NewMessageService(trx, usersDomain, hub, time.Now, logger)

	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.Addr,
		Users:       userSvc,
		Channels:    channelSvc,
		Invitations: invitationSvc,
		Messages:    messageSvc,
		Hub:         hub,
		Metrics:     m,
		Logger:      logger,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Shutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
