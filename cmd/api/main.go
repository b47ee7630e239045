// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nthalt/user-api/internal/admin"
	"github.com/nthalt/user-api/internal/app"
	"github.com/nthalt/user-api/internal/auth"
	"github.com/nthalt/user-api/internal/config"
	"github.com/nthalt/user-api/internal/core"
	"github.com/nthalt/user-api/internal/health"
	"github.com/nthalt/user-api/internal/mail"
	"github.com/nthalt/user-api/internal/migrations"
	"github.com/nthalt/user-api/internal/server"
	"github.com/nthalt/user-api/internal/user"
)

const drainDelay = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("starting",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	telemetry := startTelemetry(ctx, cfg, logger)

	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("signing key loaded", "algorithm", "ES256", "key_id", jwtManager.KeyID())

	sender, err := mail.NewSender(cfg.Mail, cfg.Reset, logger)
	if err != nil {
		return err
	}
	dispatcher := mail.NewDispatcher(sender, cfg.Mail.SendTimeout, logger)

	services := app.NewServices(cfg, app.Stores{
		UserRepo: user.NewRepository(db.DB),
		UserTx:   user.SQLTxRunner(db.DB),
		AuthRepo: auth.NewRepository(db.DB),
		AuthTx:   auth.SQLTxRunner(db.DB),
	}, jwtManager, dispatcher, logger)

	probes := health.NewHandler(map[string]health.Checker{"database": db})
	probes.SetPhase(health.Starting)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: probes,
		Logger:        logger,
	})
	app.Mount(srv.Router(), app.RouterDeps{
		Config:   cfg,
		Services: services,
		Health:   probes,
		Admin:    admin.NewHandler(admin.Sources{Pool: db, Users: services.Users}),
		Logger:   logger,
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()
	probes.SetPhase(health.Serving)

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Mail sends still queued get their own timeout on top of the drain.
	budget := cfg.Server.ShutdownTimeout + drainDelay + cfg.Mail.SendTimeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error("mail dispatcher drain error", "error", err)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	logger.Info("stopped")
	return nil
}

// startTelemetry never fails startup. A nil *core.Telemetry is safe to
// shut down.
func startTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) *core.Telemetry {
	if !cfg.Otel.Enabled {
		return nil
	}

	tel, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		return nil
	}
	logger.Info("tracing enabled", "endpoint", cfg.Otel.Endpoint, "sample_rate", cfg.Otel.SampleRate)
	return tel
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*core.Database, error) {
	db, err := core.NewDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected", "max_open_conns", cfg.MaxOpenConns)

	if !cfg.AutoMigrate {
		return db, nil
	}

	if err := migrations.Up(ctx, db.SQL()); err != nil {
		//nolint:errcheck // already failing
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if version, err := migrations.Version(ctx, db.SQL()); err == nil {
		logger.Info("database migrated", "version", version)
	}
	return db, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
