package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rollcall-app/rollcall/internal/accounts"
	"github.com/rollcall-app/rollcall/internal/app"
	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/events"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/observability"
	"github.com/rollcall-app/rollcall/internal/personnel"
	"github.com/rollcall-app/rollcall/internal/provider"
	"github.com/rollcall-app/rollcall/internal/records"
	"github.com/rollcall-app/rollcall/internal/registration"
	"github.com/rollcall-app/rollcall/internal/roles"
	"github.com/rollcall-app/rollcall/internal/settings"
	"github.com/rollcall-app/rollcall/internal/shared"
	"github.com/rollcall-app/rollcall/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var idp provider.IdentityProvider
	switch cfg.ProviderMode {
	case "gotrue":
		idp = provider.NewGoTrueClient(cfg.GoTrueURL, cfg.GoTrueServiceKey, http.DefaultClient)
	default:
		idp = provider.NewLocalProvider(dbpool)
	}

	identityRepo := identity.NewRepository(dbpool)
	resolver := identity.NewResolver(identityRepo, redisClient, cfg.PrincipalCacheTTL, logger)
	identityMW := identity.Middleware{Resolver: resolver, Logger: logger}
	authzMW := authz.Middleware{Logger: logger}

	auditStore := audit.NewPGStore(dbpool)
	recorder := audit.NewRecorder(auditStore, logger)
	auditService := audit.NewService(auditStore)
	auditHandler := audit.NewHandler(logger, auditService, authzMW)

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo, idp, recorder, resolver, logger)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, recorder, resolver)
	rolesHandler := roles.NewHandler(logger, rolesService)

	personnelRepo := personnel.NewRepository(dbpool)
	personnelService := personnel.NewService(personnelRepo, recorder, idempotencyStore)
	personnelHandler := personnel.NewHandler(logger, personnelService)

	recordsRepo := records.NewRepository(dbpool)
	recordsService := records.NewService(recordsRepo, recorder)
	recordsHandler := records.NewHandler(logger, recordsService)

	eventsRepo := events.NewRepository(dbpool)
	eventsService := events.NewService(eventsRepo, recorder)
	eventsHandler := events.NewHandler(logger, eventsService)

	settingsRepo := settings.NewRepository(dbpool)
	settingsService := settings.NewService(settingsRepo, recorder)
	settingsHandler := settings.NewHandler(logger, settingsService)

	registrationService := registration.NewService(settingsRepo, accountsRepo, idp, recorder, logger)
	registrationHandler := registration.NewHandler(logger, registrationService)

	metrics := observability.NewMetrics()
	authz.ObserveDenials(metrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		IdentityMiddleware:  identityMW,
		AccountsHandler:     accountsHandler,
		RolesHandler:        rolesHandler,
		PersonnelHandler:    personnelHandler,
		RecordsHandler:      recordsHandler,
		EventsHandler:       eventsHandler,
		AuditHandler:        auditHandler,
		SettingsHandler:     settingsHandler,
		RegistrationHandler: registrationHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
