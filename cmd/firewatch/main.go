package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/firewatch/firewatch/internal/app"
	"github.com/firewatch/firewatch/internal/appointments"
	"github.com/firewatch/firewatch/internal/auth"
	"github.com/firewatch/firewatch/internal/devices"
	"github.com/firewatch/firewatch/internal/institutions"
	"github.com/firewatch/firewatch/internal/isgmembers"
	"github.com/firewatch/firewatch/internal/maintenance"
	"github.com/firewatch/firewatch/internal/notifications"
	"github.com/firewatch/firewatch/internal/observability"
	"github.com/firewatch/firewatch/internal/offerrequests"
	"github.com/firewatch/firewatch/internal/offers"
	"github.com/firewatch/firewatch/internal/platform/cache"
	"github.com/firewatch/firewatch/internal/platform/db"
	"github.com/firewatch/firewatch/internal/rbac"
	"github.com/firewatch/firewatch/internal/shared"
	"github.com/firewatch/firewatch/internal/users"
	"github.com/firewatch/firewatch/jobs"
)

const sessionCookieName = "firewatch_session"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, sessionCookieName, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	tokens := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	codes := auth.NewCodeStore(redisClient, cfg.VerificationTTL)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, codes, tokens, jobClient, logger)
	resolver := auth.NewResolver(authRepo, tokens, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, resolver)

	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Metrics: metrics, Logger: logger}

	devicesService := devices.NewService(devices.NewRepository(pool), cfg.PageSize, logger)
	appointmentsService := appointments.NewService(appointments.NewRepository(pool), cfg.PageSize, logger)
	maintenanceService := maintenance.NewService(maintenance.NewRepository(pool), cfg.PageSize, logger)
	offersService := offers.NewService(offers.NewRepository(pool), cfg.PageSize, logger)
	offerRequestsService := offerrequests.NewService(offerrequests.NewRepository(pool), cfg.PageSize, logger)
	notificationsService := notifications.NewService(notifications.NewRepository(pool), cfg.PageSize, logger)
	institutionsService := institutions.NewService(institutions.NewRepository(pool), cfg.PageSize, logger)
	usersService := users.NewService(users.NewRepository(pool), cfg.PageSize, logger)
	isgMembersService := isgmembers.NewService(isgmembers.NewRepository(pool), cfg.PageSize, logger)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		Resolver:             resolver,
		RBACMiddleware:       rbacMiddleware,
		Metrics:              metrics,
		AuthHandler:          authHandler,
		DevicesHandler:       devices.NewHandler(logger, devicesService, rbacMiddleware),
		AppointmentsHandler:  appointments.NewHandler(logger, appointmentsService, rbacMiddleware),
		MaintenanceHandler:   maintenance.NewHandler(logger, maintenanceService, rbacMiddleware),
		OffersHandler:        offers.NewHandler(logger, offersService, rbacMiddleware),
		OfferRequestsHandler: offerrequests.NewHandler(logger, offerRequestsService, rbacMiddleware),
		NotificationsHandler: notifications.NewHandler(logger, notificationsService, rbacMiddleware),
		InstitutionsHandler:  institutions.NewHandler(logger, institutionsService, rbacMiddleware),
		UsersHandler:         users.NewHandler(logger, usersService, rbacMiddleware),
		IsgMembersHandler:    isgmembers.NewHandler(logger, isgMembersService, rbacMiddleware),
		JobHandler:           jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
