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

	"github.com/llantera-erp/llantera-erp/internal/app"
	"github.com/llantera-erp/llantera-erp/internal/auth"
	"github.com/llantera-erp/llantera-erp/internal/authz"
	"github.com/llantera-erp/llantera-erp/internal/inventory"
	"github.com/llantera-erp/llantera-erp/internal/notifications"
	"github.com/llantera-erp/llantera-erp/internal/observability"
	"github.com/llantera-erp/llantera-erp/internal/platform/cache"
	"github.com/llantera-erp/llantera-erp/internal/platform/db"
	"github.com/llantera-erp/llantera-erp/internal/procurement"
	"github.com/llantera-erp/llantera-erp/internal/rbac"
	"github.com/llantera-erp/llantera-erp/internal/sales"
	"github.com/llantera-erp/llantera-erp/internal/shared"
	"github.com/llantera-erp/llantera-erp/internal/users"
	"github.com/llantera-erp/llantera-erp/internal/view"
	"github.com/llantera-erp/llantera-erp/jobs"
	"github.com/llantera-erp/llantera-erp/report"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "llantera_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	// Authorization core: snapshot cache plus the configured grant
	// strategy behind one resolver.
	authzCfg := authz.Config{
		TTL:                 cfg.AuthzTTL,
		CacheSize:           cfg.AuthzCacheSize,
		AdminRoles:          cfg.AuthzAdminRoles,
		CriticalPermissions: cfg.AuthzCriticalPerms,
		DetailedLogging:     cfg.AuthzDetailedLogging,
		AuditDenials:        cfg.AuthzAuditDenials,
	}
	snapshots := authz.NewSnapshotCache(cfg.AuthzCacheSize, cfg.AuthzTTL)
	var strategy authz.Strategy
	if cfg.AuthzStrategy == "claims" {
		strategy = authz.NewClaimsStrategy([]byte(cfg.TokenSecret), cfg.AuthzAdminRoles)
	} else {
		strategy = authz.NewStoreStrategy(dbpool, cfg.AuthzAdminRoles)
	}
	resolver := authz.NewResolver(strategy, snapshots, authzCfg, logger, metrics, auditLogger)
	guard := authz.NewGuard(resolver)

	authRepo := auth.NewRepository(dbpool)
	authzMW := authz.Middleware{
		Resolver:    resolver,
		TokenSecret: []byte(cfg.TokenSecret),
		Sessions:    authRepo,
		Logger:      logger,
	}

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo, snapshots, auditLogger, logger)
	if err := rbacService.SeedPermissions(ctx); err != nil {
		logger.Error("seed permissions", slog.Any("error", err))
		os.Exit(1)
	}
	rbacHandler := rbac.NewHandler(logger, rbacService, authzMW)

	authService := auth.NewService(authRepo, rbacService, []byte(cfg.TokenSecret), cfg.TokenTTL)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, snapshots)
	usersHandler := users.NewHandler(logger, usersService, authzMW)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	notificationsRepo := notifications.NewRepository(dbpool)
	notificationsService := notifications.NewService(notificationsRepo, jobClient, logger)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, notificationsService, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, authzMW, guard, templates)

	salesRepo := sales.NewRepository(dbpool, inventoryRepo)
	salesService := sales.NewService(salesRepo, inventoryRepo, idempotencyStore, jobClient, logger)
	salesHandler := sales.NewHandler(logger, salesService, authzMW)

	procurementRepo := procurement.NewRepository(dbpool, inventoryRepo)
	procurementService := procurement.NewService(procurementRepo, notificationsService, logger)
	procurementHandler := procurement.NewHandler(logger, procurementService, authzMW)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportRepo := report.NewRepository(dbpool)
	reportHandler := report.NewHandler(logger, reportClient, salesRepo, reportRepo, authzMW, cfg.ShopName)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Templates:          templates,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Authz:              &authzMW,
		Resolver:           resolver,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		RBACHandler:        rbacHandler,
		InventoryHandler:   inventoryHandler,
		SalesHandler:       salesHandler,
		ProcurementHandler: procurementHandler,
		ReportHandler:      reportHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
