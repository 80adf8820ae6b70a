package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"pg-backend/config"
	"pg-backend/controllers"
	"pg-backend/routes"
	"pg-backend/services"
	"pg-backend/utils"
)

func main() {
	cfg := config.Load()
	logger := config.InitLogger(cfg.AppName)
	utils.DefaultRegion = cfg.PhoneRegion

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := config.ConnectDatabase(cfg); err != nil {
		logger.Fatalf("Database connect failed: %v", err)
	}
	db := config.DB
	logger.Info("Database connection established and migrations applied")

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	lockClient := config.ConnectRedis(rootCtx, cfg.RedisAddr)
	defer config.CloseRedis()

	stack := services.NewStack(db, cfg, lockClient, logger)

	// Outbox worker
	c := cron.New()
	if _, err := c.AddFunc(cfg.OutboxCron, func() {
		ctx, cancel := context.WithTimeout(rootCtx, 5*time.Minute)
		defer cancel()
		if _, err := stack.Outbox.ProcessDue(ctx); err != nil {
			config.LogError(logger, "main", "outboxCron", "process due tasks failed", nil, err)
		}
	}); err != nil {
		logger.Fatalf("Invalid OUTBOX_CRON %q: %v", cfg.OutboxCron, err)
	}
	c.Start()

	router := routes.SetupRouter(routes.Controllers{
		Onboarding:   controllers.NewOnboardingController(stack.Onboarding),
		Properties:   controllers.NewPropertyController(stack.Properties, stack.Tenants),
		Tenants:      controllers.NewTenantController(stack.Tenants, stack.Onboarding),
		Transactions: controllers.NewTransactionController(stack.Transactions),
		Outbox:       controllers.NewOutboxController(stack.Outbox),
	}, cfg.CorsOrigins, logger)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Warn("Shutdown signal received, shutting down server...")

	cronCtx := c.Stop()
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	logger.Info("Server stopped gracefully")
}
