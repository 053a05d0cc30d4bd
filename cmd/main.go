package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/cardinalconseils/chefsocial-auth/config"
	"github.com/cardinalconseils/chefsocial-auth/db"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/handler"
	authredis "github.com/cardinalconseils/chefsocial-auth/internal/auth/redis"
	repo "github.com/cardinalconseils/chefsocial-auth/internal/auth/repository/postgres"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/service"
	"github.com/cardinalconseils/chefsocial-auth/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog := logger.New(cfg.LogLevel)

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		appLog.Fatal("failed to initialize database", "error", err)
	}
	defer dbPool.Close()

	userRepo := repo.NewUserRepository(dbPool)
	tokenRepo := repo.NewTokenRepository(dbPool)
	sessionRepo := repo.NewSessionRepository(dbPool)
	securityRepo := repo.NewSecurityRepository(dbPool)
	auditRepo := repo.NewAuditRepository(dbPool)

	blacklistCache := authredis.NewBlacklistCache(authredis.NewClient(cfg.RedisAddr, cfg.RedisPassword))

	auditor := service.NewAuditor(auditRepo, appLog)
	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessExpiryMin, cfg.RefreshExpiryMin)
	securityService := service.NewSecurityService(securityRepo, auditor, cfg)
	userService := service.NewUserService(userRepo, tokenRepo, sessionRepo, tokenService, securityService, auditor, cfg, appLog)
	sessionService := service.NewSessionService(userRepo, tokenRepo, sessionRepo, tokenService, blacklistCache, auditor, cfg, appLog)
	cleanupService := service.NewCleanupService(tokenRepo, sessionRepo, securityRepo, cfg.CleanupInterval(), appLog)

	go cleanupService.Run(ctx)

	authHandler := handler.NewAuthHandler(userService, sessionService)
	adminHandler := handler.NewAdminHandler(sessionService, securityService)
	middleware := handler.NewMiddleware(sessionService, securityService, auditor)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler, adminHandler, middleware)

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			appLog.Error("server shutdown failed", "error", err)
		}
	}()

	appLog.Info("auth service listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLog.Fatal("server stopped", "error", err)
	}
}
