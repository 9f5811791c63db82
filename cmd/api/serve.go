package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/feedback-service/internal/api/http"
	"github.com/spec-kit/feedback-service/internal/api/http/handlers"
	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/authz"
	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/mailer"
	"github.com/spec-kit/feedback-service/internal/observability"
	"github.com/spec-kit/feedback-service/internal/otp"
	"github.com/spec-kit/feedback-service/internal/persistence"
	"github.com/spec-kit/feedback-service/internal/repository"
	"github.com/spec-kit/feedback-service/internal/service"
	"github.com/spec-kit/feedback-service/internal/worker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.JWTSecret == "dev-secret" && cfg.App.Env != "development" {
		logger.Warn("AUTH_JWT_SECRET is the development default", zap.String("env", cfg.App.Env))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var probes []handlers.Probe
	var employees repository.EmployeeRepository
	if pg.Enabled() {
		employees = repository.NewEmployeeRepository(pg.PoolHandle())
		probes = append(probes, handlers.Probe{Name: "postgres", Ping: pg.Ping})
	} else {
		employees = repository.NewMemoryEmployeeRepository()
	}

	otpOpts := otp.Options{
		Length:      cfg.OTP.Length,
		TTL:         cfg.OTP.TTL,
		MaxAttempts: cfg.OTP.MaxAttempts,
	}
	var (
		otps        otp.Store
		sweeperDone <-chan struct{}
	)
	switch cfg.OTP.Store {
	case config.OTPStoreRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		if !redis.Enabled() {
			logger.Fatal("OTP_STORE=redis requires REDIS_ADDR")
		}
		otps = otp.NewRedisStore(redis.Client, otpOpts)
		probes = append(probes, handlers.Probe{Name: "redis", Ping: redis.Ping})
		// entries expire through Redis key TTLs
		noSweep := make(chan struct{})
		close(noSweep)
		sweeperDone = noSweep
	default:
		memory := otp.NewMemoryStore(otpOpts)
		otps = memory
		sweeperDone = worker.StartSweeper(ctx, "otp", memory, cfg.OTP.SweepInterval, logger)
	}

	sender, err := newSender(cfg.Mail, logger)
	if err != nil {
		logger.Fatal("failed to init mailer", zap.Error(err))
	}

	policy, err := authz.LoadPolicy(cfg.Authz.RulesFile, cfg.Authz.Default)
	if err != nil {
		logger.Fatal("failed to load authorization rules", zap.Error(err))
	}
	for _, shadow := range policy.Shadowed() {
		logger.Warn("unreachable authorization rule", zap.String("rule", shadow.String()))
	}

	tokens := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, auth.WithIssuer(cfg.App.Name))
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	auditService := service.NewAuditService(dispatcher, logger, 0)
	worker.StartAuditWorker(auditService)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Employees:  employees,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	recoveryService := service.NewRecoveryService(service.RecoveryDependencies{
		Directory:  employees,
		OTPs:       otps,
		Sender:     sender,
		Dispatcher: dispatcher,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout,
		CORSOrigins: cfg.App.CORSOrigins,
	})
	recoveryLimiter := httptransport.NewRateLimiter(cfg.RateLimit.RecoveryPerSecond, cfg.RateLimit.RecoveryBurst)
	limiterDone := worker.StartSweeper(ctx, "recovery-rate-limit", recoveryLimiter, cfg.RateLimit.SweepInterval, logger)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, probes...),
		Employees:       handlers.NewEmployeesHandler(authService),
		Recovery:        handlers.NewRecoveryHandler(recoveryService),
		Admin:           handlers.NewAdminHandler(metrics, auditService),
		Gate:            auth.NewGate(tokens, policy),
		Policy:          policy,
		RecoveryLimiter: recoveryLimiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	cancel()
	<-sweeperDone
	<-limiterDone
	return nil
}

func newSender(cfg config.MailConfig, logger *zap.Logger) (mailer.Sender, error) {
	switch cfg.Driver {
	case config.MailDriverSES:
		return mailer.NewSESSender(mailer.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			From:            cfg.From,
		})
	default:
		return mailer.NewLogSender(logger, cfg.From), nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
