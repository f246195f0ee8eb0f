package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/config"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/database"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/handler"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/logging"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/mailer"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/metrics"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/middleware"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/queue"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/repository"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/response"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/router"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New("homehuddle-api", cfg.Env, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	debug := !cfg.IsProduction()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	metrics.Init()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	var revocations service.Revocations
	if rdb != nil {
		defer rdb.Close()
		revocations = repository.NewRevocationRepo(rdb, "")
	} else {
		logger.Warn("redis unavailable: revocation uses client cookies only, rate limiting is per instance")
	}

	notifier, closeNotifier, err := buildNotifier(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}
	defer closeNotifier()

	removal, err := service.ParseRemovalPolicy(cfg.MemberRemoval)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	accounts := repository.NewAccountRepo(db)
	families := repository.NewFamilyRepo(db)
	tx := repository.NewTxManager(db)

	otp := service.NewOTPEngine(repository.NewVerificationRepo(db), cfg.OTPHashCost, logger)
	tokens := service.NewTokenEngine(service.TokenConfig{
		AccessSecret:   cfg.JWTSecret,
		AccessTTL:      cfg.JWTExpire.Duration(),
		AccessLifetime: cfg.JWTExpire.String(),
		RefreshSecret:  cfg.JWTRefreshSecret,
		RefreshTTL:     cfg.JWTRefreshExpire.Duration(),
	}, accounts, revocations, logger)
	gate := service.NewGate(tokens, accounts)
	sessions := service.NewSessionService(accounts, families, otp, tokens, notifier, tx, logger)
	membership := service.NewMembership(service.MembershipConfig{
		FrontendURL: cfg.FrontendURL,
		Removal:     removal,
	}, accounts, families, otp, tokens, notifier, tx, logger)

	go otp.RunJanitor(ctx, cfg.OTPPurgeInterval)

	cookies := middleware.NewCookies(cfg.IsProduction())
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.HTTPErrorHandler(debug)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
	}))

	guards := router.Guards{
		Authn: middleware.Authenticate(gate, cookies, debug),
		Limit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		Debug: debug,
	}
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(sessions, cookies, debug), guards)
	router.RegisterFamily(e, handler.NewFamilyHandler(membership, cookies, debug), guards)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.Env, "notifier", cfg.Notifier)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}

// buildNotifier picks the delivery path for OTP and invitation mail.  The
// returned func releases whatever the notifier holds open.
func buildNotifier(ctx context.Context, cfg config.Config, logger *slog.Logger) (service.Notifier, func(), error) {
	switch cfg.Notifier {
	case "queue":
		p := queue.NewPublisher(cfg.RabbitMQURL, cfg.NotifyQueue, logger)
		return p, func() { _ = p.Close() }, nil
	case "ses":
		s, err := mailer.NewSES(ctx, cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return mailer.NewLog(logger), func() {}, nil
	}
}
