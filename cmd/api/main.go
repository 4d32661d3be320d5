package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sentrolokal/barangay/internal/auth"
	"github.com/sentrolokal/barangay/internal/barangay"
	"github.com/sentrolokal/barangay/internal/config"
	"github.com/sentrolokal/barangay/internal/db"
	internalhttp "github.com/sentrolokal/barangay/internal/http"
	"github.com/sentrolokal/barangay/internal/ledger"
	"github.com/sentrolokal/barangay/internal/mailer"
	"github.com/sentrolokal/barangay/internal/repo"
	"github.com/sentrolokal/barangay/internal/request"
	"github.com/sentrolokal/barangay/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api stopped with error")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	if err := db.Migrate(ctx, cfg.DBDSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	var mail mailer.Mailer
	if cfg.Mail.APIKey != "" {
		mail, err = mailer.NewAPIMailer(cfg.Mail.APIBaseURL, cfg.Mail.APIKey, cfg.Mail.From)
		if err != nil {
			return fmt.Errorf("mailer: %w", err)
		}
	} else {
		log.Warn().Msg("MAIL_API_KEY not set, emails will only be logged")
		mail = mailer.LogMailer{}
	}

	repository := repo.New(pool)
	verifications := ledger.New(redisClient)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)

	barangayService := barangay.NewService(barangay.NewRepository(pool))
	identityService := service.NewIdentityService(repository, verifications, barangayService, mail, jwtManager, cfg.AppBaseURL)
	usersService := service.NewUsersService(repository, barangayService, mail)
	requestService := request.NewService(request.NewRepository(pool))

	handler := internalhttp.NewRouter(internalhttp.Dependencies{
		Config:    cfg,
		Pool:      pool,
		Redis:     redisClient,
		Identity:  identityService,
		Users:     usersService,
		Requests:  requestService,
		Barangays: barangayService,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API listening on :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
