package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursepay/internal/client"
	"coursepay/internal/config"
	"coursepay/internal/eventbus"
	"coursepay/internal/provider"
	"coursepay/internal/repository"
	"coursepay/internal/server"
	"coursepay/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse config")
	}

	setupLogger(cfg)

	db := client.InitDbClient(cfg.DatabaseURL)
	cardClient := client.NewCardClient(&cfg.Card)
	walletClient := client.NewWalletClient(&cfg.Wallet)
	catalogClient := client.NewCatalogClient(&cfg.Catalog)

	walletProvider, err := provider.NewWalletProvider(walletClient, cfg.Wallet.Currency, cfg.Wallet.Rate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build wallet provider")
	}
	registry := provider.NewRegistry(
		provider.NewCardProvider(cardClient),
		walletProvider,
	)

	paymentRepo := repository.NewPaymentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	bus := eventbus.New()

	fulfillmentService := service.NewFulfillmentService(catalogClient, enrollmentRepo)
	service.Subscribe(bus, fulfillmentService)

	paymentService := service.NewPaymentService(
		catalogClient,
		registry,
		bus,
		paymentRepo,
		enrollmentRepo,
		webhookEventRepo,
		cfg.FeePercent,
		cfg.Card.WebhookSecret,
	)
	progressService := service.NewProgressService(catalogClient, enrollmentRepo)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(cfg.JWTSecret, paymentService, fulfillmentService, progressService)

	log.Info().Str("addr", serverAddr).Msg("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info().Msg("signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("HTTP server shutdown error")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Log.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}
