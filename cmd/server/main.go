package main

import (
	"context"
	"os"

	"github.com/BileulDevs/spotR-payement/app"
	"github.com/BileulDevs/spotR-payement/app/bdd"
	"github.com/BileulDevs/spotR-payement/app/config"
	"github.com/BileulDevs/spotR-payement/app/logging"
	"github.com/BileulDevs/spotR-payement/app/mailer"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	metricsLogger, err := logging.Setup(cfg.StorageDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open log files")
	}

	app.InitStripe(cfg.Stripe.SecretKey)

	var deadletter app.DeadLetter
	if cfg.QueueURL != "" {
		deadletter, err = app.NewSQSDeadLetter(context.Background(), cfg.QueueURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize dead-letter queue")
		}
	}

	pay := app.NewPayHandler(
		cfg,
		app.NewStripeProvider(),
		bdd.NewClient(cfg.BDD.BaseURL),
		mailer.NewClient(cfg.Mailer.BaseURL),
		deadletter,
	)
	metrics := app.NewMetricsHandler(cfg.StorageDir)

	router, err := app.NewRouter(cfg, pay, metrics, metricsLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize router")
	}

	log.Info().Str("port", cfg.Port).Msg("Micro Service Payement Started")
	if err := router.Run("0.0.0.0:" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
