package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/commtamo10-tech/skatebaypublisher/internal/adapter/repo"
	"github.com/commtamo10-tech/skatebaypublisher/internal/grouping"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
	"github.com/commtamo10-tech/skatebaypublisher/internal/jobs"
	"github.com/commtamo10-tech/skatebaypublisher/internal/pricing"
	"github.com/commtamo10-tech/skatebaypublisher/internal/providers/classifier"
	"github.com/commtamo10-tech/skatebaypublisher/internal/providers/lister"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	groupingRepo := repo.NewGroupingRepository(runner)
	jobRepo := repo.NewJobRepository(runner)
	draftRepo := repo.NewDraftRepository(runner)

	outbound := &http.Client{Timeout: cfg.OutboundTimeout}

	var engine classifier.Classifier
	if cfg.ClassifierBaseURL == "" {
		logger.Warn().Msg("worker: CLASSIFIER_BASE_URL unset, auto-group jobs will fail")
	} else {
		engine, err = classifier.NewClient(classifier.Options{
			BaseURL:    cfg.ClassifierBaseURL,
			APIKey:     cfg.ClassifierAPIKey,
			HTTPClient: outbound,
			Logger:     &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: classifier client failed")
		}
	}
	var composer lister.Composer
	if cfg.ListerBaseURL == "" {
		logger.Warn().Msg("worker: LISTER_BASE_URL unset, draft generation jobs will fail")
	} else {
		composer, err = lister.NewClient(lister.Options{
			BaseURL:    cfg.ListerBaseURL,
			APIKey:     cfg.ListerAPIKey,
			HTTPClient: outbound,
			Logger:     &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: lister client failed")
		}
	}

	groupingSvc := grouping.NewService(groupingRepo, logger)
	jobRunner := jobs.NewRunner(jobRepo, draftRepo, groupingSvc, engine, composer, logger)
	worker := jobs.NewWorker(jobRepo, jobRunner, cfg.WorkerPollEvery, logger)

	// Exchange rates are refreshed on a schedule so publish requests always
	// price against rates no older than the cache TTL.
	rates := pricing.NewStore(pricing.Options{Logger: &logger})
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 12h", func() {
		if err := rates.Refresh(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("worker: scheduled rate refresh failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Msg("worker: schedule rate refresh failed")
	}
	scheduler.Start()
	defer scheduler.Stop()
	if err := rates.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("worker: initial rate refresh failed")
	}

	logger.Info().Msg("worker started")
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("worker stopped unexpectedly")
	}
	logger.Info().Msg("worker stopped")
}
