package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/commtamo10-tech/skatebaypublisher/internal/adapter/repo"
	"github.com/commtamo10-tech/skatebaypublisher/internal/ebay"
	"github.com/commtamo10-tech/skatebaypublisher/internal/grouping"
	"github.com/commtamo10-tech/skatebaypublisher/internal/http/handlers"
	"github.com/commtamo10-tech/skatebaypublisher/internal/http/httpapi"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra/geoip"
	"github.com/commtamo10-tech/skatebaypublisher/internal/jobs"
	"github.com/commtamo10-tech/skatebaypublisher/internal/pricing"
	"github.com/commtamo10-tech/skatebaypublisher/internal/providers/classifier"
	"github.com/commtamo10-tech/skatebaypublisher/internal/providers/lister"
	"github.com/commtamo10-tech/skatebaypublisher/internal/publish"
	"github.com/commtamo10-tech/skatebaypublisher/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	groupingRepo := repo.NewGroupingRepository(runner)
	jobRepo := repo.NewJobRepository(runner)
	draftRepo := repo.NewDraftRepository(runner)
	settingsRepo := repo.NewSettingsRepository(runner)

	photos, err := storage.NewPhotoStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init photo store")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip unavailable")
	}

	outbound := &http.Client{Timeout: cfg.OutboundTimeout}

	ebayClient, err := ebay.NewClient(ebay.Options{
		BaseURL:    cfg.EbayAPIBaseURL,
		Token:      ebay.StaticToken(cfg.EbayAccessToken),
		HTTPClient: outbound,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init ebay client")
	}

	var engine classifier.Classifier
	if cfg.ClassifierBaseURL != "" {
		engine, err = classifier.NewClient(classifier.Options{
			BaseURL:    cfg.ClassifierBaseURL,
			APIKey:     cfg.ClassifierAPIKey,
			HTTPClient: outbound,
			Logger:     &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init classifier client")
		}
	}
	var composer lister.Composer
	if cfg.ListerBaseURL != "" {
		composer, err = lister.NewClient(lister.Options{
			BaseURL:    cfg.ListerBaseURL,
			APIKey:     cfg.ListerAPIKey,
			HTTPClient: outbound,
			Logger:     &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init lister client")
		}
	}

	rates := pricing.NewStore(pricing.Options{Logger: &logger})
	groupingSvc := grouping.NewService(groupingRepo, logger)
	jobRunner := jobs.NewRunner(jobRepo, draftRepo, groupingSvc, engine, composer, logger)
	publisher := publish.NewWorkflow(draftRepo, settingsRepo, ebayClient, rates, cfg.PublishParallelism, logger)

	app := &handlers.App{
		Logger:    logger,
		Grouping:  groupingSvc,
		Jobs:      jobRepo,
		Runner:    jobRunner,
		Drafts:    draftRepo,
		Settings:  settingsRepo,
		Publisher: publisher,
		Photos:    photos,
		Rates:     rates,
	}

	router := httpapi.NewRouter(app, resolver)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
