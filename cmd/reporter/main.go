package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/report"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)
	log := logger.WithField("service", cfg.ServiceName+"-reporter")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()
	repo := &report.Repo{DB: db}
	if err := repo.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("db schema")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	client, err := api.New(api.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout}, logger)
	if err != nil {
		log.WithError(err).Fatal("api client")
	}

	svc := &inventory.Service{
		Catalog:  client,
		Store:    repo,
		Dedup:    &redisx.Deduper{RDB: rdb, Service: "reporter"},
		Tenants:  cfg.ReportTenants,
		PageSize: 100,
		Lang:     language.Polish,
		Currency: "PLN",
		Log:      logger,
	}

	router := httpx.NewRouter(logger)
	(&httpx.ReportsHandler{Reports: repo, Auditor: svc, Log: logger}).Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReporterGroup, orders.TopicOrderStatusChanged, cfg.ReporterWorkers, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"group":   cfg.ReporterGroup,
			"topic":   orders.TopicOrderStatusChanged,
			"workers": cfg.ReporterWorkers,
		}).Info("consumer started")
		return cons.Start(gctx, svc.HandleStatusChanged)
	})
	g.Go(func() error {
		return svc.Run(gctx, cfg.ReportInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("reporter stopped")
	}
}
