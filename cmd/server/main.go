package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/letra-wholesale/order-sheet/app/admin"
	"github.com/letra-wholesale/order-sheet/app/catalog"
	"github.com/letra-wholesale/order-sheet/app/orders"
	"github.com/letra-wholesale/order-sheet/app/router"
	"github.com/letra-wholesale/order-sheet/app/selection"
	"github.com/letra-wholesale/order-sheet/app/sizes"
	"github.com/letra-wholesale/order-sheet/config"
	"github.com/letra-wholesale/order-sheet/logging"
	"github.com/letra-wholesale/order-sheet/metrics"
	"github.com/letra-wholesale/order-sheet/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("catalog store opened", zap.String("driver", cfg.Store.Driver))

	m := metrics.New(cfg.Metrics.Prefix)
	svc := catalog.NewService(store, logger, m)

	if cfg.Store.Seed {
		seeded, err := svc.Seed(ctx, models.DefaultCatalog())
		if err != nil {
			logger.Error("failed to seed catalog", zap.Error(err))
		} else if seeded {
			logger.Info("seeded empty catalog with defaults")
		}
	}

	registry := selection.NewRegistry()
	gate := admin.NewGate(cfg.Admin, logger, m)
	sorter := orders.NewSizeSorter(cfg.Export.Locale)
	export := orders.Options{
		Title:    cfg.Export.Title,
		Sorter:   sorter,
		Location: cfg.Export.Location,
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: router.New(router.Deps{
			Catalog:   catalog.NewCatalogHandler(svc, registry, logger),
			Selection: selection.NewSelectionHandler(registry, svc, gate, export, logger, m),
			Sizes:     sizes.NewSizeHandler(svc, sorter),
			Gate:      gate,
			Metrics:   m,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	return nil
}

func openStore(cfg config.StoreConfig) (models.CatalogStore, error) {
	switch cfg.Driver {
	case "postgres":
		return models.OpenPostgresStore(cfg.DSN)
	case "memory":
		return models.NewMemoryStore(), nil
	default:
		return models.OpenBoltStore(cfg.BoltPath)
	}
}
