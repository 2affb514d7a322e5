package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pricecompare/api"
	"pricecompare/config"
	"pricecompare/fetcher"
	"pricecompare/scraper"
	"pricecompare/scraper/ebay"
	"pricecompare/scraper/poshmark"
	"pricecompare/services"
	"pricecompare/storage"
	"pricecompare/utils"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		noCache    = flag.Bool("no-cache", false, "ignore cached results and fetch live")
		invalidate = flag.Bool("invalidate", false, "drop the cached result for the query and exit")
		serve      = flag.String("serve", "", "serve the JSON API on this address instead of printing")
		limit      = flag.Int("limit", 25, "rows to print, 0 for all")
	)
	flag.Parse()

	if err := run(*configPath, strings.Join(flag.Args(), " "), !*noCache, *invalidate, *serve, *limit); err != nil {
		utils.Error("%v", err)
		os.Exit(1)
	}
}

func run(configPath, query string, useCache, invalidate bool, serveAddr string, limit int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	utils.SetDebug(cfg.Debug)
	utils.Info("Price comparison starting | mode=%s workers=%d ttl=%v", cfg.FetchMode, cfg.MaxWorkers, cfg.CacheTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, closeFetcher := newFetcher(cfg)
	defer closeFetcher()

	pool := scraper.NewWorkerPool([]scraper.Adapter{
		ebay.NewScraper(cfg.EbayBaseURL, f, scraper.ParsePolicy(cfg.EbayPricePolicy)),
		poshmark.NewScraper(cfg.PoshmarkBaseURL, f, scraper.ParsePolicy(cfg.PoshmarkPricePolicy)),
	}, cfg.MaxWorkers)

	agg := services.NewAggregator(cfg, pool, storage.NewCSVCache(cfg.CacheDir, cfg.CacheTTL))

	if cfg.Archive.Enabled {
		pg, err := storage.NewPostgresWriter(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		agg.SetArchiver(pg)
	}

	if invalidate {
		if query == "" {
			query = cfg.DefaultQuery
		}
		if err := agg.Invalidate(query); err != nil {
			return err
		}
		utils.Success("Dropped cached result for %q", query)
		return nil
	}

	if serveAddr != "" {
		return serveAPI(ctx, serveAddr, agg)
	}

	res, err := agg.Aggregate(ctx, query, useCache)
	if err != nil {
		return err
	}

	utils.Section("Results for " + res.Query)
	services.PrintTable(res.Table, limit)
	services.PrintReport(services.GenerateReport(res))
	return nil
}

func newFetcher(cfg *config.Config) (fetcher.Fetcher, func()) {
	var (
		base    fetcher.Fetcher
		cleanup = func() {}
	)
	switch cfg.FetchMode {
	case "browser":
		b := fetcher.NewBrowserFetcher(cfg.Headless, cfg.RequestTimeout)
		base, cleanup = b, b.Close
	default:
		base = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Timeout:  cfg.RequestTimeout,
			MinDelay: cfg.MinDelay,
			MaxDelay: cfg.MaxDelay,
		})
	}

	if cfg.MaxRetries > 1 {
		base = &fetcher.Retrying{Next: base, MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff}
	}
	return base, cleanup
}

func serveAPI(ctx context.Context, addr string, agg *services.Aggregator) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(agg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Success("Serving on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		utils.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
