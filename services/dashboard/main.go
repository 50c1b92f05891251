package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/binfeed"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/charts"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/config"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/dashboard"
	httpserver "github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/http"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/httputil"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/logging"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/mapview"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/popup"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/timeutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("dashboard failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A zero timeout leaves the transport default in place.
	client := httputil.NewStandardClient(&http.Client{Timeout: cfg.RequestTimeout})
	feed, err := binfeed.NewClient(client, cfg.BinsURL(), cfg.Variant)
	if err != nil {
		return err
	}

	render := charts.RenderOptions{AssetsHost: cfg.EChartsAssetsHost}
	donutOpts, trendOpts := render, render
	donutOpts.Title = "Bin Status"
	trendOpts.Title = "Full Bins per Hour"

	canvas := mapview.NewCanvas(cfg.MapCenter, cfg.MapZoom)
	donut := charts.NewDonut("Bins", donutOpts)
	trend := charts.NewTrendLine("Full bins", trendOpts)

	clock := timeutil.RealClock{}
	controller := dashboard.NewController(
		mapview.NewReconciler(canvas, popup.Build, logger.Named("markers")),
		charts.NewReconciler(donut, trend, charts.CategoriesFor(cfg.Variant), logger.Named("charts")),
		clock, cfg.StaleAfter, logger.Named("controller"))
	poller := dashboard.NewPoller(feed, controller, clock, cfg.PollInterval, logger.Named("poller"))

	srv := httpserver.New(cfg, httpserver.Session{
		Controller: controller,
		Canvas:     canvas,
		Donut:      donut,
		Trend:      trend,
	}, logger.Named("http"))

	logger.Info("starting dashboard",
		zap.String("source", feed.URL()),
		zap.String("variant", string(cfg.Variant)),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("addr", cfg.ListenAddr()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := poller.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		poller.Stop()
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})
	return g.Wait()
}
