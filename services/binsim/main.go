package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/02loveslollipop/smartbin-dashboard/services/binsim/internal/fleet"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load() // ignore missing file

	addr := flag.String("addr", envOr("BINSIM_ADDR", ":5000"), "Listen address")
	variant := flag.String("variant", envOr("FEED_VARIANT", "telemetry"), "Default payload variant (telemetry|legacy)")
	devices := flag.Int("devices", 2, "Number of simulated bins")
	interval := flag.Duration("interval", time.Second, "Time between simulated readings")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if *variant != "telemetry" && *variant != "legacy" {
		logger.Fatal("invalid variant", zap.String("variant", *variant))
	}
	if *interval <= 0 {
		logger.Fatal("interval must be positive", zap.Duration("interval", *interval))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sim := fleet.New(fleet.DefaultDevices(*devices), *seed, nil)
	go generate(ctx, sim, *interval, logger)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/get_bins", func(c *gin.Context) {
		switch c.DefaultQuery("variant", *variant) {
		case "legacy":
			c.JSON(http.StatusOK, sim.Legacy())
		case "telemetry":
			c.JSON(http.StatusOK, sim.Telemetry())
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown variant"})
		}
	})

	srv := &http.Server{Addr: *addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("bin simulator started",
		zap.String("addr", *addr),
		zap.String("variant", *variant),
		zap.Int("devices", *devices),
		zap.Duration("interval", *interval))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("bin simulator stopped")
}

func generate(ctx context.Context, sim *fleet.Fleet, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r := sim.Step()
			logger.Debug("reading",
				zap.String("device", r.Device),
				zap.Float64("fill_level", r.FillLevel),
				zap.Float64("temperature", r.Temperature),
				zap.String("anomaly", r.Anomaly))
		}
	}
}
