package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
)

const (
	defaultBackendURL   = "http://127.0.0.1:5000"
	defaultBinsPath     = "/get_bins"
	defaultPollInterval = 10 * time.Second
	defaultPort         = 8080
	defaultCenterLat    = 1.3521
	defaultCenterLon    = 103.8198
	defaultZoom         = 12
)

// ErrInvalidVariant is returned when FEED_VARIANT names no known schema.
var ErrInvalidVariant = errors.New("invalid FEED_VARIANT")

// Config holds environment-driven settings for the dashboard service.
type Config struct {
	BackendURL        string
	BinsPath          string
	Variant           models.Variant
	PollInterval      time.Duration
	RequestTimeout    time.Duration
	StaleAfter        time.Duration
	Port              int
	MapCenter         models.LatLng
	MapZoom           int
	MapAPIKey         string
	EChartsAssetsHost string
	LogLevel          string
	LogFormat         string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		BackendURL:   defaultBackendURL,
		BinsPath:     defaultBinsPath,
		Variant:      models.VariantTelemetry,
		PollInterval: defaultPollInterval,
		Port:         defaultPort,
		MapCenter:    models.LatLng{Lat: defaultCenterLat, Lng: defaultCenterLon},
		MapZoom:      defaultZoom,
		LogLevel:     "info",
		LogFormat:    "json",
	}

	if v := strings.TrimSpace(os.Getenv("BACKEND_URL")); v != "" {
		u, err := url.Parse(v)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return cfg, fmt.Errorf("invalid BACKEND_URL: %s", v)
		}
		cfg.BackendURL = strings.TrimRight(v, "/")
	}

	if v := strings.TrimSpace(os.Getenv("BINS_PATH")); v != "" {
		cfg.BinsPath = "/" + strings.TrimLeft(v, "/")
	}

	if v := strings.TrimSpace(os.Getenv("FEED_VARIANT")); v != "" {
		switch models.Variant(v) {
		case models.VariantTelemetry, models.VariantLegacy:
			cfg.Variant = models.Variant(v)
		default:
			return cfg, fmt.Errorf("%w: %s", ErrInvalidVariant, v)
		}
	}

	if v := strings.TrimSpace(os.Getenv("POLL_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
		}
		if d <= 0 {
			return cfg, fmt.Errorf("invalid POLL_INTERVAL: %s must be positive", v)
		}
		cfg.PollInterval = d
	}

	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	cfg.StaleAfter = 3 * cfg.PollInterval
	if v := strings.TrimSpace(os.Getenv("STALE_AFTER")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid STALE_AFTER: %w", err)
		}
		cfg.StaleAfter = d
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("DASHBOARD_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid DASHBOARD_PORT: %s", portStr)
		}
	}

	if v := os.Getenv("MAP_CENTER_LAT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid MAP_CENTER_LAT: %w", err)
		}
		cfg.MapCenter.Lat = f
	}
	if v := os.Getenv("MAP_CENTER_LON"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid MAP_CENTER_LON: %w", err)
		}
		cfg.MapCenter.Lng = f
	}
	if !cfg.MapCenter.Valid() {
		return cfg, fmt.Errorf("invalid map center: %v,%v", cfg.MapCenter.Lat, cfg.MapCenter.Lng)
	}

	if v := os.Getenv("MAP_ZOOM"); v != "" {
		if zoom, err := strconv.Atoi(v); err == nil && zoom >= 0 && zoom <= 22 {
			cfg.MapZoom = zoom
		} else {
			return cfg, fmt.Errorf("invalid MAP_ZOOM: %s", v)
		}
	}

	cfg.MapAPIKey = os.Getenv("MAP_API_KEY")
	cfg.EChartsAssetsHost = os.Getenv("ECHARTS_ASSETS_HOST")

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}

	return cfg, nil
}

// BinsURL returns the full endpoint URL polled for snapshots.
func (c Config) BinsURL() string {
	return c.BackendURL + c.BinsPath
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
