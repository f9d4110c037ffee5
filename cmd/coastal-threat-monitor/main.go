package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/i474232898/coastal-threat-monitor/internal/alerts"
	httpapi "github.com/i474232898/coastal-threat-monitor/internal/api/http"
	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
	"github.com/i474232898/coastal-threat-monitor/internal/coastal/providers"
	"github.com/i474232898/coastal-threat-monitor/internal/config"
	"github.com/i474232898/coastal-threat-monitor/internal/geocoding"
	"github.com/i474232898/coastal-threat-monitor/internal/observability"
	"github.com/i474232898/coastal-threat-monitor/internal/scheduler"
	"github.com/i474232898/coastal-threat-monitor/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	metrics := observability.NewMetrics()

	// Shared HTTP client; per-call timeouts are applied by the clients.
	httpCfg := providers.DefaultHTTPClientConfig(&http.Client{})
	httpCfg.Timeout = cfg.OutboundTimeout
	httpCfg.Backoff.MaxRetries = cfg.OutboundMaxRetries

	proxy := providers.NewProxyClient(httpCfg, cfg.WeatherProxyURL)
	backend := providers.NewBackendClient(httpCfg, cfg.BackendURL)
	openWeather := providers.NewOpenWeatherProvider(httpCfg, cfg.OpenWeatherAPIKey)
	if !openWeather.Configured() {
		log.Warn("OPENWEATHER_API_KEY not set; weather proxy route will report not configured")
	}

	var publisher coastal.ThreatPublisher
	if cfg.AlertsEnabled() {
		p := alerts.NewPublisher(cfg.KafkaBrokers, cfg.ThreatAlertsTopic, log)
		defer func() {
			if err := p.Close(); err != nil {
				log.Warn("closing alert publisher", "error", err)
			}
		}()
		publisher = p
	}

	var geo coastal.Geocoder
	if g, err := geocoding.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey); err == nil {
		geo = geocoding.NewCachedGeocoder(g, 256)
	} else {
		log.Info("place name threat lookups disabled", "reason", err)
	}

	service := coastal.NewService(coastal.Config{
		Store:        store.NewMemoryStore(cfg.HistoryLimit),
		Provider:     proxy,
		Backend:      backend,
		Resolver:     coastal.NewResolver(cfg.Stations...),
		Publisher:    publisher,
		Policy:       cfg.FallbackPolicy,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       log,
		Metrics:      metrics,
	})

	app := httpapi.NewApp(logger.New())
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:  service,
		Weather:  openWeather,
		Geocoder: geo,
	})

	listening := httpapi.OnListening(app)
	go func() {
		log.Info("http server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The first tick may call the weather proxy route served above, so it waits for the listener.
	select {
	case <-listening:
	case <-ctx.Done():
	}
	if ctx.Err() == nil {
		sched := scheduler.New(cfg.MonitoredStations, cfg.RefreshInterval, service, log)
		if err := sched.Start(); err != nil {
			log.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}
