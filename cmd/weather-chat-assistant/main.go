package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-chat-assistant/internal/api/http"
	"github.com/i474232898/weather-chat-assistant/internal/chat"
	"github.com/i474232898/weather-chat-assistant/internal/config"
	applog "github.com/i474232898/weather-chat-assistant/internal/logger"
	"github.com/i474232898/weather-chat-assistant/internal/ratelimit"
	"github.com/i474232898/weather-chat-assistant/internal/scheduler"
	"github.com/i474232898/weather-chat-assistant/internal/session"
	"github.com/i474232898/weather-chat-assistant/internal/smalltalk"
	"github.com/i474232898/weather-chat-assistant/internal/store"
	"github.com/i474232898/weather-chat-assistant/internal/weather"
	"github.com/i474232898/weather-chat-assistant/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := applog.New(applog.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, Mode: cfg.LogMode})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if cfg.OpenWeatherAPIKey == "" {
		lg.Warn("OPENWEATHER_API_KEY is not set; weather lookups will fail")
	}
	if cfg.GeoapifyAPIKey == "" {
		lg.Warn("GEOAPIFY_API_KEY is not set; attraction lookups will fail")
	}

	// Record store: chat turns, weather/forecast cache and call counters.
	st, err := store.Open(cfg.StoreDriver, cfg.DBPath)
	if err != nil {
		lg.Fatalw("failed to open store", "driver", cfg.StoreDriver, "path", cfg.DBPath, "error", err)
	}
	defer st.Close()

	// Day boundaries for the cache and the budget follow the configured time zone.
	clock := func() time.Time { return time.Now().In(cfg.Location) }
	budget := ratelimit.NewDailyBudget(st, cfg.DailyCallBudget, clock)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	httpCfg := providers.DefaultHTTPConfig(httpClient, cfg.ProviderMaxRetries)

	openWeather := providers.NewOpenWeatherProvider(httpCfg, cfg.OpenWeatherAPIKey)
	service := weather.NewService(st, budget, weather.Providers{
		Geocoder: selectGeocoder(cfg, httpCfg, openWeather, lg),
		Current:  openWeather,
		Forecast: openWeather,
		Places:   providers.NewGeoapifyProvider(httpCfg, cfg.GeoapifyAPIKey),
	}, lg.Named("weather"), weather.WithClock(clock), weather.WithCallTimeout(cfg.HTTPTimeout))

	oracle, err := smalltalk.New()
	if err != nil {
		lg.Fatalw("failed to load small-talk corpus", "error", err)
	}
	if cfg.CorpusPath != "" {
		if err := oracle.TrainFile(cfg.CorpusPath); err != nil {
			lg.Fatalw("failed to load extra corpus", "path", cfg.CorpusPath, "error", err)
		}
	}
	lg.Infow("small-talk corpus loaded", "pairs", oracle.Size())

	orchestrator := chat.NewOrchestrator(service, oracle, st, providers.StaticMap{APIKey: cfg.GoogleMapsAPIKey}, lg.Named("chat"))

	sessions := session.NewManager(cfg.SessionMax, cfg.SessionTTL, cfg.ChatTurnsPerMinute,
		session.WithEvictHook(func(id string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := st.ClearTurns(ctx, id); err != nil {
				lg.Warnw("failed to clear turns of expired session", "session", id, "error", err)
			}
		}),
	)

	// Nightly maintenance: retention pruning and cache warm-up.
	sched := scheduler.New(scheduler.Config{
		RetentionDays: cfg.CacheRetentionDays,
		WarmCities:    cfg.WarmCities,
		Location:      cfg.Location,
	}, st, service, lg.Named("scheduler"))
	if err := sched.Start(); err != nil {
		lg.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp("weather-chat-assistant")

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Chat:     orchestrator,
		Sessions: sessions,
		Usage:    budget,
		Log:      lg.Named("http"),
	})

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Infow("fiber server stopped", "error", err)
		}
	}()
	lg.Infow("listening", "port", cfg.Port, "geocoder", cfg.Geocoder, "store", cfg.StoreDriver)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Errorw("error during shutdown", "error", err)
	}
}

func selectGeocoder(cfg *config.AppConfig, httpCfg providers.HTTPClientConfig, openWeather *providers.OpenWeatherProvider, lg *zap.SugaredLogger) weather.Geocoder {
	switch cfg.Geocoder {
	case "openmeteo":
		return providers.NewOpenMeteoGeocoder(httpCfg)
	case "google":
		if cfg.GoogleMapsAPIKey == "" {
			lg.Warn("GEOCODER=google without GOOGLE_MAPS_API_KEY; falling back to OpenWeatherMap geocoding")
			return openWeather
		}
		return providers.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)
	default:
		return openWeather
	}
}
