package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Port string

	OpenWeatherAPIKey string
	GeoapifyAPIKey    string
	GoogleMapsAPIKey  string

	// Geocoder selects the city lookup backend: openweather, openmeteo or google.
	Geocoder string

	// StoreDriver is sqlite or memory.
	StoreDriver string
	DBPath      string

	DailyCallBudget    int
	Location           *time.Location
	HTTPTimeout        time.Duration
	ProviderMaxRetries int

	SessionTTL         time.Duration
	SessionMax         int
	ChatTurnsPerMinute int

	// CacheRetentionDays is how many days of cache, counters and turns the
	// nightly prune keeps (0 = keep everything).
	CacheRetentionDays int
	// WarmCities are fetched once a day so the first request is a cache hit.
	WarmCities []string

	// CorpusPath is an optional extra small-talk corpus.
	CorpusPath string

	LogLevel    string
	LogEncoding string
	LogMode     string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GEOCODER", "openweather")
	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "weatherbot.sqlite3")
	v.SetDefault("DAILY_CALL_BUDGET", 1000)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("HTTP_TIMEOUT", "8s")
	v.SetDefault("PROVIDER_MAX_RETRIES", 0)
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("SESSION_MAX", 1000)
	v.SetDefault("CHAT_TURNS_PER_MINUTE", 20)
	v.SetDefault("CACHE_RETENTION_DAYS", 30)
	v.SetDefault("WARM_CITIES", "")
	v.SetDefault("CORPUS_PATH", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")
	v.SetDefault("LOG_MODE", "production")
}

// Load reads configuration from the environment (and an optional .env file) with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		Port:               v.GetString("PORT"),
		Geocoder:           strings.ToLower(v.GetString("GEOCODER")),
		StoreDriver:        strings.ToLower(v.GetString("STORE_DRIVER")),
		DBPath:             v.GetString("DB_PATH"),
		DailyCallBudget:    v.GetInt("DAILY_CALL_BUDGET"),
		ProviderMaxRetries: v.GetInt("PROVIDER_MAX_RETRIES"),
		SessionMax:         v.GetInt("SESSION_MAX"),
		ChatTurnsPerMinute: v.GetInt("CHAT_TURNS_PER_MINUTE"),
		CacheRetentionDays: v.GetInt("CACHE_RETENTION_DAYS"),
		WarmCities:         splitList(v.GetString("WARM_CITIES")),
		CorpusPath:         v.GetString("CORPUS_PATH"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogEncoding:        v.GetString("LOG_ENCODING"),
		LogMode:            v.GetString("LOG_MODE"),
	}

	var err error
	if cfg.OpenWeatherAPIKey, err = secret(v, "OPENWEATHER_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.GeoapifyAPIKey, err = secret(v, "GEOAPIFY_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.GoogleMapsAPIKey, err = secret(v, "GOOGLE_MAPS_API_KEY"); err != nil {
		return nil, err
	}

	if cfg.HTTPTimeout, err = duration(v, "HTTP_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = duration(v, "SESSION_TTL"); err != nil {
		return nil, err
	}

	tz := v.GetString("TIMEZONE")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	switch cfg.Geocoder {
	case "openweather", "openmeteo", "google":
	default:
		return nil, fmt.Errorf("invalid GEOCODER %q: want openweather, openmeteo or google", cfg.Geocoder)
	}
	if cfg.DailyCallBudget <= 0 {
		return nil, fmt.Errorf("invalid DAILY_CALL_BUDGET %d: must be positive", cfg.DailyCallBudget)
	}
	if cfg.ProviderMaxRetries < 0 {
		return nil, fmt.Errorf("invalid PROVIDER_MAX_RETRIES %d", cfg.ProviderMaxRetries)
	}

	return cfg, nil
}

// secret returns KEY, or the trimmed contents of the file named by KEY_FILE.
func secret(v *viper.Viper, key string) (string, error) {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s, nil
	}
	path := v.GetString(key + "_FILE")
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s_FILE: %w", key, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
