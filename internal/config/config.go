package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// LLMEndpoint configures one generation provider endpoint.
type LLMEndpoint struct {
	URL      string `validate:"omitempty,url"`
	APIKey   string
	Model    string
	JSONMode bool
}

// Configured reports whether all required endpoint fields are present.
func (e LLMEndpoint) Configured() bool {
	return e.URL != "" && e.APIKey != "" && e.Model != ""
}

func (e LLMEndpoint) partiallyConfigured() bool {
	return (e.URL != "" || e.APIKey != "" || e.Model != "") && !e.Configured()
}

// Config is the explicit configuration value handed to each component's
// constructor; there is no process-wide settings singleton.
type Config struct {
	WeatherAPIKey         string `validate:"required"`
	WeatherAPIURL         string `validate:"required,url"`
	WeatherTimemachineURL string `validate:"required,url"`
	WeatherUnits          string `validate:"oneof=standard metric imperial"`

	Primary  LLMEndpoint
	Fallback *LLMEndpoint

	CacheURI string
	CacheTTL time.Duration

	PromptFile          string
	LogDBPath           string
	MaxDescriptionWords int `validate:"gt=0"`

	DefaultLat      float64 `validate:"gte=-90,lte=90"`
	DefaultLon      float64 `validate:"gte=-180,lte=180"`
	DefaultLocation string

	GeocoderAPIKey string

	RenderOutput   string
	RenderInterval time.Duration

	HTTPTimeout time.Duration
	LLMTimeout  time.Duration
	Port        string
	LogLevel    string
}

// Load reads configuration from environment with sensible defaults. Call
// godotenv.Load first if a .env file should participate.
func Load() (*Config, error) {
	cfg := &Config{
		WeatherAPIKey:         os.Getenv("WEATHER_API_KEY"),
		WeatherAPIURL:         getenvDefault("WEATHER_API_URL", "https://api.openweathermap.org/data/3.0/onecall"),
		WeatherTimemachineURL: getenvDefault("WEATHER_TIMEMACHINE_API_URL", "https://api.openweathermap.org/data/3.0/onecall/timemachine"),
		WeatherUnits:          getenvDefault("WEATHER_UNITS", "imperial"),

		Primary: LLMEndpoint{
			URL:      os.Getenv("LLM_API_URL"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    os.Getenv("LLM_MODEL"),
			JSONMode: getenvBool("LLM_SUPPORTS_JSON_MODE", true),
		},

		CacheURI: getenvDefault("CACHE_URI", "api_cache"),

		PromptFile:          getenvDefault("PROMPT_FILE", "prompts/default.txt"),
		LogDBPath:           getenvDefault("LLM_LOG_DB", "llm_log.sqlite3"),
		MaxDescriptionWords: getenvInt("MAX_DESCRIPTION_WORDS", 80),

		DefaultLocation: getenvDefault("DEFAULT_LOCATION", "Washington, DC"),
		GeocoderAPIKey:  os.Getenv("GEOCODER_API_KEY"),
		RenderOutput:    os.Getenv("RENDER_OUTPUT"),
		Port:            getenvDefault("PORT", "8080"),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.CacheTTL, err = getenvDuration("API_CACHE_TIME", 600*time.Second); err != nil {
		return nil, err
	}
	if cfg.RenderInterval, err = getenvDuration("RENDER_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	// Generation calls can run far longer than weather fetches.
	if cfg.LLMTimeout, err = getenvDuration("LLM_TIMEOUT", 200*time.Second); err != nil {
		return nil, err
	}
	if cfg.DefaultLat, err = getenvFloat("DEFAULT_LAT", 38.9541848); err != nil {
		return nil, err
	}
	if cfg.DefaultLon, err = getenvFloat("DEFAULT_LON", -77.0832061); err != nil {
		return nil, err
	}

	fallback := LLMEndpoint{
		URL:      os.Getenv("FALLBACK_LLM_API_URL"),
		APIKey:   os.Getenv("FALLBACK_LLM_API_KEY"),
		Model:    os.Getenv("FALLBACK_LLM_MODEL"),
		JSONMode: getenvBool("FALLBACK_LLM_SUPPORTS_JSON_MODE", true),
	}
	if fallback.partiallyConfigured() {
		return nil, errors.New("if using a fallback LLM, all FALLBACK_LLM_* variables must be set (API_URL, API_KEY, MODEL)")
	}
	if fallback.Configured() {
		cfg.Fallback = &fallback
	}

	if !cfg.Primary.Configured() {
		return nil, errors.New("LLM_API_URL, LLM_API_KEY and LLM_MODEL are required")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

// getenvDuration accepts either a Go duration string or plain seconds.
func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid %s: expected duration or seconds", key)
}
