package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	httpapi "github.com/kidsweather/kidsweather/internal/api/http"
	"github.com/kidsweather/kidsweather/internal/cache"
	"github.com/kidsweather/kidsweather/internal/config"
	"github.com/kidsweather/kidsweather/internal/llm"
	"github.com/kidsweather/kidsweather/internal/logger"
	"github.com/kidsweather/kidsweather/internal/recorder"
	"github.com/kidsweather/kidsweather/internal/report"
	"github.com/kidsweather/kidsweather/internal/scheduler"
	"github.com/kidsweather/kidsweather/internal/weather"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog := logger.New(cfg.LogLevel)

	c, err := cache.New(cfg.CacheURI, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}

	rec, err := recorder.Open(cfg.LogDBPath)
	if err != nil {
		log.Fatalf("failed to open interaction log: %v", err)
	}
	defer rec.Close()

	weatherClient := weather.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		weather.Config{
			APIKey:         cfg.WeatherAPIKey,
			BaseURL:        cfg.WeatherAPIURL,
			TimemachineURL: cfg.WeatherTimemachineURL,
			Units:          cfg.WeatherUnits,
			CacheTTL:       cfg.CacheTTL,
		},
		c, appLog,
	)

	llmCfg := llm.Config{
		Primary: llm.Endpoint{
			Name:     "primary",
			URL:      cfg.Primary.URL,
			APIKey:   cfg.Primary.APIKey,
			Model:    cfg.Primary.Model,
			JSONMode: cfg.Primary.JSONMode,
		},
		MaxWords: cfg.MaxDescriptionWords,
		CacheTTL: cfg.CacheTTL,
	}
	if fb := cfg.Fallback; fb != nil {
		llmCfg.Fallback = &llm.Endpoint{
			Name:     "fallback",
			URL:      fb.URL,
			APIKey:   fb.APIKey,
			Model:    fb.Model,
			JSONMode: fb.JSONMode,
		}
	}
	llmClient := llm.NewClient(&http.Client{Timeout: cfg.LLMTimeout}, llmCfg, c, rec, appLog)

	svc := report.NewService(weatherClient, llmClient, report.Config{
		PromptFile:     cfg.PromptFile,
		Units:          cfg.WeatherUnits,
		GeocoderAPIKey: cfg.GeocoderAPIKey,
	}, appLog)

	// Optional render-to-file job keeping the default location warm.
	if cfg.RenderOutput != "" {
		coord := weather.Coordinate{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon}
		sched := scheduler.New(svc, coord, cfg.RenderInterval, cfg.RenderOutput, appLog)
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start render scheduler: %v", err)
		}
		defer sched.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "kidsweather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          4 * time.Minute, // report builds can wait on generation
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "kidsweather",
		})
	})

	httpapi.RegisterRoutes(app, svc, httpapi.Defaults{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
