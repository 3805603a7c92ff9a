// Command kidsweather-replay re-runs a logged generation interaction,
// optionally with a different prompt or model, and prints both the original
// and the fresh output.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/kidsweather/kidsweather/internal/cache"
	"github.com/kidsweather/kidsweather/internal/config"
	"github.com/kidsweather/kidsweather/internal/llm"
	"github.com/kidsweather/kidsweather/internal/logger"
	"github.com/kidsweather/kidsweather/internal/recorder"
	"github.com/kidsweather/kidsweather/internal/replay"
)

func main() {
	logID := flag.Int64("log-id", 0, "id from the llm_interactions table to replay")
	prompt := flag.String("prompt", "", "new system prompt text or path to a prompt file")
	newModel := flag.String("new-model", "", "new model name to use for the replay")
	showContext := flag.Bool("show-context", false, "print the original weather context")
	flag.Parse()

	if *logID == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	appLog := logger.New(cfg.LogLevel)

	store, err := recorder.Open(cfg.LogDBPath)
	if err != nil {
		log.Fatalf("failed to open interaction log: %v", err)
	}
	defer store.Close()

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

	// Replay always observes a fresh result, so no cache is wired in.
	client := llm.NewClient(&http.Client{Timeout: cfg.LLMTimeout}, llmCfg, cache.Nop{}, store, appLog)
	replayer := replay.New(store, client, appLog)

	outcome, err := replayer.Replay(context.Background(), *logID, replay.Options{
		Prompt: *prompt,
		Model:  *newModel,
	})
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}

	rec := outcome.Record
	fmt.Printf("--- Replaying Log ID: %d (Location: %s) ---\n", rec.ID, rec.Location)
	fmt.Printf("Original Timestamp: %s\n", rec.CreatedAt)
	fmt.Printf("Original Provider/Model: %s/%s\n", rec.Provider, rec.Model)

	if *showContext {
		fmt.Println("\n--- Original Weather Context ---")
		fmt.Println(rec.Context)
		fmt.Println("--------------------------------")
	}

	fmt.Printf("\nModel Used: %s\n", outcome.Model)

	out, err := json.MarshalIndent(outcome.Result, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
	fmt.Printf("\nNew Output (JSON):\n%s\n", out)
}
