package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kidsweather/kidsweather/internal/llm"
	"github.com/kidsweather/kidsweather/internal/logger"
	"github.com/kidsweather/kidsweather/internal/recorder"
)

type stubLoader struct {
	rec *recorder.Interaction
	err error
}

func (s *stubLoader) Load(id int64) (*recorder.Interaction, error) {
	return s.rec, s.err
}

type stubGenerator struct {
	result *llm.Result
	err    error
	lastIn llm.Input
}

func (s *stubGenerator) GenerateFresh(ctx context.Context, in llm.Input) (*llm.Result, error) {
	s.lastIn = in
	return s.result, s.err
}

func sampleRecord() *recorder.Interaction {
	return &recorder.Interaction{
		ID:           7,
		Source:       "web",
		Location:     "Washington, DC",
		Days:         []string{"Tuesday", "Wednesday", "Thursday", "Friday"},
		Context:      "TODAY'S FORECAST: sunny",
		SystemPrompt: "original prompt",
		Provider:     "primary",
		Model:        "model-a",
		Success:      true,
	}
}

func sampleResult() *llm.Result {
	return &llm.Result{
		Description: "fresh output",
		DailyForecasts: llm.OrderedForecasts{
			{Day: "Tuesday", Text: "Sunny"},
			{Day: "Wednesday", Text: "Rain"},
			{Day: "Thursday", Text: "Cloudy"},
			{Day: "Friday", Text: "Windy"},
		},
	}
}

func TestReplayWithoutOverrides(t *testing.T) {
	gen := &stubGenerator{result: sampleResult()}
	r := New(&stubLoader{rec: sampleRecord()}, gen, logger.New("error"))

	out, err := r.Replay(context.Background(), 7, Options{})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	if gen.lastIn.SystemPrompt != "original prompt" {
		t.Errorf("prompt = %q, want the recorded prompt", gen.lastIn.SystemPrompt)
	}
	if gen.lastIn.Model != "model-a" {
		t.Errorf("model = %q, want the recorded model", gen.lastIn.Model)
	}
	if gen.lastIn.Source != "replay" {
		t.Errorf("source = %q, want replay", gen.lastIn.Source)
	}
	if gen.lastIn.Context != "TODAY'S FORECAST: sunny" {
		t.Errorf("context = %q, want the recorded context verbatim", gen.lastIn.Context)
	}
	if len(gen.lastIn.Days) != 4 {
		t.Errorf("days = %v", gen.lastIn.Days)
	}

	if out.Record.ID != 7 || out.Result.Description != "fresh output" {
		t.Errorf("outcome = %+v", out)
	}
	if out.Prompt != "original prompt" || out.Model != "model-a" {
		t.Errorf("outcome prompt/model = %q / %q", out.Prompt, out.Model)
	}
}

func TestReplayPromptOverrideLiteral(t *testing.T) {
	gen := &stubGenerator{result: sampleResult()}
	r := New(&stubLoader{rec: sampleRecord()}, gen, logger.New("error"))

	out, err := r.Replay(context.Background(), 7, Options{Prompt: "be more cheerful"})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if gen.lastIn.SystemPrompt != "be more cheerful" {
		t.Errorf("prompt = %q", gen.lastIn.SystemPrompt)
	}
	if out.Prompt != "be more cheerful" {
		t.Errorf("outcome prompt = %q", out.Prompt)
	}
}

func TestReplayPromptOverrideFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("prompt from file"), 0o644); err != nil {
		t.Fatal(err)
	}

	gen := &stubGenerator{result: sampleResult()}
	r := New(&stubLoader{rec: sampleRecord()}, gen, logger.New("error"))

	if _, err := r.Replay(context.Background(), 7, Options{Prompt: path}); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if gen.lastIn.SystemPrompt != "prompt from file" {
		t.Errorf("prompt = %q", gen.lastIn.SystemPrompt)
	}
}

func TestReplayModelOverride(t *testing.T) {
	gen := &stubGenerator{result: sampleResult()}
	r := New(&stubLoader{rec: sampleRecord()}, gen, logger.New("error"))

	out, err := r.Replay(context.Background(), 7, Options{Model: "model-b"})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if gen.lastIn.Model != "model-b" || out.Model != "model-b" {
		t.Errorf("model = %q / %q, want model-b", gen.lastIn.Model, out.Model)
	}
}

func TestReplayUnknownID(t *testing.T) {
	loadErr := recorder.ErrNotFound
	r := New(&stubLoader{err: loadErr}, &stubGenerator{}, logger.New("error"))

	if _, err := r.Replay(context.Background(), 999, Options{}); !errors.Is(err, recorder.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplayGenerationFailure(t *testing.T) {
	genErr := &llm.GenerationError{Provider: "primary", Err: errors.New("unavailable")}
	r := New(&stubLoader{rec: sampleRecord()}, &stubGenerator{err: genErr}, logger.New("error"))

	_, err := r.Replay(context.Background(), 7, Options{})
	var ge *llm.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}
