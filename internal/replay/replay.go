// Package replay re-issues previously recorded generation requests,
// optionally with an overridden prompt or model, for debugging and prompt
// tuning. It depends only on the interaction log's read contract and the
// generation client's cache-bypassing network path.
package replay

import (
	"context"
	"os"

	"github.com/kidsweather/kidsweather/internal/llm"
	"github.com/kidsweather/kidsweather/internal/logger"
	"github.com/kidsweather/kidsweather/internal/recorder"
)

// Loader is the read side of the interaction log.
type Loader interface {
	Load(id int64) (*recorder.Interaction, error)
}

// Generator is the fresh (cache-bypassing) generation path.
type Generator interface {
	GenerateFresh(ctx context.Context, in llm.Input) (*llm.Result, error)
}

// Options overrides parts of the original request. Zero values keep the
// recorded prompt and model.
type Options struct {
	// Prompt is a path to a prompt file, or literal prompt text when no file
	// exists at that path.
	Prompt string
	Model  string
}

// Outcome bundles the original record with the fresh result.
type Outcome struct {
	Record *recorder.Interaction
	Result *llm.Result
	Prompt string // prompt actually sent
	Model  string // model actually requested
}

// Replayer replays logged interactions.
type Replayer struct {
	store Loader
	gen   Generator
	log   logger.Logger
}

// New wires a Replayer.
func New(store Loader, gen Generator, log logger.Logger) *Replayer {
	return &Replayer{store: store, gen: gen, log: log.WithField("component", "replay")}
}

// Replay reloads the record's original request fields, applies any overrides,
// and re-invokes the generation network path directly. With no overrides the
// request carries exactly the original prompt text and model.
func (r *Replayer) Replay(ctx context.Context, id int64, opts Options) (*Outcome, error) {
	rec, err := r.store.Load(id)
	if err != nil {
		return nil, err
	}

	prompt := rec.SystemPrompt
	if opts.Prompt != "" {
		if data, err := os.ReadFile(opts.Prompt); err == nil {
			prompt = string(data)
		} else {
			prompt = opts.Prompt
		}
	}

	model := rec.Model
	if opts.Model != "" {
		model = opts.Model
	}

	r.log.Infof("replaying interaction %d (model %s)", id, model)

	result, err := r.gen.GenerateFresh(ctx, llm.Input{
		SystemPrompt: prompt,
		Context:      rec.Context,
		Days:         rec.Days,
		Location:     rec.Location,
		Source:       "replay",
		Model:        model,
	})
	if err != nil {
		return nil, err
	}

	return &Outcome{Record: rec, Result: result, Prompt: prompt, Model: model}, nil
}
