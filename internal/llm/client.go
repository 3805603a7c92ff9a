package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/kidsweather/kidsweather/internal/cache"
	"github.com/kidsweather/kidsweather/internal/logger"
	"github.com/kidsweather/kidsweather/internal/recorder"
)

// Recorder is the append-side contract of the interaction log. Every attempt,
// success or failure, is handed to it before Generate returns.
type Recorder interface {
	Record(rec recorder.Interaction) (int64, error)
}

// Config holds the generation client settings.
type Config struct {
	Primary  Endpoint
	Fallback *Endpoint // nil when no fallback is configured
	MaxWords int
	CacheTTL time.Duration
}

// Client sends structured-output requests to a chat-completions-shaped
// endpoint, falling back once to a secondary endpoint on any failure. A
// successful, schema-valid result is cached; every attempt is recorded.
type Client struct {
	http     *http.Client
	cfg      Config
	cache    cache.Cache
	rec      Recorder
	breakers map[string]*gobreaker.CircuitBreaker
	log      logger.Logger
}

// attempt is the tagged outcome of one provider call.
type attempt struct {
	endpoint    Endpoint
	model       string
	rawResponse string
	result      *Result
	err         error
}

// NewClient builds a generation Client around the shared outbound HTTP client.
func NewClient(client *http.Client, cfg Config, c cache.Cache, rec Recorder, log logger.Logger) *Client {
	breakers := make(map[string]*gobreaker.CircuitBreaker)
	endpoints := []Endpoint{cfg.Primary}
	if cfg.Fallback != nil {
		endpoints = append(endpoints, *cfg.Fallback)
	}
	for _, ep := range endpoints {
		breakers[ep.Name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm-" + ep.Name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
	}

	return &Client{
		http:     client,
		cfg:      cfg,
		cache:    c,
		rec:      rec,
		breakers: breakers,
		log:      log.WithField("component", "llm_client"),
	}
}

// Generate returns the validated generation result for the input, serving
// from cache when possible. A cache hit performs no network access and no
// recording.
func (c *Client) Generate(ctx context.Context, in Input) (*Result, error) {
	return c.generate(ctx, in, true)
}

// GenerateFresh is the replay path: the same attempt sequence with the cache
// bypassed entirely, so a fresh provider response can be observed.
func (c *Client) GenerateFresh(ctx context.Context, in Input) (*Result, error) {
	return c.generate(ctx, in, false)
}

func (c *Client) generate(ctx context.Context, in Input, useCache bool) (*Result, error) {
	model := c.cfg.Primary.Model
	if in.Model != "" {
		model = in.Model
	}

	key := cache.Key("llm", in.Context, promptHash(in.SystemPrompt), model)
	if useCache {
		if data, ok, err := c.cache.Get(ctx, key); err != nil {
			c.log.Warnf("cache read failed for %s: %v", key, err)
		} else if ok {
			var cached Result
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debugf("cache hit for llm: %s", key)
				return &cached, nil
			}
		}
		c.log.Debugf("cache miss for llm: %s", key)
	}

	buildID := uuid.NewString()

	endpoints := []Endpoint{c.cfg.Primary}
	if c.cfg.Fallback != nil {
		endpoints = append(endpoints, *c.cfg.Fallback)
	}

	var last attempt
	for _, ep := range endpoints {
		att := c.attempt(ctx, ep, in)
		c.record(buildID, in, att)

		if att.err == nil {
			if useCache {
				if data, err := json.Marshal(att.result); err == nil {
					if err := c.cache.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
						c.log.Warnf("cache write failed for %s: %v", key, err)
					}
				}
			}
			return att.result, nil
		}

		c.log.Warnf("%s generation attempt failed (model %s): %v", ep.Name, att.model, att.err)
		last = att
	}

	return nil, &GenerationError{
		Provider:    last.endpoint.Name,
		Model:       last.model,
		RawResponse: last.rawResponse,
		Err:         last.err,
	}
}

// attempt performs one provider call end to end: request, decode, scrub,
// schema validation. Any failure is folded into the returned outcome; there
// is no retry at this level.
func (c *Client) attempt(ctx context.Context, ep Endpoint, in Input) attempt {
	model := ep.Model
	if in.Model != "" {
		model = in.Model
	}
	out := attempt{endpoint: ep, model: model}

	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: in.SystemPrompt},
			{Role: "user", Content: in.Context},
		},
		Stream: false,
	}
	if ep.JSONMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		out.err = fmt.Errorf("failed to encode request: %w", err)
		return out
	}

	raw, err := c.post(ctx, ep, body)
	out.rawResponse = raw
	if err != nil {
		out.err = err
		return out
	}

	var resp chatResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		out.err = fmt.Errorf("failed to decode provider response: %w", err)
		return out
	}
	if len(resp.Choices) == 0 {
		out.err = errors.New("no choices in provider response")
		return out
	}

	content := resp.Choices[0].Message.Content
	out.rawResponse = content

	result, err := Validate([]byte(extractJSON(content)), in.Days, c.cfg.MaxWords)
	if err != nil {
		out.err = err
		return out
	}

	out.result = result
	return out
}

func (c *Client) post(ctx context.Context, ep Endpoint, body []byte) (string, error) {
	result, err := c.breakers[ep.Name].Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return string(data), fmt.Errorf("provider returned status %d", resp.StatusCode)
		}
		return string(data), nil
	})

	raw, _ := result.(string)
	return raw, err
}

// record hands the attempt to the interaction log synchronously. A logging
// failure is reported but does not fail the generation itself.
func (c *Client) record(buildID string, in Input, att attempt) {
	var parsed []byte
	if att.result != nil {
		if data, err := json.Marshal(att.result); err == nil {
			parsed = data
		}
	}

	if _, err := c.rec.Record(recorder.Interaction{
		BuildID:      buildID,
		Source:       in.Source,
		Location:     in.Location,
		Days:         in.Days,
		Context:      in.Context,
		SystemPrompt: in.SystemPrompt,
		Provider:     att.endpoint.Name,
		Model:        att.model,
		RawResponse:  att.rawResponse,
		ParsedResult: parsed,
		Success:      att.err == nil,
	}); err != nil {
		c.log.Errorf("failed to record %s generation attempt: %v", att.endpoint.Name, err)
	}
}

func promptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
