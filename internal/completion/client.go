package completion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/themobileprof/ayu-be/internal/circuitbreaker"
	"github.com/themobileprof/ayu-be/internal/fallback"
	"github.com/themobileprof/ayu-be/internal/language"
	"github.com/themobileprof/ayu-be/internal/memory"
	"github.com/themobileprof/ayu-be/internal/privacy"
	"github.com/themobileprof/ayu-be/internal/prompt"
	"github.com/themobileprof/ayu-be/internal/response"
	"github.com/themobileprof/ayu-be/pkg/llm"
)

var (
	ErrMissingAPIKey   = errors.New("missing API key")
	ErrEmptyCompletion = errors.New("empty response from model")
)

// Failure reasons reported in response.Result.Error
const (
	ReasonTimeout     = "request timed out"
	ReasonCircuitOpen = "circuit open"
	ReasonCancelled   = "request cancelled"
)

// Config holds the remote completion settings
type Config struct {
	APIKey        string
	Model         string
	Timeout       time.Duration
	ContextWindow int
	Temperature   float64
	MaxTokens     int
}

// DefaultConfig returns the standard settings with no API key
func DefaultConfig() Config {
	return Config{
		Timeout:       10 * time.Second,
		ContextWindow: memory.DefaultCapacity,
		Temperature:   0.7,
		MaxTokens:     500,
	}
}

// Client calls the remote model once per message and degrades to the
// fallback selector on any failure. It never retries. Without WithBreaker
// every message gets exactly one attempt.
type Client struct {
	cfg      Config
	backend  llm.Client
	builder  *prompt.Builder
	fallback *fallback.Selector
	breaker  *circuitbreaker.CircuitBreaker
}

// Option configures a Client
type Option func(*Client)

// WithBreaker puts a circuit breaker in front of the backend. While it is
// open, messages go straight to the fallback pools without a request.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// NewClient creates a remote completion client
func NewClient(cfg Config, backend llm.Client, fb *fallback.Selector, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = def.ContextWindow
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}

	c := &Client{
		cfg:      cfg,
		backend:  backend,
		builder:  prompt.NewBuilder(),
		fallback: fb,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.backend != nil
}

// Complete returns the model's reply to message, or a fallback result
// carrying the failure reason.
func (c *Client) Complete(ctx context.Context, message string, history *memory.Context, lang string) response.Result {
	lang = language.Normalize(lang)

	if !c.Configured() {
		log.Printf("Remote completion skipped: %v", ErrMissingAPIKey)
		return c.fallback.SelectWithReason(message, lang, ErrMissingAPIKey.Error())
	}

	req := llm.ChatRequest{
		Model:       c.cfg.Model,
		Messages:    c.buildMessages(message, history, lang),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var text string
	attempt := func() error {
		var err error
		text, err = c.call(ctx, req)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Call(attempt)
	} else {
		err = attempt()
	}
	if err != nil {
		reason := failureReason(ctx, err)
		log.Printf("Remote completion failed: %s", reason)
		return c.fallback.SelectWithReason(message, lang, reason)
	}

	return response.OK(text)
}

type callResult struct {
	text string
	err  error
}

// call runs one backend request. When ctx ends first the request is
// abandoned; its result is dropped into the buffered channel and discarded.
func (c *Client) call(ctx context.Context, req llm.ChatRequest) (string, error) {
	done := make(chan callResult, 1)
	go func() {
		resp, err := c.backend.ChatCompletion(ctx, req)
		if err != nil {
			done <- callResult{err: err}
			return
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			done <- callResult{err: ErrEmptyCompletion}
			return
		}
		done <- callResult{text: text}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) buildMessages(message string, history *memory.Context, lang string) []llm.ChatMessage {
	var entries []string
	if history != nil {
		entries = history.Recent(c.cfg.ContextWindow)
	}
	for i, e := range entries {
		entries[i] = privacy.SanitizeForAPI(e)
	}

	return c.builder.BuildPrompt(prompt.Request{
		Message:  privacy.SanitizeForAPI(message),
		Context:  entries,
		Language: lang,
		Window:   c.cfg.ContextWindow,
	})
}

// failureReason maps a backend error onto the reason reported to callers
func failureReason(ctx context.Context, err error) string {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return ReasonCircuitOpen
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	case errors.Is(err, ErrEmptyCompletion):
		return err.Error()
	case errors.As(err, &apiErr):
		return apiErr.Error()
	default:
		return fmt.Sprintf("API connection failed: %v", err)
	}
}
