package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/themobileprof/ayu-be/internal/chat"
	"github.com/themobileprof/ayu-be/internal/circuitbreaker"
	"github.com/themobileprof/ayu-be/internal/classifier"
	"github.com/themobileprof/ayu-be/internal/completion"
	"github.com/themobileprof/ayu-be/internal/config"
	"github.com/themobileprof/ayu-be/internal/db"
	"github.com/themobileprof/ayu-be/internal/fallback"
	"github.com/themobileprof/ayu-be/internal/memory"
	"github.com/themobileprof/ayu-be/internal/phrases"
	"github.com/themobileprof/ayu-be/internal/symptoms"
	"github.com/themobileprof/ayu-be/pkg/gemini"
	"github.com/themobileprof/ayu-be/pkg/geminisdk"
	"github.com/themobileprof/ayu-be/pkg/llm"
	"github.com/themobileprof/ayu-be/pkg/openai"
)

// app is the assembled pipeline shared by serve and ask
type app struct {
	cfg     *config.Config
	book    *phrases.Book
	engine  *chat.Engine
	closers []func() error
}

// buildApp wires the pipeline. With persistent set, sessions go to Redis
// when REDIS_URL is configured and transcripts to Postgres when
// DATABASE_URL is configured; otherwise everything stays in memory.
func buildApp(ctx context.Context, cfg *config.Config, persistent bool) (*app, error) {
	a := &app{cfg: cfg}

	book, err := phrases.Load(cfg.PhrasesFile)
	if err != nil {
		return nil, err
	}
	a.book = book

	backend, closeBackend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closeBackend != nil {
		a.closers = append(a.closers, closeBackend)
	}

	cls := classifier.NewClassifier(book)
	fb := fallback.NewSelector(book, cls, nil)
	var compOpts []completion.Option
	if cfg.BreakerFailures > 0 {
		compOpts = append(compOpts, completion.WithBreaker(circuitbreaker.NewCircuitBreaker(
			cfg.BreakerFailures, cfg.BreakerReset, circuitbreaker.WithName("completion"))))
	}
	comp := completion.NewClient(cfg.Completion(), backend, fb, compOpts...)

	var store memory.Store
	var opts []chat.Option

	if !persistent || cfg.RedisURL == "" {
		mem := memory.NewMemoryStore(cfg.ContextWindow, memory.WithSessionTTL(cfg.SessionTTL))
		a.closers = append(a.closers, mem.Close)
		store = mem
	} else {
		client, err := memory.Connect(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		store = memory.NewRedisStore(client, cfg.ContextWindow, cfg.SessionTTL)
		log.Println("✅ Redis session store connected")
	}

	if persistent && cfg.DatabaseURL != "" {
		database, err := db.New(db.Config{URL: cfg.DatabaseURL, MaxConnections: 10, MaxIdleConns: 5})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, database.Close)
		if err := database.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, chat.WithTranscript(db.NewTranscriptStore(database)))
		log.Println("✅ Transcript database connected")
	}

	a.engine = chat.NewEngine(cls, symptoms.NewMatcher(book), comp, store, opts...)
	return a, nil
}

// Close releases backend and storage connections
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Warning: close failed: %v", err)
		}
	}
	a.closers = nil
}

// newBackend returns the completion backend for cfg.Provider. Without an
// API key it returns nil and the pipeline answers from its fallbacks.
func newBackend(ctx context.Context, cfg *config.Config) (llm.Client, func() error, error) {
	if cfg.APIKey() == "" {
		log.Printf("Warning: no API key for %s; remote completion will use fallback responses", cfg.Provider)
		return nil, nil, nil
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.NewHTTPClient(gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		}), nil, nil
	case config.ProviderGeminiSDK:
		client, err := geminisdk.NewClient(ctx, geminisdk.Config{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	case config.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}
}
