package completion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/themobileprof/ayu-be/internal/circuitbreaker"
	"github.com/themobileprof/ayu-be/internal/classifier"
	"github.com/themobileprof/ayu-be/internal/fallback"
	"github.com/themobileprof/ayu-be/internal/memory"
	"github.com/themobileprof/ayu-be/internal/phrases"
	"github.com/themobileprof/ayu-be/pkg/llm"
)

func newTestClient(cfg Config, backend llm.Client, opts ...Option) (*Client, *phrases.Book) {
	book := phrases.Default()
	fb := fallback.NewSelector(book, classifier.NewClassifier(book), func(int) int { return 0 })
	return NewClient(cfg, backend, fb, opts...), book
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.Model = "test-model"
	return cfg
}

func TestClient_MissingAPIKey(t *testing.T) {
	mock := llm.NewMockClient()
	client, book := newTestClient(DefaultConfig(), mock)

	result := client.Complete(context.Background(), "I feel off today", nil, "en")

	if result.Success {
		t.Error("expected degraded result")
	}
	if result.Error != "missing API key" {
		t.Errorf("Error = %q, want %q", result.Error, "missing API key")
	}
	if !slices.Contains(book.Fallback.Pools[phrases.CategoryGeneral]["en"], result.Text) {
		t.Errorf("Text %q not from the general pool", result.Text)
	}
	if mock.GetChatCallCount() != 0 {
		t.Errorf("backend called %d times without a key", mock.GetChatCallCount())
	}
}

func TestClient_Success(t *testing.T) {
	mock := llm.NewMockClient()
	mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return llm.TextResponse(req.Model, "\n  Try ginger tea and rest.  \n"), nil
	}
	client, _ := newTestClient(testConfig(), mock)

	result := client.Complete(context.Background(), "what helps with tiredness", memory.NewContext(4, "what helps with tiredness"), "en")

	if !result.Success || result.Error != "" {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.Text != "Try ginger tea and rest." {
		t.Errorf("Text = %q", result.Text)
	}

	req, _ := mock.LastRequest()
	if req.Model != "test-model" || req.MaxTokens != 500 || req.Temperature != 0.7 {
		t.Errorf("request settings = %s/%d/%v", req.Model, req.MaxTokens, req.Temperature)
	}
}

func TestClient_Failures(t *testing.T) {
	tests := []struct {
		name       string
		chat       func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error)
		wantReason string
	}{
		{
			name: "timeout",
			chat: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			wantReason: ReasonTimeout,
		},
		{
			name: "non-2xx",
			chat: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
				return nil, &llm.APIError{Provider: "Gemini", StatusCode: 503, Message: "overloaded"}
			},
			wantReason: "Gemini API error (status 503): overloaded",
		},
		{
			name: "empty payload",
			chat: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
				return &llm.ChatResponse{}, nil
			},
			wantReason: ErrEmptyCompletion.Error(),
		},
		{
			name: "transport error",
			chat: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
			wantReason: "API connection failed: dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockClient()
			mock.ChatFunc = tt.chat
			cfg := testConfig()
			cfg.Timeout = 20 * time.Millisecond
			client, book := newTestClient(cfg, mock)

			result := client.Complete(context.Background(), "my knee pain is back", nil, "en")

			if result.Success {
				t.Error("expected degraded result")
			}
			if result.Error != tt.wantReason {
				t.Errorf("Error = %q, want %q", result.Error, tt.wantReason)
			}
			if !slices.Contains(book.Fallback.Pools[phrases.CategorySymptoms]["en"], result.Text) {
				t.Errorf("Text %q not from the symptoms pool", result.Text)
			}
			if mock.GetChatCallCount() != 1 {
				t.Errorf("backend called %d times, want exactly 1", mock.GetChatCallCount())
			}
		})
	}
}

func TestClient_ContextWindow(t *testing.T) {
	mock := llm.NewMockClient()
	client, _ := newTestClient(testConfig(), mock)

	history := memory.NewContext(10)
	for i := 1; i <= 6; i++ {
		history.Append(fmt.Sprintf("m%d", i))
	}

	client.Complete(context.Background(), "m6", history, "en")

	req, _ := mock.LastRequest()
	var contents []string
	for _, m := range req.Messages[1:] {
		contents = append(contents, m.Content)
	}
	if strings.Join(contents, ",") != "m3,m4,m5,m6" {
		t.Errorf("outbound context = %v, want only the newest 4 entries", contents)
	}
}

func TestClient_SanitizesAndLocalizes(t *testing.T) {
	mock := llm.NewMockClient()
	client, _ := newTestClient(testConfig(), mock)

	client.Complete(context.Background(), "call me on 9876543210", nil, "te")

	req, _ := mock.LastRequest()
	last := req.Messages[len(req.Messages)-1]
	if strings.Contains(last.Content, "9876543210") {
		t.Errorf("phone number leaked: %q", last.Content)
	}
	if !strings.Contains(req.Messages[0].Content, "Respond in Telugu") {
		t.Error("system prompt should ask for Telugu")
	}
}

func TestClient_CircuitOpen(t *testing.T) {
	mock := llm.NewMockClient()
	mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, errors.New("boom")
	}
	breaker := circuitbreaker.NewCircuitBreaker(1, time.Hour)
	client, _ := newTestClient(testConfig(), mock, WithBreaker(breaker))

	client.Complete(context.Background(), "hello", nil, "en")
	result := client.Complete(context.Background(), "hello", nil, "en")

	if result.Error != ReasonCircuitOpen {
		t.Errorf("Error = %q, want %q", result.Error, ReasonCircuitOpen)
	}
	if mock.GetChatCallCount() != 1 {
		t.Errorf("backend called %d times, want 1", mock.GetChatCallCount())
	}
}

func TestClient_AbandonsRequestAtDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	mock := llm.NewMockClient()
	mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		// ignores cancellation until the test ends
		<-release
		return llm.TextResponse(req.Model, "too late"), nil
	}
	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	client, book := newTestClient(cfg, mock)

	start := time.Now()
	result := client.Complete(context.Background(), "I feel off today", nil, "en")
	elapsed := time.Since(start)

	if elapsed > 400*time.Millisecond {
		t.Errorf("Complete returned after %s, want close to the 50ms timeout", elapsed)
	}
	if result.Success || result.Error != ReasonTimeout {
		t.Errorf("result = %+v, want timeout fallback", result)
	}
	if !slices.Contains(book.Fallback.Pools[phrases.CategoryGeneral]["en"], result.Text) {
		t.Errorf("Text %q not from the general pool", result.Text)
	}
}

func TestClient_CallerCancellation(t *testing.T) {
	mock := llm.NewMockClient()
	mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	client, _ := newTestClient(testConfig(), mock)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	result := client.Complete(ctx, "hello", nil, "en")
	if result.Error != ReasonCancelled {
		t.Errorf("Error = %q, want %q", result.Error, ReasonCancelled)
	}
}

func TestClient_OneAttemptPerMessageWithoutBreaker(t *testing.T) {
	mock := llm.NewMockClient()
	mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, errors.New("boom")
	}
	client, _ := newTestClient(testConfig(), mock)

	for i := 0; i < 10; i++ {
		result := client.Complete(context.Background(), "hello", nil, "en")
		if result.Error == ReasonCircuitOpen {
			t.Fatalf("message %d short-circuited without a breaker", i)
		}
	}
	if mock.GetChatCallCount() != 10 {
		t.Errorf("backend called %d times, want one per message", mock.GetChatCallCount())
	}
}
