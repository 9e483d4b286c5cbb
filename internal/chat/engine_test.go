package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/themobileprof/ayu-be/internal/classifier"
	"github.com/themobileprof/ayu-be/internal/completion"
	"github.com/themobileprof/ayu-be/internal/fallback"
	"github.com/themobileprof/ayu-be/internal/memory"
	"github.com/themobileprof/ayu-be/internal/phrases"
	"github.com/themobileprof/ayu-be/internal/symptoms"
	"github.com/themobileprof/ayu-be/pkg/llm"
)

type testEnv struct {
	engine *Engine
	mock   *llm.MockClient
	store  *memory.MemoryStore
	book   *phrases.Book
}

func newTestEnv(t *testing.T, apiKey string, opts ...Option) *testEnv {
	t.Helper()
	book := phrases.Default()
	cls := classifier.NewClassifier(book)
	fb := fallback.NewSelector(book, cls, func(int) int { return 0 })

	mock := llm.NewMockClient()
	cfg := completion.DefaultConfig()
	cfg.APIKey = apiKey
	cfg.Timeout = 50 * time.Millisecond
	comp := completion.NewClient(cfg, mock, fb)

	store := memory.NewMemoryStore(memory.DefaultCapacity)
	return &testEnv{
		engine: NewEngine(cls, symptoms.NewMatcher(book), comp, store, opts...),
		mock:   mock,
		store:  store,
		book:   book,
	}
}

func TestEngine_GenerateResponse_Precedence(t *testing.T) {
	env := newTestEnv(t, "key")
	book := env.book

	tests := []struct {
		name        string
		message     string
		lang        string
		wantText    string
		wantSuccess bool
		wantCalls   int
	}{
		{
			name:        "chest pain is an emergency",
			message:     "I have chest pain",
			lang:        "en",
			wantText:    book.Emergency.Response["en"],
			wantSuccess: true,
		},
		{
			name:        "emergency beats symptom keywords",
			message:     "fever, cough and SEVERE BLEEDING",
			lang:        "te",
			wantText:    book.Emergency.Response["te"],
			wantSuccess: true,
		},
		{
			name:        "headache from the table",
			message:     "I have a headache",
			lang:        "en",
			wantText:    "For headaches, rest and hydrate well. If the headache is severe or persistent, consult a doctor.",
			wantSuccess: true,
		},
		{
			name:        "Kannada fever",
			message:     "mujhe fever hai",
			lang:        "kn",
			wantText:    book.Symptoms[0].Response["kn"],
			wantSuccess: true,
		},
		{
			name:        "unknown language uses English",
			message:     "I have a headache",
			lang:        "fr",
			wantText:    "For headaches, rest and hydrate well. If the headache is severe or persistent, consult a doctor.",
			wantSuccess: true,
		},
		{
			name:        "no keyword goes to the model",
			message:     "what is a balanced diet",
			lang:        "en",
			wantText:    "This is a mock response.",
			wantSuccess: true,
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.mock.Reset()
			history := memory.NewContext(4)

			result := env.engine.GenerateResponse(context.Background(), tt.message, history, tt.lang)

			if result.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", result.Text, tt.wantText)
			}
			if result.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", result.Success, tt.wantSuccess)
			}
			if got := env.mock.GetChatCallCount(); got != tt.wantCalls {
				t.Errorf("backend calls = %d, want %d", got, tt.wantCalls)
			}
			if got := history.Len(); got != tt.wantCalls {
				t.Errorf("context length = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestEngine_GenerateResponse_RemoteFailure(t *testing.T) {
	env := newTestEnv(t, "key")
	env.mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	tests := []struct {
		message  string
		category string
	}{
		{message: "I feel off today", category: phrases.CategoryGeneral},
		{message: "my knee pain is back", category: phrases.CategorySymptoms},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			result := env.engine.GenerateResponse(context.Background(), tt.message, memory.NewContext(4), "en")

			if result.Success {
				t.Error("expected degraded result")
			}
			if result.Error != completion.ReasonTimeout {
				t.Errorf("Error = %q", result.Error)
			}
			if !slices.Contains(env.book.Fallback.Pools[tt.category]["en"], result.Text) {
				t.Errorf("Text %q not from the %s pool", result.Text, tt.category)
			}
		})
	}
}

func TestEngine_GenerateResponse_MissingKey(t *testing.T) {
	env := newTestEnv(t, "")

	result := env.engine.GenerateResponse(context.Background(), "I feel off today", nil, "en")

	if result.Success || result.Error != "missing API key" {
		t.Errorf("result = %+v", result)
	}
	if !slices.Contains(env.book.Fallback.Pools[phrases.CategoryGeneral]["en"], result.Text) {
		t.Errorf("Text %q not a general fallback", result.Text)
	}
	if env.mock.GetChatCallCount() != 0 {
		t.Error("backend must not be called without a key")
	}
}

func TestEngine_ContextCapping(t *testing.T) {
	env := newTestEnv(t, "key")
	history := memory.NewContext(4)

	for i := 1; i <= 6; i++ {
		env.engine.GenerateResponse(context.Background(), fmt.Sprintf("question %d", i), history, "en")
	}

	req, _ := env.mock.LastRequest()
	var outbound []string
	for _, m := range req.Messages[1:] {
		outbound = append(outbound, m.Content)
	}
	want := "question 3,question 4,question 5,question 6"
	if strings.Join(outbound, ",") != want {
		t.Errorf("outbound = %v, want %s", outbound, want)
	}
	if history.Len() != 4 {
		t.Errorf("context length = %d, want 4", history.Len())
	}
}

func TestEngine_Idempotent(t *testing.T) {
	env := newTestEnv(t, "key")

	for _, msg := range []string{"I have chest pain", "sore throat since morning"} {
		first := env.engine.GenerateResponse(context.Background(), msg, nil, "te")
		second := env.engine.GenerateResponse(context.Background(), msg, nil, "te")
		if first != second {
			t.Errorf("%q: %+v != %+v", msg, first, second)
		}
	}
}

type fakeTranscript struct {
	mu       sync.Mutex
	messages map[string][]Message
	err      error
}

func (f *fakeTranscript) SaveMessage(ctx context.Context, sessionID string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.messages == nil {
		f.messages = make(map[string][]Message)
	}
	f.messages[sessionID] = append(f.messages[sessionID], msg)
	return nil
}

func (f *fakeTranscript) ListMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[sessionID], nil
}

func (f *fakeTranscript) DeleteMessages(ctx context.Context, sessionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.messages[sessionID]))
	delete(f.messages, sessionID)
	return n, nil
}

func TestEngine_ProcessMessage(t *testing.T) {
	transcript := &fakeTranscript{}
	env := newTestEnv(t, "key", WithTranscript(transcript))
	ctx := context.Background()
	env.store.CreateSession(ctx, memory.Session{ID: "s1", Language: "te", CreatedAt: time.Now()})

	reply, err := env.engine.ProcessMessage(ctx, ProcessRequest{SessionID: "s1", Message: "cough"})
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if reply.Stage != StageSymptom {
		t.Errorf("Stage = %s, want symptom", reply.Stage)
	}
	if reply.AssistantMessage.Content != env.book.Symptoms[2].Response["te"] {
		t.Errorf("reply should use the session language, got %q", reply.AssistantMessage.Content)
	}
	if reply.UserMessage.Sender != SenderUser || reply.AssistantMessage.Sender != SenderAssistant {
		t.Errorf("senders = %s, %s", reply.UserMessage.Sender, reply.AssistantMessage.Sender)
	}

	// Symptom answers do not grow the context; remote ones do.
	if c, _ := env.store.LoadContext(ctx, "s1"); c.Len() != 0 {
		t.Errorf("context after symptom = %v", c.Entries())
	}
	reply, err = env.engine.ProcessMessage(ctx, ProcessRequest{SessionID: "s1", Message: "is yoga good", Language: "en"})
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if reply.Stage != StageRemote || !reply.Result.Success {
		t.Errorf("reply = %+v", reply)
	}
	if c, _ := env.store.LoadContext(ctx, "s1"); c.Len() != 1 || c.Entries()[0] != "is yoga good" {
		t.Errorf("context after remote = %v", c.Entries())
	}

	saved, _ := transcript.ListMessages(ctx, "s1", 0)
	if len(saved) != 4 {
		t.Errorf("transcript has %d messages, want 4", len(saved))
	}
}

func TestEngine_ProcessMessage_UnknownSession(t *testing.T) {
	env := newTestEnv(t, "key")

	_, err := env.engine.ProcessMessage(context.Background(), ProcessRequest{SessionID: "missing", Message: "hi"})
	if !errors.Is(err, memory.ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestEngine_ProcessMessage_TranscriptFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t, "key", WithTranscript(&fakeTranscript{err: errors.New("db down")}))
	ctx := context.Background()
	env.store.CreateSession(ctx, memory.Session{ID: "s1", Language: "en"})

	reply, err := env.engine.ProcessMessage(ctx, ProcessRequest{SessionID: "s1", Message: "headache"})
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if !reply.Result.Success {
		t.Errorf("reply = %+v", reply)
	}
}

func TestEngine_ProcessMessage_SerializesPerSession(t *testing.T) {
	env := newTestEnv(t, "key")
	ctx := context.Background()
	env.store.CreateSession(ctx, memory.Session{ID: "s1", Language: "en"})
	env.store.CreateSession(ctx, memory.Session{ID: "s2", Language: "en"})

	var inFlight, maxInFlight atomic.Int32
	env.mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		n := inFlight.Add(1)
		for {
			old := maxInFlight.Load()
			if n <= old || maxInFlight.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return llm.TextResponse(req.Model, "ok"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			env.engine.ProcessMessage(ctx, ProcessRequest{SessionID: "s1", Message: fmt.Sprintf("q%d", i)})
		}(i)
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Errorf("max in-flight calls for one session = %d, want 1", maxInFlight.Load())
	}
	if c, _ := env.store.LoadContext(ctx, "s1"); c.Len() != 4 {
		t.Errorf("context length = %d, want 4", c.Len())
	}
	if env.engine.locks.size() != 0 {
		t.Errorf("lock table not cleaned up: %d entries", env.engine.locks.size())
	}
}

func TestEngine_EndSession(t *testing.T) {
	transcript := &fakeTranscript{}
	env := newTestEnv(t, "key", WithTranscript(transcript))
	ctx := context.Background()
	env.store.CreateSession(ctx, memory.Session{ID: "s1", Language: "en"})

	if _, err := env.engine.ProcessMessage(ctx, ProcessRequest{SessionID: "s1", Message: "tell me about sleep"}); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if err := env.engine.EndSession(ctx, "s1"); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	if _, err := env.store.GetSession(ctx, "s1"); !errors.Is(err, memory.ErrSessionNotFound) {
		t.Errorf("session still present: %v", err)
	}
	if saved, _ := transcript.ListMessages(ctx, "s1", 0); len(saved) != 0 {
		t.Errorf("transcript still has %d messages", len(saved))
	}
}
