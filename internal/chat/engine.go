package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/themobileprof/ayu-be/internal/language"
	"github.com/themobileprof/ayu-be/internal/memory"
	"github.com/themobileprof/ayu-be/internal/privacy"
	"github.com/themobileprof/ayu-be/internal/response"
)

// Stage names the pipeline step that produced a reply
type Stage string

const (
	StageEmergency Stage = "emergency"
	StageSymptom   Stage = "symptom"
	StageRemote    Stage = "remote"
)

// Interfaces for dependencies
type EmergencyClassifier interface {
	IsUrgent(message string) bool
	EmergencyResponse(lang string) string
}

type SymptomMatcher interface {
	Match(message, lang string) (string, bool)
}

type Completer interface {
	Complete(ctx context.Context, message string, history *memory.Context, lang string) response.Result
}

// Transcript persists chat messages. Failures never block a reply.
type Transcript interface {
	SaveMessage(ctx context.Context, sessionID string, msg Message) error
	ListMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)
	DeleteMessages(ctx context.Context, sessionID string) (int64, error)
}

// ProcessRequest contains all data needed to process a message
type ProcessRequest struct {
	SessionID string
	Message   string
	Language  string // empty uses the session's language
}

// Reply is the outcome of one processed message
type Reply struct {
	UserMessage      Message         `json:"user_message"`
	AssistantMessage Message         `json:"assistant_message"`
	Result           response.Result `json:"result"`
	Stage            Stage           `json:"stage"`
}

// Engine resolves replies for chat messages independent of transport
type Engine struct {
	classifier EmergencyClassifier
	symptoms   SymptomMatcher
	completer  Completer
	store      memory.Store
	transcript Transcript
	locks      *keyedMutex
}

// Option configures an Engine
type Option func(*Engine)

// WithTranscript records every processed message pair.
func WithTranscript(t Transcript) Option {
	return func(e *Engine) { e.transcript = t }
}

// NewEngine creates a new transport-agnostic chat engine
func NewEngine(cls EmergencyClassifier, sm SymptomMatcher, comp Completer, store memory.Store, opts ...Option) *Engine {
	e := &Engine{
		classifier: cls,
		symptoms:   sm,
		completer:  comp,
		store:      store,
		locks:      newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transcript returns the configured transcript store, or nil.
func (e *Engine) Transcript() Transcript {
	return e.transcript
}

// Store returns the session store.
func (e *Engine) Store() memory.Store {
	return e.store
}

// GenerateResponse resolves one message: emergency first, then the symptom
// table, then the remote model. Only the remote path appends message to
// history. It never fails; degraded paths set Success to false.
func (e *Engine) GenerateResponse(ctx context.Context, message string, history *memory.Context, lang string) response.Result {
	result, _ := e.resolve(ctx, message, history, lang)
	return result
}

func (e *Engine) resolve(ctx context.Context, message string, history *memory.Context, lang string) (response.Result, Stage) {
	lang = language.Normalize(lang)

	if e.classifier.IsUrgent(message) {
		log.Printf("Pipeline: emergency intercept (lang=%s)", lang)
		return response.OK(e.classifier.EmergencyResponse(lang)), StageEmergency
	}

	if text, ok := e.symptoms.Match(message, lang); ok {
		log.Printf("Pipeline: symptom match (lang=%s)", lang)
		return response.OK(text), StageSymptom
	}

	if history == nil {
		history = memory.NewContext(memory.DefaultCapacity)
	}
	history.Append(message)

	log.Printf("Pipeline: remote completion (lang=%s, context=%d)", lang, history.Len())
	return e.completer.Complete(ctx, message, history, lang), StageRemote
}

// ProcessMessage runs one message through the pipeline for a stored
// session. Calls for the same session are serialized.
func (e *Engine) ProcessMessage(ctx context.Context, req ProcessRequest) (*Reply, error) {
	unlock := e.locks.Lock(req.SessionID)
	defer unlock()

	session, err := e.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	lang := req.Language
	if lang == "" {
		lang = session.Language
	}
	lang = language.Normalize(lang)

	if privacy.ContainsPII(req.Message) {
		log.Printf("Warning: Potential PII detected in message for session=%s", req.SessionID)
	}

	history, err := e.store.LoadContext(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load context: %w", err)
	}

	userMsg := NewMessage(req.Message, SenderUser)
	result, stage := e.resolve(ctx, req.Message, history, lang)
	assistantMsg := NewMessage(result.Text, SenderAssistant)

	if stage == StageRemote {
		if err := e.store.AppendContext(ctx, req.SessionID, req.Message); err != nil {
			log.Printf("Failed to save context for session=%s: %v", req.SessionID, err)
		}
	}

	if e.transcript != nil {
		for _, msg := range []Message{userMsg, assistantMsg} {
			if err := e.transcript.SaveMessage(ctx, req.SessionID, msg); err != nil {
				log.Printf("Failed to save %s message: %v", msg.Sender, err)
			}
		}
	}

	return &Reply{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Result:           result,
		Stage:            stage,
	}, nil
}

// EndSession drops the session, its context and its transcript.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	if err := e.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	if e.transcript != nil {
		n, err := e.transcript.DeleteMessages(ctx, sessionID)
		if err != nil {
			log.Printf("Failed to delete transcript for session=%s: %v", sessionID, err)
		} else {
			log.Printf("Deleted %d transcript messages for session=%s", n, sessionID)
		}
	}
	return nil
}
