package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/themobileprof/ayu-be/internal/api/middleware"
	"github.com/themobileprof/ayu-be/internal/chat"
	"github.com/themobileprof/ayu-be/internal/language"
	"github.com/themobileprof/ayu-be/internal/memory"
	"github.com/themobileprof/ayu-be/internal/phrases"
	"github.com/themobileprof/ayu-be/internal/privacy"
	"github.com/themobileprof/ayu-be/internal/response"
)

// ChatHandler handles chat session and message endpoints
type ChatHandler struct {
	engine          *chat.Engine
	languages       *language.Manager
	book            *phrases.Book
	sessionSecret   string
	contextCapacity int
}

// NewChatHandler creates a new chat handler
func NewChatHandler(engine *chat.Engine, languages *language.Manager, book *phrases.Book, sessionSecret string, contextCapacity int) *ChatHandler {
	if contextCapacity <= 0 {
		contextCapacity = memory.DefaultCapacity
	}
	return &ChatHandler{
		engine:          engine,
		languages:       languages,
		book:            book,
		sessionSecret:   sessionSecret,
		contextCapacity: contextCapacity,
	}
}

// CreateSessionRequest starts a conversation
type CreateSessionRequest struct {
	Language string `json:"language"`
}

// CreateSessionResponse carries the session token and greeting
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	Language  string `json:"language"`
	Greeting  string `json:"greeting"`
}

// SendMessageRequest is one user message in a session
type SendMessageRequest struct {
	Content  string `json:"content"`
	Language string `json:"language"`
}

// SendMessageResponse is the message pair plus the pipeline outcome
type SendMessageResponse struct {
	UserMessage      chat.Message `json:"user_message"`
	AssistantMessage chat.Message `json:"assistant_message"`
	Success          bool         `json:"success"`
	Error            string       `json:"error,omitempty"`
	Stage            chat.Stage   `json:"stage"`
}

// RespondRequest is a stateless pipeline call; the caller owns the context
type RespondRequest struct {
	Message  string   `json:"message"`
	Context  []string `json:"context"`
	Language string   `json:"language"`
}

// RespondResponse is a ResponseResult plus the caller's updated context
type RespondResponse struct {
	response.Result
	Context []string `json:"context"`
}

// CreateSession starts a new chat session
// POST /api/chat/sessions
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	lang := h.languages.Validate(req.Language).Code
	session := memory.Session{
		ID:        uuid.NewString(),
		Language:  lang,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.engine.Store().CreateSession(c.Request.Context(), session); err != nil {
		log.Printf("Failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	token, err := middleware.IssueSessionToken(h.sessionSecret, session.ID, lang, middleware.SessionTokenTTL)
	if err != nil {
		log.Printf("Failed to issue session token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	log.Printf("Session created: id=%s, language=%s", session.ID, lang)
	c.JSON(http.StatusCreated, CreateSessionResponse{
		SessionID: session.ID,
		Token:     token,
		Language:  lang,
		Greeting:  h.book.Greeting.For(lang),
	})
}

// SendMessage runs one message through the pipeline for the session
// POST /api/chat/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content is required"})
		return
	}

	lang := ""
	if req.Language != "" {
		lang = h.languages.Validate(req.Language).Code
	}

	sessionID := c.GetString(middleware.ContextSessionID)
	reply, err := h.engine.ProcessMessage(c.Request.Context(), chat.ProcessRequest{
		SessionID: sessionID,
		Message:   req.Content,
		Language:  lang,
	})
	if err != nil {
		if errors.Is(err, memory.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
			return
		}
		log.Printf("Failed to process message for session=%s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}

	c.JSON(http.StatusOK, SendMessageResponse{
		UserMessage:      reply.UserMessage,
		AssistantMessage: reply.AssistantMessage,
		Success:          reply.Result.Success,
		Error:            reply.Result.Error,
		Stage:            reply.Stage,
	})
}

// ListMessages returns the session transcript
// GET /api/chat/messages?limit=50
func (h *ChatHandler) ListMessages(c *gin.Context) {
	transcript := h.engine.Transcript()
	if transcript == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Transcript storage is not configured"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	sessionID := c.GetString(middleware.ContextSessionID)
	messages, err := transcript.ListMessages(c.Request.Context(), sessionID, limit)
	if err != nil {
		log.Printf("Failed to get messages for session=%s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

// EndSession drops the session's context and transcript
// DELETE /api/chat/sessions
func (h *ChatHandler) EndSession(c *gin.Context) {
	sessionID := c.GetString(middleware.ContextSessionID)
	if err := h.engine.EndSession(c.Request.Context(), sessionID); err != nil {
		log.Printf("Failed to end session=%s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end session"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Respond runs the pipeline without a server-side session
// POST /api/chat/respond
func (h *ChatHandler) Respond(c *gin.Context) {
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	log.Printf("Stateless respond: %q", privacy.SanitizeForLogging(req.Message))

	history := memory.NewContext(h.contextCapacity, req.Context...)
	result := h.engine.GenerateResponse(c.Request.Context(), req.Message, history, req.Language)

	c.JSON(http.StatusOK, RespondResponse{
		Result:  result,
		Context: history.Entries(),
	})
}
