package ws

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/themobileprof/ayu-be/internal/api/middleware"
	"github.com/themobileprof/ayu-be/internal/chat"
	"github.com/themobileprof/ayu-be/internal/language"
	"github.com/themobileprof/ayu-be/internal/memory"
)

// Outgoing frame types
const (
	TypeMessage = "message"
	TypeError   = "error"
	TypeDone    = "done"
)

// ChatHandler handles WebSocket chat connections
type ChatHandler struct {
	engine            *chat.Engine
	sessionSecret     string
	messagesPerMinute int
	upgrader          websocket.Upgrader
}

// NewChatHandler creates a new chat handler. An empty allowedOrigin accepts
// any origin.
func NewChatHandler(engine *chat.Engine, sessionSecret string, messagesPerMinute int, allowedOrigin string) *ChatHandler {
	return &ChatHandler{
		engine:            engine,
		sessionSecret:     sessionSecret,
		messagesPerMinute: messagesPerMinute,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// OutgoingMessage represents a message to the client
type OutgoingMessage struct {
	Type    string        `json:"type"` // "message", "error", "done"
	Content string        `json:"content,omitempty"`
	Message *chat.Message `json:"message,omitempty"`
	Success *bool         `json:"success,omitempty"`
	Error   string        `json:"error,omitempty"`
	Stage   chat.Stage    `json:"stage,omitempty"`
}

// HandleChat handles WebSocket chat connections
// GET /ws/chat?token=...
func (h *ChatHandler) HandleChat(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	claims, err := middleware.ParseSessionToken(h.sessionSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	session, err := h.engine.Store().GetSession(c.Request.Context(), claims.SessionID)
	if err != nil {
		if errors.Is(err, memory.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return
	}

	// Upgrade to WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	limiter := middleware.NewWebSocketLimiter(h.messagesPerMinute)
	log.Printf("WebSocket connected: session=%s, language=%s", session.ID, session.Language)

	// One message at a time: the next read waits for the reply.
	for {
		var msg IncomingMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if strings.TrimSpace(msg.Content) == "" {
			h.sendError(conn, "Message content is required")
			continue
		}
		if !limiter.Allow() {
			h.sendError(conn, "Rate limit exceeded. Please slow down.")
			continue
		}

		if err := h.processMessage(c, conn, session.ID, msg); err != nil {
			log.Printf("Error processing message: %v", err)
			if errors.Is(err, memory.ErrSessionNotFound) {
				h.sendError(conn, "Session not found or expired")
				break
			}
			h.sendError(conn, "Failed to process message")
		}
	}
}

// processMessage runs one message through the engine and writes the reply
func (h *ChatHandler) processMessage(c *gin.Context, conn *websocket.Conn, sessionID string, msg IncomingMessage) error {
	lang := ""
	if msg.Language != "" {
		lang = language.Normalize(msg.Language)
	}

	reply, err := h.engine.ProcessMessage(c.Request.Context(), chat.ProcessRequest{
		SessionID: sessionID,
		Message:   msg.Content,
		Language:  lang,
	})
	if err != nil {
		return err
	}

	success := reply.Result.Success
	if err := conn.WriteJSON(OutgoingMessage{
		Type:    TypeMessage,
		Content: reply.AssistantMessage.Content,
		Message: &reply.AssistantMessage,
		Success: &success,
		Error:   reply.Result.Error,
		Stage:   reply.Stage,
	}); err != nil {
		return err
	}
	return h.sendDone(conn)
}

// sendError sends an error message to the client
func (h *ChatHandler) sendError(conn *websocket.Conn, message string) error {
	return conn.WriteJSON(OutgoingMessage{
		Type:    TypeError,
		Content: message,
	})
}

// sendDone signals that the response is complete
func (h *ChatHandler) sendDone(conn *websocket.Conn) error {
	return conn.WriteJSON(OutgoingMessage{
		Type: TypeDone,
	})
}
