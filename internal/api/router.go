package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/themobileprof/ayu-be/internal/api/middleware"
	"github.com/themobileprof/ayu-be/internal/chat"
	"github.com/themobileprof/ayu-be/internal/directory"
	"github.com/themobileprof/ayu-be/internal/language"
	"github.com/themobileprof/ayu-be/internal/phrases"
	"github.com/themobileprof/ayu-be/internal/ws"
)

// RouterConfig holds everything the HTTP surface is built from
type RouterConfig struct {
	Engine          *chat.Engine
	Languages       *language.Manager
	Book            *phrases.Book
	Directory       *directory.Directory
	Proxy           *GeminiProxy
	SessionSecret   string
	AllowedOrigin   string
	RateLimit       int // requests per minute, per IP and per session
	ContextCapacity int
}

// NewRouter builds the gin engine with all routes and middleware
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(cfg.AllowedOrigin))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.PerIP(middleware.NewRateLimiter(cfg.RateLimit)))

	chatHandler := NewChatHandler(cfg.Engine, cfg.Languages, cfg.Book, cfg.SessionSecret, cfg.ContextCapacity)
	langHandler := NewLanguageHandler(cfg.Languages)
	dirHandler := NewDirectoryHandler(cfg.Directory)
	wsHandler := ws.NewChatHandler(cfg.Engine, cfg.SessionSecret, cfg.RateLimit, cfg.AllowedOrigin)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/languages", langHandler.ListLanguages)
		apiGroup.POST("/gemini", cfg.Proxy.Relay)

		apiGroup.GET("/providers", dirHandler.ListProviders)
		apiGroup.GET("/providers/:id", dirHandler.GetProvider)
		apiGroup.GET("/pharmacies", dirHandler.ListPharmacies)
		apiGroup.GET("/pharmacies/:id", dirHandler.GetPharmacy)
		apiGroup.GET("/pharmacies/:id/delivery-estimate", dirHandler.DeliveryEstimate)
	}

	// Chat routes; only session creation and the stateless call are public
	chatGroup := apiGroup.Group("/chat")
	{
		chatGroup.POST("/sessions", chatHandler.CreateSession)
		chatGroup.POST("/respond", chatHandler.Respond)

		session := chatGroup.Group("")
		session.Use(middleware.SessionAuth(cfg.SessionSecret))
		session.Use(middleware.PerSession(middleware.NewRateLimiter(cfg.RateLimit)))
		session.DELETE("/sessions", chatHandler.EndSession)
		session.POST("/messages", chatHandler.SendMessage)
		session.GET("/messages", chatHandler.ListMessages)
	}

	// WebSocket chat route (session token via query param or header)
	router.GET("/ws/chat", wsHandler.HandleChat)

	return router
}
