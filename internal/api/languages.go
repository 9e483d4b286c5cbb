package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/themobileprof/ayu-be/internal/language"
)

// LanguageHandler lists the chat languages
type LanguageHandler struct {
	manager *language.Manager
}

// NewLanguageHandler creates a new language handler
func NewLanguageHandler(manager *language.Manager) *LanguageHandler {
	return &LanguageHandler{manager: manager}
}

// ListLanguages returns the enabled languages
// GET /api/languages
func (h *LanguageHandler) ListLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"languages": h.manager.GetSupportedLanguages(),
		"default":   language.DefaultLanguage,
	})
}
