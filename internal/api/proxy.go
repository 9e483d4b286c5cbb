package api

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// DefaultProxyUpstream is the generateContent endpoint the proxy relays to
const DefaultProxyUpstream = "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"

const maxProxyBody = 1 << 20

// GeminiProxy relays request bodies to Gemini so browsers never see the key
type GeminiProxy struct {
	apiKey   string
	upstream string
	client   *http.Client
}

// NewGeminiProxy creates a proxy. An empty upstream uses DefaultProxyUpstream
// and a nil client gets a 30 second timeout.
func NewGeminiProxy(apiKey, upstream string, client *http.Client) *GeminiProxy {
	if upstream == "" {
		upstream = DefaultProxyUpstream
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GeminiProxy{apiKey: apiKey, upstream: upstream, client: client}
}

// Relay forwards the JSON body verbatim and answers with the upstream
// status and body
// POST /api/gemini
func (p *GeminiProxy) Relay(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProxyBody))
	if err != nil || !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	if p.apiKey == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gemini API key not set."})
		return
	}

	target, err := url.Parse(p.upstream)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	q := target.Query()
	q.Set("key", p.apiKey)
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		// The upstream URL carries the key; report without it
		log.Printf("Gemini proxy: relay failed: %v", redactKey(err, p.apiKey))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reach Gemini API"})
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBody))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read Gemini response"})
		return
	}
	if !gjson.ValidBytes(respBody) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gemini returned a non-JSON response"})
		return
	}

	if resp.StatusCode >= 400 {
		log.Printf("Gemini proxy: upstream status %d: %s", resp.StatusCode, gjson.GetBytes(respBody, "error.message").String())
	}

	c.Data(resp.StatusCode, "application/json", respBody)
}

func redactKey(err error, key string) string {
	return strings.ReplaceAll(err.Error(), key, "[REDACTED]")
}
