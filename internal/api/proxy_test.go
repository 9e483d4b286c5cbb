package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiProxy_NoKey(t *testing.T) {
	s := newTestServer(t, nil, NewGeminiProxy("", "", nil))

	w := s.do(http.MethodPost, "/api/gemini", "", map[string]string{"prompt": "hi"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Gemini API key not set."}` {
		t.Errorf("body = %s", got)
	}
}

func TestGeminiProxy_Relay(t *testing.T) {
	const reqBody = `{"contents":[{"parts":[{"text":"hello"}]}]}`

	tests := []struct {
		name         string
		upstreamCode int
		upstreamBody string
	}{
		{name: "success", upstreamCode: http.StatusOK, upstreamBody: `{"candidates":[{"content":{"parts":[{"text":"Namaste"}]}}]}`},
		{name: "upstream error passes through", upstreamCode: http.StatusTooManyRequests, upstreamBody: `{"error":{"code":429,"message":"quota"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("key") != "secret-key" {
					t.Errorf("key = %q", r.URL.Query().Get("key"))
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != reqBody {
					t.Errorf("forwarded body = %s", body)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.upstreamCode)
				io.WriteString(w, tt.upstreamBody)
			}))
			defer upstream.Close()

			s := newTestServer(t, nil, NewGeminiProxy("secret-key", upstream.URL+"/v1beta/models/gemini-pro:generateContent", upstream.Client()))

			req := httptest.NewRequest(http.MethodPost, "/api/gemini", strings.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			if w.Code != tt.upstreamCode {
				t.Errorf("status = %d, want %d", w.Code, tt.upstreamCode)
			}
			if w.Body.String() != tt.upstreamBody {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

func TestGeminiProxy_Failures(t *testing.T) {
	nonJSON := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer nonJSON.Close()

	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	downURL := down.URL
	down.Close()

	tests := []struct {
		name       string
		proxy      *GeminiProxy
		body       string
		wantStatus int
	}{
		{name: "invalid body", proxy: NewGeminiProxy("k", nonJSON.URL, nil), body: "{not json", wantStatus: http.StatusBadRequest},
		{name: "non-JSON upstream", proxy: NewGeminiProxy("k", nonJSON.URL, nil), body: `{}`, wantStatus: http.StatusInternalServerError},
		{name: "upstream down", proxy: NewGeminiProxy("k", downURL, nil), body: `{}`, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, tt.proxy)
			req := httptest.NewRequest(http.MethodPost, "/api/gemini", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}
