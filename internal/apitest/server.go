// Package apitest runs an in-process stand-in for the Kling API and its gateway so the
// client and CLI can be exercised without network access.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/klingkit/middleware"
)

// Recorded is one request as the server saw it.
type Recorded struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	RequestID     string
	ContentType   string
	Body          []byte
}

// Options configures a Server. Exactly one of Secrets or GatewayToken should be set.
type Options struct {
	// Secrets enables signed-token verification for direct mode.
	Secrets middleware.StaticSecrets
	// GatewayToken enables static bearer checks under the /kling prefix.
	GatewayToken string
	Now          func() time.Time
}

// Server is a fake API. Handlers registered with Handle take precedence over the defaults.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []Recorded
	overrides map[string]http.HandlerFunc
}

// New starts a Server; callers must Close it.
func New(opts Options) *Server {
	s := &Server{overrides: map[string]http.HandlerFunc{}}

	var h http.Handler = http.HandlerFunc(s.route)
	switch {
	case opts.GatewayToken != "":
		h = gatewayAuth(opts.GatewayToken, h)
	default:
		h = middleware.Guard(opts.Secrets, opts.Now)(h)
	}
	s.Server = httptest.NewServer(s.record(h))
	return s
}

// Handle overrides the response for method and path (without the gateway prefix).
func (s *Server) Handle(method, path string, fn http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = fn
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// Last returns the most recent request.
func (s *Server) Last() (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Recorded{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			RawQuery:      r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-Id"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/kling")

	s.mu.Lock()
	override := s.overrides[r.Method+" "+path]
	s.mu.Unlock()
	if override != nil {
		override(w, r)
		return
	}

	switch {
	case r.Method == http.MethodPost && path == "/v1/general/custom-elements":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteJSON(w, http.StatusBadRequest, map[string]any{"code": 1201, "message": "invalid request body"})
			return
		}
		Succeed(w, map[string]any{"element_id": int64(860504398216347659), "task_id": "task-element-1", "task_status": "submitted"})
	case r.Method == http.MethodPost && path == "/v1/general/custom-voices":
		Succeed(w, map[string]any{"task_id": "task-voice-1", "task_status": "submitted"})
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v1/general/custom-voices/"):
		Succeed(w, map[string]any{"voice_id": strings.TrimPrefix(path, "/v1/general/custom-voices/"), "voice_name": "sample"})
	case r.Method == http.MethodGet && (path == "/v1/general/custom-elements" ||
		path == "/v1/general/presets-elements" ||
		path == "/v1/general/custom-voices" ||
		path == "/v1/general/presets-voices"):
		Succeed(w, []map[string]any{})
	case r.Method == http.MethodDelete && (path == "/v1/general/delete-elements" || path == "/v1/general/delete-voices"):
		Succeed(w, map[string]any{})
	default:
		WriteJSON(w, http.StatusNotFound, map[string]any{"code": 1203, "message": "resource not found"})
	}
}

func gatewayAuth(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			WriteJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"message": "invalid token", "type": "gateway_error"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Succeed writes a code-0 envelope around data.
func Succeed(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"code":       0,
		"message":    "SUCCEED",
		"request_id": "req-fake",
		"data":       data,
	})
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
