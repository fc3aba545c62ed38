// Package api provides the HTTP API for observing and steering the
// environment hub.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/world-api/internal/engine"
	"github.com/talgya/world-api/internal/environment"
	"github.com/talgya/world-api/internal/persistence"
	"github.com/talgya/world-api/internal/presets"
)

const (
	maxStreamConns = 16
	writeTimeout   = 5 * time.Second
)

// Server serves the environment over HTTP.
type Server struct {
	Eng     *engine.Engine
	View    *View
	Events  *Broadcaster
	DB      *persistence.DB // optional; snapshot and change endpoints need it
	Presets *presets.Store  // optional
	Logger  *slog.Logger

	Port        int
	AdminKey    string // Bearer token for POST endpoints. Empty = POST disabled.
	RateLimit   int    // POST requests per minute per IP (default 5)
	CORSOrigins []string

	// OnRestore runs on the engine goroutine after a snapshot is restored,
	// for rebinding extensions that hold runtime resources.
	OnRestore func(h *environment.Hub)

	streamConns atomic.Int32
	started     time.Time
	upgrader    websocket.Upgrader
	httpServer  *http.Server
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.started.IsZero() {
		s.started = time.Now()
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	rate := s.RateLimit
	if rate <= 0 {
		rate = 5
	}
	limiter := NewRateLimiter(rate, time.Minute)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return s.adminOnly(RateLimitMiddleware(limiter, h))
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/state", s.handleState)
	mux.HandleFunc("/api/v1/fields", s.handleFields)
	mux.HandleFunc("/api/v1/changes", s.handleChanges)
	mux.HandleFunc("/api/v1/stream", s.handleStream)
	mux.HandleFunc("/api/v1/ws", s.handleWS)

	// Admin endpoints (POST require bearer token; GET reads where supported).
	mux.HandleFunc("/api/v1/field", admin(s.handleField))
	mux.HandleFunc("/api/v1/active", admin(s.handleActive))
	mux.HandleFunc("/api/v1/time", admin(s.handleTime))
	mux.HandleFunc("/api/v1/speed", admin(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", admin(s.handleSnapshot))
	mux.HandleFunc("/api/v1/preset", admin(s.handlePreset))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving the HTTP API on Port in a goroutine.
func (s *Server) Start() {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	addr := fmt.Sprintf(":%d", s.Port)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		s.Logger.Error("HTTP listen failed", "addr", addr, "error", err)
		return
	}
	s.Serve(l)
}

// Serve begins serving the HTTP API on l in a goroutine. Request contexts
// are cancelled when Shutdown starts, which ends open streams.
func (s *Server) Serve(l net.Listener) {
	base, cancel := context.WithCancel(context.Background())
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	s.httpServer.RegisterOnShutdown(cancel)
	s.Logger.Info("HTTP API starting", "addr", l.Addr().String(), "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the listener started by Start or Serve.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no WORLDAPI_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.View.State()
	info := s.View.Info()
	status := map[string]any{
		"name":        "worldhub",
		"frame":       s.Eng.Frame(),
		"speed":       s.Eng.Speed(),
		"running":     s.Eng.Running(),
		"mode":        s.Eng.Hub().Mode().String(),
		"active":      state.Active,
		"game_time":   state.GameTime,
		"time_of_day": environment.DecimalHours(state.GameTime),
		"display":     engine.FormatGameTime(state.GameTime, state.Latitude),
		"season":      engine.SeasonName(uint8(state.Season)),
		"last_sync":   info,
		"subscribers": s.Events.Subscribers(),
		"dropped":     s.Events.Dropped(),
		"uptime":      time.Since(s.started).Round(time.Second).String(),
	}
	writeJSON(w, status)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.View.State())
}

type fieldInfo struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	state := s.View.State()
	out := make([]fieldInfo, 0, len(environment.Fields()))
	for _, f := range environment.Fields() {
		v, _ := state.Get(f)
		out = append(out, fieldInfo{Name: f.String(), Category: f.Category().String(), Value: v})
	}
	writeJSON(w, out)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, 500)
	}
	changes, err := s.DB.RecentChanges(r.Context(), limit)
	if err != nil {
		s.Logger.Error("recent changes failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, changes)
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func postOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
