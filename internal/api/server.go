// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/polarsim/internal/agents"
	"github.com/talgya/polarsim/internal/engine"
	"github.com/talgya/polarsim/internal/persistence"
)

// Server serves simulation state over HTTP.
type Server struct {
	Sim         *engine.Simulation
	Eng         *engine.Engine
	DB          *persistence.DB // Optional; history and snapshots need it
	RunID       string
	Port        int
	AdminKey    string // Bearer token for POST endpoints. Empty = POST disabled.
	CORSOrigins []string

	limiter *RateLimiter
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	if s.limiter == nil {
		s.limiter = NewRateLimiter(30, time.Minute)
	}

	r := chi.NewRouter()
	r.Use(requestMetrics)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	origins := append([]string{
		"http://localhost:5173",
		"http://localhost:3000",
	}, s.CORSOrigins...)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (GET, read-only).
		r.Get("/status", s.handleStatus)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/agents", s.handleAgents)
		r.Get("/media", s.handleMedia)
		r.Get("/history", s.handleHistory)
		r.Get("/runs", s.handleRuns)
		r.Get("/speed", s.handleSpeed)

		// Admin endpoints (POST, require bearer token). Failed auth
		// attempts count against the rate limit too.
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware)
			r.Use(s.adminOnly)
			r.Post("/speed", s.handleSpeed)
			r.Post("/stop", s.handleStop)
			r.Post("/snapshot", s.handleSnapshot)
		})
	})

	return r
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer token auth.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no POLARSIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	m := s.Sim.Metrics()
	status := map[string]any{
		"run_id":        s.RunID,
		"seed":          s.Sim.Seed(),
		"tick":          s.Sim.Tick(),
		"grid":          s.Sim.Grid.String(),
		"population":    m.Population,
		"media":         len(s.Sim.Media),
		"mean_ideology": m.MeanIdeology,
		"mean_ap":       m.MeanAP,
		"happy_percent": m.HappyPercent,
		"partisan_gap":  m.PartisanGap,
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
		status["max_ticks"] = s.Eng.MaxTicks
	}
	writeJSON(w, status)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Metrics())
}

// handleAgents lists humans, optionally filtered by ?party= and ?happy=.
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	var party string
	if p := r.URL.Query().Get("party"); p != "" {
		parsed, err := agents.ParseParty(p)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		party = parsed.String()
	}
	var happy *bool
	if h := r.URL.Query().Get("happy"); h != "" {
		v, err := strconv.ParseBool(h)
		if err != nil {
			http.Error(w, "happy must be true or false", http.StatusBadRequest)
			return
		}
		happy = &v
	}

	result := []engine.AgentSnapshot{}
	for _, a := range s.Sim.Snapshot() {
		if party != "" && a.Party != party {
			continue
		}
		if happy != nil && a.Happy != *happy {
			continue
		}
		result = append(result, a)
	}
	writeJSON(w, result)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.MediaSnapshots())
}

// handleHistory returns stored per-tick metrics for ?run= (default: this
// run) between ?from= and ?to=.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	runID := s.RunID
	if v := r.URL.Query().Get("run"); v != "" {
		runID = v
	}
	var from, to uint64
	if f := r.URL.Query().Get("from"); f != "" {
		if v, err := strconv.ParseUint(f, 10, 64); err == nil {
			from = v
		}
	}
	if t := r.URL.Query().Get("to"); t != "" {
		if v, err := strconv.ParseUint(t, 10, 64); err == nil {
			to = v
		}
	}

	rows, err := s.DB.History(runID, from, to)
	if err != nil {
		slog.Error("history query failed", "run", runID, "error", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []engine.Metrics{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	runs, err := s.DB.ListRuns(limit)
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "runs query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not running", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not running", http.StatusServiceUnavailable)
		return
	}
	s.Eng.Stop()
	slog.Info("stop requested", "tick", s.Sim.Tick())
	writeJSON(w, map[string]any{
		"tick":    s.Sim.Tick(),
		"message": "stopping after current tick",
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	tick := s.Sim.Tick()
	snap := s.Sim.Snapshot()
	if err := s.DB.SaveSnapshot(s.RunID, tick, snap); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    tick,
		"agents":  len(snap),
		"message": "snapshot saved",
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
