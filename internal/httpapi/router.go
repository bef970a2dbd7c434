// Package httpapi exposes a running whr.Base over HTTP with chi.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"whole-history-rating/whr"
)

// Server serves read queries against a whr.Base and accepts new games.
type Server struct {
	base *whr.Base
}

// NewServer wraps base. base is not safe for concurrent use, and both
// POST /games and POST /sweep mutate it, so Router serializes every
// request through one mutex; base must not be mutated outside the server
// while it is serving.
func NewServer(base *whr.Base) *Server {
	return &Server{base: base}
}

// Router builds the chi mux: request ID and recovery middleware around a
// small read/write surface over ratings and games.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	var mu sync.Mutex
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/healthz", s.handleHealthz)
	r.Route("/players", func(r chi.Router) {
		r.Get("/", s.handleListPlayers)
		r.Get("/{name}/ratings", s.handlePlayerRatings)
	})
	r.Get("/ratings", s.handleAllRatings)
	r.Get("/loglikelihood", s.handleLogLikelihood)
	r.Post("/games", s.handleCreateGame)
	r.Post("/sweep", s.handleSweep)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.base.PlayerNames())
}

func (s *Server) handlePlayerRatings(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rows := s.base.RatingsForPlayer(name)
	if rows == nil {
		http.Error(w, "unknown player", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleAllRatings returns every player's full rating history, ordered
// by latest-day gamma descending, matching whr.Base.GetOrderedRatings.
func (s *Server) handleAllRatings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.base.GetOrderedRatings())
}

// handleLogLikelihood reports the model's current posterior
// log-likelihood, for monitoring fit quality across sweeps.
func (s *Server) handleLogLikelihood(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]float64{"log_likelihood": s.base.LogLikelihood()})
}

// createGameRequest is the JSON body accepted by POST /games.
type createGameRequest struct {
	Black    string  `json:"black"`
	White    string  `json:"white"`
	Winner   string  `json:"winner"`
	Day      int     `json:"day"`
	Handicap float64 `json:"handicap"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.base.CreateGame(req.Black, req.White, req.Winner, req.Day, req.Handicap); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleSweep runs n Newton sweeps (?n=, default 1) and reports any
// UnstableRating as 409 Conflict rather than 500, since it signals bad
// input data rather than a server bug.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	n := 1
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	if err := s.base.Iterate(n); err != nil {
		if _, ok := err.(*whr.UnstableRating); ok {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"log_likelihood": s.base.LogLikelihood()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
