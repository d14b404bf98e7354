package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/auth"
	"github.com/lutefd/tabletop-api/internal/domain/decks"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
	domainstats "github.com/lutefd/tabletop-api/internal/domain/stats"
	"github.com/lutefd/tabletop-api/internal/metrics"
	"github.com/lutefd/tabletop-api/internal/projections"
	"go.uber.org/zap"
)

type Dependencies struct {
	Service       *projections.Service
	Metrics       *metrics.Collector
	Logger        *zap.Logger
	APIToken      string
	DefaultUserID uuid.UUID
}

type Server struct {
	projection *projections.Service
	metrics    *metrics.Collector
	logger     *zap.Logger
	auth       auth.Middleware
}

func NewServer(deps Dependencies) *Server {
	s := &Server{
		projection: deps.Service,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		auth:       auth.NewMiddleware(deps.APIToken, deps.DefaultUserID),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector(time.Now().UTC())
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Use(s.auth.Guard)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/players/{userID}/stats", s.handlePlayerStats)
		r.Post("/decks", s.handleSaveDeck)
		r.Get("/decks/{deckID}", s.handleGetDeck)
		r.Get("/decks/{deckID}/stats", s.handleDeckStats)
		r.Post("/decks/{deckID}/tags", s.handleRetagDeck)
		r.Post("/archetypes", s.handleArchetypes)
		r.Get("/metrics", s.handleMetrics)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload sessions.Session
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.projection.RecordSession(r.Context(), payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	from, err := parseFrom(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}
	items, err := s.projection.ListSessions(r.Context(), limit, from)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": items})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	period, err := domainstats.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	types := make([]sessions.GameType, 0)
	for _, raw := range r.URL.Query()["gameType"] {
		gt := sessions.GameType(raw)
		if !gt.Valid() {
			writeError(w, http.StatusBadRequest, "unknown gameType "+strconv.Quote(raw))
			return
		}
		types = append(types, gt)
	}

	entries, err := s.projection.Leaderboard(r.Context(), projections.LeaderboardQuery{Period: period, GameTypes: types})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":      period,
		"leaderboard": entries,
	})
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	result, err := s.projection.PlayerStats(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSaveDeck(w http.ResponseWriter, r *http.Request) {
	var payload decks.Deck
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.OwnerID == nil {
		if userID, ok := auth.UserIDFromContext(r.Context()); ok {
			payload.OwnerID = &userID
		}
	}
	saved, err := s.projection.SaveDeck(r.Context(), payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	deckID, ok := uuidParam(w, r, "deckID")
	if !ok {
		return
	}
	d, err := s.projection.Deck(r.Context(), deckID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeckStats(w http.ResponseWriter, r *http.Request) {
	deckID, ok := uuidParam(w, r, "deckID")
	if !ok {
		return
	}
	result, err := s.projection.DeckStats(r.Context(), deckID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRetagDeck(w http.ResponseWriter, r *http.Request) {
	deckID, ok := uuidParam(w, r, "deckID")
	if !ok {
		return
	}
	result, err := s.projection.RetagDeck(r.Context(), deckID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleArchetypes(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Cards []decks.DeckCard `json:"cards"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tags, err := s.projection.TagCards(r.Context(), payload.Cards)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// fail maps service errors onto status codes. Unexpected errors are logged
// and hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, projections.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, projections.ErrInvalidSession),
		errors.Is(err, projections.ErrInvalidDeck),
		errors.Is(err, domainstats.ErrUnknownPeriod):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		latency := time.Since(start)
		s.metrics.Observe(metrics.RequestSample{
			Path:      route,
			Method:    r.Method,
			Status:    status,
			Latency:   latency,
			Timestamp: start.UTC(),
		})
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", latency),
		)
	})
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseFrom(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
