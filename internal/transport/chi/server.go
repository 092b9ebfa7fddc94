// Package chi exposes search sessions over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/events"
	"github.com/kailas-cloud/portalsearch/internal/i18n"
	healthuc "github.com/kailas-cloud/portalsearch/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/portalsearch/internal/usecase/session"
)

const maxBodyBytes = 1 << 20

// Server holds the HTTP handlers of the session API.
type Server struct {
	sessions      *sessionuc.Service
	hub           *events.Hub
	health        *healthuc.Service
	labels        *i18n.Labels
	logger        *zap.Logger
	upgrader      websocket.Upgrader
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. An empty allowedOrigins list accepts
// event stream connections from any origin.
func NewServer(
	sessions *sessionuc.Service,
	hub *events.Hub,
	health *healthuc.Service,
	labels *i18n.Labels,
	allowedOrigins []string,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessions:      sessions,
		hub:           hub,
		health:        health,
		labels:        labels,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return s
}

// Routes registers all endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/sessions", s.CreateSession)
	r.Get("/sessions/{id}", s.GetSession)
	r.Delete("/sessions/{id}", s.CloseSession)
	r.Put("/sessions/{id}/query", s.SetQuery)
	r.Post("/sessions/{id}/hits", s.PushHits)
	r.Delete("/sessions/{id}/hits", s.RemoveHits)
	r.Get("/sessions/{id}/groups", s.ListGroups)
	r.Get("/sessions/{id}/events", s.StreamEvents)
}

// CreateSession handles POST /sessions. A query in the body starts the initial search.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	v, err := s.sessions.Open(r.Context(), req.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+v.ID)
	writeJSON(w, http.StatusCreated, s.presenter(r).session(&v))
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.presenter(r).session(&v))
}

// CloseSession handles DELETE /sessions/{id}.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetQuery handles PUT /sessions/{id}/query. Results follow on the event stream.
func (s *Server) SetQuery(w http.ResponseWriter, r *http.Request) {
	var req SetQueryRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	v, err := s.sessions.Search(r.Context(), chi.URLParam(r, "id"), req.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.presenter(r).session(&v))
}

// PushHits handles POST /sessions/{id}/hits.
func (s *Server) PushHits(w http.ResponseWriter, r *http.Request) {
	var req PushHitsRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	list, err := hit.ParseList(req.List)
	if err != nil {
		s.handleDomainError(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidList, err))
		return
	}
	origin := hit.Origin(req.Origin)
	if origin != "" && origin != hit.Paste {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "origin must be empty or \"paste\"")
		return
	}

	p := s.presenter(r)
	hits := make([]hit.Hit, 0, len(req.Hits))
	for i := range req.Hits {
		hits = append(hits, p.parseHit(&req.Hits[i]))
	}
	v, err := s.sessions.PushHits(r.Context(), chi.URLParam(r, "id"), list, origin, hits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.session(&v))
}

// RemoveHits handles DELETE /sessions/{id}/hits. Every query parameter except
// list is a field that must match; type accepts a kind key or a label.
func (s *Server) RemoveHits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := hit.ParseList(q.Get("list"))
	if err != nil {
		s.handleDomainError(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidList, err))
		return
	}

	fields := make(map[string]string, len(q))
	for k := range q {
		if k == "list" || k == "access_token" {
			continue
		}
		fields[k] = q.Get(k)
	}
	if t, ok := fields["type"]; ok {
		fields["type"] = s.labels.Resolve(t).Key()
	}
	f, err := hit.MatchFields(fields)
	if err != nil {
		s.handleDomainError(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err))
		return
	}

	n, err := s.sessions.RemoveHits(r.Context(), chi.URLParam(r, "id"), list, f)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RemoveHitsResponse{Removed: n})
}

// ListGroups handles GET /sessions/{id}/groups, the show-all view.
func (s *Server) ListGroups(w http.ResponseWriter, r *http.Request) {
	var (
		typ   *string
		limit *int
	)
	if err := runtime.BindQueryParameter("form", true, false, "type", r.URL.Query(), &typ); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid type parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid limit parameter")
		return
	}
	if limit != nil && *limit < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "limit must not be negative")
		return
	}

	var only *hit.Type
	if typ != nil && *typ != "" {
		t := s.labels.Resolve(*typ)
		only = &t
	}
	n := 0
	if limit != nil {
		n = *limit
	}

	groups, err := s.sessions.Groups(r.Context(), chi.URLParam(r, "id"), only, n)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.presenter(r).groups(groups))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) presenter(r *http.Request) presenter {
	return presenter{labels: s.labels, lang: s.labels.Match(r.Header.Get("Accept-Language"))}
}

// decode reads a JSON body into v. An empty body is accepted only when optional.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
	return false
}
