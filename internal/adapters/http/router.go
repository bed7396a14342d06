package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/light-analyzer/internal/domain"
	"github.com/quentinrf/light-analyzer/internal/ports"
)

// StatusResponse is the JSON view of ports.Status.
type StatusResponse struct {
	Active        bool    `json:"active"`
	ReadingCount  uint64  `json:"reading_count"`
	LastLux       float32 `json:"last_lux"`
	WriteFailures uint64  `json:"write_failures"`
	SessionID     string  `json:"session_id,omitempty"`
	LogPath       string  `json:"log_path"`
}

// SessionResponse is the JSON view of a journaled session.
type SessionResponse struct {
	ID            string     `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	StoppedAt     *time.Time `json:"stopped_at,omitempty"`
	Running       bool       `json:"running"`
	ReadingCount  uint64     `json:"reading_count"`
	WriteFailures uint64     `json:"write_failures"`
	LogPath       string     `json:"log_path"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter creates a router exposing session control and the session journal
func NewRouter(controller ports.Controller, journal domain.SessionRepository) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)

	// registered on the root router so a method mismatch yields 405
	r.HandleFunc("/api/v1/session", getSessionHandler(controller)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/session/start", startSessionHandler(controller)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/session/stop", stopSessionHandler(controller)).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/sessions", listSessionsHandler(journal)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sessions/latest", latestSessionHandler(journal)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sessions/{id}", getJournaledSessionHandler(journal)).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func getSessionHandler(controller ports.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toResponse(controller.Status()))
	}
}

func startSessionHandler(controller ports.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := controller.Start(r.Context()); err != nil {
			log.Error().Err(err).Msg("failed to start sampling")
			writeJSON(w, statusCode(err), errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, toResponse(controller.Status()))
	}
}

func stopSessionHandler(controller ports.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		controller.Stop(r.Context())
		writeJSON(w, http.StatusOK, toResponse(controller.Status()))
	}
}

func listSessionsHandler(journal domain.SessionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, end, err := domain.ParseRange(q.Get("from"), q.Get("to"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		sessions, err := journal.GetSessionsInRange(r.Context(), start, end)
		if err != nil {
			log.Error().Err(err).Msg("failed to list sessions")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list sessions"})
			return
		}

		resp := make([]SessionResponse, 0, len(sessions))
		for _, s := range sessions {
			resp = append(resp, toSessionResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func latestSessionHandler(journal domain.SessionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := journal.GetLatestSession(r.Context())
		writeSession(w, session, err)
	}
}

func getJournaledSessionHandler(journal domain.SessionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := journal.GetSession(r.Context(), mux.Vars(r)["id"])
		writeSession(w, session, err)
	}
}

func writeSession(w http.ResponseWriter, session *domain.SessionRecord, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to read session journal")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read session journal"})
	default:
		writeJSON(w, http.StatusOK, toSessionResponse(session))
	}
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrSensorUnavailable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, domain.ErrDirectoryCreateFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toResponse(s ports.Status) StatusResponse {
	return StatusResponse{
		Active:        s.Active,
		ReadingCount:  s.ReadingCount,
		LastLux:       s.LastLux,
		WriteFailures: s.WriteFailures,
		SessionID:     s.SessionID,
		LogPath:       s.LogPath,
	}
}

func toSessionResponse(s *domain.SessionRecord) SessionResponse {
	resp := SessionResponse{
		ID:            s.ID,
		StartedAt:     s.StartedAt,
		Running:       s.Running(),
		ReadingCount:  s.ReadingCount,
		WriteFailures: s.WriteFailures,
		LogPath:       s.LogPath,
	}
	if !s.Running() {
		stopped := s.StoppedAt
		resp.StoppedAt = &stopped
	}
	return resp
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}
