package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/livechatter/internal/app"
	"github.com/antoniostano/livechatter/internal/config"
	"github.com/antoniostano/livechatter/internal/observability"
	"github.com/antoniostano/livechatter/internal/session"
)

type Server struct {
	cfg      config.Config
	app      *app.App
	upgrader websocket.Upgrader
}

func New(cfg config.Config, application *app.App) *Server {
	return &Server{
		cfg: cfg,
		app: application,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the
				// same origin unless explicitly opened up. Narration
				// control should not be drivable by arbitrary sites if
				// the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Get("/v1/sessions", s.handleListSessions)
	r.Get("/v1/sessions/{id}", s.handleGetSession)
	r.Post("/v1/sessions/{id}/stop", s.handleStopSession)
	r.Post("/v1/sessions/{id}/quick-summary", s.handleQuickSummary)
	r.Get("/v1/sessions/{id}/messages", s.handleSessionMessages)
	r.Get("/v1/sessions/{id}/summaries", s.handleSessionSummaries)
	r.Get("/v1/sessions/{id}/events", s.handleSessionEvents)
	r.Get("/v1/voices", s.handleListVoices)
	r.Post("/v1/tts/test", s.handleTTSTest)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.app.Sessions.ActiveCount(),
		"speech_backend":  s.app.SpeechDetail,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errEmptyBody) {
			respondError(w, http.StatusBadRequest, "invalid_request", "request body is required")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Stream) == "" {
		respondError(w, http.StatusBadRequest, "missing_stream", "stream id or url is required")
		return
	}

	sess, err := s.app.StartSession(r.Context(), req.Stream, req.Mode, req.Voice)
	if err != nil {
		respondError(w, http.StatusBadRequest, "session_start_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID: sess.ID,
		VideoID:   sess.VideoID,
		Backend:   sess.Backend,
		Mode:      sess.Mode,
		Status:    sess.Status,
		StartedAt: sess.StartedAt,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"sessions": s.app.Sessions.List()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.StopSession(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleQuickSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	window := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("count")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_count", "count must be an integer")
			return
		}
		window = n
	}

	text, err := s.app.QuickSummary(r.Context(), id, window)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "summary": text})
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.app.Sessions.Get(id); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	limit := queryInt(r, "limit", 50)
	msgs, err := s.app.Archive.RecentMessages(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "messages": msgs})
}

func (s *Server) handleSessionSummaries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.app.Sessions.Get(id); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	limit := queryInt(r, "limit", 20)
	sums, err := s.app.Archive.RecentSummaries(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "summaries": sums})
}

// handleSessionEvents streams a session's live feed over a websocket.
// The stream ends when the session finishes or the client goes away.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	events, cancel, err := s.app.Subscribe(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Reader goroutine only watches for the client closing.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

type voicesResponse struct {
	Backend string         `json:"backend"`
	Voices  []narrateVoice `json:"voices"`
}

type narrateVoice struct {
	DisplayName string `json:"display_name"`
	ID          string `json:"id"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	backend, voices, err := s.app.Voices(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "voice_catalog_error", err.Error())
		return
	}
	out := voicesResponse{Backend: backend, Voices: make([]narrateVoice, 0, len(voices))}
	for _, v := range voices {
		out.Voices = append(out.Voices, narrateVoice{DisplayName: v.DisplayName, ID: v.ID})
	}
	respondJSON(w, http.StatusOK, out)
}

type ttsTestRequest struct {
	Text  string `json:"text,omitempty"`
	Voice string `json:"voice,omitempty"`
}

func (s *Server) handleTTSTest(w http.ResponseWriter, r *http.Request) {
	var req ttsTestRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.app.SpeakTest(req.Text, req.Voice); err != nil {
		respondError(w, http.StatusServiceUnavailable, "tts_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "speaking"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
