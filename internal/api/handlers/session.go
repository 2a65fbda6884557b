package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quangvt/relay/internal/agent"
	"github.com/quangvt/relay/internal/domain"
)

type SessionHandler struct {
	sessions *agent.Sessions
}

func NewSessionHandler(sessions *agent.Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// GetContext returns the short-term conversation window for a session.
func (h *SessionHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	sessionID := chi.URLParam(r, "id")

	session, ok := h.sessions.Get(userID, sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	role := domain.Role(r.URL.Query().Get("role"))

	messages := session.ShortTerm.GetMessages(limit, role)
	if messages == nil {
		messages = []domain.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"stats":    session.ShortTerm.Stats(),
	})
}

// Delete removes a session from the registry. Long-term memories are kept.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	sessionID := chi.URLParam(r, "id")

	if !h.sessions.Delete(userID, sessionID) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
