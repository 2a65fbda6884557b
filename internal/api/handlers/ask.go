package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quangvt/relay/internal/agent"
	"github.com/quangvt/relay/internal/router"
)

type AskHandler struct {
	dispatcher *agent.Dispatcher
	sessions   *agent.Sessions
	router     agent.Router
}

func NewAskHandler(dispatcher *agent.Dispatcher, sessions *agent.Sessions, rt agent.Router) *AskHandler {
	return &AskHandler{dispatcher: dispatcher, sessions: sessions, router: rt}
}

type askRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
}

// Ask routes a prompt to a specialized agent, runs it with memory context,
// and returns the response.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	session := h.sessions.GetOrCreate(req.UserID, req.SessionID)

	result, err := h.dispatcher.Handle(r.Context(), session, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, router.ErrEmptyPrompt):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, agent.ErrUnknownAgentType):
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to handle request")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type routeRequest struct {
	Prompt string `json:"prompt"`
}

// Route returns the routing decision for a prompt without invoking any
// handler. Useful for debugging routing behavior.
func (h *AskHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	decision, err := h.router.Route(r.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, router.ErrEmptyPrompt) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to route prompt")
		return
	}

	writeJSON(w, http.StatusOK, decision)
}
