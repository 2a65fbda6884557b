package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quangvt/relay/internal/agent"
	"github.com/quangvt/relay/internal/config"
	"github.com/quangvt/relay/internal/domain"
	"github.com/quangvt/relay/internal/memory"
	"github.com/quangvt/relay/internal/vecstore"
)

type MemoryHandler struct {
	sessions *agent.Sessions
}

func NewMemoryHandler(sessions *agent.Sessions) *MemoryHandler {
	return &MemoryHandler{sessions: sessions}
}

// longTerm resolves the long-term manager for the namespace named by the
// request. user_id is mandatory; session_id empty means user-global scope.
func (h *MemoryHandler) longTerm(w http.ResponseWriter, userID, sessionID string) *memory.LongTerm {
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return nil
	}
	return h.sessions.GetOrCreate(userID, sessionID).LongTerm
}

type createMemoryRequest struct {
	UserID     string   `json:"user_id"`
	SessionID  string   `json:"session_id,omitempty"`
	Content    string   `json:"content"`
	Type       string   `json:"memory_type,omitempty"`
	Importance float64  `json:"importance,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Context    string   `json:"context,omitempty"`
	Source     string   `json:"source,omitempty"`
}

func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lt := h.longTerm(w, req.UserID, req.SessionID)
	if lt == nil {
		return
	}

	id, err := lt.StoreMemory(r.Context(), req.Content, domain.MemoryType(req.Type), req.Importance, req.Tags, req.Context, req.Source)
	if err != nil {
		if errors.Is(err, memory.ErrContentEmpty) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store memory")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	lt := h.longTerm(w, r.URL.Query().Get("user_id"), r.URL.Query().Get("session_id"))
	if lt == nil {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	memories, err := lt.ListAllMemories(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list memories")
		return
	}
	if memories == nil {
		memories = []domain.Memory{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"memories": memories, "count": len(memories)})
}

func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lt := h.longTerm(w, q.Get("user_id"), q.Get("session_id"))
	if lt == nil {
		return
	}

	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	opts := memory.RetrieveOpts{}
	opts.TopK, _ = strconv.Atoi(q.Get("limit"))
	if opts.TopK <= 0 {
		opts.TopK = config.MaxSearchResults()
	}
	opts.Threshold, _ = strconv.ParseFloat(q.Get("threshold"), 64)
	opts.MinImportance, _ = strconv.ParseFloat(q.Get("min_importance"), 64)
	if t := q.Get("memory_type"); t != "" {
		mt := domain.MemoryType(t)
		opts.MemoryType = &mt
	}

	results, err := lt.RetrieveMemories(r.Context(), query, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to search memories")
		return
	}
	if results == nil {
		results = []domain.MemoryWithScore{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (h *MemoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	lt := h.longTerm(w, r.URL.Query().Get("user_id"), r.URL.Query().Get("session_id"))
	if lt == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	m, err := lt.GetMemory(r.Context(), id)
	if err != nil {
		if errors.Is(err, vecstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get memory")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	lt := h.longTerm(w, r.URL.Query().Get("user_id"), r.URL.Query().Get("session_id"))
	if lt == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	if err := lt.DeleteMemory(r.Context(), id); err != nil {
		if errors.Is(err, vecstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete memory")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MemoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	lt := h.longTerm(w, r.URL.Query().Get("user_id"), r.URL.Query().Get("session_id"))
	if lt == nil {
		return
	}

	if err := lt.ClearAllMemories(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear memories")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
