package dialogue

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wealthdesk/advisor-ai-platform/pkg/logging"
)

// Handler wires HTTP requests to the dialogue service.
type Handler struct {
	service Service
	logger  *logging.Logger
}

// NewHandler creates a dialogue handler.
func NewHandler(service Service, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Start handles POST /sessions/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.StartSession(r.Context())
	if err != nil {
		h.logger.Error("failed to start session", "error", err)
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// Turn handles POST /sessions/{sessionID}/turns.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode turn request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.SessionID = sessionID
	if req.Message == "" {
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.ProcessTurn(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to process turn", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to process turn", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// History handles GET /sessions/{sessionID}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.service.GetHistory(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load history", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// State handles GET /sessions/{sessionID}/state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	state, err := h.service.GetState(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load state", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to load state", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"state":      state,
		"terminal":   state.Terminal(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
