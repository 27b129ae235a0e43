// Package webchat serves the browser chat transport on top of the dialogue
// service: a WebSocket for real-time turns plus an HTTP fallback.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wealthdesk/advisor-ai-platform/internal/dialogue"
	"github.com/wealthdesk/advisor-ai-platform/pkg/logging"
)

// Handler manages web chat connections and messages.
type Handler struct {
	service dialogue.Service
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // sessionID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	State     dialogue.State   `json:"state,omitempty"`
	Done      bool             `json:"done,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler.
func NewHandler(service dialogue.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:  service,
		logger:   logger,
		sessions: make(map[string]*wsConn),
	}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		started, err := h.service.StartSession(ctx)
		if err != nil {
			h.logger.Error("webchat: failed to start session", "error", err)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "could not start a session"})
			return
		}
		sessionID = started.SessionID
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID, State: started.State})
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Role:      dialogue.RoleAssistant,
			Text:      started.Reply,
			Timestamp: started.Timestamp.Format(time.RFC3339),
		})
	} else {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
		h.sendHistory(ctx, conn, sessionID)
	}

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.sessions[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == wsc {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.processMessage(ctx, sessionID, msg.Text)
	}
}

func (h *Handler) sendHistory(ctx context.Context, conn *websocket.Conn, sessionID string) {
	msgs, err := h.service.GetHistory(ctx, sessionID)
	if err != nil || len(msgs) == 0 {
		return
	}
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
}

func (h *Handler) processMessage(ctx context.Context, sessionID, text string) {
	h.sendToSession(sessionID, OutboundMessage{Type: "typing"})

	resp, err := h.service.ProcessTurn(ctx, dialogue.TurnRequest{
		SessionID: sessionID,
		Message:   text,
	})
	if err != nil {
		h.logger.Error("webchat: failed to process turn", "session_id", sessionID, "error", err)
		h.sendToSession(sessionID, OutboundMessage{
			Type: "error",
			Text: "Sorry, something went wrong. Please try again.",
		})
		return
	}

	h.sendToSession(sessionID, OutboundMessage{
		Type:      "message",
		Role:      dialogue.RoleAssistant,
		Text:      resp.Reply,
		State:     resp.State,
		Done:      resp.Done,
		Timestamp: resp.Timestamp.Format(time.RFC3339),
	})
}

func (h *Handler) sendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(wsc.conn, msg)
}

// HandleMessage is the HTTP fallback for clients without WebSocket support.
// It processes the turn synchronously and returns the reply.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	if req.SessionID == "" {
		started, err := h.service.StartSession(r.Context())
		if err != nil {
			h.logger.Error("webchat: failed to start session", "error", err)
			http.Error(w, "could not start a session", http.StatusInternalServerError)
			return
		}
		req.SessionID = started.SessionID
	}

	resp, err := h.service.ProcessTurn(r.Context(), dialogue.TurnRequest{
		SessionID: req.SessionID,
		Message:   req.Text,
	})
	if err != nil {
		if errors.Is(err, dialogue.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: failed to process turn", "session_id", req.SessionID, "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	msgs, err := h.service.GetHistory(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, dialogue.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: failed to load history", "session_id", sessionID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": sessionID,
		"messages":   history,
	})
}
