package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wealthdesk/advisor-ai-platform/internal/dialogue"
	"github.com/wealthdesk/advisor-ai-platform/internal/webchat"
	"github.com/wealthdesk/advisor-ai-platform/pkg/logging"
)

// Config holds router configuration. WebchatToken, when set, gates the
// webchat routes behind a shared channel token.
type Config struct {
	Logger          *logging.Logger
	DialogueHandler *dialogue.Handler
	WebchatHandler  *webchat.Handler
	WebchatToken    string
	MetricsHandler  http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.DialogueHandler != nil {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/start", cfg.DialogueHandler.Start)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Post("/turns", cfg.DialogueHandler.Turn)
				r.Get("/history", cfg.DialogueHandler.History)
				r.Get("/state", cfg.DialogueHandler.State)
			})
		})
	}

	if cfg.WebchatHandler != nil {
		r.Route("/webchat", func(r chi.Router) {
			r.Use(requireChannelToken(cfg.WebchatToken))
			r.Get("/ws", cfg.WebchatHandler.HandleWebSocket)
			r.Post("/message", cfg.WebchatHandler.HandleMessage)
			r.Get("/history", cfg.WebchatHandler.HandleHistory)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
