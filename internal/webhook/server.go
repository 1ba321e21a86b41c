// Package webhook exposes the engine's event-driven invocation surface: an
// HTTP listener that turns incoming hook deliveries into trigger
// evaluations and pipeline runs.
package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vk/gridci/internal/app"
	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/trigger"
)

// maxPayloadBytes bounds hook bodies; deliveries are tiny JSON documents.
const maxPayloadBytes = 1 << 20

// Server serves hook deliveries for one loaded pipeline.
type Server struct {
	app *app.App
}

// NewServer creates a webhook server around an initialized app.
func NewServer(a *app.App) *Server {
	return &Server{app: a}
}

// eventPayload is the JSON body of a hook delivery.
type eventPayload struct {
	Ref string `json:"ref"`
}

// runResponse is the JSON answer to a hook delivery.
type runResponse struct {
	RunID  string `json:"run_id,omitempty"`
	Status string `json:"status"`
}

// Router builds the server's HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Post("/hooks/{kind}", s.handleHook)
	return r
}

// Listen blocks serving the router on the given address.
func (s *Server) Listen(addr string) error {
	s.app.Logger().Info("🪝 Webhook listener starting.", "address", addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.app.Logger().Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK\n")
}

// handleHook evaluates one delivery against the pipeline's triggers and,
// on a match, executes a run synchronously. Deliveries whose event does
// not match any trigger are acknowledged as skipped.
func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	logger := s.app.Logger()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	var payload eventPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}
	}

	ev := trigger.Event{Kind: chi.URLParam(r, "kind"), Ref: payload.Ref}
	logger.Info("Hook delivery received.", "event", ev.Kind, "ref", ev.Ref)

	result, err := s.app.Run(r.Context(), ev)
	if err != nil {
		// Run errors here mean the definition itself is broken (e.g. an
		// unrecognized trigger kind), not the delivery.
		var invalidTrigger *config.InvalidTriggerSpecError
		status := http.StatusInternalServerError
		if errors.As(err, &invalidTrigger) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	resp := runResponse{Status: "skipped"}
	if result != nil {
		resp.RunID = result.RunID
		if result.Failed() {
			resp.Status = "failed"
		} else {
			resp.Status = "succeeded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
