package handler

import (
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/app"
	"github.com/announcarr/announcarr/internal/domain"
	"github.com/announcarr/announcarr/internal/storage"
)

const (
	contentTypeJSON = "application/json"
	probeTimeout    = 10 * time.Second
)

// HTTPHandler serves the container health probes. It reads orchestrator
// state, it never mutates it.
type HTTPHandler struct {
	orchestrator *app.Orchestrator
	server       domain.MediaServer
	store        *storage.ProcessedStore
	buffer       *storage.BufferFile
}

func NewHTTPHandler(orchestrator *app.Orchestrator, server domain.MediaServer, store *storage.ProcessedStore, buffer *storage.BufferFile) *HTTPHandler {
	return &HTTPHandler{
		orchestrator: orchestrator,
		server:       server,
		store:        store,
		buffer:       buffer,
	}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/ready", h.handleReady)
	mux.HandleFunc("/webhook", h.handleWebhook)
}

// webhookPayload is the part of a Plex webhook this server cares about.
type webhookPayload struct {
	Event string `json:"event"`
}

// handleWebhook accepts Plex webhook posts and queues an immediate check
// cycle on library.new events. The cycle does the actual fetch and
// classification, so push and poll share one dedup path.
func (h *HTTPHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	// Plex sends multipart form data with the event JSON in a payload field.
	raw := r.FormValue("payload")
	if raw == "" {
		http.Error(w, "Missing payload", http.StatusBadRequest)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.WithField("error", err).Warn("discarding malformed webhook payload")
		http.Error(w, "Malformed payload", http.StatusBadRequest)
		return
	}

	triggered := payload.Event == "library.new"
	if triggered {
		log.Info("library.new webhook received, queueing check cycle")
		h.orchestrator.RequestCheck()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "accepted",
		"event":     payload.Event,
		"triggered": triggered,
	})
}

// handleHealth is the liveness probe: the process is up, plus the last cycle
// outcome for operator visibility.
func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	status := h.orchestrator.Status()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"uptime_seconds":  int(h.orchestrator.Uptime().Seconds()),
		"last_cycle":      string(status.Outcome),
		"last_cycle_time": status.LastRun,
		"processed_items": h.orchestrator.ProcessedCount(),
		"pending_groups":  h.orchestrator.PendingGroups(),
	})
}

// handleReady is the readiness probe: Plex reachability and state file
// accessibility.
func (h *HTTPHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	plexErr := h.server.Ping(ctx)
	storeOK := h.store.Accessible()
	bufferOK := h.buffer.Accessible()

	code := http.StatusOK
	if plexErr != nil || !storeOK || !bufferOK {
		code = http.StatusServiceUnavailable
	}

	body := map[string]interface{}{
		"plex":   plexErr == nil,
		"store":  storeOK,
		"buffer": bufferOK,
	}
	if plexErr != nil {
		body["plex_error"] = plexErr.Error()
	}
	h.writeJSON(w, code, body)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithField("error", err).Error("failed to encode health response")
	}
}
