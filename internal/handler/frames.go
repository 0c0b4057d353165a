package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/daverlon/KotlinYOLO/internal/dto"
	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/service/pipeline"
	"github.com/daverlon/KotlinYOLO/internal/service/storage"
	ws "github.com/daverlon/KotlinYOLO/internal/service/websocket"
)

const (
	defaultFramesLimit = 50
	maxFramesLimit     = 500
)

// ModelStatus reports whether the inference engine has a model loaded.
type ModelStatus interface {
	Loaded() bool
}

// GetFramesHandler returns recent journaled frames with their detections.
// Query: limit (default 50, also for 0), offset, session, label, since (RFC 3339).
func GetFramesHandler(journal *storage.JournalService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		limit := atoiDefault(q.Get("limit"), defaultFramesLimit)
		if limit == 0 {
			limit = defaultFramesLimit
		}
		filter := &dto.FrameFilter{
			SessionID: q.Get("session"),
			Label:     q.Get("label"),
			Limit:     min(limit, maxFramesLimit),
			Offset:    atoiDefault(q.Get("offset"), 0),
		}
		if since := q.Get("since"); since != "" {
			t, err := time.Parse(time.RFC3339, since)
			if err != nil {
				http.Error(w, "invalid since: "+err.Error(), http.StatusBadRequest)
				return
			}
			filter.Since = t
		}

		page, err := journal.Recent(filter)
		if err != nil {
			logger.Error("Error querying frames from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// GetFrameHandler returns one journaled frame by id (/api/frames/{id}).
func GetFrameHandler(journal *storage.JournalService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid frame id", http.StatusBadRequest)
			return
		}

		record, err := journal.Frame(id)
		if err != nil {
			logger.Error("Error reading frame %d from database: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if record == nil {
			http.Error(w, "frame not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

// StatsResponse is served by /api/stats.
type StatsResponse struct {
	Worker          pipeline.StatsSnapshot `json:"worker"`
	Viewers         int                    `json:"viewers"`
	JournalPending  int                    `json:"journalPending"`
	JournalOverflow uint64                 `json:"journalOverflow"`
	Labels          map[string]int         `json:"labels,omitempty"`
}

// GetStatsHandler reports worker counters, viewer count and journal state.
func GetStatsHandler(worker *pipeline.Worker, hub *ws.HubService, journal *storage.JournalService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatsResponse{
			Worker:          worker.Stats(),
			Viewers:         hub.GetClientCount(),
			JournalPending:  journal.Pending(),
			JournalOverflow: journal.Overflow(),
		}
		counts, err := journal.LabelCounts()
		if err != nil {
			logger.Error("Error counting labels: %v", err)
		} else {
			resp.Labels = counts
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HealthHandler answers 200 when a model is loaded and 503 otherwise.
func HealthHandler(model ModelStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{"status": "ok", "model": model.Loaded()}
		if !model.Loaded() {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// atoiDefault returns the non-negative integer in s, or def.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
