package api

import (
	"net/http"
	"time"

	"github.com/voxsum/voxsum/internal/database"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
	Queue         any               `json:"queue,omitempty"`
}

type HealthHandler struct {
	db             *database.DB
	queue          TranscribeQueue
	mailConfigured bool
	mqttConnected  func() bool   // nil when MQTT is not configured
	watcherStatus  func() string // nil when the inbox watcher is not configured
	version        string
	startTime      time.Time
}

func NewHealthHandler(db *database.DB, queue TranscribeQueue, mailConfigured bool, mqttConnected func() bool, watcherStatus func() string, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:             db,
		queue:          queue,
		mailConfigured: mailConfigured,
		mqttConnected:  mqttConnected,
		watcherStatus:  watcherStatus,
		version:        version,
		startTime:      startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Database check
	if err := h.db.HealthCheck(r.Context()); err != nil {
		checks["database"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	checks["transcription"] = h.queue.Provider()

	if h.mailConfigured {
		checks["email"] = "ok"
	} else {
		checks["email"] = "not_configured"
	}

	if h.mqttConnected != nil {
		if h.mqttConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	if h.watcherStatus != nil {
		checks["inbox_watcher"] = h.watcherStatus()
	} else {
		checks["inbox_watcher"] = "not_configured"
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
		Queue:         h.queue.Stats(),
	})
}
