package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/dnd-master-desktop/internal/campaign"
)

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

type HealthCheck struct {
	Status   HealthStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
	Duration string       `json:"duration,omitempty"`
}

type HealthResponse struct {
	Status       HealthStatus           `json:"status"`
	Timestamp    string                 `json:"timestamp"`
	Uptime       string                 `json:"uptime"`
	GoVersion    string                 `json:"go_version"`
	Checks       map[string]HealthCheck `json:"checks"`
	Counts       campaign.Counts        `json:"counts"`
	AutoSave     bool                   `json:"autoSave"`
	EventClients int                    `json:"event_clients"`
	RequestID    string                 `json:"request_id,omitempty"`
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:       HealthStatusHealthy,
		Timestamp:    s.now().UTC().Format(time.RFC3339),
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		Checks:       map[string]HealthCheck{},
		Counts:       s.store.Counts(),
		AutoSave:     s.store.Settings().AutoSave,
		EventClients: s.hub.count(),
		RequestID:    middleware.GetReqID(r.Context()),
	}

	if s.db != nil {
		check := s.checkDatabase(r.Context())
		resp.Checks["database"] = check
		if check.Status != HealthStatusHealthy {
			resp.Status = HealthStatusUnhealthy
		}
	}

	if err := s.store.Ready(); err != nil {
		resp.Checks["document"] = HealthCheck{Status: HealthStatusUnhealthy, Message: err.Error()}
		resp.Status = HealthStatusUnhealthy
	} else {
		resp.Checks["document"] = HealthCheck{Status: HealthStatusHealthy}
	}

	status := http.StatusOK
	if resp.Status != HealthStatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) checkDatabase(ctx context.Context) HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := s.db.Ping(ctx); err != nil {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: err.Error(), Duration: time.Since(start).String()}
	}
	return HealthCheck{Status: HealthStatusHealthy, Duration: time.Since(start).String()}
}
