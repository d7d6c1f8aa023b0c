package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// NewHealthHandler returns GET /health handler. Any failing check turns the
// answer into 503 with the failing dependency listed.
func NewHealthHandler(checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				deps[c.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[c.Name] = "ok"
		}

		body := map[string]interface{}{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		writeJSON(w, status, body)
	}
}
