package httptransport

import (
	"context"
	"net/http"
	"time"

	"umid/pkg/platform/httputil"
)

// healthTimeout bounds each dependency probe.
const healthTimeout = 2 * time.Second

// Check probes one dependency.
type Check func(ctx context.Context) error

// Health reports dependency status on /healthz. Degraded dependencies that
// have a fallback (the throttle's Redis) are reported but do not fail the probe.
type Health struct {
	critical map[string]Check
	optional map[string]Check
}

func NewHealth() *Health {
	return &Health{critical: map[string]Check{}, optional: map[string]Check{}}
}

// Critical registers a dependency whose failure makes the service unhealthy.
func (h *Health) Critical(name string, c Check) *Health {
	h.critical[name] = c
	return h
}

// Optional registers a dependency reported as degraded when failing.
func (h *Health) Optional(name string, c Check) *Health {
	h.optional[name] = c
	return h
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, check := range h.critical {
		if err := check(ctx); err != nil {
			resp.Checks[name] = "down"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	for name, check := range h.optional {
		if err := check(ctx); err != nil {
			resp.Checks[name] = "degraded"
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}
