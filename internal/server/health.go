package server

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"
)

// HealthStatus represents the overall readiness of the server
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp       ComponentStatus = "up"
	ComponentStatusDown     ComponentStatus = "down"
	ComponentStatusDegraded ComponentStatus = "degraded"
)

// Health is the /ready response body.
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Build      BuildInfo                  `json:"build"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms,omitempty"`
	Details   any             `json:"details,omitempty"`
}

// pinger is implemented by optional dependencies that can report whether
// they are reachable.
type pinger interface {
	Ping(ctx context.Context) error
}

const readyTimeout = 2 * time.Second

// healthHandler is the liveness probe.
func (cfg Config) healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "Server is healthy!")
	})
}

// readyHandler checks the store and every configured dependency. Any
// component that is down makes the answer 503.
func (cfg Config) readyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		health := cfg.checkHealth(ctx)
		status := http.StatusOK
		if health.Status == HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	})
}

func (cfg Config) checkHealth(ctx context.Context) Health {
	health := Health{
		Timestamp:  time.Now().UTC(),
		Build:      cfg.Build,
		Components: map[string]ComponentHealth{"store": cfg.checkStoreHealth()},
	}
	if p, ok := cfg.Recorder.(pinger); ok {
		health.Components["database"] = checkPinger(ctx, p)
	}
	if p, ok := cfg.Mirror.(pinger); ok {
		health.Components["mirror"] = checkPinger(ctx, p)
	}
	health.Status = determineOverallHealth(health.Components)
	return health
}

// checkStoreHealth lists the store directory and parses the index.
func (cfg Config) checkStoreHealth() ComponentHealth {
	start := time.Now()
	names, err := cfg.Store.List()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ComponentHealth{Status: ComponentStatusDown, Message: "store directory missing"}
		}
		return ComponentHealth{Status: ComponentStatusDown, Message: err.Error()}
	}
	snap, err := cfg.Store.Index().Snapshot()
	if err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: err.Error()}
	}
	return ComponentHealth{
		Status:    ComponentStatusUp,
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000,
		Details: map[string]int{
			"files":     len(names),
			"checksums": len(snap),
		},
	}
}

func checkPinger(ctx context.Context, p pinger) ComponentHealth {
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: err.Error()}
	}
	latency := time.Since(start)
	if latency > time.Second {
		return ComponentHealth{Status: ComponentStatusDegraded, Message: "latency high", LatencyMs: float64(latency.Milliseconds())}
	}
	return ComponentHealth{Status: ComponentStatusUp, LatencyMs: float64(latency.Microseconds()) / 1000}
}

// determineOverallHealth calculates overall health from component statuses
func determineOverallHealth(components map[string]ComponentHealth) HealthStatus {
	var down, degraded int
	for _, c := range components {
		switch c.Status {
		case ComponentStatusDown:
			down++
		case ComponentStatusDegraded:
			degraded++
		}
	}
	switch {
	case down > 0:
		return HealthStatusUnhealthy
	case degraded > 0:
		return HealthStatusDegraded
	default:
		return HealthStatusHealthy
	}
}
