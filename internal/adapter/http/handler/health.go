package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	serviceName string
	deps        map[string]Pinger
	log         logger.Logger
}

func NewHealth(serviceName string, deps map[string]Pinger, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		deps:        deps,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Returns the health status of the service and its dependencies
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      503  {object}  map[string]any
// @Router       /health [get]
func (a *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status, code := "available", http.StatusOK
	deps := make(map[string]string, len(a.deps))
	for name, dep := range a.deps {
		if err := dep.Ping(ctx); err != nil {
			a.log.Warn(ctx, "dependency unhealthy", "dependency", name, "error", err)
			deps[name] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	response := envelope{
		"status": status,
		"system_info": map[string]string{
			"service-name": a.serviceName,
		},
		"dependencies": deps,
	}

	if err := writeJSON(w, code, response, nil); err != nil {
		a.log.Error(ctx, "healthcheck", err)
		return
	}
}
