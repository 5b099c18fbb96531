package server

import (
	"context"
	"net/http"

	_ "github.com/Temutjin2k/room-compass/docs"
	"github.com/Temutjin2k/room-compass/internal/adapter/http/middleware"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware, mode types.ServiceMode, log logger.Logger) {
	// System Health
	mux.HandleFunc("GET /health", routes.health.HealthCheck)

	setupSwaggerRoutes(mux, mode, log)
	setupMetricsRoute(mux)

	switch mode {
	case types.RoomService:
		setupUserRoutes(mux, routes, m)
		setupRoomRoutes(mux, routes, m)
		setupLiveRoutes(mux, routes, m)
	}
}

func setupUserRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.HandleFunc("POST /users", routes.room.Register)                                 // Register and get a session token
	mux.Handle("GET /users/me/settings", m.RequireIdentity(routes.room.Settings))       // Name and icon
	mux.Handle("PUT /users/me/settings", m.RequireIdentity(routes.room.UpdateSettings)) // Change name and icon
	mux.Handle("POST /users/me/icon", m.RequireIdentity(routes.room.UploadIcon))        // Upload an icon image
	mux.Handle("GET /me/role", m.RequireIdentity(routes.room.Role))                     // Role in the current room
	mux.Handle("DELETE /me/room", m.RequireIdentity(routes.room.Leave))                 // Leave the current room
}

func setupRoomRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /rooms", m.RequireIdentity(routes.room.CreateRoom))             // Create a room and become its host
	mux.Handle("POST /rooms/{pass}/join", m.RequireIdentity(routes.room.Join))       // Join as a client
	mux.HandleFunc("GET /rooms/{pass}/exists", routes.room.Exists)                   // Check a code
	mux.HandleFunc("GET /rooms/{pass}/open", routes.room.IsOpen)                     // Check whether clients may join
	mux.Handle("GET /rooms/current", m.RequireIdentity(routes.room.Current))         // The caller's room
	mux.Handle("PUT /rooms/current/lock", m.RequireIdentity(routes.room.SetLock))    // Host opens or closes the room
	mux.Handle("GET /rooms/current/clients", m.RequireIdentity(routes.room.Clients)) // Host's client list
}

func setupLiveRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /me/location", m.RequireIdentity(routes.session.PushLocation)) // One refresh cycle without a socket
	mux.Handle("GET /ws/session", m.RequireIdentity(routes.session.HandleWS))       // Live session websocket
}

// setupSwaggerRoutes configures Swagger UI endpoints based on service mode
func setupSwaggerRoutes(mux *http.ServeMux, mode types.ServiceMode, log logger.Logger) {
	var instanceName string

	switch mode {
	case types.RoomService:
		instanceName = "room"
	default:
		log.Warn(wrap.WithAction(context.Background(), "setup swagger routes"), "unknown service mode for swagger setup", "mode", mode)
		return
	}

	swaggerURL := httpSwagger.InstanceName(instanceName)
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
}
