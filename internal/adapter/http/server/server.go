package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Temutjin2k/room-compass/config"
	"github.com/Temutjin2k/room-compass/internal/adapter/http/handler"
	"github.com/Temutjin2k/room-compass/internal/adapter/http/middleware"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
)

const serverIPAddress = "%s:%s"

type API struct {
	mode   types.ServiceMode
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	health  *handler.Health
	room    *handler.Room
	session *handler.Session
}

// Deps are the services behind the routes.
type Deps struct {
	Rooms   handler.RoomService
	Live    handler.LiveService
	Tokens  middleware.TokenValidator
	Session *handler.Session
	Checks  map[string]handler.Pinger
}

func New(cfg config.Config, deps Deps, logger logger.Logger) (*API, error) {
	if deps.Tokens == nil {
		return nil, errors.New("token validator is required")
	}
	if deps.Rooms == nil || deps.Session == nil {
		return nil, errors.New("room service and session handler are required")
	}

	api := &API{
		mode: cfg.Mode,
		mux:  http.NewServeMux(),
		routes: &handlers{
			health:  handler.NewHealth(string(cfg.Mode), deps.Checks, logger),
			room:    handler.NewRoom(deps.Rooms, cfg.Room.MaxIconBytes, logger),
			session: deps.Session,
		},
		m:    middleware.NewMiddleware(deps.Tokens, logger),
		addr: fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.HTTP.Port),
		cfg:  cfg,
		log:  logger,
	}

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	setupRoutes(api.mux, api.routes, api.m, api.mode, logger)

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// Handler returns the full handler chain, used by tests.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Auth(a.m.Logging(a.m.Metrics(string(a.mode))(a.mux)))))
}
