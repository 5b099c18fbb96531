package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Temutjin2k/room-compass/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/internal/service/live"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/room-compass/pkg/wsHub"
	"github.com/gorilla/websocket"
)

type LiveService interface {
	Open(ctx context.Context, id models.Identity, sink live.Sink) (*live.Session, error)
	PushOnce(ctx context.Context, id models.Identity, p models.PositionPayload) (models.PairUpdate, error)
}

type Session struct {
	live        LiveService
	connections *ws.ConnectionHub
	upgrader    websocket.Upgrader
	l           logger.Logger

	// ctx outlives single requests, sockets close with it
	ctx context.Context
}

func NewSession(ctx context.Context, live LiveService, connections *ws.ConnectionHub, l logger.Logger) *Session {
	return &Session{
		live:        live,
		connections: connections,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		l:   l,
		ctx: ctx,
	}
}

// HandleWS godoc
// @Summary      Live session
// @Description  Upgrades to a websocket. The device sends hello, position, orientation,
// @Description  visibility and permission messages and receives welcome, pair_update,
// @Description  heading_update, clients_update, permission_required and error messages.
// @Tags         Live
// @Param        token  query  string  true  "session token"
// @Success      101
// @Failure      401  {object}  map[string]any
// @Failure      409  {object}  map[string]any  "user is not in a room"
// @Router       /ws/session [get]
func (h *Session) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionLiveSession)
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx = wrap.WithUserID(ctx, id.UserID.String())

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warn(ctx, "websocket upgrade failed", "error", err)
		return
	}

	// the request context ends with the handler, the session follows the server
	sessionCtx := wrap.WithLogCtx(h.ctx, wrap.LogCtx{
		UserID:    id.UserID.String(),
		RequestID: wrap.GetRequestID(ctx),
	})
	conn := ws.NewConn(sessionCtx, id.UserID, raw)
	if err := h.connections.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register connection", err)
		conn.Close()
		return
	}
	defer h.connections.Remove(conn)

	session, err := h.live.Open(sessionCtx, id, conn)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to open live session", "error", err)
		conn.Send(ctx, models.ErrorMessage{
			Type:    types.MessageError,
			Source:  "session",
			Message: err.Error(),
		})
		return
	}
	defer session.Close()

	err = conn.Listen(func(data []byte) error {
		var msg models.DeviceMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return h.reject(sessionCtx, conn, live.ErrInvalidPayload)
		}
		if err := session.Handle(sessionCtx, msg); err != nil {
			if errors.Is(err, live.ErrSessionClosed) {
				return err
			}
			return h.reject(sessionCtx, conn, err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ws.ErrConnClosed) {
		h.l.Debug(ctx, "live session ended", "reason", err.Error())
	}
}

// reject reports a bad device message and keeps the socket open.
func (h *Session) reject(ctx context.Context, conn *ws.Conn, err error) error {
	h.l.Debug(ctx, "device message rejected", "error", err.Error())
	return conn.Send(ctx, models.ErrorMessage{
		Type:    types.MessageError,
		Source:  "message",
		Message: err.Error(),
	})
}

// PushLocation godoc
// @Summary      Report a position without a live session
// @Description  Runs one refresh cycle: the position is written when it moved past the threshold from the stored position
// @Tags         Live
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.LocationRequest  true  "position"
// @Success      200      {object}  models.PairUpdate
// @Failure      422      {object}  map[string]any
// @Router       /me/location [post]
func (h *Session) PushLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionPushLocation)
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req := &dto.LocationRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := dto.Validate(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	update, err := h.live.PushOnce(ctx, id, req.ToModel())
	if err != nil {
		code := GetCode(err)
		if code >= http.StatusInternalServerError {
			h.l.Error(wrap.ErrorCtx(ctx, err), "failed to push location", err)
		}
		errorResponse(w, code, err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"update": update}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
