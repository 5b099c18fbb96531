package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Temutjin2k/room-compass/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/google/uuid"
)

type RoomService interface {
	Register(ctx context.Context, name string) (uuid.UUID, string, error)
	CreateRoom(ctx context.Context, id models.Identity, name string) (*models.Room, error)
	Exists(ctx context.Context, pass int) (bool, error)
	IsOpen(ctx context.Context, pass int) (bool, error)
	Join(ctx context.Context, id models.Identity, pass int) (*models.Room, error)
	Role(ctx context.Context, id models.Identity) (types.UserRole, error)
	Room(ctx context.Context, id models.Identity) (*models.Room, error)
	Clients(ctx context.Context, id models.Identity) ([]models.ClientInfo, error)
	Leave(ctx context.Context, id models.Identity) error
	SetLock(ctx context.Context, id models.Identity, open bool) error
	Settings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, settings models.UserSettings) error
	UploadIcon(ctx context.Context, userID uuid.UUID, filename string, content []byte) (string, error)
}

type Room struct {
	rooms        RoomService
	maxIconBytes int64
	l            logger.Logger
}

func NewRoom(rooms RoomService, maxIconBytes int64, l logger.Logger) *Room {
	return &Room{
		rooms:        rooms,
		maxIconBytes: maxIconBytes,
		l:            l,
	}
}

// Register godoc
// @Summary      Register a user
// @Description  Creates an anonymous user and returns its session token
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        request  body      dto.RegisterRequest  true  "display name"
// @Success      201      {object}  dto.RegisterResponse
// @Failure      422      {object}  map[string]any
// @Router       /users [post]
func (h *Room) Register(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "register_user")

	req := &dto.RegisterRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := dto.Validate(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	id, token, err := h.rooms.Register(ctx, req.Name)
	if err != nil {
		h.fail(ctx, w, "failed to register user", err)
		return
	}

	h.write(ctx, w, http.StatusCreated, envelope{"id": id, "token": token})
}

// CreateRoom godoc
// @Summary      Create a room
// @Description  Creates a room with a free 4 digit code and makes the caller its host
// @Tags         Rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CreateRoomRequest  true  "room name"
// @Success      201      {object}  models.Room
// @Failure      401      {object}  map[string]any
// @Failure      503      {object}  map[string]any
// @Router       /rooms [post]
func (h *Room) CreateRoom(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_room")
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req := &dto.CreateRoomRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := dto.Validate(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	room, err := h.rooms.CreateRoom(ctx, id, req.Name)
	if err != nil {
		h.fail(ctx, w, "failed to create room", err)
		return
	}

	h.write(ctx, w, http.StatusCreated, envelope{"room": room})
}

// Join godoc
// @Summary      Join a room
// @Tags         Rooms
// @Produce      json
// @Security     BearerAuth
// @Param        pass  path      int  true  "room code"
// @Success      200   {object}  models.Room
// @Failure      403   {object}  map[string]any  "room is closed"
// @Failure      404   {object}  map[string]any  "room does not exist"
// @Router       /rooms/{pass}/join [post]
func (h *Room) Join(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "join_room")
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	pass, err := roomPass(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	room, err := h.rooms.Join(ctx, id, pass)
	if err != nil {
		h.fail(ctx, w, "failed to join room", err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"room": room})
}

// Exists godoc
// @Summary      Check a room code
// @Tags         Rooms
// @Produce      json
// @Param        pass  path      int  true  "room code"
// @Success      200   {object}  map[string]bool
// @Router       /rooms/{pass}/exists [get]
func (h *Room) Exists(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "room_exists")

	pass, err := roomPass(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	exists, err := h.rooms.Exists(ctx, pass)
	if err != nil {
		h.fail(ctx, w, "failed to check room", err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"exists": exists})
}

// IsOpen godoc
// @Summary      Check whether a room accepts new clients
// @Tags         Rooms
// @Produce      json
// @Param        pass  path      int  true  "room code"
// @Success      200   {object}  map[string]bool
// @Failure      404   {object}  map[string]any
// @Router       /rooms/{pass}/open [get]
func (h *Room) IsOpen(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "room_is_open")

	pass, err := roomPass(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	open, err := h.rooms.IsOpen(ctx, pass)
	if err != nil {
		h.fail(ctx, w, "failed to check room", err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"open": open})
}

// SetLock godoc
// @Summary      Open or close the caller's room
// @Tags         Rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.LockRequest  true  "open flag"
// @Success      200      {object}  map[string]bool
// @Failure      403      {object}  map[string]any  "only the host can do this"
// @Router       /rooms/current/lock [put]
func (h *Room) SetLock(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "set_room_lock")
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req := &dto.LockRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := dto.Validate(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	if err := h.rooms.SetLock(ctx, id, *req.Open); err != nil {
		h.fail(ctx, w, "failed to change room lock", err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"open": *req.Open})
}

// Current godoc
// @Summary      The caller's room
// @Tags         Rooms
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.Room
// @Failure      409  {object}  map[string]any  "user is not in a room"
// @Router       /rooms/current [get]
func (h *Room) Current(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "current_room")
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	room, err := h.rooms.Room(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to get room", err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"room": room})
}

// Clients godoc
// @Summary      Clients of the caller's room with their distance to the host
// @Tags         Rooms
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.ClientInfo
// @Failure      403  {object}  map[string]any
// @Router       /rooms/current/clients [get]
func (h *Room) Clients(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_clients")
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	clients, err := h.rooms.Clients(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to list clients", err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"clients": clients})
}

// Role godoc
// @Summary      The caller's role in its room
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Router       /me/role [get]
func (h *Room) Role(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_role")
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	role, err := h.rooms.Role(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to get role", err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"role": role})
}

// Leave godoc
// @Summary      Leave the current room
// @Description  Clears room, role, position and distance of the caller
// @Tags         Users
// @Security     BearerAuth
// @Success      204
// @Router       /me/room [delete]
func (h *Room) Leave(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "leave_room")
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.rooms.Leave(ctx, id); err != nil {
		h.fail(ctx, w, "failed to leave room", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Settings godoc
// @Summary      The caller's profile
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.UserSettings
// @Router       /users/me/settings [get]
func (h *Room) Settings(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_settings")
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	settings, err := h.rooms.Settings(ctx, id.UserID)
	if err != nil {
		h.fail(ctx, w, "failed to get settings", err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"settings": settings})
}

// UpdateSettings godoc
// @Summary      Update name and icon
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.SettingsRequest  true  "profile"
// @Success      200      {object}  models.UserSettings
// @Failure      422      {object}  map[string]any
// @Router       /users/me/settings [put]
func (h *Room) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_settings")
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req := &dto.SettingsRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := dto.Validate(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	settings := req.ToModel()
	if err := h.rooms.UpdateSettings(ctx, id.UserID, settings); err != nil {
		h.fail(ctx, w, "failed to update settings", err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"settings": settings})
}

// UploadIcon godoc
// @Summary      Upload an icon
// @Description  Stores the image and sets it as the caller's icon
// @Tags         Users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "image"
// @Success      200   {object}  map[string]string
// @Failure      413   {object}  map[string]any
// @Failure      503   {object}  map[string]any  "icon storage is not configured"
// @Router       /users/me/icon [post]
func (h *Room) UploadIcon(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "upload_icon")
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxIconBytes+1<<16)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			errorResponse(w, http.StatusRequestEntityTooLarge, types.ErrIconTooLarge.Error())
			return
		}
		badRequestResponse(w, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxIconBytes+1))
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	url, err := h.rooms.UploadIcon(ctx, id.UserID, header.Filename, content)
	if err != nil {
		h.fail(ctx, w, "failed to upload icon", err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"icon": url})
}

func (h *Room) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	code := GetCode(err)
	if code >= http.StatusInternalServerError {
		h.l.Error(wrap.ErrorCtx(ctx, err), msg, err)
	} else {
		h.l.Debug(ctx, msg, "error", err.Error())
	}
	errorResponse(w, code, err.Error())
}

func (h *Room) write(ctx context.Context, w http.ResponseWriter, status int, data envelope) {
	if err := writeJSON(w, status, data, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
