package types

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrRoomNotFound      = errors.New("room does not exist")
	ErrRoomLocked        = errors.New("room is closed")
	ErrRoomCodeExhausted = errors.New("no free room code available")
	ErrNotInRoom         = errors.New("user is not in a room")
	ErrNotHost           = errors.New("only the host can do this")
	ErrInvalidRole       = errors.New("invalid role")

	ErrNoCoordinates      = errors.New("no coordinates")
	ErrPermissionRequired = errors.New("orientation sensor permission required")
	ErrIconTooLarge       = errors.New("icon is too large")
	ErrIconStorageOff     = errors.New("icon storage is not configured")

	ErrDatabaseFailed = errors.New("database failed")
	ErrNotFound       = errors.New("requested item not found")
)

var ErrInvalidCoordinates = errors.New("coordinates out of range")

// ErrRoomCodeTaken is returned by the store when a room code is already used.
var ErrRoomCodeTaken = errors.New("room code already taken")
