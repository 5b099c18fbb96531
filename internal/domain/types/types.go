package types

type ServiceMode string

// Room Service - Room lifecycle, live location sessions and compass updates for hosts and clients
const (
	RoomService ServiceMode = "room-service"
)

// Enum для роли участника комнаты
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) Valid() bool {
	return r == RoleHost || r == RoleClient
}

const (
	RoleHost   UserRole = "host"
	RoleClient UserRole = "client"
)

// Tables and columns published in change events
const (
	TableUser = "user"
	TableRoom = "room"

	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
	ColumnAltitude  = "altitude"
	ColumnDistance  = "distance"
	ColumnRole      = "role"
	ColumnRoomPass  = "room_pass"
	ColumnName      = "name"
	ColumnIcon      = "icon"
)

// LocationColumns are the columns a live session reacts to.
var LocationColumns = []string{ColumnLatitude, ColumnLongitude, ColumnAltitude}

// ClientListColumns are the columns the host's client list reacts to.
var ClientListColumns = []string{ColumnLatitude, ColumnLongitude, ColumnAltitude, ColumnDistance, ColumnRoomPass, ColumnRole, ColumnName, ColumnIcon}
