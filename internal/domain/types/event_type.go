package types

// MessageType identifies websocket messages in both directions.
type MessageType string

func (m MessageType) String() string {
	return string(m)
}

// Device -> service
const (
	MessageHello       MessageType = "hello"
	MessagePosition    MessageType = "position"
	MessageOrientation MessageType = "orientation"
	MessageVisibility  MessageType = "visibility"
	MessagePermission  MessageType = "permission"
)

// Service -> device
const (
	MessagePairUpdate         MessageType = "pair_update"
	MessageHeadingUpdate      MessageType = "heading_update"
	MessageClientsUpdate      MessageType = "clients_update"
	MessagePermissionRequired MessageType = "permission_required"
	MessageError              MessageType = "error"
	MessageWelcome            MessageType = "welcome"
)

// Visibility states reported by the device
const (
	VisibilityHidden  = "hidden"
	VisibilityVisible = "visible"
)
