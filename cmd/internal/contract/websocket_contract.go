package contract

type EventType string

const (
	EventPing EventType = "ping"

	EventConnectionKill EventType = "CONNECTION_KILL"
	EventSessionExpired EventType = "SESSION_EXPIRED"
	EventAck            EventType = "ACK"

	EventItemCreated   EventType = "ITEM_CREATED"
	EventItemUpdated   EventType = "ITEM_UPDATED"
	EventItemPublished EventType = "ITEM_PUBLISHED"
	EventItemDeleted   EventType = "ITEM_DELETED"

	EventUserUpdated EventType = "USER_UPDATED"
)

type KillCode int

const (
	KillCodeAccountDeleted KillCode = 4001
	KillCodeSessionExpired KillCode = 4002
)

// IncomingSocketMessage is used for messages we receive from the users.
type IncomingSocketMessage struct {
	Type EventType `json:"type"`
}

// OutgoingSocketMessage is what we send to the Client
type OutgoingSocketMessage struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}
