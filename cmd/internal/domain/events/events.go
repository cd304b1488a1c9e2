package events

import "circlenotes/cmd/internal/contract"

type SocketEvent interface {
	GetType() contract.EventType
}

type ConnectionKill struct {
	Code   contract.KillCode `json:"code"`
	Reason *string           `json:"reason,omitempty"`
}

func (e *ConnectionKill) GetType() contract.EventType {
	return contract.EventConnectionKill
}

// ItemCreated carries the item without its body, bodies are fetched on demand.
type ItemCreated struct {
	*contract.ItemResponse
}

func (e *ItemCreated) GetType() contract.EventType {
	return contract.EventItemCreated
}

type ItemUpdated struct {
	*contract.ItemResponse
}

func (e *ItemUpdated) GetType() contract.EventType {
	return contract.EventItemUpdated
}

type ItemPublished struct {
	*contract.ItemResponse
}

func (e *ItemPublished) GetType() contract.EventType {
	return contract.EventItemPublished
}

type ItemDeleted struct {
	ItemID int64 `json:"id"`
}

func (e *ItemDeleted) GetType() contract.EventType {
	return contract.EventItemDeleted
}

type UserUpdated struct {
	*contract.UserResponse
}

func (e *UserUpdated) GetType() contract.EventType {
	return contract.EventUserUpdated
}
