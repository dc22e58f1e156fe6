package model

import "time"

// StoreAction describes what happened to a cache.
type StoreAction string

const (
	ActionReplaced StoreAction = "replaced"
	ActionMerged   StoreAction = "merged"
	ActionAppended StoreAction = "appended"
	ActionUpdated  StoreAction = "updated"
	ActionRemoved  StoreAction = "removed"
	ActionCleared  StoreAction = "cleared"
	ActionCreated  StoreAction = "created"
)

// StoreEvent reports a mutation of one store's cache.
type StoreEvent struct {
	ID        string      `json:"id"`
	Store     string      `json:"store"`
	Action    StoreAction `json:"action"`
	Key       string      `json:"key,omitempty"`
	Count     int         `json:"count"`
	CreatedAt time.Time   `json:"created_at"`
}
