package model

import "time"

// Connection is a credential record for a third-party integration.
type Connection struct {
	ID             ID             `json:"id"`
	ConnectionType ConnectionType `json:"connection_type"`
	APIKey         string         `json:"api_key"`
	SyncInterval   int            `json:"sync_interval"`
	Config         map[string]any `json:"config"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// EntityID returns the cache key of the connection.
func (c Connection) EntityID() string { return string(c.ID) }

// CreateConnectionRequest is the payload to register a new connection.
type CreateConnectionRequest struct {
	ConnectionType ConnectionType `json:"connection_type"`
	APIKey         string         `json:"api_key"`
	SyncInterval   int            `json:"sync_interval"`
	Config         map[string]any `json:"config"`
}
