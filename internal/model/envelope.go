package model

import "encoding/json"

// Envelope statuses returned by the backend.
const (
	StatusSuccess = "SUCCESS"
	StatusFail    = "FAIL"
	StatusCreated = "CREATED"
)

// Envelope is the {status, content} wrapper most backend responses use.
type Envelope struct {
	Status   string          `json:"status"`
	Content  json.RawMessage `json:"content"`
	Duration string          `json:"duration,omitempty"`
}
