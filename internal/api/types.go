package api

import (
	"time"

	"wifictl/internal/supervisor"
)

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Interface string              `json:"interface"`
	Driver    string              `json:"driver"`
	Networks  []string            `json:"networks"`
	UpdatedAt time.Time           `json:"updated_at"`
	State     supervisor.Snapshot `json:"state"`
}

// ReconnectResponse is returned by POST /api/v1/reconnect.
type ReconnectResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
