package session

import "time"

// CreateRequest defines the payload for starting a narrated session.
type CreateRequest struct {
	Stream string `json:"stream"`
	Mode   string `json:"mode,omitempty"`
	Voice  string `json:"voice,omitempty"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID string    `json:"session_id"`
	VideoID   string    `json:"video_id"`
	Backend   string    `json:"backend"`
	Mode      string    `json:"mode"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
