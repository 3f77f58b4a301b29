package archive

import (
	"context"
	"time"
)

// MessageRecord stores one ingested chat message.
type MessageRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Kind      string    `json:"kind"`
	Moderator bool      `json:"moderator"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// SummaryRecord stores one narrated summary and the size of the batch
// it condensed.
type SummaryRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	BatchSize int       `json:"batch_size"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists the chat transcript and summary history per session.
type Store interface {
	SaveMessage(ctx context.Context, record MessageRecord) error
	SaveSummary(ctx context.Context, record SummaryRecord) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]MessageRecord, error)
	RecentSummaries(ctx context.Context, sessionID string, limit int) ([]SummaryRecord, error)
	Close() error
}
