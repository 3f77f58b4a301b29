package chat

import (
	"context"
	"errors"
)

var (
	// ErrChatDisabled means the stream exists but has live chat turned
	// off. Non-retryable: the session terminates.
	ErrChatDisabled = errors.New("live chat is disabled for this stream")

	// ErrSourceUnavailable means a backend cannot be constructed at all
	// (disabled by config). Checked once, at session startup.
	ErrSourceUnavailable = errors.New("chat source unavailable")
)

// Source is the capability contract both chat backends satisfy. Connect
// establishes a handle for one stream; Poll is called repeatedly at a
// short interval and returns whatever arrived since the previous call,
// already normalized to Message.
type Source interface {
	Name() string
	Connect(ctx context.Context, videoID string) error
	Poll(ctx context.Context) ([]Message, error)
	IsAlive() bool
	Terminate()
}

// SourceFactory builds a fresh Source per session, or reports
// ErrSourceUnavailable when the backend is not usable at all.
type SourceFactory func() (Source, error)
