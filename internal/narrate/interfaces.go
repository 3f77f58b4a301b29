package narrate

import (
	"context"
	"io"
)

// Voice pairs the label a human picks with the identifier a backend
// actually needs in its synthesis call.
type Voice struct {
	DisplayName string `json:"display_name"`
	ID          string `json:"id"`
}

// Backend is the capability contract every speech backend satisfies.
// Voices may hit a remote catalog; it returns an empty list instead of
// an error when a credential is missing.
type Backend interface {
	Name() string
	Speak(ctx context.Context, text, voiceID string) error
	Voices(ctx context.Context) ([]Voice, error)
	DefaultVoice() string
}

// AudioSink plays a synthesized audio stream. Cloud backends hand their
// response body straight to the sink; the local backend talks to the
// speech CLI directly and never uses one.
type AudioSink interface {
	Play(ctx context.Context, format string, audio io.Reader) error
}
