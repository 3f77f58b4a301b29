package notify

import (
	"github.com/antoniostano/livechatter/internal/chat"
	"github.com/antoniostano/livechatter/internal/ingest"
)

// Cue names an audio trigger in a sound pack. Loading and playing the
// actual audio belongs to whoever implements CuePlayer.
type Cue string

const (
	CueSessionStart Cue = "session_start"
	CueSessionStop  Cue = "session_stop"
	CueReconnect    Cue = "reconnect"
	CueError        Cue = "error"
	CueDonation     Cue = "donation"
	CueSticker      Cue = "sticker"
	CueModerator    Cue = "moderator"
	CueSummary      Cue = "summary"
)

// CuePlayer plays one named cue. Implementations must not block.
type CuePlayer interface {
	Play(cue Cue)
}

// Notifier maps lifecycle and chat events to audio cues. A nil player
// makes every method a no-op, which is the configured-off state.
type Notifier struct {
	player CuePlayer
}

func New(player CuePlayer) *Notifier {
	return &Notifier{player: player}
}

// OnSessionStart triggers the start cue when a session's ingestion
// loop is launched.
func (n *Notifier) OnSessionStart() {
	if n.player == nil {
		return
	}
	n.player.Play(CueSessionStart)
}

// OnIngestEvent triggers cues for supervisor lifecycle transitions.
// Notices are always reconnect announcements; message events go through
// OnMessage instead.
func (n *Notifier) OnIngestEvent(ev ingest.Event) {
	if n.player == nil {
		return
	}
	switch ev.Type {
	case ingest.EventNotice:
		n.player.Play(CueReconnect)
	case ingest.EventError:
		n.player.Play(CueError)
	case ingest.EventStopped:
		n.player.Play(CueSessionStop)
	}
}

// OnMessage triggers cues for notable chat messages. Paid events
// outrank the moderator cue when both apply.
func (n *Notifier) OnMessage(msg chat.Message) {
	if n.player == nil {
		return
	}
	switch {
	case msg.Kind == chat.KindSuperChat:
		n.player.Play(CueDonation)
	case msg.Kind == chat.KindSticker:
		n.player.Play(CueSticker)
	case msg.Moderator:
		n.player.Play(CueModerator)
	}
}

// OnSummary triggers the summary cue before a periodic summary is
// narrated.
func (n *Notifier) OnSummary() {
	if n.player == nil {
		return
	}
	n.player.Play(CueSummary)
}
