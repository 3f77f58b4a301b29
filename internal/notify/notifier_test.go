package notify

import (
	"testing"

	"github.com/antoniostano/livechatter/internal/chat"
	"github.com/antoniostano/livechatter/internal/ingest"
)

type recordingPlayer struct {
	cues []Cue
}

func (p *recordingPlayer) Play(cue Cue) { p.cues = append(p.cues, cue) }

func TestIngestEventCues(t *testing.T) {
	player := &recordingPlayer{}
	n := New(player)

	n.OnSessionStart()
	n.OnIngestEvent(ingest.Event{Type: ingest.EventNotice, Text: "connection lost, reconnecting"})
	n.OnIngestEvent(ingest.Event{Type: ingest.EventMessage})
	n.OnIngestEvent(ingest.Event{Type: ingest.EventError})
	n.OnIngestEvent(ingest.Event{Type: ingest.EventStopped})

	want := []Cue{CueSessionStart, CueReconnect, CueError, CueSessionStop}
	if len(player.cues) != len(want) {
		t.Fatalf("got cues %v, want %v", player.cues, want)
	}
	for i := range want {
		if player.cues[i] != want[i] {
			t.Fatalf("cue %d = %q, want %q", i, player.cues[i], want[i])
		}
	}
}

func TestMessageCues(t *testing.T) {
	player := &recordingPlayer{}
	n := New(player)

	n.OnMessage(chat.Message{Kind: chat.KindText})
	n.OnMessage(chat.Message{Kind: chat.KindSuperChat})
	n.OnMessage(chat.Message{Kind: chat.KindSticker})
	n.OnMessage(chat.Message{Kind: chat.KindText, Moderator: true})
	// A paid message from a moderator plays the donation cue only.
	n.OnMessage(chat.Message{Kind: chat.KindSuperChat, Moderator: true})

	want := []Cue{CueDonation, CueSticker, CueModerator, CueDonation}
	if len(player.cues) != len(want) {
		t.Fatalf("got cues %v, want %v", player.cues, want)
	}
	for i := range want {
		if player.cues[i] != want[i] {
			t.Fatalf("cue %d = %q, want %q", i, player.cues[i], want[i])
		}
	}
}

func TestNilPlayerIsNoOp(t *testing.T) {
	n := New(nil)
	n.OnSessionStart()
	n.OnIngestEvent(ingest.Event{Type: ingest.EventError})
	n.OnMessage(chat.Message{Kind: chat.KindSuperChat})
	n.OnSummary()
}
