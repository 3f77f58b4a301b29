package chat

// Kind classifies a chat message by how it was sent on the platform.
type Kind string

const (
	KindText      Kind = "text"
	KindSuperChat Kind = "super_chat"
	KindSticker   Kind = "sticker"
)

// Message is the normalized chat message every backend is reduced to.
// Arrival order from the source is the only ordering; no timestamps.
type Message struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	Kind      Kind   `json:"kind"`
	Moderator bool   `json:"moderator"`
	Verified  bool   `json:"verified"`
}

// Line renders the message the way it is narrated and logged.
func (m Message) Line() string {
	return m.Author + ": " + m.Text
}
