package chat

import "sync"

// Buffer accumulates messages in arrival order between summary flushes.
// The supervisor goroutine appends; the scheduler goroutine reads and
// drains. Every operation holds the lock for its full duration so no
// message can land in two batches or vanish outside an explicit drain.
type Buffer struct {
	mu       sync.Mutex
	messages []Message
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Append(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

// SnapshotSuffix returns up to the last n messages without mutating the
// buffer. Used by quick summaries.
func (b *Buffer) SnapshotSuffix(n int) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || len(b.messages) == 0 {
		return nil
	}
	if n > len(b.messages) {
		n = len(b.messages)
	}
	out := make([]Message, n)
	copy(out, b.messages[len(b.messages)-n:])
	return out
}

// DrainAll returns the full contents and clears the buffer in one step.
// Used by the periodic summary flush.
func (b *Buffer) DrainAll() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 {
		return nil
	}
	out := b.messages
	b.messages = nil
	return out
}
