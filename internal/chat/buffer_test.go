package chat

import (
	"strconv"
	"testing"
)

func TestBufferDrainAllClearsAtomically(t *testing.T) {
	b := NewBuffer()
	for i := 0; i < 5; i++ {
		b.Append(Message{Author: "a", Text: strconv.Itoa(i), Kind: KindText})
	}

	drained := b.DrainAll()
	if len(drained) != 5 {
		t.Fatalf("DrainAll() len = %d, want 5", len(drained))
	}
	if b.Len() != 0 {
		t.Fatalf("Len() after drain = %d, want 0", b.Len())
	}

	b.Append(Message{Author: "b", Text: "later", Kind: KindText})
	second := b.DrainAll()
	if len(second) != 1 || second[0].Text != "later" {
		t.Fatalf("second drain = %+v, want only the post-drain message", second)
	}
	for _, msg := range second {
		for _, old := range drained {
			if msg == old {
				t.Fatalf("message %+v delivered to two batches", msg)
			}
		}
	}
}

func TestBufferDrainAllEmpty(t *testing.T) {
	b := NewBuffer()
	if got := b.DrainAll(); got != nil {
		t.Fatalf("DrainAll() on empty buffer = %v, want nil", got)
	}
}

func TestBufferSnapshotSuffix(t *testing.T) {
	b := NewBuffer()
	for i := 0; i < 10; i++ {
		b.Append(Message{Author: "a", Text: strconv.Itoa(i), Kind: KindText})
	}

	got := b.SnapshotSuffix(3)
	if len(got) != 3 {
		t.Fatalf("SnapshotSuffix(3) len = %d, want 3", len(got))
	}
	for i, want := range []string{"7", "8", "9"} {
		if got[i].Text != want {
			t.Fatalf("SnapshotSuffix(3)[%d].Text = %q, want %q", i, got[i].Text, want)
		}
	}
	if b.Len() != 10 {
		t.Fatalf("snapshot mutated buffer: Len() = %d, want 10", b.Len())
	}

	if all := b.SnapshotSuffix(100); len(all) != 10 {
		t.Fatalf("SnapshotSuffix(100) len = %d, want min(n, len) = 10", len(all))
	}
}

func TestBufferSnapshotSuffixCopyIsIndependent(t *testing.T) {
	b := NewBuffer()
	b.Append(Message{Author: "a", Text: "x", Kind: KindText})
	snap := b.SnapshotSuffix(1)
	snap[0].Text = "mutated"
	if got := b.SnapshotSuffix(1)[0].Text; got != "x" {
		t.Fatalf("buffer content changed via snapshot: %q", got)
	}
}
