package narrate

import (
	"context"
	"sync"
)

// Utterance records one Speak call made against a MockBackend.
type Utterance struct {
	Text    string
	VoiceID string
}

// MockBackend records utterances for tests.
type MockBackend struct {
	mu         sync.Mutex
	utterances []Utterance

	VoiceList []Voice
	SpeakErr  error
	VoicesErr error
	Default   string
}

func NewMockBackend() *MockBackend {
	return &MockBackend{Default: "mock-default"}
}

func (m *MockBackend) Name() string { return "mock" }

func (m *MockBackend) DefaultVoice() string { return m.Default }

func (m *MockBackend) Voices(context.Context) ([]Voice, error) {
	if m.VoicesErr != nil {
		return nil, m.VoicesErr
	}
	return m.VoiceList, nil
}

func (m *MockBackend) Speak(_ context.Context, text, voiceID string) error {
	if m.SpeakErr != nil {
		return m.SpeakErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.utterances = append(m.utterances, Utterance{Text: text, VoiceID: voiceID})
	return nil
}

// Utterances returns a copy of everything spoken so far.
func (m *MockBackend) Utterances() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Utterance, len(m.utterances))
	copy(out, m.utterances)
	return out
}
