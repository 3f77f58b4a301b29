package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("session not found")

// Session is the metadata record for one narrated stream. The runtime
// goroutines that do the actual work are owned by the app layer; the
// manager only tracks identity, lifecycle and counters.
type Session struct {
	ID             string     `json:"session_id"`
	VideoID        string     `json:"video_id"`
	Backend        string     `json:"backend"`
	Mode           string     `json:"mode"`
	Voice          string     `json:"voice,omitempty"`
	Status         Status     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	MessageCount   int        `json:"message_count"`
	SummaryCount   int        `json:"summary_count"`
	ReconnectCount int        `json:"reconnect_count"`
	LastError      string     `json:"last_error,omitempty"`
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func (m *Manager) Create(videoID, backend, mode, voice string) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		Backend:   backend,
		Mode:      mode,
		Voice:     voice,
		Status:    StatusActive,
		StartedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// List returns all sessions, newest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, clone(s))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// End marks the session ended. Ending twice is a no-op that returns the
// already-ended record.
func (m *Manager) End(sessionID string, lastError string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status == StatusActive {
		now := time.Now().UTC()
		s.Status = StatusEnded
		s.EndedAt = &now
		if lastError != "" {
			s.LastError = lastError
		}
	}
	return clone(s), nil
}

func (m *Manager) AddMessages(sessionID string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.MessageCount += n
	}
}

func (m *Manager) AddSummary(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.SummaryCount++
	}
}

func (m *Manager) AddReconnect(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.ReconnectCount++
	}
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
