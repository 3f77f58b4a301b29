package chat

import (
	"context"
	"sync"
)

// MockSource is a scripted source for tests and the mock chat backend.
// Each Poll call returns the next scripted batch; errors and liveness can
// be injected per step.
type MockSource struct {
	mu          sync.Mutex
	ConnectErr  error
	batches     [][]Message
	pollErrs    []error
	polls       int
	connects    int
	terminates  int
	DieAfter    int // polls after which IsAlive reports false; 0 = never
	terminated  bool
	connectedID string
}

func NewMockSource(batches ...[]Message) *MockSource {
	return &MockSource{batches: batches}
}

func (s *MockSource) Name() string { return "mock" }

// FailPollWith queues an error returned by the next Poll calls, one each.
func (s *MockSource) FailPollWith(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollErrs = append(s.pollErrs, errs...)
}

func (s *MockSource) Connect(_ context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.ConnectErr != nil {
		return s.ConnectErr
	}
	s.connectedID = videoID
	s.terminated = false
	return nil
}

func (s *MockSource) Poll(_ context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if len(s.pollErrs) > 0 {
		err := s.pollErrs[0]
		s.pollErrs = s.pollErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *MockSource) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return false
	}
	if s.DieAfter > 0 && s.polls >= s.DieAfter {
		return false
	}
	return true
}

func (s *MockSource) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true
	s.terminates++
}

func (s *MockSource) Stats() (connects, polls, terminates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects, s.polls, s.terminates
}
