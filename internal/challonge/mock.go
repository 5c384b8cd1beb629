package challonge

import (
	"context"
	"sync"
)

// MockClient is a mock implementation of the Client interface for testing.
// It is safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	// Spies for method calls
	FetchParticipantsFunc func(ctx context.Context, slug string) ([]Participant, error)
	FetchMatchesFunc      func(ctx context.Context, slug string) ([]Match, error)

	// Call records
	FetchParticipantsCalls []string
	FetchMatchesCalls      []string
}

// NewMockClient creates a new mock instance.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Reset clears all call records.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchParticipantsCalls = nil
	m.FetchMatchesCalls = nil
}

func (m *MockClient) FetchParticipants(ctx context.Context, slug string) ([]Participant, error) {
	m.mu.Lock()
	m.FetchParticipantsCalls = append(m.FetchParticipantsCalls, slug)
	m.mu.Unlock()
	if m.FetchParticipantsFunc != nil {
		return m.FetchParticipantsFunc(ctx, slug)
	}
	return []Participant{}, nil
}

func (m *MockClient) FetchMatches(ctx context.Context, slug string) ([]Match, error) {
	m.mu.Lock()
	m.FetchMatchesCalls = append(m.FetchMatchesCalls, slug)
	m.mu.Unlock()
	if m.FetchMatchesFunc != nil {
		return m.FetchMatchesFunc(ctx, slug)
	}
	return []Match{}, nil
}
