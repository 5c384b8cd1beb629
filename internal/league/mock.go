package league

import "sync"

// MockStore is a mock implementation of the Store interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	CreateUserFunc              func(username string) (*User, error)
	GetUserFunc                 func(id string) (*User, error)
	GetSeasonFunc               func(id string) (*Season, error)
	GetActiveSeasonFunc         func() (*Season, error)
	CreateSeasonFunc            func(kFactor *int) (*Season, error)
	FinalizeActiveSeasonFunc    func() (*Season, error)
	CreateTournamentFunc        func(name, seasonID, challongeURL string) (*Tournament, error)
	GetTournamentFunc           func(id string) (*Tournament, error)
	ListSeasonTournamentsFunc   func(seasonID string) ([]Tournament, error)
	SetTournamentStateFunc      func(id string, state TournamentState) error
	RegisterPlayerFunc          func(tournamentID, userID, displayName string) error
	GetRegistrationsFunc        func(tournamentID string) ([]Registration, error)
	UpsertRegistrationsFunc     func(regs []Registration) error
	LoadRatingStatesFunc        func(seasonID string, userIDs []string) (map[string]*RatingState, error)
	UpsertRatingStatesFunc      func(seasonID string, states map[string]*RatingState) error
	RollbackRatingStateFunc     func(seasonID, userID string, restoredRating, matchesToRemove int) error
	InsertMatchesFunc           func(matches []Match) error
	InsertRatingEventsFunc      func(events []RatingEvent) error
	TournamentMatchesFunc       func(tournamentID string) ([]Match, error)
	RatingEventsForMatchesFunc  func(matchIDs []string) ([]RatingEvent, error)
	DeleteRatingEventsFunc      func(matchIDs []string) error
	DeleteTournamentMatchesFunc func(tournamentID string) error
	LeaderboardFunc             func(seasonID string, limit int, stickyUserID string) ([]LeaderboardEntry, error)
	PlayerHistoryFunc           func(seasonID, userID string, limit int) ([]HistoryEntry, error)

	// Call records
	SetTournamentStateCalls      []SetTournamentStateCall
	UpsertRegistrationsCalls     [][]Registration
	LoadRatingStatesCalls        [][]string
	UpsertRatingStatesCalls      []map[string]*RatingState
	RollbackRatingStateCalls     []RollbackRatingStateCall
	InsertMatchesCalls           [][]Match
	InsertRatingEventsCalls      [][]RatingEvent
	DeleteRatingEventsCalls      [][]string
	DeleteTournamentMatchesCalls []string
	RegisterPlayerCalls          []RegisterPlayerCall
}

// SetTournamentStateCall records one SetTournamentState invocation.
type SetTournamentStateCall struct {
	ID    string
	State TournamentState
}

// RollbackRatingStateCall records one RollbackRatingState invocation.
type RollbackRatingStateCall struct {
	SeasonID        string
	UserID          string
	RestoredRating  int
	MatchesToRemove int
}

// RegisterPlayerCall records one RegisterPlayer invocation.
type RegisterPlayerCall struct {
	TournamentID string
	UserID       string
	DisplayName  string
}

var _ Store = (*MockStore)(nil)

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

func (m *MockStore) CreateUser(username string) (*User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(username)
	}
	return &User{ID: "AB3CD", Username: username}, nil
}

func (m *MockStore) GetUser(id string) (*User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(id)
	}
	return nil, nil
}

func (m *MockStore) GetSeason(id string) (*Season, error) {
	if m.GetSeasonFunc != nil {
		return m.GetSeasonFunc(id)
	}
	return nil, nil
}

func (m *MockStore) GetActiveSeason() (*Season, error) {
	if m.GetActiveSeasonFunc != nil {
		return m.GetActiveSeasonFunc()
	}
	return nil, nil
}

func (m *MockStore) CreateSeason(kFactor *int) (*Season, error) {
	if m.CreateSeasonFunc != nil {
		return m.CreateSeasonFunc(kFactor)
	}
	return &Season{ID: "season-1", Status: SeasonActive, KFactor: kFactor}, nil
}

func (m *MockStore) FinalizeActiveSeason() (*Season, error) {
	if m.FinalizeActiveSeasonFunc != nil {
		return m.FinalizeActiveSeasonFunc()
	}
	return nil, nil
}

func (m *MockStore) CreateTournament(name, seasonID, challongeURL string) (*Tournament, error) {
	if m.CreateTournamentFunc != nil {
		return m.CreateTournamentFunc(name, seasonID, challongeURL)
	}
	return &Tournament{ID: "t-1", Name: name, SeasonID: seasonID, ChallongeURL: challongeURL, State: TournamentRegistered}, nil
}

func (m *MockStore) GetTournament(id string) (*Tournament, error) {
	if m.GetTournamentFunc != nil {
		return m.GetTournamentFunc(id)
	}
	return nil, nil
}

func (m *MockStore) ListSeasonTournaments(seasonID string) ([]Tournament, error) {
	if m.ListSeasonTournamentsFunc != nil {
		return m.ListSeasonTournamentsFunc(seasonID)
	}
	return []Tournament{}, nil
}

func (m *MockStore) SetTournamentState(id string, state TournamentState) error {
	m.mu.Lock()
	m.SetTournamentStateCalls = append(m.SetTournamentStateCalls, SetTournamentStateCall{ID: id, State: state})
	m.mu.Unlock()
	if m.SetTournamentStateFunc != nil {
		return m.SetTournamentStateFunc(id, state)
	}
	return nil
}

func (m *MockStore) RegisterPlayer(tournamentID, userID, displayName string) error {
	m.mu.Lock()
	m.RegisterPlayerCalls = append(m.RegisterPlayerCalls, RegisterPlayerCall{tournamentID, userID, displayName})
	m.mu.Unlock()
	if m.RegisterPlayerFunc != nil {
		return m.RegisterPlayerFunc(tournamentID, userID, displayName)
	}
	return nil
}

func (m *MockStore) GetRegistrations(tournamentID string) ([]Registration, error) {
	if m.GetRegistrationsFunc != nil {
		return m.GetRegistrationsFunc(tournamentID)
	}
	return []Registration{}, nil
}

func (m *MockStore) UpsertRegistrations(regs []Registration) error {
	m.mu.Lock()
	m.UpsertRegistrationsCalls = append(m.UpsertRegistrationsCalls, regs)
	m.mu.Unlock()
	if m.UpsertRegistrationsFunc != nil {
		return m.UpsertRegistrationsFunc(regs)
	}
	return nil
}

func (m *MockStore) LoadRatingStates(seasonID string, userIDs []string) (map[string]*RatingState, error) {
	m.mu.Lock()
	m.LoadRatingStatesCalls = append(m.LoadRatingStatesCalls, userIDs)
	m.mu.Unlock()
	if m.LoadRatingStatesFunc != nil {
		return m.LoadRatingStatesFunc(seasonID, userIDs)
	}
	states := make(map[string]*RatingState, len(userIDs))
	for _, id := range userIDs {
		states[id] = &RatingState{Rating: 1000}
	}
	return states, nil
}

func (m *MockStore) UpsertRatingStates(seasonID string, states map[string]*RatingState) error {
	m.mu.Lock()
	m.UpsertRatingStatesCalls = append(m.UpsertRatingStatesCalls, states)
	m.mu.Unlock()
	if m.UpsertRatingStatesFunc != nil {
		return m.UpsertRatingStatesFunc(seasonID, states)
	}
	return nil
}

func (m *MockStore) RollbackRatingState(seasonID, userID string, restoredRating, matchesToRemove int) error {
	m.mu.Lock()
	m.RollbackRatingStateCalls = append(m.RollbackRatingStateCalls, RollbackRatingStateCall{seasonID, userID, restoredRating, matchesToRemove})
	m.mu.Unlock()
	if m.RollbackRatingStateFunc != nil {
		return m.RollbackRatingStateFunc(seasonID, userID, restoredRating, matchesToRemove)
	}
	return nil
}

func (m *MockStore) InsertMatches(matches []Match) error {
	m.mu.Lock()
	m.InsertMatchesCalls = append(m.InsertMatchesCalls, matches)
	m.mu.Unlock()
	if m.InsertMatchesFunc != nil {
		return m.InsertMatchesFunc(matches)
	}
	return nil
}

func (m *MockStore) InsertRatingEvents(events []RatingEvent) error {
	m.mu.Lock()
	m.InsertRatingEventsCalls = append(m.InsertRatingEventsCalls, events)
	m.mu.Unlock()
	if m.InsertRatingEventsFunc != nil {
		return m.InsertRatingEventsFunc(events)
	}
	return nil
}

func (m *MockStore) TournamentMatches(tournamentID string) ([]Match, error) {
	if m.TournamentMatchesFunc != nil {
		return m.TournamentMatchesFunc(tournamentID)
	}
	return []Match{}, nil
}

func (m *MockStore) RatingEventsForMatches(matchIDs []string) ([]RatingEvent, error) {
	if m.RatingEventsForMatchesFunc != nil {
		return m.RatingEventsForMatchesFunc(matchIDs)
	}
	return []RatingEvent{}, nil
}

func (m *MockStore) DeleteRatingEvents(matchIDs []string) error {
	m.mu.Lock()
	m.DeleteRatingEventsCalls = append(m.DeleteRatingEventsCalls, matchIDs)
	m.mu.Unlock()
	if m.DeleteRatingEventsFunc != nil {
		return m.DeleteRatingEventsFunc(matchIDs)
	}
	return nil
}

func (m *MockStore) DeleteTournamentMatches(tournamentID string) error {
	m.mu.Lock()
	m.DeleteTournamentMatchesCalls = append(m.DeleteTournamentMatchesCalls, tournamentID)
	m.mu.Unlock()
	if m.DeleteTournamentMatchesFunc != nil {
		return m.DeleteTournamentMatchesFunc(tournamentID)
	}
	return nil
}

func (m *MockStore) Leaderboard(seasonID string, limit int, stickyUserID string) ([]LeaderboardEntry, error) {
	if m.LeaderboardFunc != nil {
		return m.LeaderboardFunc(seasonID, limit, stickyUserID)
	}
	return []LeaderboardEntry{}, nil
}

func (m *MockStore) PlayerHistory(seasonID, userID string, limit int) ([]HistoryEntry, error) {
	if m.PlayerHistoryFunc != nil {
		return m.PlayerHistoryFunc(seasonID, userID, limit)
	}
	return []HistoryEntry{}, nil
}
