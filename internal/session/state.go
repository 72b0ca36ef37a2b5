package session

import (
	"sync"

	"github.com/avoronov/finsession/internal/models"
)

// Snapshot is one consistent view of the session. Authenticated is derived:
// it is true exactly when both the token and the user are present, so no
// partially updated combination is ever observable.
type Snapshot struct {
	Authenticated bool
	User          *models.AuthUser
	AccessToken   string
}

// State holds the in-memory session fields and publishes changes to
// subscribers. The Manager is the single writer; everything else reads or
// subscribes.
type State struct {
	mu      sync.RWMutex
	current Snapshot

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

func NewState() *State {
	return &State{subs: make(map[int]func(Snapshot))}
}

// Current returns the latest snapshot
func (s *State) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *State) Authenticated() bool {
	return s.Current().Authenticated
}

func (s *State) User() *models.AuthUser {
	return s.Current().User
}

func (s *State) AccessToken() string {
	return s.Current().AccessToken
}

// Subscribe registers fn to be called with every new snapshot. The returned
// cancel func removes the subscription: state changes after cancel are not
// delivered, so an unmounted consumer stops receiving results.
func (s *State) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// set replaces all fields as a unit and notifies subscribers.
// Only the Manager calls it.
func (s *State) set(user *models.AuthUser, accessToken string) {
	next := Snapshot{
		Authenticated: user != nil && accessToken != "",
		User:          user,
		AccessToken:   accessToken,
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	s.notify(next)
}

func (s *State) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
