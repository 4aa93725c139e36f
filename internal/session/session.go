// Package session keeps per-session UI state: the search keyword, the next
// page of the active infinite list, the saved scroll position and whether the
// visitor is signed in.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/bwise1/bookgroups/util/values"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("session not found")

type State struct {
	ID             string    `json:"id"`
	SearchKeyword  string    `json:"search_keyword"`
	SearchPage     int       `json:"search_page"`
	ScrollPosition int       `json:"scroll_position"`
	Authenticated  bool      `json:"authenticated"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// New returns the initial state of session id.
func New(id string) *State {
	return &State{ID: id, SearchPage: 1}
}

// Page and SetPage let a State act as the page counter of a scroll list.
func (s *State) Page() int {
	if s.SearchPage < 1 {
		return 1
	}
	return s.SearchPage
}

func (s *State) SetPage(n int) {
	s.SearchPage = n
}

type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, s *State) error
	Delete(ctx context.Context, id string) error
}

// Load returns the stored state of id, or a fresh one when none exists.
func Load(ctx context.Context, store Store, id string) (*State, error) {
	s, err := store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return New(id), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load session %s", id)
	}
	return s, nil
}

func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, values.ContextSessionKey, s)
}

// FromContext returns the session attached by the session middleware.
func FromContext(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(values.ContextSessionKey).(*State)
	return s, ok && s != nil
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]State
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]State), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *State) error {
	if s == nil || s.ID == "" {
		return errors.New("session without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = m.now()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
