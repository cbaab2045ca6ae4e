// Package store holds the client-side application state. State is only
// changed by dispatching action records through Store.Dispatch; each slice
// has a pure reducer that returns its input unchanged for actions it does
// not handle.
package store

import (
	"slices"
	"sync"

	"minimarket/internal/domain"
)

// Action is an immutable record of something that happened
type Action interface {
	ActionType() string
}

// State is a snapshot of every slice. Snapshots are never mutated; a
// dispatch produces a new one.
type State struct {
	Products   ProductsState
	Categories CategoriesState
	Cart       CartState
	Auth       AuthState
	AdminUsers AdminUsersState
	AppConfig  AppConfigState
}

// Listener is called after every dispatch with the new snapshot
type Listener func(State)

// Store serializes dispatches and publishes snapshots to listeners
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// InitialState is the state of a freshly constructed store
func InitialState() State {
	return State{
		Products:   ProductsState{Items: []domain.Product{}},
		Categories: CategoriesState{Items: []domain.Category{}},
		Cart:       CartState{Items: []domain.CartItem{}},
		Auth:       AuthState{Checking: true},
		AdminUsers: AdminUsersState{Items: []domain.AdminUser{}},
		AppConfig:  AppConfigState{Config: domain.DefaultAppConfig()},
	}
}

// New creates a store seeded with InitialState
func New() *Store {
	return NewWithState(InitialState())
}

// NewWithState creates a store seeded with the given snapshot
func NewWithState(state State) *Store {
	return &Store{
		state:     state,
		listeners: make(map[int]Listener),
	}
}

// Reduce applies action to every slice
func Reduce(state State, action Action) State {
	return State{
		Products:   reduceProducts(state.Products, action),
		Categories: reduceCategories(state.Categories, action),
		Cart:       reduceCart(state.Cart, action),
		Auth:       reduceAuth(state.Auth, action),
		AdminUsers: reduceAdminUsers(state.AdminUsers, action),
		AppConfig:  reduceAppConfig(state.AppConfig, action),
	}
}

// Dispatch reduces action into a new snapshot and notifies listeners in
// registration order. Dispatches are applied strictly in call order.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	next := Reduce(s.state, action)
	s.state = next
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// State returns the current snapshot
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers l and returns a function that removes it
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) snapshotListeners() []Listener {
	if len(s.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	// ids are assigned monotonically, so sorting restores registration order
	slices.Sort(ids)
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = s.listeners[id]
	}
	return out
}
