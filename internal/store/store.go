// Package store is the client state container: the auth, issues and updates
// slices and the async operations that drive them.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"citizenconnect/webclient/internal/apiclient"
	"citizenconnect/webclient/internal/domain"
)

type Session interface {
	Token() string
	User() *domain.User
	Establish(token string, user domain.User) error
	UpdateUser(user domain.User) error
	Clear() error
	OnClear(fn func())
}

type AuthAPI interface {
	Login(ctx context.Context, creds apiclient.Credentials) (apiclient.LoginResult, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (apiclient.RegisterResult, error)
	CurrentUser(ctx context.Context) (domain.User, error)
}

type IssuesAPI interface {
	All(ctx context.Context) ([]domain.Issue, error)
	Mine(ctx context.Context) ([]domain.Issue, error)
	Assigned(ctx context.Context) ([]domain.Issue, error)
	Create(ctx context.Context, req apiclient.CreateIssueRequest) (domain.Issue, error)
	Stats(ctx context.Context) (domain.IssueStats, error)
}

type UpdatesAPI interface {
	All(ctx context.Context) ([]domain.Update, error)
	Mine(ctx context.Context) ([]domain.Update, error)
	Create(ctx context.Context, req apiclient.UpdateRequest) (domain.Update, error)
}

type API struct {
	Auth    AuthAPI
	Issues  IssuesAPI
	Updates UpdatesAPI
}

type Options struct {
	// DiscardStaleResponses drops the result of a fetch when a newer fetch of
	// the same data was started after it. Without it the last response to
	// arrive wins.
	DiscardStaleResponses bool
	Logger                *slog.Logger
}

// Store serializes every state transition under one mutex. Listeners are
// invoked after each transition with a snapshot, outside that mutex.
type Store struct {
	api     API
	session Session
	opts    Options
	logger  *slog.Logger

	mu          sync.Mutex
	state       State
	generations map[fetchKey]uint64
	listeners   []func(State)
	seq         uint64

	deliverMu sync.Mutex
	delivered uint64
}

type fetchKey string

const (
	fetchCurrentUser fetchKey = "auth.me"
	fetchIssueList   fetchKey = "issues.list"
	fetchIssueStats  fetchKey = "issues.stats"
	fetchUpdateList  fetchKey = "updates.list"
)

func New(api API, session Session, opts Options) (*Store, error) {
	if api.Auth == nil || api.Issues == nil || api.Updates == nil {
		return nil, fmt.Errorf("auth, issues and updates apis are required")
	}
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		api:         api,
		session:     session,
		opts:        opts,
		logger:      logger,
		generations: make(map[fetchKey]uint64),
	}
	token := session.Token()
	s.state = State{
		Auth: AuthState{
			User:            session.User(),
			Token:           token,
			IsAuthenticated: token != "",
			Status:          StatusIdle,
		},
		Issues:  IssuesState{Issues: []domain.Issue{}, Status: StatusIdle},
		Updates: UpdatesState{Updates: []domain.Update{}, Status: StatusIdle},
	}
	session.OnClear(s.resetAuth)
	return s, nil
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every subsequent transition. The returned func
// removes it.
//
// Snapshots reach listeners in transition order. A snapshot superseded by
// one already delivered is skipped, so once the store is idle the last
// snapshot seen equals Snapshot. fn must not start another transition.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

func (s *Store) reduce(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.notifyLocked()
}

// notifyLocked releases s.mu and fans the new snapshot out to listeners.
func (s *Store) notifyLocked() {
	s.seq++
	seq := s.seq
	snap := s.state.clone()
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if seq <= s.delivered {
		return
	}
	s.delivered = seq
	for _, l := range listeners {
		if l != nil {
			l(snap)
		}
	}
}

// start applies the pending transition and, for fetches, records a new
// generation of key. Non-fetch operations pass an empty key.
func (s *Store) start(key fetchKey, fn func(*State)) uint64 {
	s.mu.Lock()
	var gen uint64
	if key != "" {
		s.generations[key]++
		gen = s.generations[key]
	}
	fn(&s.state)
	s.notifyLocked()
	return gen
}

// settle applies fn unless a newer fetch of key was started and stale
// responses are being discarded.
func (s *Store) settle(key fetchKey, gen uint64, fn func(*State)) bool {
	s.mu.Lock()
	if current := s.generations[key]; s.opts.DiscardStaleResponses && gen != current {
		s.mu.Unlock()
		s.logger.Debug("stale response discarded", "fetch", string(key), "generation", gen, "current", current)
		return false
	}
	fn(&s.state)
	s.notifyLocked()
	return true
}

func (s *Store) resetAuth() {
	s.reduce(func(st *State) {
		st.Auth.User = nil
		st.Auth.Token = ""
		st.Auth.IsAuthenticated = false
		st.Auth.Error = ""
	})
}
