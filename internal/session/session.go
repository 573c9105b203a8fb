// Package session holds the credential and current user of the running
// client and mirrors both into client-local storage.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"citizenconnect/webclient/internal/domain"
	"citizenconnect/webclient/internal/storage"
)

const (
	TokenKey = "token"
	UserKey  = "user"
)

var ErrNoCredential = errors.New("session has no credential")

// Session is safe for concurrent use. There is exactly one per running
// client.
type Session struct {
	store storage.Store

	mu      sync.RWMutex
	token   string
	user    *domain.User
	onClear []func()
}

// New hydrates the session from store. A stored user that no longer decodes
// is dropped rather than failing startup.
func New(store storage.Store) (*Session, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	s := &Session{store: store}

	token, err := store.Get(TokenKey)
	switch {
	case err == nil:
		s.token = token
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("read stored token: %w", err)
	}

	raw, err := store.Get(UserKey)
	switch {
	case err == nil:
		var u domain.User
		if jsonErr := json.Unmarshal([]byte(raw), &u); jsonErr == nil {
			s.user = &u
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("read stored user: %w", err)
	}
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) Establish(token string, user domain.User) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoCredential
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The token is written last so a stored token always has a stored user.
	if err := s.store.Set(UserKey, string(raw)); err != nil {
		return s.discardPartial(fmt.Errorf("persist user: %w", err))
	}
	if err := s.store.Set(TokenKey, token); err != nil {
		return s.discardPartial(fmt.Errorf("persist token: %w", err))
	}
	s.token = token
	s.user = &user
	return nil
}

// discardPartial removes whatever a failed Establish left in storage. The
// in-memory session is untouched.
func (s *Session) discardPartial(cause error) error {
	if err := s.store.Remove(TokenKey, UserKey); err != nil {
		return errors.Join(cause, fmt.Errorf("remove partial session: %w", err))
	}
	return cause
}

func (s *Session) UpdateUser(user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(UserKey, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	s.user = &user
	return nil
}

// Clear removes both storage entries and notifies OnClear listeners. The
// in-memory state is reset even when storage fails.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	err := s.store.Remove(TokenKey, UserKey)
	listeners := append([]func(){}, s.onClear...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	if err != nil {
		return fmt.Errorf("remove session entries: %w", err)
	}
	return nil
}

// OnClear registers fn to run after every Clear, outside the session lock.
func (s *Session) OnClear(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}
