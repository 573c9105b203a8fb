package store

import (
	"context"

	"citizenconnect/webclient/internal/apiclient"
	"citizenconnect/webclient/internal/domain"
)

const (
	msgLoginFailed    = "Login failed"
	msgRegisterFailed = "Registration failed"
	msgFetchUser      = "Failed to fetch user"
)

func authPending(st *State) {
	st.Auth.Loading = true
	st.Auth.Error = ""
	st.Auth.Status = StatusPending
}

func authRejected(err error, fallback string) func(*State) {
	msg := apiclient.Message(err, fallback)
	return func(st *State) {
		st.Auth.Loading = false
		st.Auth.Error = msg
		st.Auth.Status = StatusRejected
	}
}

// Login persists the credential and user before the slice is updated. A
// failed attempt leaves storage untouched.
func (s *Store) Login(ctx context.Context, creds apiclient.Credentials) (domain.User, error) {
	gen := s.start("", authPending)

	res, err := s.api.Auth.Login(ctx, creds)
	if err == nil {
		err = s.session.Establish(res.Token, res.User)
	}
	if err != nil {
		s.settle("", gen, authRejected(err, msgLoginFailed))
		return domain.User{}, err
	}

	user := res.User
	s.settle("", gen, func(st *State) {
		st.Auth.Loading = false
		st.Auth.Status = StatusFulfilled
		st.Auth.User = &user
		st.Auth.Token = res.Token
		st.Auth.IsAuthenticated = true
	})
	s.logger.Info("signed in", "user_id", user.ID, "role", string(user.Role))
	return user, nil
}

// Register creates an account. The viewer is signed in only when the server
// answers with a credential.
func (s *Store) Register(ctx context.Context, req apiclient.RegisterRequest) (apiclient.RegisterResult, error) {
	gen := s.start("", authPending)

	res, err := s.api.Auth.Register(ctx, req)
	if err == nil && res.Token != "" {
		err = s.session.Establish(res.Token, res.User)
	}
	if err != nil {
		s.settle("", gen, authRejected(err, msgRegisterFailed))
		return apiclient.RegisterResult{}, err
	}

	user := res.User
	s.settle("", gen, func(st *State) {
		st.Auth.Loading = false
		st.Auth.Status = StatusFulfilled
		if res.Token != "" {
			st.Auth.User = &user
			st.Auth.Token = res.Token
			st.Auth.IsAuthenticated = true
		}
	})
	return res, nil
}

func (s *Store) FetchCurrentUser(ctx context.Context) (domain.User, error) {
	gen := s.start(fetchCurrentUser, authPending)

	user, err := s.api.Auth.CurrentUser(ctx)
	if err != nil {
		s.settle(fetchCurrentUser, gen, authRejected(err, msgFetchUser))
		return domain.User{}, err
	}
	applied := s.settle(fetchCurrentUser, gen, func(st *State) {
		st.Auth.Loading = false
		st.Auth.Status = StatusFulfilled
		st.Auth.User = &user
	})
	if applied {
		if err := s.session.UpdateUser(user); err != nil {
			s.logger.Error("persist current user failed", "error", err)
		}
	}
	return user, nil
}

// Logout clears the session; the auth slice is reset by the session's clear
// notification.
func (s *Store) Logout() error {
	return s.session.Clear()
}

func (s *Store) ClearError() {
	s.reduce(func(st *State) { st.Auth.Error = "" })
}

func (s *Store) UpdateUser(user domain.User) error {
	if err := s.session.UpdateUser(user); err != nil {
		return err
	}
	s.reduce(func(st *State) { st.Auth.User = &user })
	return nil
}
