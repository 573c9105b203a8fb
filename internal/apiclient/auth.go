package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"citizenconnect/webclient/internal/domain"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FullName     string      `json:"fullName"`
	Email        string      `json:"email"`
	Password     string      `json:"password"`
	Phone        string      `json:"phone,omitempty"`
	Constituency string      `json:"constituency,omitempty"`
	Role         domain.Role `json:"role,omitempty"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType"`
	User      domain.User `json:"user"`
}

// RegisterResult carries the created user and, when the server issues one,
// a credential.
type RegisterResult struct {
	Token string
	User  domain.User
}

type AuthAPI struct {
	c *Client
}

func (a *AuthAPI) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var out LoginResult
	err := a.c.call(ctx, http.MethodPost, "/auth/login", nil, creds, &out)
	return out, err
}

// Register accepts both a bare user record and a {token, user} payload.
func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	var raw json.RawMessage
	if err := a.c.call(ctx, http.MethodPost, "/auth/register", nil, req, &raw); err != nil {
		return RegisterResult{}, err
	}
	if len(raw) == 0 {
		return RegisterResult{}, nil
	}

	var withToken struct {
		Token string       `json:"token"`
		User  *domain.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &withToken); err == nil && withToken.User != nil {
		return RegisterResult{Token: withToken.Token, User: *withToken.User}, nil
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return RegisterResult{}, fmt.Errorf("decode registered user: %w", err)
	}
	return RegisterResult{User: user}, nil
}

func (a *AuthAPI) CurrentUser(ctx context.Context) (domain.User, error) {
	var out domain.User
	err := a.c.call(ctx, http.MethodGet, "/auth/me", nil, nil, &out)
	return out, err
}
