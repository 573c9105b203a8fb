package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"citizenconnect/webclient/internal/domain"
)

type ProfileUpdate struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Constituency string `json:"constituency,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type UsersAPI struct {
	c *Client
}

func (a *UsersAPI) All(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := a.c.call(ctx, http.MethodGet, "/users", nil, nil, &out)
	return out, err
}

func (a *UsersAPI) ByID(ctx context.Context, id int64) (domain.User, error) {
	var out domain.User
	err := a.c.call(ctx, http.MethodGet, idPath("/users/%d", id), nil, nil, &out)
	return out, err
}

func (a *UsersAPI) ByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	err := a.c.call(ctx, http.MethodGet, "/users/role/"+url.PathEscape(string(role)), nil, nil, &out)
	return out, err
}

func (a *UsersAPI) Politicians(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := a.c.call(ctx, http.MethodGet, "/users/politicians", nil, nil, &out)
	return out, err
}

func (a *UsersAPI) PoliticiansByConstituency(ctx context.Context, constituency string) ([]domain.User, error) {
	var out []domain.User
	err := a.c.call(ctx, http.MethodGet, "/users/politicians/constituency/"+url.PathEscape(constituency), nil, nil, &out)
	return out, err
}

func (a *UsersAPI) Create(ctx context.Context, req RegisterRequest) (domain.User, error) {
	var out domain.User
	err := a.c.call(ctx, http.MethodPost, "/users", nil, req, &out)
	return out, err
}

func (a *UsersAPI) Update(ctx context.Context, id int64, req ProfileUpdate) (domain.User, error) {
	var out domain.User
	err := a.c.call(ctx, http.MethodPut, idPath("/users/%d", id), nil, req, &out)
	return out, err
}

func (a *UsersAPI) UpdateRole(ctx context.Context, id int64, role domain.Role) (domain.User, error) {
	var out domain.User
	q := url.Values{"role": {string(role)}}
	err := a.c.call(ctx, http.MethodPut, idPath("/users/%d/role", id), q, nil, &out)
	return out, err
}

func (a *UsersAPI) ToggleStatus(ctx context.Context, id int64) (domain.User, error) {
	var out domain.User
	err := a.c.call(ctx, http.MethodPut, idPath("/users/%d/toggle-status", id), nil, nil, &out)
	return out, err
}

func (a *UsersAPI) Delete(ctx context.Context, id int64) error {
	return a.c.call(ctx, http.MethodDelete, idPath("/users/%d", id), nil, nil, nil)
}

func (a *UsersAPI) Stats(ctx context.Context) (domain.UserStats, error) {
	var out domain.UserStats
	err := a.c.call(ctx, http.MethodGet, "/users/stats", nil, nil, &out)
	return out, err
}
