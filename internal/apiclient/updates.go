package apiclient

import (
	"context"
	"net/http"

	"citizenconnect/webclient/internal/domain"
)

type UpdateRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Published bool   `json:"published"`
}

type UpdatesAPI struct {
	c *Client
}

func (a *UpdatesAPI) All(ctx context.Context) ([]domain.Update, error) {
	var out []domain.Update
	err := a.c.call(ctx, http.MethodGet, "/updates", nil, nil, &out)
	return out, err
}

func (a *UpdatesAPI) ByID(ctx context.Context, id int64) (domain.Update, error) {
	var out domain.Update
	err := a.c.call(ctx, http.MethodGet, idPath("/updates/%d", id), nil, nil, &out)
	return out, err
}

func (a *UpdatesAPI) ByPolitician(ctx context.Context, politicianID int64) ([]domain.Update, error) {
	var out []domain.Update
	err := a.c.call(ctx, http.MethodGet, idPath("/updates/politician/%d", politicianID), nil, nil, &out)
	return out, err
}

func (a *UpdatesAPI) Mine(ctx context.Context) ([]domain.Update, error) {
	var out []domain.Update
	err := a.c.call(ctx, http.MethodGet, "/updates/my-updates", nil, nil, &out)
	return out, err
}

func (a *UpdatesAPI) Create(ctx context.Context, req UpdateRequest) (domain.Update, error) {
	var out domain.Update
	err := a.c.call(ctx, http.MethodPost, "/updates", nil, req, &out)
	return out, err
}

func (a *UpdatesAPI) Update(ctx context.Context, id int64, req UpdateRequest) (domain.Update, error) {
	var out domain.Update
	err := a.c.call(ctx, http.MethodPut, idPath("/updates/%d", id), nil, req, &out)
	return out, err
}

func (a *UpdatesAPI) Delete(ctx context.Context, id int64) error {
	return a.c.call(ctx, http.MethodDelete, idPath("/updates/%d", id), nil, nil, nil)
}
