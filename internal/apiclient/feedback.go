package apiclient

import (
	"context"
	"net/http"

	"citizenconnect/webclient/internal/domain"
)

type FeedbackRequest struct {
	PoliticianID int64  `json:"politicianId"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment,omitempty"`
	Category     string `json:"category,omitempty"`
}

type FeedbackAPI struct {
	c *Client
}

func (a *FeedbackAPI) Submit(ctx context.Context, req FeedbackRequest) (domain.Feedback, error) {
	var out domain.Feedback
	err := a.c.call(ctx, http.MethodPost, "/feedback", nil, req, &out)
	return out, err
}

func (a *FeedbackAPI) ByPolitician(ctx context.Context, politicianID int64) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := a.c.call(ctx, http.MethodGet, idPath("/feedback/politician/%d", politicianID), nil, nil, &out)
	return out, err
}

func (a *FeedbackAPI) PoliticianStats(ctx context.Context, politicianID int64) (domain.PoliticianStats, error) {
	var out domain.PoliticianStats
	err := a.c.call(ctx, http.MethodGet, idPath("/feedback/politician/%d/stats", politicianID), nil, nil, &out)
	return out, err
}

// AverageRating is zero when the politician has no feedback yet.
func (a *FeedbackAPI) AverageRating(ctx context.Context, politicianID int64) (float64, error) {
	var out float64
	err := a.c.call(ctx, http.MethodGet, idPath("/feedback/politician/%d/average", politicianID), nil, nil, &out)
	return out, err
}

func (a *FeedbackAPI) Mine(ctx context.Context) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := a.c.call(ctx, http.MethodGet, "/feedback/my-feedback", nil, nil, &out)
	return out, err
}

func (a *FeedbackAPI) Received(ctx context.Context) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := a.c.call(ctx, http.MethodGet, "/feedback/received", nil, nil, &out)
	return out, err
}

func (a *FeedbackAPI) Delete(ctx context.Context, id int64) error {
	return a.c.call(ctx, http.MethodDelete, idPath("/feedback/%d", id), nil, nil, nil)
}
