package apiclient

import (
	"context"
	"net/http"

	"citizenconnect/webclient/internal/domain"
)

type CommentsAPI struct {
	c *Client
}

func (a *CommentsAPI) ByIssue(ctx context.Context, issueID int64) ([]domain.Comment, error) {
	var out []domain.Comment
	err := a.c.call(ctx, http.MethodGet, idPath("/comments/issue/%d", issueID), nil, nil, &out)
	return out, err
}

func (a *CommentsAPI) Add(ctx context.Context, issueID int64, content string) (domain.Comment, error) {
	var out domain.Comment
	body := map[string]string{"content": content}
	err := a.c.call(ctx, http.MethodPost, idPath("/comments/issue/%d", issueID), nil, body, &out)
	return out, err
}

func (a *CommentsAPI) Flagged(ctx context.Context) ([]domain.Comment, error) {
	var out []domain.Comment
	err := a.c.call(ctx, http.MethodGet, "/comments/flagged", nil, nil, &out)
	return out, err
}

func (a *CommentsAPI) Flag(ctx context.Context, id int64, reason string) (domain.Comment, error) {
	var out domain.Comment
	body := map[string]string{"reason": reason}
	err := a.c.call(ctx, http.MethodPut, idPath("/comments/%d/flag", id), nil, body, &out)
	return out, err
}

func (a *CommentsAPI) Unflag(ctx context.Context, id int64) (domain.Comment, error) {
	var out domain.Comment
	err := a.c.call(ctx, http.MethodPut, idPath("/comments/%d/unflag", id), nil, nil, &out)
	return out, err
}

func (a *CommentsAPI) Delete(ctx context.Context, id int64) error {
	return a.c.call(ctx, http.MethodDelete, idPath("/comments/%d", id), nil, nil, nil)
}
