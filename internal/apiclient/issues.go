package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"citizenconnect/webclient/internal/domain"
)

type CreateIssueRequest struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	Category             string `json:"category"`
	Location             string `json:"location,omitempty"`
	AssignedPoliticianID *int64 `json:"assignedPoliticianId,omitempty"`
}

type IssuesAPI struct {
	c *Client
}

func (a *IssuesAPI) All(ctx context.Context) ([]domain.Issue, error) {
	return a.list(ctx, "/issues", nil)
}

func (a *IssuesAPI) ByID(ctx context.Context, id int64) (domain.Issue, error) {
	var out domain.Issue
	err := a.c.call(ctx, http.MethodGet, idPath("/issues/%d", id), nil, nil, &out)
	return out, err
}

func (a *IssuesAPI) Mine(ctx context.Context) ([]domain.Issue, error) {
	return a.list(ctx, "/issues/my-issues", nil)
}

func (a *IssuesAPI) Assigned(ctx context.Context) ([]domain.Issue, error) {
	return a.list(ctx, "/issues/assigned", nil)
}

func (a *IssuesAPI) ByStatus(ctx context.Context, status domain.IssueStatus) ([]domain.Issue, error) {
	return a.list(ctx, "/issues/status/"+url.PathEscape(string(status)), nil)
}

func (a *IssuesAPI) Search(ctx context.Context, keyword string) ([]domain.Issue, error) {
	return a.list(ctx, "/issues/search", url.Values{"keyword": {keyword}})
}

func (a *IssuesAPI) Create(ctx context.Context, req CreateIssueRequest) (domain.Issue, error) {
	var out domain.Issue
	err := a.c.call(ctx, http.MethodPost, "/issues", nil, req, &out)
	return out, err
}

func (a *IssuesAPI) Assign(ctx context.Context, id, politicianID int64) (domain.Issue, error) {
	var out domain.Issue
	q := url.Values{"politicianId": {strconv.FormatInt(politicianID, 10)}}
	err := a.c.call(ctx, http.MethodPut, idPath("/issues/%d/assign", id), q, nil, &out)
	return out, err
}

func (a *IssuesAPI) Respond(ctx context.Context, id int64, response string) (domain.Issue, error) {
	var out domain.Issue
	body := map[string]string{"response": response}
	err := a.c.call(ctx, http.MethodPut, idPath("/issues/%d/respond", id), nil, body, &out)
	return out, err
}

func (a *IssuesAPI) Resolve(ctx context.Context, id int64, notes string) (domain.Issue, error) {
	var out domain.Issue
	body := map[string]string{"resolutionNotes": notes}
	err := a.c.call(ctx, http.MethodPut, idPath("/issues/%d/resolve", id), nil, body, &out)
	return out, err
}

func (a *IssuesAPI) UpdateStatus(ctx context.Context, id int64, status domain.IssueStatus) (domain.Issue, error) {
	var out domain.Issue
	q := url.Values{"status": {string(status)}}
	err := a.c.call(ctx, http.MethodPut, idPath("/issues/%d/status", id), q, nil, &out)
	return out, err
}

func (a *IssuesAPI) Delete(ctx context.Context, id int64) error {
	return a.c.call(ctx, http.MethodDelete, idPath("/issues/%d", id), nil, nil, nil)
}

func (a *IssuesAPI) Stats(ctx context.Context) (domain.IssueStats, error) {
	var out domain.IssueStats
	err := a.c.call(ctx, http.MethodGet, "/issues/stats", nil, nil, &out)
	return out, err
}

func (a *IssuesAPI) list(ctx context.Context, path string, q url.Values) ([]domain.Issue, error) {
	var out []domain.Issue
	if err := a.c.call(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
