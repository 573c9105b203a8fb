package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"citizenconnect/webclient/internal/apiclient"
	"citizenconnect/webclient/internal/audit"
	"citizenconnect/webclient/internal/domain"
	"citizenconnect/webclient/internal/notify"
	"citizenconnect/webclient/internal/routes"
)

// pageLoader fetches what a page shows. It may return partial data together
// with an error.
type pageLoader func(ctx context.Context, r *http.Request, d routes.Decision, user *domain.User) (any, error)

type leavePage struct {
	to      string
	message string
	err     error
}

func (e *leavePage) Error() string { return e.message + ": " + e.err.Error() }
func (e *leavePage) Unwrap() error { return e.err }

func (h *handler) pageLoaders() map[string]pageLoader {
	return map[string]pageLoader{
		"login":         h.loadAuthForm,
		"register":      h.loadAuthForm,
		"dashboard":     h.loadDashboard,
		"issues":        h.loadIssues,
		"issue-detail":  h.loadIssueDetail,
		"create-issue":  h.loadCreateIssue,
		"updates":       h.loadUpdates,
		"create-update": h.loadCreateUpdate,
		"politicians":   h.loadPoliticians,
		"feedback":      h.loadFeedback,
		"profile":       h.loadProfile,
		"admin":         h.loadAdmin,
	}
}

func (h *handler) servePage(w http.ResponseWriter, r *http.Request) {
	path := routes.Clean(r.URL.Path)
	v, user := h.viewer()

	d := h.Routes.Resolve(path, v)
	if !d.Allowed() {
		if d.Route.Page != "" {
			h.record(r, user, audit.ActionRouteDenied, path, audit.OutcomeDenied, d.Reason)
		}
		http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
		return
	}
	h.History.Visit(path)

	var data any
	if load := h.loaders[d.Route.Page]; load != nil {
		loaded, err := load(r.Context(), r, d, user)
		if redirect, ok := h.History.TakeRedirect(); ok {
			h.record(r, user, audit.ActionForcedLogout, path, audit.OutcomeSuccess, "unauthorized response")
			http.Redirect(w, r, redirect, http.StatusSeeOther)
			return
		}
		if err != nil {
			var leave *leavePage
			if errors.As(err, &leave) {
				h.Toasts.Error(leave.message)
				http.Redirect(w, r, leave.to, http.StatusSeeOther)
				return
			}
			h.toastError(err, "Failed to load page")
			h.Logger.Warn("page load failed", "page", d.Route.Page, "request_id", requestIDFromContext(r.Context()), "error", err)
		}
		data = loaded
	}

	v, user = h.viewer()
	writeJSON(w, http.StatusOK, pageView{
		Route:  path,
		Page:   d.Route.Page,
		Params: d.Params,
		Viewer: newViewerView(v, user),
		Nav:    routes.NavLinks(v),
		Data:   data,
		Toasts: h.Toasts.Drain(),
	})
}

func (h *handler) toastError(err error, fallback string) {
	if apiclient.IsRejection(err) {
		h.Toasts.Error(apiclient.Message(err, fallback))
		return
	}
	h.Toasts.Error(notify.GenericFailure)
}

func (h *handler) loadAuthForm(context.Context, *http.Request, routes.Decision, *domain.User) (any, error) {
	auth := h.Store.Snapshot().Auth
	if auth.Error != "" {
		h.Store.ClearError()
	}
	return map[string]any{"loading": auth.Loading, "error": auth.Error}, nil
}

type issueCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
}

func countIssues(issues []domain.Issue) issueCounts {
	c := issueCounts{Total: len(issues)}
	for _, i := range issues {
		switch i.Status {
		case domain.StatusOpen, domain.StatusInProgress:
			c.Pending++
		case domain.StatusResolved:
			c.Resolved++
		}
	}
	return c
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func (h *handler) loadDashboard(ctx context.Context, r *http.Request, d routes.Decision, user *domain.User) (any, error) {
	role := domain.RoleCitizen
	if user != nil {
		role = user.Role
	}

	switch role {
	case domain.RoleAdmin:
		return h.loadAdmin(ctx, r, d, user)
	case domain.RoleModerator:
		flagged, err := h.API.Comments.Flagged(ctx)
		return map[string]any{
			"kind":    "moderator",
			"flagged": newCommentViews(flagged),
		}, err
	case domain.RolePolitician:
		issues, err := h.Store.FetchAssignedIssues(ctx)
		if err != nil {
			return map[string]any{"kind": "politician"}, err
		}
		updates, err := h.Store.FetchMyUpdates(ctx)
		return map[string]any{
			"kind":    "politician",
			"counts":  countIssues(issues),
			"issues":  newIssueViews(firstN(issues, 5)),
			"updates": newUpdateViews(firstN(updates, 3)),
		}, err
	default:
		issues, err := h.Store.FetchMyIssues(ctx)
		if err != nil {
			return map[string]any{"kind": "citizen"}, err
		}
		updates, err := h.Store.FetchUpdates(ctx)
		return map[string]any{
			"kind":    "citizen",
			"counts":  countIssues(issues),
			"issues":  newIssueViews(firstN(issues, 5)),
			"updates": newUpdateViews(firstN(updates, 3)),
		}, err
	}
}

// loadIssues picks the list by role and applies the ?q= and ?status=
// filters locally.
func (h *handler) loadIssues(ctx context.Context, r *http.Request, _ routes.Decision, user *domain.User) (any, error) {
	var (
		issues []domain.Issue
		err    error
	)
	role := domain.Role("")
	if user != nil {
		role = user.Role
	}
	switch role {
	case domain.RoleCitizen:
		issues, err = h.Store.FetchMyIssues(ctx)
	case domain.RolePolitician:
		issues, err = h.Store.FetchAssignedIssues(ctx)
	default:
		issues, err = h.Store.FetchIssues(ctx)
	}

	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	var want domain.IssueStatus
	if status != "" && !strings.EqualFold(status, "ALL") {
		parsed, parseErr := domain.ParseIssueStatus(status)
		if parseErr == nil {
			want = parsed
		}
	}

	filtered := make([]domain.Issue, 0, len(issues))
	for _, i := range issues {
		if q != "" && !strings.Contains(strings.ToLower(i.Title), q) && !strings.Contains(strings.ToLower(i.Description), q) {
			continue
		}
		if want != "" && i.Status != want {
			continue
		}
		filtered = append(filtered, i)
	}

	return map[string]any{
		"issues":    newIssueViews(filtered),
		"total":     len(issues),
		"canCreate": role == domain.RoleCitizen,
	}, err
}

func (h *handler) loadIssueDetail(ctx context.Context, _ *http.Request, d routes.Decision, user *domain.User) (any, error) {
	const failed = "Failed to load issue details"

	id, err := strconv.ParseInt(d.Params["id"], 10, 64)
	if err != nil || id <= 0 {
		return nil, &leavePage{to: "/issues", message: failed, err: errors.New("invalid issue id")}
	}
	issue, err := h.API.Issues.ByID(ctx, id)
	if err != nil {
		return nil, &leavePage{to: "/issues", message: failed, err: err}
	}
	comments, err := h.API.Comments.ByIssue(ctx, id)
	if err != nil {
		return nil, &leavePage{to: "/issues", message: failed, err: err}
	}
	h.Store.SetCurrentIssue(&issue)

	return map[string]any{
		"issue":      newIssueView(issue),
		"comments":   newCommentViews(comments),
		"canRespond": canRespond(issue, user),
	}, nil
}

// canRespond is true for the politician the issue is assigned to while the
// issue is still open for work.
func canRespond(issue domain.Issue, user *domain.User) bool {
	if user == nil || user.Role != domain.RolePolitician {
		return false
	}
	if issue.AssignedPoliticianID == nil || *issue.AssignedPoliticianID != user.ID {
		return false
	}
	return issue.Status != domain.StatusResolved && issue.Status != domain.StatusClosed
}

func (h *handler) loadCreateIssue(ctx context.Context, _ *http.Request, _ routes.Decision, _ *domain.User) (any, error) {
	politicians, err := h.API.Users.Politicians(ctx)
	if err != nil && !errors.Is(err, apiclient.ErrUnauthorized) {
		h.Logger.Warn("fetch politicians failed", "error", err)
		politicians, err = nil, nil
	}
	return map[string]any{
		"categories":  domain.IssueCategories,
		"politicians": newUserViews(politicians),
	}, err
}

func (h *handler) loadUpdates(ctx context.Context, _ *http.Request, _ routes.Decision, user *domain.User) (any, error) {
	updates, err := h.Store.FetchUpdates(ctx)
	return map[string]any{
		"updates":   newUpdateViews(updates),
		"canCreate": user != nil && user.Role == domain.RolePolitician,
	}, err
}

func (h *handler) loadCreateUpdate(context.Context, *http.Request, routes.Decision, *domain.User) (any, error) {
	return map[string]any{"categories": domain.UpdateCategories}, nil
}

type politicianView struct {
	userView
	AverageRating float64 `json:"averageRating"`
}

// loadPoliticians lists politicians, optionally by ?constituency=, each with
// its average rating. A rating that fails to load shows as zero.
func (h *handler) loadPoliticians(ctx context.Context, r *http.Request, _ routes.Decision, _ *domain.User) (any, error) {
	var (
		politicians []domain.User
		err         error
	)
	if c := strings.TrimSpace(r.URL.Query().Get("constituency")); c != "" {
		politicians, err = h.API.Users.PoliticiansByConstituency(ctx, c)
	} else {
		politicians, err = h.API.Users.Politicians(ctx)
	}
	if err != nil {
		return map[string]any{"politicians": []politicianView{}}, err
	}

	users := newUserViews(politicians)
	out := make([]politicianView, 0, len(users))
	for _, u := range users {
		avg, ratingErr := h.API.Feedback.AverageRating(ctx, u.ID)
		if ratingErr != nil {
			if errors.Is(ratingErr, apiclient.ErrUnauthorized) {
				return nil, ratingErr
			}
			avg = 0
		}
		out = append(out, politicianView{userView: u, AverageRating: avg})
	}
	return map[string]any{"politicians": out}, nil
}

func (h *handler) loadFeedback(ctx context.Context, _ *http.Request, _ routes.Decision, user *domain.User) (any, error) {
	if user != nil && user.Role == domain.RolePolitician {
		received, err := h.API.Feedback.Received(ctx)
		if err != nil {
			return map[string]any{"kind": "received"}, err
		}
		stats, err := h.API.Feedback.PoliticianStats(ctx, user.ID)
		return map[string]any{
			"kind":     "received",
			"feedback": newFeedbackViews(received),
			"stats":    stats,
		}, err
	}

	politicians, err := h.API.Users.Politicians(ctx)
	if err != nil {
		return map[string]any{"kind": "submit"}, err
	}
	mine, err := h.API.Feedback.Mine(ctx)
	return map[string]any{
		"kind":        "submit",
		"politicians": newUserViews(politicians),
		"feedback":    newFeedbackViews(mine),
		"categories":  domain.FeedbackCategories,
	}, err
}

func (h *handler) loadProfile(ctx context.Context, _ *http.Request, _ routes.Decision, user *domain.User) (any, error) {
	fresh, err := h.Store.FetchCurrentUser(ctx)
	if err != nil {
		if user == nil {
			return nil, err
		}
		return map[string]any{"user": newUserViews([]domain.User{*user})[0]}, err
	}
	return map[string]any{"user": newUserViews([]domain.User{fresh})[0]}, nil
}

func (h *handler) loadAdmin(ctx context.Context, _ *http.Request, _ routes.Decision, _ *domain.User) (any, error) {
	users, err := h.API.Users.All(ctx)
	if err != nil {
		return map[string]any{"kind": "admin"}, err
	}
	userStats, err := h.API.Users.Stats(ctx)
	if err != nil {
		return map[string]any{"kind": "admin", "users": newUserViews(users)}, err
	}
	issueStats, err := h.Store.FetchIssueStats(ctx)
	return map[string]any{
		"kind":       "admin",
		"users":      newUserViews(users),
		"userStats":  userStats,
		"issueStats": issueStats,
		"roles":      domain.Roles(),
	}, err
}
