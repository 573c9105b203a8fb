package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"citizenconnect/webclient/internal/domain"
	"citizenconnect/webclient/internal/notify"
	"citizenconnect/webclient/internal/routes"
)

type pageView struct {
	Route  string            `json:"route"`
	Page   string            `json:"page"`
	Params map[string]string `json:"params,omitempty"`
	Viewer viewerView        `json:"viewer"`
	Nav    []routes.Link     `json:"nav"`
	Data   any               `json:"data"`
	Toasts []notify.Toast    `json:"toasts"`
}

type actionResult struct {
	Redirect string         `json:"redirect,omitempty"`
	Data     any            `json:"data,omitempty"`
	Toasts   []notify.Toast `json:"toasts"`
}

func writeAction(w http.ResponseWriter, status int, res actionResult) {
	if res.Toasts == nil {
		res.Toasts = []notify.Toast{}
	}
	writeJSON(w, status, res)
}

type viewerView struct {
	Authenticated bool          `json:"authenticated"`
	User          *domain.User  `json:"user,omitempty"`
	Initials      string        `json:"initials,omitempty"`
	Badge         *domain.Badge `json:"badge,omitempty"`
}

func newViewerView(v routes.Viewer, user *domain.User) viewerView {
	out := viewerView{Authenticated: v.Authenticated}
	if user != nil {
		b := user.Role.Badge()
		out.User = user
		out.Initials = user.Initials()
		out.Badge = &b
	}
	return out
}

type issueView struct {
	domain.Issue
	StatusBadge string `json:"statusBadge"`
	CreatedAgo  string `json:"createdAgo"`
}

func newIssueViews(issues []domain.Issue) []issueView {
	out := make([]issueView, 0, len(issues))
	for _, i := range issues {
		out = append(out, newIssueView(i))
	}
	return out
}

func newIssueView(i domain.Issue) issueView {
	return issueView{Issue: i, StatusBadge: i.Status.Badge(), CreatedAgo: ago(i.CreatedAt)}
}

type updateView struct {
	domain.Update
	CreatedAgo string `json:"createdAgo"`
}

func newUpdateViews(updates []domain.Update) []updateView {
	out := make([]updateView, 0, len(updates))
	for _, u := range updates {
		out = append(out, updateView{Update: u, CreatedAgo: ago(u.CreatedAt)})
	}
	return out
}

type commentView struct {
	domain.Comment
	AuthorBadge domain.Badge `json:"authorBadge"`
	CreatedAgo  string       `json:"createdAgo"`
}

func newCommentViews(comments []domain.Comment) []commentView {
	out := make([]commentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, commentView{Comment: c, AuthorBadge: c.UserRole.Badge(), CreatedAgo: ago(c.CreatedAt)})
	}
	return out
}

type userView struct {
	domain.User
	Badge    domain.Badge `json:"badge"`
	Initials string       `json:"initials"`
	Joined   string       `json:"joined"`
}

func newUserViews(users []domain.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{User: u, Badge: u.Role.Badge(), Initials: u.Initials(), Joined: ago(u.CreatedAt)})
	}
	return out
}

type feedbackView struct {
	domain.Feedback
	CreatedAgo string `json:"createdAgo"`
}

func newFeedbackViews(items []domain.Feedback) []feedbackView {
	out := make([]feedbackView, 0, len(items))
	for _, f := range items {
		out = append(out, feedbackView{Feedback: f, CreatedAgo: ago(f.CreatedAt)})
	}
	return out
}

type uploadView struct {
	domain.UploadedFile
	HumanSize string `json:"humanSize,omitempty"`
}

func newUploadView(f domain.UploadedFile) uploadView {
	out := uploadView{UploadedFile: f}
	if n, err := strconv.ParseUint(f.Size, 10, 64); err == nil {
		out.HumanSize = humanize.Bytes(n)
	}
	return out
}

func ago(ts domain.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return humanize.RelTime(ts.Time, time.Now(), "ago", "from now")
}
