package store

import "citizenconnect/webclient/internal/domain"

type RequestStatus string

const (
	StatusIdle      RequestStatus = "idle"
	StatusPending   RequestStatus = "pending"
	StatusFulfilled RequestStatus = "fulfilled"
	StatusRejected  RequestStatus = "rejected"
)

type AuthState struct {
	User            *domain.User  `json:"user"`
	Token           string        `json:"-"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	Loading         bool          `json:"loading"`
	Error           string        `json:"error,omitempty"`
	Status          RequestStatus `json:"status"`
}

type IssuesState struct {
	Issues       []domain.Issue     `json:"issues"`
	CurrentIssue *domain.Issue      `json:"currentIssue"`
	Stats        *domain.IssueStats `json:"stats"`
	Loading      bool               `json:"loading"`
	Error        string             `json:"error,omitempty"`
	Status       RequestStatus      `json:"status"`
}

type UpdatesState struct {
	Updates []domain.Update `json:"updates"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
	Status  RequestStatus   `json:"status"`
}

type State struct {
	Auth    AuthState    `json:"auth"`
	Issues  IssuesState  `json:"issues"`
	Updates UpdatesState `json:"updates"`
}

func (s State) clone() State {
	out := s
	if s.Auth.User != nil {
		u := *s.Auth.User
		out.Auth.User = &u
	}
	out.Issues.Issues = append(make([]domain.Issue, 0, len(s.Issues.Issues)), s.Issues.Issues...)
	if s.Issues.CurrentIssue != nil {
		i := *s.Issues.CurrentIssue
		out.Issues.CurrentIssue = &i
	}
	if s.Issues.Stats != nil {
		st := *s.Issues.Stats
		out.Issues.Stats = &st
	}
	out.Updates.Updates = append(make([]domain.Update, 0, len(s.Updates.Updates)), s.Updates.Updates...)
	return out
}
