package domain

import (
	"errors"
	"fmt"
	"strings"
)

type IssueStatus string

const (
	StatusOpen       IssueStatus = "OPEN"
	StatusInProgress IssueStatus = "IN_PROGRESS"
	StatusResolved   IssueStatus = "RESOLVED"
	StatusClosed     IssueStatus = "CLOSED"
)

var ErrUnknownStatus = errors.New("unknown issue status")

func ParseIssueStatus(s string) (IssueStatus, error) {
	switch st := IssueStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

func (s IssueStatus) Badge() string {
	switch s {
	case StatusInProgress:
		return "badge-in-progress"
	case StatusResolved:
		return "badge-resolved"
	case StatusClosed:
		return "badge-closed"
	default:
		return "badge-open"
	}
}

var (
	IssueCategories = []string{
		"Infrastructure", "Public Safety", "Healthcare", "Education", "Environment",
		"Transportation", "Housing", "Employment", "Utilities", "Other",
	}
	UpdateCategories = []string{
		"Announcement", "Event", "Policy", "Initiative", "Report", "Community", "Other",
	}
	FeedbackCategories = []string{
		"Responsiveness", "Effectiveness", "Communication", "Transparency", "Overall",
	}
)
