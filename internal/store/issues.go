package store

import (
	"context"

	"citizenconnect/webclient/internal/apiclient"
	"citizenconnect/webclient/internal/domain"
)

const (
	msgFetchIssues = "Failed to fetch issues"
	msgCreateIssue = "Failed to create issue"
	msgFetchStats  = "Failed to fetch stats"
)

func issuesPending(st *State) {
	st.Issues.Loading = true
	st.Issues.Error = ""
	st.Issues.Status = StatusPending
}

func issuesRejected(err error, fallback string) func(*State) {
	msg := apiclient.Message(err, fallback)
	return func(st *State) {
		st.Issues.Loading = false
		st.Issues.Error = msg
		st.Issues.Status = StatusRejected
	}
}

func (s *Store) FetchIssues(ctx context.Context) ([]domain.Issue, error) {
	return s.fetchIssueList(ctx, s.api.Issues.All)
}

func (s *Store) FetchMyIssues(ctx context.Context) ([]domain.Issue, error) {
	return s.fetchIssueList(ctx, s.api.Issues.Mine)
}

func (s *Store) FetchAssignedIssues(ctx context.Context) ([]domain.Issue, error) {
	return s.fetchIssueList(ctx, s.api.Issues.Assigned)
}

func (s *Store) fetchIssueList(ctx context.Context, fetch func(context.Context) ([]domain.Issue, error)) ([]domain.Issue, error) {
	gen := s.start(fetchIssueList, issuesPending)

	issues, err := fetch(ctx)
	if err != nil {
		s.settle(fetchIssueList, gen, issuesRejected(err, msgFetchIssues))
		return nil, err
	}
	if issues == nil {
		issues = []domain.Issue{}
	}
	s.settle(fetchIssueList, gen, func(st *State) {
		st.Issues.Loading = false
		st.Issues.Status = StatusFulfilled
		st.Issues.Issues = append([]domain.Issue{}, issues...)
	})
	return issues, nil
}

func (s *Store) CreateIssue(ctx context.Context, req apiclient.CreateIssueRequest) (domain.Issue, error) {
	gen := s.start("", issuesPending)

	issue, err := s.api.Issues.Create(ctx, req)
	if err != nil {
		s.settle("", gen, issuesRejected(err, msgCreateIssue))
		return domain.Issue{}, err
	}
	s.settle("", gen, func(st *State) {
		st.Issues.Loading = false
		st.Issues.Status = StatusFulfilled
		st.Issues.Issues = append([]domain.Issue{issue}, st.Issues.Issues...)
	})
	return issue, nil
}

func (s *Store) FetchIssueStats(ctx context.Context) (domain.IssueStats, error) {
	gen := s.start(fetchIssueStats, issuesPending)

	stats, err := s.api.Issues.Stats(ctx)
	if err != nil {
		s.settle(fetchIssueStats, gen, issuesRejected(err, msgFetchStats))
		return domain.IssueStats{}, err
	}
	s.settle(fetchIssueStats, gen, func(st *State) {
		st.Issues.Loading = false
		st.Issues.Status = StatusFulfilled
		st.Issues.Stats = &stats
	})
	return stats, nil
}

// SetCurrentIssue selects issue for the detail view; nil clears it.
func (s *Store) SetCurrentIssue(issue *domain.Issue) {
	var selected *domain.Issue
	if issue != nil {
		c := *issue
		selected = &c
	}
	s.reduce(func(st *State) { st.Issues.CurrentIssue = selected })
}

func (s *Store) ClearIssueError() {
	s.reduce(func(st *State) { st.Issues.Error = "" })
}
