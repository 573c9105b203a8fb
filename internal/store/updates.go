package store

import (
	"context"

	"citizenconnect/webclient/internal/apiclient"
	"citizenconnect/webclient/internal/domain"
)

const (
	msgFetchUpdates = "Failed to fetch updates"
	msgCreateUpdate = "Failed to create update"
)

func updatesPending(st *State) {
	st.Updates.Loading = true
	st.Updates.Error = ""
	st.Updates.Status = StatusPending
}

func updatesRejected(err error, fallback string) func(*State) {
	msg := apiclient.Message(err, fallback)
	return func(st *State) {
		st.Updates.Loading = false
		st.Updates.Error = msg
		st.Updates.Status = StatusRejected
	}
}

func (s *Store) FetchUpdates(ctx context.Context) ([]domain.Update, error) {
	return s.fetchUpdateList(ctx, s.api.Updates.All)
}

func (s *Store) FetchMyUpdates(ctx context.Context) ([]domain.Update, error) {
	return s.fetchUpdateList(ctx, s.api.Updates.Mine)
}

func (s *Store) fetchUpdateList(ctx context.Context, fetch func(context.Context) ([]domain.Update, error)) ([]domain.Update, error) {
	gen := s.start(fetchUpdateList, updatesPending)

	updates, err := fetch(ctx)
	if err != nil {
		s.settle(fetchUpdateList, gen, updatesRejected(err, msgFetchUpdates))
		return nil, err
	}
	if updates == nil {
		updates = []domain.Update{}
	}
	s.settle(fetchUpdateList, gen, func(st *State) {
		st.Updates.Loading = false
		st.Updates.Status = StatusFulfilled
		st.Updates.Updates = append([]domain.Update{}, updates...)
	})
	return updates, nil
}

func (s *Store) CreateUpdate(ctx context.Context, req apiclient.UpdateRequest) (domain.Update, error) {
	gen := s.start("", updatesPending)

	update, err := s.api.Updates.Create(ctx, req)
	if err != nil {
		s.settle("", gen, updatesRejected(err, msgCreateUpdate))
		return domain.Update{}, err
	}
	s.settle("", gen, func(st *State) {
		st.Updates.Loading = false
		st.Updates.Status = StatusFulfilled
		st.Updates.Updates = append([]domain.Update{update}, st.Updates.Updates...)
	})
	return update, nil
}

func (s *Store) ClearUpdateError() {
	s.reduce(func(st *State) { st.Updates.Error = "" })
}
