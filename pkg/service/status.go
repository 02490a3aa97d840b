package service

import (
	"context"

	"github.com/richard-senior/footstats/pkg/store"
)

// Status summarises what the service holds
type Status struct {
	Seasons         []*store.Season       `json:"seasons"`
	PendingFixtures int                   `json:"pendingFixtures"`
	Ingestions      []*store.IngestionLog `json:"ingestions"`
}

func (s *Service) Status(ctx context.Context) (*Status, error) {
	seasons, err := s.store.Seasons(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.PendingEloFixtures(ctx, "")
	if err != nil {
		return nil, err
	}
	runs, err := s.store.RecentIngestions(ctx, 10)
	if err != nil {
		return nil, err
	}
	return &Status{Seasons: seasons, PendingFixtures: len(pending), Ingestions: runs}, nil
}
