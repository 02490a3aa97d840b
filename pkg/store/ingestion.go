package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StartIngestion records the start of an import run
func (s *Store) StartIngestion(ctx context.Context, source, ingestionType string) (*IngestionLog, error) {
	log := &IngestionLog{
		ID:        uuid.NewString(),
		Source:    source,
		Type:      ingestionType,
		Status:    IngestionRunning,
		StartedAt: s.stamp(),
	}
	if err := s.Save(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to start ingestion log: %w", err)
	}
	return log, nil
}

// UpdateIngestionProgress persists the counters of a running import
func (s *Store) UpdateIngestionProgress(ctx context.Context, log *IngestionLog) error {
	return s.Save(ctx, log)
}

// CompleteIngestion marks the run as succeeded, or failed when runErr is set
func (s *Store) CompleteIngestion(ctx context.Context, log *IngestionLog, runErr error) error {
	log.CompletedAt = s.stamp()
	log.DurationMs = s.now().Sub(log.StartedAt).Milliseconds()
	log.Status = IngestionSuccess
	if runErr != nil {
		log.Status = IngestionFailure
		log.ErrorMessage = runErr.Error()
	}
	return s.Save(ctx, log)
}

// RecentIngestions returns the latest runs, newest first
func (s *Store) RecentIngestions(ctx context.Context, limit int) ([]*IngestionLog, error) {
	if limit <= 0 {
		limit = 10
	}
	return FindWhere[IngestionLog](ctx, s, "1 = 1 ORDER BY started_at DESC, id LIMIT ?", limit)
}
