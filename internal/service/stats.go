package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/store/sqlite"
)

// StatsService owns the SQLite analytics snapshot: derived aggregate tables
// rebuilt from the primary store, queried by the admin stats endpoint and
// downloadable as a portable database file. The snapshot is never part of a
// backup; it can always be regenerated.
type StatsService struct {
	store    *store.Store
	snapshot *sqlite.Store
	logger   *slog.Logger
}

// NewStatsService creates a new stats service around an open snapshot store.
func NewStatsService(s *store.Store, snapshot *sqlite.Store, logger *slog.Logger) *StatsService {
	return &StatsService{
		store:    s,
		snapshot: snapshot,
		logger:   logger,
	}
}

// StatsOverview is the admin dashboard payload.
type StatsOverview struct {
	Totals       *sqlite.SnapshotTotals     `json:"totals"`
	TopTags      []*sqlite.TagActivity      `json:"top_tags"`
	TopQuestions []*sqlite.QuestionActivity `json:"top_questions"`
	Activity     []*sqlite.DayActivity      `json:"activity"`
}

// Rebuild regenerates the snapshot wholesale from the primary store.
func (s *StatsService) Rebuild(ctx context.Context) error {
	started := time.Now()
	if err := s.snapshot.Rebuild(ctx, s.store); err != nil {
		return fmt.Errorf("rebuild analytics snapshot: %w", err)
	}
	s.logger.Debug("Analytics snapshot rebuilt", "duration", time.Since(started))
	return nil
}

// Overview assembles the dashboard payload from the current snapshot. A fresh
// install that has never taken a snapshot gets one built on the spot.
func (s *StatsService) Overview(ctx context.Context) (*StatsOverview, error) {
	totals, err := s.snapshot.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot totals: %w", err)
	}
	if totals == nil {
		if err := s.Rebuild(ctx); err != nil {
			return nil, err
		}
		if totals, err = s.snapshot.Totals(ctx); err != nil {
			return nil, fmt.Errorf("snapshot totals: %w", err)
		}
	}

	topTags, err := s.snapshot.TopTags(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("snapshot top tags: %w", err)
	}

	topQuestions, err := s.snapshot.TopQuestions(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("snapshot top questions: %w", err)
	}

	activity, err := s.snapshot.RecentActivity(ctx, 30)
	if err != nil {
		return nil, fmt.Errorf("snapshot activity: %w", err)
	}

	return &StatsOverview{
		Totals:       totals,
		TopTags:      topTags,
		TopQuestions: topQuestions,
		Activity:     activity,
	}, nil
}

// ExportSnapshot writes a consistent copy of the snapshot database to path,
// refreshed first so the download reflects the store as of now.
func (s *StatsService) ExportSnapshot(ctx context.Context, path string) error {
	if err := s.Rebuild(ctx); err != nil {
		return err
	}
	if err := s.snapshot.ExportTo(ctx, path); err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	return nil
}

// RunPeriodicRebuild rebuilds the snapshot on the given interval until ctx
// is canceled. Run from a background worker so the dashboard stays warm.
func (s *StatsService) RunPeriodicRebuild(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Rebuild(ctx); err != nil {
				s.logger.Warn("Periodic snapshot rebuild failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
