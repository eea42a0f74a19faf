// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/roundtable-run/roundtable/pkg/config"
)

// MeetingPruner hard-deletes Closed meetings (and, via cascade, their
// messages, directives, wall posts, participants and credentials) past a
// configurable age. Implemented by pkg/database.MeetingRepository.
type MeetingPruner interface {
	DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ConnectionPruner removes observer-connection bookkeeping left behind by
// connections that disconnected without running their own cleanup.
// Implemented by pkg/events.ConnectionManager.
type ConnectionPruner interface {
	PruneDeadConnections() int
}

// Service periodically enforces retention policies:
//   - Hard-deletes Closed meetings past their retention window
//   - Prunes dead observer-connection bookkeeping
//
// All operations are idempotent and safe to run from multiple processes.
type Service struct {
	config      *config.RetentionConfig
	meetings    MeetingPruner
	connections ConnectionPruner

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, meetings MeetingPruner, connections ConnectionPruner) *Service {
	return &Service{
		config:      cfg,
		meetings:    meetings,
		connections: connections,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"meeting_retention_days", s.config.MeetingRetentionDays,
		"connection_ttl", s.config.ConnectionTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.deleteOldMeetings(ctx)
	s.pruneDeadConnections()
}

func (s *Service) deleteOldMeetings(ctx context.Context) {
	if s.meetings == nil {
		return
	}
	cutoff := time.Now().Add(-time.Duration(s.config.MeetingRetentionDays) * 24 * time.Hour)
	count, err := s.meetings.DeleteClosedBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: delete closed meetings failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted closed meetings", "count", count)
	}
}

func (s *Service) pruneDeadConnections() {
	if s.connections == nil {
		return
	}
	count := s.connections.PruneDeadConnections()
	if count > 0 {
		slog.Info("Retention: pruned dead observer connections", "count", count)
	}
}
