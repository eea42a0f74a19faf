package slack

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token   string
	Channel string
}

// Service implements orchestrator.Notifier. Nil-safe: every method is a
// no-op when the receiver is nil, so callers can wire an unconfigured
// Service without a feature-flag check at every call site.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService creates a Service, or nil if Token or Channel is empty
// (disabled by default per the config's Slack.Enabled gate).
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client: NewClient(cfg.Token, cfg.Channel),
		logger: slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient builds a Service around a pre-built Client, for
// tests against a mock API server.
func NewServiceWithClient(client *Client) *Service {
	return &Service{client: client, logger: slog.Default().With("component", "slack-service")}
}

// NotifyMeetingCompleted posts a one-line summary for a closed meeting.
// Fail-open: errors are logged, never returned to the Finalizer.
func (s *Service) NotifyMeetingCompleted(ctx context.Context, meetingCode, summary string) error {
	if s == nil {
		return nil
	}

	text := fmt.Sprintf(":white_check_mark: Meeting *%s* finished. %s", meetingCode, summary)
	if err := s.client.PostMessage(ctx, text, 10*time.Second); err != nil {
		s.logger.Error("failed to send slack notification", "meeting", meetingCode, "error", err)
	}
	return nil
}
