package services

import (
	"context"
	"fmt"

	"github.com/roundtable-run/roundtable/pkg/database"
	"github.com/roundtable-run/roundtable/pkg/events"
	"github.com/roundtable-run/roundtable/pkg/registry"
)

// CatchupService implements events.CatchupQuerier over the message
// repository, resolving a "meeting:<code>" topic to a meeting id via the
// registry so a reconnecting observer can replay what it missed.
type CatchupService struct {
	registry *registry.Registry
	messages *database.MessageRepository
}

// NewCatchupService constructs a CatchupService.
func NewCatchupService(reg *registry.Registry, messages *database.MessageRepository) *CatchupService {
	return &CatchupService{registry: reg, messages: messages}
}

// GetCatchupEvents implements events.CatchupQuerier.
func (c *CatchupService) GetCatchupEvents(ctx context.Context, topic string, sinceSeq uint64, limit int) ([]events.CatchupEvent, error) {
	code, err := meetingCodeFromTopic(topic)
	if err != nil {
		return nil, err
	}

	meeting, err := c.registry.Lookup(code)
	if err != nil {
		return nil, fmt.Errorf("catchup lookup %q: %w", code, err)
	}

	msgs, err := c.messages.ListSince(ctx, meeting.ID, sinceSeq)
	if err != nil {
		return nil, fmt.Errorf("list messages since %d: %w", sinceSeq, err)
	}

	if len(msgs) > limit {
		msgs = msgs[:limit]
	}

	out := make([]events.CatchupEvent, len(msgs))
	for i, msg := range msgs {
		out[i] = events.CatchupEvent{
			Sequence: msg.SequenceNumber,
			Payload: map[string]interface{}{
				"type":  "meeting_message",
				"topic": topic,
				"data":  msg,
			},
		}
	}
	return out, nil
}
