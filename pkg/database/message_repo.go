package database

import (
	"context"
	stdsql "database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/roundtable-run/roundtable/pkg/models"
)

// MessageRepository persists Message rows. It implements the narrow
// message-persistence half of the orchestrator's Persistence boundary.
type MessageRepository struct {
	db *stdsql.DB
}

// Create inserts a message row. Messages are immutable once appended, so
// there is no corresponding Update.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, meeting_id, sender_name, sender_kind, message_type, content, content_type, sequence_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.MeetingID, msg.SenderName, string(msg.SenderKind), string(msg.Type), msg.Content, msg.ContentType, msg.SequenceNumber, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListSince returns every message for meetingID with sequence_number > since,
// ordered by sequence, for resumable polling/reconnect consumption.
func (r *MessageRepository) ListSince(ctx context.Context, meetingID uuid.UUID, since uint64) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, meeting_id, sender_name, sender_kind, message_type, content, content_type, sequence_number, created_at
		FROM messages WHERE meeting_id = $1 AND sequence_number > $2 ORDER BY sequence_number ASC`, meetingID, since)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		var m models.Message
		var senderKind, msgType string
		if err := rows.Scan(&m.ID, &m.MeetingID, &m.SenderName, &senderKind, &msgType, &m.Content, &m.ContentType, &m.SequenceNumber, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.SenderKind = models.SenderKind(senderKind)
		m.Type = models.MessageType(msgType)
		out = append(out, &m)
	}
	return out, rows.Err()
}
