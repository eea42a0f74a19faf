package database

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roundtable-run/roundtable/pkg/models"
)

// ParticipantRepository persists Participant rows.
type ParticipantRepository struct {
	db *stdsql.DB
}

// Create inserts a new participant row.
func (r *ParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO participants (id, meeting_id, name, kind, socket_id, persona_prompt, preferred_model, priority, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.MeetingID, p.Name, string(p.Kind), p.SocketID, p.PersonaPrompt, p.PreferredModel, p.Priority, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// ListByMeeting returns every participant seated at meetingID, in join order.
func (r *ParticipantRepository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*models.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, meeting_id, name, kind, socket_id, persona_prompt, preferred_model, priority, joined_at, left_at
		FROM participants WHERE meeting_id = $1 ORDER BY joined_at ASC`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		var p models.Participant
		var kind string
		var leftAt stdsql.NullTime
		if err := rows.Scan(&p.ID, &p.MeetingID, &p.Name, &kind, &p.SocketID, &p.PersonaPrompt, &p.PreferredModel, &p.Priority, &p.JoinedAt, &leftAt); err != nil {
			return nil, fmt.Errorf("scan participant row: %w", err)
		}
		p.Kind = models.ParticipantKind(kind)
		if leftAt.Valid {
			p.LeftAt = &leftAt.Time
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// MarkLeft records a participant's departure timestamp.
func (r *ParticipantRepository) MarkLeft(ctx context.Context, participantID uuid.UUID, leftAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE participants SET left_at = $1 WHERE id = $2`, leftAt, participantID)
	if err != nil {
		return fmt.Errorf("mark participant left: %w", err)
	}
	return nil
}
