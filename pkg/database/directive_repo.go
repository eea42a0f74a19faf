package database

import (
	"context"
	stdsql "database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/roundtable-run/roundtable/pkg/models"
)

// DirectiveRepository persists Directive rows.
type DirectiveRepository struct {
	db *stdsql.DB
}

// Create inserts a directive row.
func (r *DirectiveRepository) Create(ctx context.Context, d *models.Directive) error {
	var targetID any
	if d.TargetID != nil {
		targetID = *d.TargetID
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO directives (id, meeting_id, kind, target_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.MeetingID, string(d.Kind), targetID, d.Payload, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert directive: %w", err)
	}
	return nil
}

// ListByMeeting returns every directive issued for meetingID, in issue order.
func (r *DirectiveRepository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*models.Directive, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, meeting_id, kind, target_id, payload, created_at, applied_at
		FROM directives WHERE meeting_id = $1 ORDER BY created_at ASC`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list directives: %w", err)
	}
	defer rows.Close()

	var out []*models.Directive
	for rows.Next() {
		var d models.Directive
		var kind string
		var targetID stdsql.NullString
		var appliedAt stdsql.NullTime
		if err := rows.Scan(&d.ID, &d.MeetingID, &kind, &targetID, &d.Payload, &d.CreatedAt, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan directive row: %w", err)
		}
		d.Kind = models.DirectiveKind(kind)
		if targetID.Valid {
			id, err := uuid.Parse(targetID.String)
			if err == nil {
				d.TargetID = &id
			}
		}
		if appliedAt.Valid {
			d.AppliedAt = &appliedAt.Time
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
