package database

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roundtable-run/roundtable/pkg/models"
)

// ErrMeetingNotFound is returned when a lookup by code or id finds no row.
var ErrMeetingNotFound = errors.New("meeting not found")

// MeetingRecord is the persisted-row projection of a Meeting, used by
// read paths (listing, detail lookup) that don't need the live in-memory
// aggregate's synchronisation.
type MeetingRecord struct {
	ID              uuid.UUID
	Code            string
	Topic           string
	Task            string
	Host            string
	State           models.MeetingState
	CooldownSeconds float64
	MaxRounds       int
	Transcript      *string
}

// MeetingRepository persists Meeting rows.
type MeetingRepository struct {
	db *stdsql.DB
}

// Create inserts a new meeting row from the in-memory aggregate's current
// identity fields and Waiting state.
func (r *MeetingRepository) Create(ctx context.Context, m *models.Meeting) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meetings (id, code, topic, task, host, state, cooldown_seconds, max_rounds, memory_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.Code, m.Topic, m.Task, m.Host, string(m.State()), m.CooldownSeconds, m.MaxRounds, m.MemorySnapshot, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	return nil
}

// UpdateState updates the persisted state column for the meeting with the
// given id (the Finalizer's Processing/Closed transitions).
func (r *MeetingRepository) UpdateState(ctx context.Context, meetingID uuid.UUID, state models.MeetingState) error {
	_, err := r.db.ExecContext(ctx, `UPDATE meetings SET state = $1 WHERE id = $2`, string(state), meetingID)
	if err != nil {
		return fmt.Errorf("update meeting state: %w", err)
	}
	return nil
}

// UpdateTranscript persists the Finalizer's assembled transcript.
func (r *MeetingRepository) UpdateTranscript(ctx context.Context, meetingID uuid.UUID, transcript string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE meetings SET transcript = $1 WHERE id = $2`, transcript, meetingID)
	if err != nil {
		return fmt.Errorf("update meeting transcript: %w", err)
	}
	return nil
}

// GetByCode fetches one meeting row by its short code.
func (r *MeetingRepository) GetByCode(ctx context.Context, code string) (*MeetingRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, code, topic, task, host, state, cooldown_seconds, max_rounds, transcript
		FROM meetings WHERE code = $1`, code)
	return scanMeetingRecord(row)
}

// List returns meeting rows, optionally filtered by state (empty string
// means no filter).
func (r *MeetingRepository) List(ctx context.Context, stateFilter string) ([]*MeetingRecord, error) {
	var rows *stdsql.Rows
	var err error
	if stateFilter == "" {
		rows, err = r.db.QueryContext(ctx, `
			SELECT id, code, topic, task, host, state, cooldown_seconds, max_rounds, transcript
			FROM meetings ORDER BY created_at DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT id, code, topic, task, host, state, cooldown_seconds, max_rounds, transcript
			FROM meetings WHERE state = $1 ORDER BY created_at DESC`, stateFilter)
	}
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var out []*MeetingRecord
	for rows.Next() {
		rec, err := scanMeetingRecordFromRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteClosedBefore hard-deletes every Closed meeting whose ended_at
// precedes the cutoff, cascading to its messages, directives, wall
// posts, participants and credentials via foreign-key ON DELETE
// CASCADE. Returns the number of meetings removed.
func (r *MeetingRepository) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM meetings WHERE state = $1 AND ended_at IS NOT NULL AND ended_at < $2`,
		string(models.MeetingStateClosed), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete closed meetings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeetingRecord(row *stdsql.Row) (*MeetingRecord, error) {
	return scanMeetingRow(row)
}

func scanMeetingRecordFromRows(rows *stdsql.Rows) (*MeetingRecord, error) {
	return scanMeetingRow(rows)
}

func scanMeetingRow(s rowScanner) (*MeetingRecord, error) {
	var rec MeetingRecord
	var state string
	var transcript stdsql.NullString
	err := s.Scan(&rec.ID, &rec.Code, &rec.Topic, &rec.Task, &rec.Host, &state, &rec.CooldownSeconds, &rec.MaxRounds, &transcript)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, ErrMeetingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan meeting row: %w", err)
	}
	rec.State = models.MeetingState(state)
	if transcript.Valid {
		rec.Transcript = &transcript.String
	}
	return &rec, nil
}
