package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is an agent (or human proxy) seated at a Meeting. Internal
// participants are driven by AI calls; External participants are driven by
// network responses collected through the External Turn Protocol.
type Participant struct {
	ID             uuid.UUID
	MeetingID      uuid.UUID
	Name           string
	Kind           ParticipantKind
	SocketID       string // optional persona reference, empty if unset
	PersonaPrompt  string // optional free-text persona, empty if unset
	PreferredModel string // optional, empty means use config default
	Priority       int
	JoinedAt       time.Time
	LeftAt         *time.Time
}

// NewParticipant constructs a Participant with a fresh id and JoinedAt set
// to now.
func NewParticipant(meetingID uuid.UUID, name string, kind ParticipantKind) *Participant {
	return &Participant{
		ID:        uuid.New(),
		MeetingID: meetingID,
		Name:      name,
		Kind:      kind,
		JoinedAt:  time.Now().UTC(),
	}
}
