package models

import (
	"time"

	"github.com/google/uuid"
)

// Directive is a host instruction injected into every future agent prompt
// until the meeting closes. It also appears once as a Directive message in
// the log at the time it was issued.
type Directive struct {
	ID        uuid.UUID
	MeetingID uuid.UUID
	Kind      DirectiveKind
	TargetID  *uuid.UUID // optional, e.g. a specific participant
	Payload   string
	CreatedAt time.Time
	AppliedAt *time.Time
}

// NewDirective constructs a host-instruction Directive.
func NewDirective(meetingID uuid.UUID, payload string) *Directive {
	return &Directive{
		ID:        uuid.New(),
		MeetingID: meetingID,
		Kind:      DirectiveKindHostInstruction,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}
