package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is a hashed bearer token plus an optional scope set. The
// plaintext token is returned once at mint time by the Credential Store and
// is never itself persisted — only TokenHash is.
type Credential struct {
	ID          uuid.UUID
	MeetingID   uuid.UUID
	ParticipantID uuid.UUID
	DisplayName string
	TokenHash   string // hex-encoded SHA-256 of the plaintext token
	Scopes      []Scope // nil/empty means "all scopes"
	IssuedAt    time.Time
	LastUsedAt  *time.Time
	RevokedAt   *time.Time
}

// HasScope reports whether the credential is permitted to perform an
// operation requiring the given scope. A credential with no explicit
// scopes passes every check.
func (c *Credential) HasScope(scope Scope) bool {
	if len(c.Scopes) == 0 {
		return true
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Active reports whether the credential has not been revoked.
func (c *Credential) Active() bool {
	return c.RevokedAt == nil
}
