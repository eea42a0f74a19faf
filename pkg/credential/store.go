// Package credential implements the Credential Store: hashed bearer
// tokens with an optional scope set, constant-time verification, and
// last-used tracking.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roundtable-run/roundtable/pkg/models"
)

// ErrInvalidToken is returned by Verify when no active credential matches
// the supplied token.
var ErrInvalidToken = errors.New("invalid or revoked token")

// ErrMissingScope is returned when a credential lacks a scope required by
// the calling operation.
var ErrMissingScope = errors.New("credential missing required scope")

const tokenEntropyBytes = 32 // >= 32 random bytes per the bearer-token format

// Store mints and verifies Credentials. Tokens are held only as their
// SHA-256 hash; the plaintext is returned exactly once, at mint time.
type Store struct {
	mu          sync.RWMutex
	byHash      map[string]*models.Credential
	byID        map[uuid.UUID]*models.Credential
	tokenPrefix string
}

// New creates an empty store. prefix is the bearer-token prefix (e.g.
// "rtbl") used for every token minted by this store.
func New(prefix string) *Store {
	return &Store{
		byHash:      make(map[string]*models.Credential),
		byID:        make(map[uuid.UUID]*models.Credential),
		tokenPrefix: prefix,
	}
}

// Mint generates a fresh bearer token of the form "<prefix>_<random>",
// persists its hash alongside displayName and scopes, and returns the
// plaintext token. The plaintext is never retrievable again.
func (s *Store) Mint(meetingID, participantID uuid.UUID, displayName string, scopes []models.Scope) (*models.Credential, string, error) {
	raw := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	plaintext := fmt.Sprintf("%s_%s", s.tokenPrefix, base64.RawURLEncoding.EncodeToString(raw))

	cred := &models.Credential{
		ID:            uuid.New(),
		MeetingID:     meetingID,
		ParticipantID: participantID,
		DisplayName:   displayName,
		TokenHash:     hashToken(plaintext),
		Scopes:        scopes,
		IssuedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	s.byHash[cred.TokenHash] = cred
	s.byID[cred.ID] = cred
	s.mu.Unlock()

	return cred, plaintext, nil
}

// Verify hashes the candidate token, looks it up in constant time against
// stored hashes, and — on success — updates LastUsedAt. Revoked
// credentials never verify.
func (s *Store) Verify(token string) (*models.Credential, error) {
	candidate := hashToken(token)

	s.mu.RLock()
	cred, ok := s.byHash[candidate]
	s.mu.RUnlock()

	if !ok || !constantTimeEqual(cred.TokenHash, candidate) || !cred.Active() {
		return nil, ErrInvalidToken
	}

	s.mu.Lock()
	now := time.Now().UTC()
	cred.LastUsedAt = &now
	s.mu.Unlock()

	return cred, nil
}

// RequireScope verifies the token and additionally checks it carries the
// given scope.
func (s *Store) RequireScope(token string, scope models.Scope) (*models.Credential, error) {
	cred, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	if !cred.HasScope(scope) {
		return nil, ErrMissingScope
	}
	return cred, nil
}

// Revoke marks a credential as no longer valid.
func (s *Store) Revoke(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("credential %s: %w", id, ErrInvalidToken)
	}
	now := time.Now().UTC()
	cred.RevokedAt = &now
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
