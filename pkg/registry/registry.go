// Package registry provides the process-wide Meeting Registry: a mapping
// from a meeting's short code to its live, in-memory Meeting, held for as
// long as the meeting is Active, Paused, or Processing.
package registry

import (
	"errors"
	"sync"

	"github.com/roundtable-run/roundtable/pkg/models"
)

// ErrCodeTaken is returned by Register when the code is already in use.
var ErrCodeTaken = errors.New("meeting code already registered")

// ErrNotFound is returned by Lookup when no meeting is registered under
// the given code.
var ErrNotFound = errors.New("meeting not found")

// Registry is a concurrency-safe code -> *Meeting map. Registration is
// serialised so two concurrent creations can never both succeed for the
// same code.
type Registry struct {
	mu       sync.Mutex
	meetings map[string]*models.Meeting
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{meetings: make(map[string]*models.Meeting)}
}

// Register adds a meeting under its code. Fails with ErrCodeTaken if the
// code is already present.
func (r *Registry) Register(code string, m *models.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.meetings[code]; exists {
		return ErrCodeTaken
	}
	r.meetings[code] = m
	return nil
}

// Lookup returns the meeting registered under code, or ErrNotFound.
func (r *Registry) Lookup(code string) (*models.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meetings[code]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

// Unregister removes a meeting's entry. Idempotent: removing an absent
// code is not an error, matching the Finalizer's "registry pop is
// unconditional" requirement.
func (r *Registry) Unregister(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.meetings, code)
}

// List returns a snapshot of every currently-registered meeting.
func (r *Registry) List() []*models.Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Meeting, 0, len(r.meetings))
	for _, m := range r.meetings {
		out = append(out, m)
	}
	return out
}

// Count returns the number of currently-registered meetings.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.meetings)
}
