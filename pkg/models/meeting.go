package models

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ErrDuplicateParticipant is returned by AddParticipant when a participant
// with the same name is already seated.
var ErrDuplicateParticipant = fmt.Errorf("participant already exists")

// HumanMessageEntry is one pending human message waiting to be drained into
// the log at the start of the next agent turn.
type HumanMessageEntry struct {
	SenderName string
	Content    string
}

// Meeting is a running conversation. The turn-taking counters (current
// round, consecutive-pass count, external-response table) live on the
// scheduler goroutine that owns this meeting, not here — the scheduler is
// their sole reader/writer and needs no additional synchronisation for
// them. Everything here that is visible to both the scheduler and
// concurrent HTTP/WebSocket handlers (state, participants, directives, the
// message log, the human-message queue, the sequence counter) is guarded
// by mu.
type Meeting struct {
	ID              uuid.UUID
	Code            string
	Topic           string
	Task            string
	Host            string
	CooldownSeconds float64
	MaxRounds       int
	CreatedAt       time.Time

	// MemorySnapshot is the Context Loader's prior-series memory snippet,
	// loaded once before the meeting goes Active. Read-only thereafter.
	MemorySnapshot string

	mu           sync.Mutex
	state        MeetingState
	startedAt    *time.Time
	endedAt      *time.Time
	participants []*Participant
	directives   []*Directive
	log          []*Message
	humanQueue   []HumanMessageEntry
	seq          uint64
}

// NewMeeting constructs a Waiting meeting with a fresh id.
func NewMeeting(code, topic, task, host string, cooldownSeconds float64, maxRounds int) *Meeting {
	return &Meeting{
		ID:              uuid.New(),
		Code:            code,
		Topic:           topic,
		Task:            task,
		Host:            host,
		CooldownSeconds: cooldownSeconds,
		MaxRounds:       maxRounds,
		CreatedAt:       time.Now().UTC(),
		state:           MeetingStateWaiting,
	}
}

func (m *Meeting) State() MeetingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetState unconditionally sets the lifecycle state. Precondition checks
// (e.g. "start only from Waiting") are the caller's responsibility — they
// typically also need to read other fields atomically with the check, so
// the locking has to span both.
func (m *Meeting) SetState(s MeetingState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// WithLock runs fn while holding the meeting's mutex, for callers (mainly
// the orchestrator's state-transition handlers) that need to check and set
// several guarded fields atomically.
func (m *Meeting) WithLock(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

func (m *Meeting) StartedAt() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startedAt
}

func (m *Meeting) MarkStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	m.startedAt = &now
	m.state = MeetingStateActive
}

func (m *Meeting) EndedAt() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endedAt
}

func (m *Meeting) MarkEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	m.endedAt = &now
}

// Participants returns a snapshot copy of the current participant list.
func (m *Meeting) Participants() []*Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Participant, len(m.participants))
	copy(out, m.participants)
	return out
}

// FindParticipant looks up a participant by name.
func (m *Meeting) FindParticipant(name string) (*Participant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// AddParticipant seats a new participant. Returns ErrDuplicateParticipant
// if the name is already present.
func (m *Meeting) AddParticipant(p *Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.participants {
		if existing.Name == p.Name {
			return ErrDuplicateParticipant
		}
	}
	m.participants = append(m.participants, p)
	return nil
}

// Directives returns a snapshot copy of the active directive list.
func (m *Meeting) Directives() []*Directive {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Directive, len(m.directives))
	copy(out, m.directives)
	return out
}

// AddDirective records a new host directive as active for the remainder of
// the meeting.
func (m *Meeting) AddDirective(d *Directive) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.directives = append(m.directives, d)
}

// EnqueueHumanMessage queues a human message for the scheduler to drain at
// the start of the next agent turn.
func (m *Meeting) EnqueueHumanMessage(senderName, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.humanQueue = append(m.humanQueue, HumanMessageEntry{SenderName: senderName, Content: content})
}

// DrainHumanMessages atomically empties and returns the pending
// human-message queue.
func (m *Meeting) DrainHumanMessages() []HumanMessageEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.humanQueue) == 0 {
		return nil
	}
	drained := m.humanQueue
	m.humanQueue = nil
	return drained
}

// Log returns a snapshot copy of the full message log.
func (m *Meeting) Log() []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Message, len(m.log))
	copy(out, m.log)
	return out
}

// LogSince returns log entries with SequenceNumber > since, for resumable
// consumption by observers that reconnect.
func (m *Meeting) LogSince(since uint64) []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Message
	for _, entry := range m.log {
		if entry.SequenceNumber > since {
			out = append(out, entry)
		}
	}
	return out
}

// AppendMessage atomically increments the sequence counter, constructs the
// Message, and appends it to the persisted-in-memory log. The caller is
// responsible for durable persistence and broadcast happening in that
// order relative to this call returning (append, then persist, then
// broadcast — see the Message Log design).
func (m *Meeting) AppendMessage(senderName string, senderKind SenderKind, msgType MessageType, content, contentType string) *Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	msg := &Message{
		ID:             newMessageID(),
		MeetingID:      m.ID.String(),
		SenderName:     senderName,
		SenderKind:     senderKind,
		Type:           msgType,
		Content:        content,
		ContentType:    contentType,
		SequenceNumber: m.seq,
		CreatedAt:      time.Now().UTC(),
	}
	m.log = append(m.log, msg)
	return msg
}

func newMessageID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
