// Package services implements the request-facing layer pkg/api calls
// into: meeting lifecycle orchestration, message history, agent
// self-registration, and the shared sentinel-error vocabulary those
// handlers map to status codes.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roundtable-run/roundtable/pkg/credential"
	"github.com/roundtable-run/roundtable/pkg/database"
	"github.com/roundtable-run/roundtable/pkg/models"
	"github.com/roundtable-run/roundtable/pkg/orchestrator"
	"github.com/roundtable-run/roundtable/pkg/registry"
)

// MeetingServiceDeps bundles the collaborators MeetingService composes.
// OrchestratorDeps is the per-meeting-shared half of orchestrator.Deps
// (every field except Unregister, which MeetingService fills in per
// meeting so the orchestrator can pop itself out of both the registry
// and this service's own handle map on finalize).
type MeetingServiceDeps struct {
	Registry         *registry.Registry
	Meetings         *database.MeetingRepository
	Participants     *database.ParticipantRepository
	Credentials      *credential.Store
	OrchestratorDeps orchestrator.Deps

	// CooldownSecondsDefault / MaxRoundsDefault fill in CreateMeetingRequest
	// fields left unset by the caller.
	CooldownSecondsDefault float64
	MaxRoundsDefault       int
}

// CreateMeetingRequest is the validated input to CreateMeeting.
type CreateMeetingRequest struct {
	Topic           string
	Task            string
	Host            string
	CooldownSeconds *float64
	MaxRounds       *int
	AutoStart       bool
	Agents          []ParticipantSpec
}

// ParticipantSpec describes one seat to fill when a meeting is created.
type ParticipantSpec struct {
	Name           string
	Kind           models.ParticipantKind
	SocketID       string
	PersonaPrompt  string
	PreferredModel string
}

// MeetingService implements meeting creation, lifecycle transitions, and
// the External Turn Protocol's join/respond request paths. It owns the
// code -> live *orchestrator.Orchestrator handle map; pkg/registry owns
// the parallel code -> *models.Meeting map the Turn Scheduler reads.
type MeetingService struct {
	deps MeetingServiceDeps

	mu            sync.Mutex
	orchestrators map[string]*orchestrator.Orchestrator
}

// NewMeetingService constructs a MeetingService.
func NewMeetingService(deps MeetingServiceDeps) *MeetingService {
	return &MeetingService{
		deps:          deps,
		orchestrators: make(map[string]*orchestrator.Orchestrator),
	}
}

// Configure replaces deps wholesale. It exists to break the construction
// cycle between MeetingService and events.ConnectionManager: a Dispatcher
// needs a *MeetingService to route into, and ConnectionManager needs a
// Dispatcher before it can be handed to MeetingService as a Broadcaster.
// Callers build a zero-deps MeetingService, wrap it in a Dispatcher, build
// the ConnectionManager, then call Configure with the real deps before any
// meeting is created.
func (s *MeetingService) Configure(deps MeetingServiceDeps) {
	s.deps = deps
}

// CreateMeeting validates req, generates a unique code, constructs the
// Meeting aggregate and its Orchestrator, persists the meeting row and
// its initial participants, registers both handles, and — if AutoStart —
// starts the scheduler loop before returning.
func (s *MeetingService) CreateMeeting(ctx context.Context, req CreateMeetingRequest) (*models.Meeting, error) {
	if req.Topic == "" {
		return nil, NewValidationError("topic", "is required")
	}
	if req.Host == "" {
		return nil, NewValidationError("host", "is required")
	}

	cooldown := s.deps.CooldownSecondsDefault
	if req.CooldownSeconds != nil {
		cooldown = *req.CooldownSeconds
	}
	maxRounds := s.deps.MaxRoundsDefault
	if req.MaxRounds != nil {
		maxRounds = *req.MaxRounds
	}

	code, err := GenerateMeetingCode(req.Topic, time.Now().UTC(), func(candidate string) bool {
		_, err := s.deps.Registry.Lookup(candidate)
		return err == nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate meeting code: %w", err)
	}

	meeting := models.NewMeeting(code, req.Topic, req.Task, req.Host, cooldown, maxRounds)
	for _, spec := range req.Agents {
		p := models.NewParticipant(meeting.ID, spec.Name, spec.Kind)
		p.SocketID = spec.SocketID
		p.PersonaPrompt = spec.PersonaPrompt
		p.PreferredModel = spec.PreferredModel
		if err := meeting.AddParticipant(p); err != nil {
			return nil, fmt.Errorf("seat participant %q: %w", spec.Name, err)
		}
	}

	if s.deps.Meetings != nil {
		if err := s.deps.Meetings.Create(ctx, meeting); err != nil {
			return nil, fmt.Errorf("persist meeting: %w", err)
		}
		if s.deps.Participants != nil {
			for _, p := range meeting.Participants() {
				if err := s.deps.Participants.Create(ctx, p); err != nil {
					return nil, fmt.Errorf("persist participant %q: %w", p.Name, err)
				}
			}
		}
	}

	if err := s.deps.Registry.Register(code, meeting); err != nil {
		return nil, fmt.Errorf("register meeting: %w", err)
	}

	deps := s.deps.OrchestratorDeps
	deps.Unregister = func(code string) {
		s.deps.Registry.Unregister(code)
		s.mu.Lock()
		delete(s.orchestrators, code)
		s.mu.Unlock()
	}
	orch := orchestrator.New(meeting, deps)

	s.mu.Lock()
	s.orchestrators[code] = orch
	s.mu.Unlock()

	if req.AutoStart {
		if err := orch.Start(""); err != nil {
			return nil, fmt.Errorf("auto-start meeting: %w", err)
		}
	}

	return meeting, nil
}

// GetMeeting returns the live meeting for code. Closed meetings (no
// longer in the registry) surface ErrNotFound — their durable record is
// reachable only through ListMeetings' database-backed filter, matching
// spec.md's registry-only-while-live semantics.
func (s *MeetingService) GetMeeting(code string) (*models.Meeting, error) {
	m, err := s.deps.Registry.Lookup(code)
	if err != nil {
		return nil, fmt.Errorf("meeting %q: %w", code, ErrNotFound)
	}
	return m, nil
}

// ListMeetings returns persisted meeting rows, optionally filtered by
// state (empty string means all).
func (s *MeetingService) ListMeetings(ctx context.Context, stateFilter string) ([]*database.MeetingRecord, error) {
	if s.deps.Meetings == nil {
		return nil, nil
	}
	return s.deps.Meetings.List(ctx, stateFilter)
}

// StartMeeting transitions code's meeting from Waiting to Active.
func (s *MeetingService) StartMeeting(code, seriesID string) error {
	orch, err := s.lookupOrchestrator(code)
	if err != nil {
		return err
	}
	if err := orch.Start(seriesID); err != nil {
		if errors.Is(err, orchestrator.ErrNotWaiting) {
			return fmt.Errorf("meeting %q: %w: %v", code, ErrStatePrecondition, err)
		}
		return err
	}
	return nil
}

// JoinMeeting seats a new External participant while the meeting is
// Active or Paused, mints a meeting-scoped credential for it, and
// returns both the participant and its plaintext bearer token.
func (s *MeetingService) JoinMeeting(ctx context.Context, code string, spec ParticipantSpec) (*models.Participant, string, error) {
	if spec.Name == "" {
		return nil, "", NewValidationError("agent_name", "is required")
	}

	meeting, err := s.GetMeeting(code)
	if err != nil {
		return nil, "", err
	}
	orch, err := s.lookupOrchestrator(code)
	if err != nil {
		return nil, "", err
	}

	spec.Kind = models.ParticipantKindExternal
	p := models.NewParticipant(meeting.ID, spec.Name, spec.Kind)
	p.SocketID = spec.SocketID
	p.PersonaPrompt = spec.PersonaPrompt

	if err := orch.AddParticipant(p); err != nil {
		if errors.Is(err, models.ErrDuplicateParticipant) {
			return nil, "", fmt.Errorf("participant %q: %w: %v", spec.Name, ErrAlreadyExists, err)
		}
		if errors.Is(err, orchestrator.ErrNotActive) {
			return nil, "", fmt.Errorf("meeting %q: %w: %v", code, ErrStatePrecondition, err)
		}
		return nil, "", err
	}

	if s.deps.Participants != nil {
		if err := s.deps.Participants.Create(ctx, p); err != nil {
			return nil, "", fmt.Errorf("persist participant: %w", err)
		}
	}

	var token string
	if s.deps.Credentials != nil {
		_, token, err = s.deps.Credentials.Mint(meeting.ID, p.ID, spec.Name, []models.Scope{models.ScopeRoomsWrite, models.ScopeWallWrite})
		if err != nil {
			return nil, "", fmt.Errorf("mint join credential: %w", err)
		}
	}

	return p, token, nil
}

// RespondExternal resolves a pending external turn for agentName in
// code's meeting with the given response text.
func (s *MeetingService) RespondExternal(code, agentName, text string) error {
	orch, err := s.lookupOrchestrator(code)
	if err != nil {
		return err
	}
	if err := orch.SubmitExternalResponse(agentName, text); err != nil {
		return fmt.Errorf("meeting %q, agent %q: %w: %v", code, ErrStatePrecondition, err)
	}
	return nil
}

// Directive records issuer's instruction against code's meeting.
func (s *MeetingService) Directive(code, issuer, payload string) error {
	orch, err := s.lookupOrchestrator(code)
	if err != nil {
		return err
	}
	orch.Directive(issuer, payload)
	return nil
}

// HumanMessage enqueues a human chat message against code's meeting.
func (s *MeetingService) HumanMessage(code, senderName, content string) error {
	orch, err := s.lookupOrchestrator(code)
	if err != nil {
		return err
	}
	orch.HumanMessage(senderName, content)
	return nil
}

// Pause, Resume, and Stop expose the orchestrator's one-shot lifecycle
// latches to the HTTP layer. These mirror the original room-control
// surface (pause/resume/stop) that spec.md's client-to-server WebSocket
// actions don't otherwise cover.
func (s *MeetingService) Pause(code string) error {
	orch, err := s.lookupOrchestrator(code)
	if err != nil {
		return err
	}
	if err := orch.Pause(); err != nil {
		return fmt.Errorf("meeting %q: %w: %v", code, ErrStatePrecondition, err)
	}
	return nil
}

func (s *MeetingService) Resume(code string) error {
	orch, err := s.lookupOrchestrator(code)
	if err != nil {
		return err
	}
	orch.Resume()
	return nil
}

func (s *MeetingService) Stop(code string) error {
	orch, err := s.lookupOrchestrator(code)
	if err != nil {
		return err
	}
	orch.Stop()

	grace := s.deps.OrchestratorDeps.StopGrace
	select {
	case <-orch.Done():
	case <-time.After(grace):
		orch.Cancel()
		<-orch.Done()
	}
	return nil
}

// ContextSnapshotEntry is one rendered log line in a polling payload.
type ContextSnapshotEntry struct {
	ID             string
	SenderName     string
	SenderKind     models.SenderKind
	Type           models.MessageType
	Content        string
	RenderedHTML   string // non-empty only for markdown artifacts
	SequenceNumber uint64
	CreatedAt      time.Time
}

// ContextSnapshot is the payload returned by GET /meetings/{code}/context:
// everything an external agent needs to decide what to say on its turn.
type ContextSnapshot struct {
	State        models.MeetingState
	Topic        string
	Task         string
	Participants []*models.Participant
	Messages     []ContextSnapshotEntry
}

// Snapshot builds a ContextSnapshot for code, trimmed to the last limit
// log entries (0 means no trimming) and rendering markdown-typed artifact
// content to sanitized HTML for display.
func (s *MeetingService) Snapshot(code string, limit int) (*ContextSnapshot, error) {
	meeting, err := s.GetMeeting(code)
	if err != nil {
		return nil, err
	}

	log := meeting.Log()
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}

	entries := make([]ContextSnapshotEntry, len(log))
	for i, msg := range log {
		entry := ContextSnapshotEntry{
			ID:             msg.ID,
			SenderName:     msg.SenderName,
			SenderKind:     msg.SenderKind,
			Type:           msg.Type,
			Content:        msg.Content,
			SequenceNumber: msg.SequenceNumber,
			CreatedAt:      msg.CreatedAt,
		}
		if msg.Type == models.MessageTypeArtifact && msg.ContentType == models.ContentTypeMarkdown {
			if html, err := renderMarkdown(msg.Content); err == nil {
				entry.RenderedHTML = html
			}
		}
		entries[i] = entry
	}

	return &ContextSnapshot{
		State:        meeting.State(),
		Topic:        meeting.Topic,
		Task:         meeting.Task,
		Participants: meeting.Participants(),
		Messages:     entries,
	}, nil
}

func (s *MeetingService) lookupOrchestrator(code string) (*orchestrator.Orchestrator, error) {
	s.mu.Lock()
	orch, ok := s.orchestrators[code]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("meeting %q: %w", code, ErrNotFound)
	}
	return orch, nil
}
