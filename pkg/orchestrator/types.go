// Package orchestrator implements the Meeting Orchestrator: the Turn
// Scheduler, the Agent Driver, the External-Agent Turn Protocol, and the
// Finalizer. One Orchestrator instance owns one Meeting for its entire
// lifetime and runs its turn-taking loop on a dedicated goroutine.
package orchestrator

import (
	"context"
	"time"

	"github.com/roundtable-run/roundtable/pkg/aiprovider"
	rtcontext "github.com/roundtable-run/roundtable/pkg/context"
	"github.com/roundtable-run/roundtable/pkg/models"
)

// Broadcaster publishes a typed event onto a topic. Implemented by
// pkg/events.ConnectionManager. Write failures are the broadcaster's
// concern (dead connections are reaped internally) — Broadcast itself
// never fails the caller.
type Broadcaster interface {
	Broadcast(topic, eventType string, payload any)
}

// Persistence is the narrow storage boundary the orchestrator writes
// through. Implemented by pkg/database repositories.
type Persistence interface {
	PersistMessage(ctx context.Context, msg *models.Message) error
	PersistMeetingState(ctx context.Context, meetingID string, state models.MeetingState) error
	PersistTranscript(ctx context.Context, meetingID, transcript string) error
}

// InterpretationService is the narrow out-of-scope collaborator the
// Finalizer optionally invokes. The default NoopInterpreter does nothing.
type InterpretationService interface {
	Interpret(ctx context.Context, meetingID string) (count int, err error)
}

// NoopInterpreter implements InterpretationService as a no-op, used when
// auto-interpret is disabled or no real collaborator is wired.
type NoopInterpreter struct{}

func (NoopInterpreter) Interpret(context.Context, string) (int, error) { return 0, nil }

// WallPoster is the narrow boundary the Finalizer uses to post an
// auto-generated meeting summary.
type WallPoster interface {
	PostSummary(ctx context.Context, meetingID, authorName, content string) error
}

// ContentMasker redacts credential-shaped substrings before content is
// persisted or broadcast. Implemented by pkg/masking.TokenMasker. A nil
// Masker in Deps disables masking entirely.
type ContentMasker interface {
	Mask(content string) string
}

// SocketLookup resolves a socket persona id to its descriptor.
type SocketLookup interface {
	Get(id string) (*SocketPersona, error)
}

// SocketPersona is the subset of config.SocketConfig the Agent Driver
// needs when splicing a persona into a system prompt.
type SocketPersona struct {
	Name         string
	SystemPrompt string
}

// Notifier is the optional Slack finalize-notifier. A nil Notifier (or
// one backed by a disabled pkg/slack.Service) simply isn't called.
type Notifier interface {
	NotifyMeetingCompleted(ctx context.Context, meetingCode, summary string) error
}

// Deps bundles every collaborator the orchestrator needs. Deps are shared
// across every meeting's orchestrator instance; Meeting-specific state
// lives on the Orchestrator value itself.
type Deps struct {
	Provider     aiprovider.Provider
	Broadcaster  Broadcaster
	Persistence  Persistence
	Interpreter  InterpretationService
	Wall         WallPoster
	Sockets      SocketLookup
	ContextLoad  *rtcontext.Loader
	Unregister   func(code string)
	Notifier     Notifier
	Masker       ContentMasker

	DefaultModel        string
	AutoInterpret       bool
	AutoPostSummaries   bool
	ExternalTurnTimeout time.Duration
	StopGrace           time.Duration
	MaxContextMessages  int
	IdlePassMultiplier  int
}
