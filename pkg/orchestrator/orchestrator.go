package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	rtcontext "github.com/roundtable-run/roundtable/pkg/context"
	"github.com/roundtable-run/roundtable/pkg/models"
)

// ErrNotWaiting is returned by Start when the meeting is not in the
// Waiting state.
var ErrNotWaiting = errors.New("meeting is not waiting to start")

// ErrNotActive is returned by Pause when the meeting is not Active, and by
// AddParticipant when the meeting is neither Active nor Paused.
var ErrNotActive = errors.New("meeting is not in a state that accepts this operation")

func meetingTopic(code string) string { return "meeting:" + code }

// Orchestrator owns one Meeting for its entire lifetime: it runs the Turn
// Scheduler on a dedicated goroutine, holds the External Turn Protocol's
// promise table, and invokes the Finalizer exactly once regardless of how
// the scheduler loop exits. The round counter and consecutive-pass counter
// are touched only by that goroutine; everything shared with request
// handlers goes through the Meeting's own mutex or through o's gate/stop
// primitives below.
type Orchestrator struct {
	meeting      *models.Meeting
	deps         Deps
	external     *externalTable
	contextNotes []rtcontext.HumanNote

	ctx    context.Context
	cancel context.CancelFunc

	gateMu    sync.Mutex
	pauseGate chan struct{} // non-nil while paused; closed by Resume or Stop

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	finalizeOnce sync.Once

	round             int
	consecutivePasses int
}

// New constructs an Orchestrator for meeting. It does not start the
// scheduler loop; call Start for that.
func New(meeting *models.Meeting, deps Deps) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		meeting:  meeting,
		deps:     deps,
		external: newExternalTable(),
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Meeting returns the orchestrator's owned meeting.
func (o *Orchestrator) Meeting() *models.Meeting { return o.meeting }

// Start transitions the meeting from Waiting to Active, loads prior-series
// context, appends the opening Status message, and launches the scheduler
// loop on its own goroutine. It returns before the first round runs.
func (o *Orchestrator) Start(seriesID string) error {
	if o.meeting.State() != models.MeetingStateWaiting {
		return ErrNotWaiting
	}

	o.loadContext(seriesID)

	o.meeting.MarkStarted()
	o.appendAndPublish("", models.SenderKindSystem, models.MessageTypeStatus,
		fmt.Sprintf("Meeting started. Topic: %s", o.meeting.Topic), models.ContentTypeText)

	go o.run()
	return nil
}

func (o *Orchestrator) loadContext(seriesID string) {
	if o.deps.ContextLoad == nil {
		return
	}
	snap, err := o.deps.ContextLoad.Load(o.ctx, seriesID)
	if err != nil {
		slog.Error("orchestrator: context load failed", "meeting", o.meeting.Code, "error", err)
		return
	}
	o.meeting.MemorySnapshot = snap.MemorySnippet
	o.contextNotes = snap.RecentNotes
}

// run executes the scheduler loop and guarantees the Finalizer runs exactly
// once, even on panic, then signals doneCh.
func (o *Orchestrator) run() {
	defer close(o.doneCh)
	defer o.finalize()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("orchestrator: scheduler loop panicked", "meeting", o.meeting.Code, "panic", r)
		}
	}()

	o.schedulerLoop()
}

// Pause transitions Active -> Paused. No effect (returns ErrNotActive) from
// any other state.
func (o *Orchestrator) Pause() error {
	if o.meeting.State() != models.MeetingStateActive {
		return ErrNotActive
	}

	o.gateMu.Lock()
	if o.pauseGate == nil {
		o.pauseGate = make(chan struct{})
	}
	o.gateMu.Unlock()

	o.meeting.SetState(models.MeetingStatePaused)
	return nil
}

// Resume transitions Paused -> Active and releases the scheduler's
// pause-gate wait. No effect otherwise.
func (o *Orchestrator) Resume() {
	o.openGate()
	if o.meeting.State() == models.MeetingStatePaused {
		o.meeting.SetState(models.MeetingStateActive)
	}
}

func (o *Orchestrator) openGate() {
	o.gateMu.Lock()
	if o.pauseGate != nil {
		close(o.pauseGate)
		o.pauseGate = nil
	}
	o.gateMu.Unlock()
}

func (o *Orchestrator) currentGate() chan struct{} {
	o.gateMu.Lock()
	defer o.gateMu.Unlock()
	return o.pauseGate
}

// Stop sets the cooperative stop flag, releases any pause-gate wait, and
// returns immediately. The caller (the HTTP handler) is responsible for
// waiting up to the configured stop grace on Done() before giving up and
// relying on cancellation to unblock the loop.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
	o.openGate()
}

// Cancel forcibly cancels the scheduler's context, unblocking any
// in-flight AI call or external-turn wait. Called after the stop grace
// period elapses without the loop draining on its own.
func (o *Orchestrator) Cancel() { o.cancel() }

// Done is closed once the scheduler loop has exited and the Finalizer has
// run.
func (o *Orchestrator) Done() <-chan struct{} { return o.doneCh }

func (o *Orchestrator) stopRequested() bool {
	select {
	case <-o.stopCh:
		return true
	default:
		return false
	}
}

// waitForTurn blocks the scheduler until the meeting is unpaused or a stop
// is requested. Returns true if the caller should proceed with the round.
func (o *Orchestrator) waitForTurn() (proceed bool) {
	for {
		if o.stopRequested() {
			return false
		}
		gate := o.currentGate()
		if gate == nil {
			return true
		}
		select {
		case <-gate:
		case <-o.stopCh:
			return false
		case <-o.ctx.Done():
			return false
		}
	}
}

// AddParticipant seats p while the meeting is Active or Paused; the
// scheduler picks new participants up on the next round.
func (o *Orchestrator) AddParticipant(p *models.Participant) error {
	state := o.meeting.State()
	if state != models.MeetingStateActive && state != models.MeetingStatePaused {
		return ErrNotActive
	}
	if err := o.meeting.AddParticipant(p); err != nil {
		return err
	}

	o.appendAndPublish("", models.SenderKindSystem, models.MessageTypeStatus,
		fmt.Sprintf("%s has joined the meeting", p.Name), models.ContentTypeText)
	o.deps.Broadcaster.Broadcast(meetingTopic(o.meeting.Code), "participant_joined", map[string]any{
		"name": p.Name,
		"kind": string(p.Kind),
	})
	return nil
}

// Directive records a new host instruction as active for the remainder of
// the meeting and appends it to the log.
func (o *Orchestrator) Directive(issuer, payload string) {
	d := models.NewDirective(o.meeting.ID, payload)
	o.meeting.AddDirective(d)
	o.appendAndPublish(issuer, models.SenderKindHuman, models.MessageTypeDirective, payload, models.ContentTypeText)
}

// HumanMessage enqueues a human message for the scheduler to drain at the
// start of the next agent turn.
func (o *Orchestrator) HumanMessage(senderName, content string) {
	o.meeting.EnqueueHumanMessage(senderName, content)
}

// SubmitExternalResponse resolves a pending external turn for agentName.
func (o *Orchestrator) SubmitExternalResponse(agentName, text string) error {
	return o.external.submit(agentName, text)
}

// appendAndPublish appends a message to the log, persists it, and
// broadcasts it, in that order, per the Message Log's persist-before-
// broadcast requirement. Persistence failures are logged and otherwise
// ignored — the in-memory log and broadcast still proceed.
func (o *Orchestrator) appendAndPublish(senderName string, senderKind models.SenderKind, msgType models.MessageType, content, contentType string) *models.Message {
	if o.deps.Masker != nil {
		content = o.deps.Masker.Mask(content)
	}
	msg := o.meeting.AppendMessage(senderName, senderKind, msgType, content, contentType)

	if o.deps.Persistence != nil {
		if err := o.deps.Persistence.PersistMessage(o.ctx, msg); err != nil {
			slog.Error("orchestrator: message persistence failed", "meeting", o.meeting.Code, "sequence", msg.SequenceNumber, "error", err)
		}
	}

	o.deps.Broadcaster.Broadcast(meetingTopic(o.meeting.Code), "meeting_message", msg)
	return msg
}
