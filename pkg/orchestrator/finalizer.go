package orchestrator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roundtable-run/roundtable/pkg/models"
)

// finalize runs the close-out sequence exactly once per meeting lifetime,
// regardless of how the scheduler loop exited (round bound, idle
// termination, or stop). Each step after the Status message is wrapped so
// a failure in one does not skip the next; the registry unregister at the
// end is unconditional.
func (o *Orchestrator) finalize() {
	o.finalizeOnce.Do(o.runFinalizeSteps)
}

func (o *Orchestrator) runFinalizeSteps() {
	defer o.unregister()

	o.meeting.SetState(models.MeetingStateProcessing)
	o.persistState(models.MeetingStateProcessing)

	o.appendAndPublish("", models.SenderKindSystem, models.MessageTypeStatus,
		fmt.Sprintf("Meeting concluded after %d round(s)", o.round), models.ContentTypeText)

	transcript := o.buildTranscript()

	if o.deps.Persistence != nil {
		if err := o.deps.Persistence.PersistTranscript(o.ctx, o.meeting.ID.String(), transcript); err != nil {
			slog.Error("finalizer: transcript persistence failed", "meeting", o.meeting.Code, "error", err)
		}
	}

	interpretCount := 0
	if o.deps.AutoInterpret && o.deps.Interpreter != nil {
		n, err := o.deps.Interpreter.Interpret(o.ctx, o.meeting.ID.String())
		if err != nil {
			slog.Error("finalizer: auto-interpret failed", "meeting", o.meeting.Code, "error", err)
		} else {
			interpretCount = n
		}
	}

	if o.deps.AutoPostSummaries && o.deps.Wall != nil {
		summary := summarize(transcript)
		if err := o.deps.Wall.PostSummary(o.ctx, o.meeting.ID.String(), o.meeting.Host, summary); err != nil {
			slog.Error("finalizer: auto-post summary failed", "meeting", o.meeting.Code, "error", err)
		}
		if o.deps.Notifier != nil {
			if err := o.deps.Notifier.NotifyMeetingCompleted(o.ctx, o.meeting.Code, summary); err != nil {
				slog.Error("finalizer: slack notification failed", "meeting", o.meeting.Code, "error", err)
			}
		}
	}

	o.deps.Broadcaster.Broadcast(meetingTopic(o.meeting.Code), "session.complete", map[string]any{
		"meeting_id":         o.meeting.ID.String(),
		"interpretation_count": interpretCount,
	})

	o.meeting.SetState(models.MeetingStateClosed)
	o.meeting.MarkEnded()
	o.persistState(models.MeetingStateClosed)

	o.deps.Broadcaster.Broadcast(meetingTopic(o.meeting.Code), "meeting_ended", map[string]any{
		"session_id":     o.meeting.ID.String(),
		"rounds":         o.round,
		"message_count":  len(o.meeting.Log()),
	})
}

func (o *Orchestrator) persistState(state models.MeetingState) {
	if o.deps.Persistence == nil {
		return
	}
	if err := o.deps.Persistence.PersistMeetingState(o.ctx, o.meeting.ID.String(), state); err != nil {
		slog.Error("finalizer: state persistence failed", "meeting", o.meeting.Code, "state", state, "error", err)
	}
}

func (o *Orchestrator) unregister() {
	if o.deps.Unregister != nil {
		o.deps.Unregister(o.meeting.Code)
	}
}

// buildTranscript joins every log entry's TranscriptLine with newlines.
// This step cannot fail.
func (o *Orchestrator) buildTranscript() string {
	log := o.meeting.Log()
	lines := make([]string, 0, len(log))
	for _, msg := range log {
		lines = append(lines, msg.TranscriptLine())
	}
	return strings.Join(lines, "\n")
}

// summarize produces a short one-line wall summary from a transcript. It
// is intentionally crude: the real synthesis is the interpretation
// collaborator's job, which this exercise treats as out of scope.
func summarize(transcript string) string {
	lines := strings.Split(transcript, "\n")
	return fmt.Sprintf("Meeting concluded with %d logged entries.", len(lines))
}
