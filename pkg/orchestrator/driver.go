package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roundtable-run/roundtable/pkg/aiprovider"
	"github.com/roundtable-run/roundtable/pkg/models"
)

const (
	turnTemperature = 0.7
	turnMaxTokens   = 512

	artifactTag = "[ARTIFACT]"
	passTag     = "[PASS]"
)

const turnTakingRules = "Reply in 2-4 sentences. Reply with exactly [PASS] if you have nothing " +
	"meaningful to add this turn. Prefix your reply with [ARTIFACT] to emit rendered markdown " +
	"instead of a short remark. Do not repeat what others have already said."

// turnResult is what the Agent Driver produces for one participant's turn,
// already classified into pass/message/artifact by the caller (the
// scheduler appends it to the log).
type turnResult struct {
	isPass      bool
	content     string
	contentType string
	isArtifact  bool
}

func passResult() turnResult {
	return turnResult{isPass: true}
}

// classifyResponse turns a raw agent response into a turnResult, applying
// the pass detection and [ARTIFACT] tag-stripping rules.
func classifyResponse(raw string) turnResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == passTag {
		return passResult()
	}
	if strings.HasPrefix(trimmed, artifactTag) {
		content := strings.TrimSpace(strings.TrimPrefix(trimmed, artifactTag))
		return turnResult{content: content, contentType: models.ContentTypeMarkdown, isArtifact: true}
	}
	return turnResult{content: trimmed, contentType: models.ContentTypeText}
}

// driveTurn obtains this participant's response for the current turn,
// dispatching on participant kind. It never returns an error: every failure
// mode (provider failure, external timeout) is folded into a pass plus a
// System message, per the Agent Driver's error-handling contract.
func (o *Orchestrator) driveTurn(ctx context.Context, p *models.Participant) turnResult {
	switch p.Kind {
	case models.ParticipantKindExternal:
		return o.driveExternalTurn(ctx, p)
	default:
		return o.driveInternalTurn(ctx, p)
	}
}

func (o *Orchestrator) driveInternalTurn(ctx context.Context, p *models.Participant) turnResult {
	systemPrompt := o.buildSystemPrompt(ctx, p)
	userContent := o.buildUserContent()

	model := p.PreferredModel
	if model == "" {
		model = o.deps.DefaultModel
	}

	resp, err := o.deps.Provider.GenerateText(ctx, aiprovider.Request{
		Model:        model,
		SystemPrompt: systemPrompt,
		UserContent:  userContent,
		Temperature:  turnTemperature,
		MaxTokens:    turnMaxTokens,
	})
	if err != nil {
		slog.Error("agent driver: provider call failed", "meeting", o.meeting.Code, "participant", p.Name, "error", err)
		o.appendAndPublish("", models.SenderKindSystem, models.MessageTypeStatus,
			fmt.Sprintf("%s failed to respond: %s", p.Name, err.Error()), models.ContentTypeText)
		return passResult()
	}

	return classifyResponse(resp)
}

// buildSystemPrompt assembles the Agent Driver's internal-turn system
// prompt: identity/topic/task, socket persona, free-text persona, memory
// snapshot, recent human notes, active directives, then the fixed
// turn-taking rules, in that order.
func (o *Orchestrator) buildSystemPrompt(_ context.Context, p *models.Participant) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a participant in a meeting about %q.\n", p.Name, o.meeting.Topic)
	if o.meeting.Task != "" {
		fmt.Fprintf(&b, "The task at hand: %s\n", o.meeting.Task)
	}

	if p.SocketID != "" && o.deps.Sockets != nil {
		if persona, err := o.deps.Sockets.Get(p.SocketID); err == nil && persona != nil {
			fmt.Fprintf(&b, "\nYour role (%s): %s\n", persona.Name, persona.SystemPrompt)
		}
	}
	if p.PersonaPrompt != "" {
		fmt.Fprintf(&b, "\n%s\n", p.PersonaPrompt)
	}

	if o.meeting.MemorySnapshot != "" {
		fmt.Fprintf(&b, "\nContext from prior meetings:\n%s\n", o.meeting.MemorySnapshot)
	}

	for i, note := range o.contextNotes {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "\nHuman note from a prior session: %s\n", note.Content)
	}

	if directives := o.meeting.Directives(); len(directives) > 0 {
		b.WriteString("\nStanding directives from the host:\n")
		for _, d := range directives {
			fmt.Fprintf(&b, "- %s\n", d.Payload)
		}
	}

	b.WriteString("\n")
	b.WriteString(turnTakingRules)

	return b.String()
}

// buildUserContent formats the last MaxContextMessages log entries as the
// turn's user content.
func (o *Orchestrator) buildUserContent() string {
	log := o.meeting.Log()

	limit := o.deps.MaxContextMessages
	if limit <= 0 {
		limit = len(log)
	}
	if len(log) > limit {
		log = log[len(log)-limit:]
	}

	lines := make([]string, 0, len(log))
	for _, msg := range log {
		lines = append(lines, msg.PromptLine())
	}
	return strings.Join(lines, "\n")
}
