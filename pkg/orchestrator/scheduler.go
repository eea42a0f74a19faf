package orchestrator

import (
	"regexp"
	"time"

	"github.com/roundtable-run/roundtable/pkg/models"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

const mentionScanWindow = 5

// schedulerLoop runs rounds until the round bound is reached, every
// participant passes for idlePassMultiplier consecutive rounds, or a stop
// is requested. It is the sole writer of o.round and
// o.consecutivePasses.
func (o *Orchestrator) schedulerLoop() {
	for {
		if o.stopRequested() {
			return
		}
		if o.meeting.MaxRounds > 0 && o.round >= o.meeting.MaxRounds {
			return
		}

		order := o.orderForRound()

		for _, p := range order {
			if !o.waitForTurn() {
				return
			}

			o.drainHumanQueue()

			o.deps.Broadcaster.Broadcast(meetingTopic(o.meeting.Code), "agent_thinking", map[string]any{"name": p.Name})
			result := o.driveTurn(o.ctx, p)
			o.deps.Broadcaster.Broadcast(meetingTopic(o.meeting.Code), "agent_done", map[string]any{"name": p.Name})

			if result.isPass {
				o.consecutivePasses++
			} else {
				msgType := models.MessageTypeMessage
				if result.isArtifact {
					msgType = models.MessageTypeArtifact
				}
				o.appendAndPublish(p.Name, models.SenderKindAgent, msgType, result.content, result.contentType)
				o.consecutivePasses = 0

				if !o.stopRequested() && o.meeting.CooldownSeconds > 0 {
					o.sleepCooldown()
				}
			}

			threshold := o.idlePassThreshold(len(order))
			if threshold > 0 && o.consecutivePasses >= threshold {
				o.appendAndPublish("", models.SenderKindSystem, models.MessageTypeStatus, "all passed, ending", models.ContentTypeText)
				return
			}
		}

		o.round++
	}
}

func (o *Orchestrator) idlePassThreshold(participantCount int) int {
	multiplier := o.deps.IdlePassMultiplier
	if multiplier <= 0 {
		multiplier = 2
	}
	return multiplier * participantCount
}

func (o *Orchestrator) sleepCooldown() {
	d := time.Duration(o.meeting.CooldownSeconds * float64(time.Second))
	select {
	case <-time.After(d):
	case <-o.stopCh:
	case <-o.ctx.Done():
	}
}

// drainHumanQueue appends every queued human message as a log entry before
// the next turn and resets the consecutive-pass counter, since a human
// message counts as meeting activity.
func (o *Orchestrator) drainHumanQueue() {
	entries := o.meeting.DrainHumanMessages()
	if len(entries) == 0 {
		return
	}
	for _, e := range entries {
		o.appendAndPublish(e.SenderName, models.SenderKindHuman, models.MessageTypeMessage, e.Content, models.ContentTypeText)
	}
	o.consecutivePasses = 0
}

// orderForRound computes this round's participant order: participants
// mentioned (via @Name) in the most recent mentionScanWindow messages come
// first, in first-mention order and de-duplicated; everyone else follows
// in their original relative order.
func (o *Orchestrator) orderForRound() []*models.Participant {
	participants := o.meeting.Participants()
	mentioned := o.mentionedNames(participants)

	if len(mentioned) == 0 {
		return participants
	}

	byName := make(map[string]*models.Participant, len(participants))
	for _, p := range participants {
		byName[p.Name] = p
	}

	ordered := make([]*models.Participant, 0, len(participants))
	seen := make(map[string]bool, len(participants))
	for _, name := range mentioned {
		if p, ok := byName[name]; ok && !seen[name] {
			ordered = append(ordered, p)
			seen[name] = true
		}
	}
	for _, p := range participants {
		if !seen[p.Name] {
			ordered = append(ordered, p)
			seen[p.Name] = true
		}
	}
	return ordered
}

// mentionedNames scans the last mentionScanWindow log entries for @Name
// tokens matching a known participant, returning them in first-seen order
// with duplicates removed.
func (o *Orchestrator) mentionedNames(participants []*models.Participant) []string {
	known := make(map[string]bool, len(participants))
	for _, p := range participants {
		known[p.Name] = true
	}

	log := o.meeting.Log()
	if len(log) > mentionScanWindow {
		log = log[len(log)-mentionScanWindow:]
	}

	var ordered []string
	seen := make(map[string]bool)
	for _, msg := range log {
		for _, match := range mentionPattern.FindAllStringSubmatch(msg.Content, -1) {
			name := match[1]
			if known[name] && !seen[name] {
				ordered = append(ordered, name)
				seen[name] = true
			}
		}
	}
	return ordered
}
