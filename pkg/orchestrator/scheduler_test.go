package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-run/roundtable/pkg/models"
)

func newTestMeetingWithParticipants(t *testing.T, names ...string) (*models.Meeting, *Orchestrator) {
	t.Helper()
	m := models.NewMeeting("SCH-0731", "Topic", "", "host", 0, 1)
	for _, n := range names {
		require.NoError(t, m.AddParticipant(models.NewParticipant(m.ID, n, models.ParticipantKindInternal)))
	}
	o := New(m, Deps{})
	return m, o
}

func TestOrderForRound_NoMentionsKeepsOriginalOrder(t *testing.T) {
	m, o := newTestMeetingWithParticipants(t, "A", "B", "C")
	m.AppendMessage("A", models.SenderKindAgent, models.MessageTypeMessage, "no mentions here", models.ContentTypeText)

	order := o.orderForRound()
	names := namesOf(order)
	assert.Equal(t, []string{"A", "B", "C"}, names)
}

func TestOrderForRound_MentionedComeFirstPreservingMentionOrder(t *testing.T) {
	m, o := newTestMeetingWithParticipants(t, "A", "B", "C")
	m.AppendMessage("A", models.SenderKindAgent, models.MessageTypeMessage, "ping @C and @B please", models.ContentTypeText)

	order := o.orderForRound()
	names := namesOf(order)
	assert.Equal(t, []string{"C", "B", "A"}, names)
}

func TestOrderForRound_OnlyScansLastFiveMessages(t *testing.T) {
	m, o := newTestMeetingWithParticipants(t, "A", "B", "C")
	m.AppendMessage("A", models.SenderKindAgent, models.MessageTypeMessage, "@C you there?", models.ContentTypeText)
	for i := 0; i < 5; i++ {
		m.AppendMessage("B", models.SenderKindAgent, models.MessageTypeMessage, "filler", models.ContentTypeText)
	}

	order := o.orderForRound()
	names := namesOf(order)
	assert.Equal(t, []string{"A", "B", "C"}, names, "the @C mention scrolled out of the 5-message window")
}

func TestIdlePassThreshold_DefaultsToTwoTimesParticipants(t *testing.T) {
	_, o := newTestMeetingWithParticipants(t, "A", "B")
	assert.Equal(t, 4, o.idlePassThreshold(2))

	o.deps.IdlePassMultiplier = 3
	assert.Equal(t, 6, o.idlePassThreshold(2))
}

func namesOf(participants []*models.Participant) []string {
	out := make([]string, len(participants))
	for i, p := range participants {
		out[i] = p.Name
	}
	return out
}
