package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeeting_AppendMessage_SequenceIsDenseAndOrdered(t *testing.T) {
	m := NewMeeting("ROAD-0731", "Roadmap", "plan next quarter", "alice", 0.1, 3)

	var wg sync.WaitGroup
	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m.AppendMessage("A", SenderKindAgent, MessageTypeMessage, "hi", ContentTypeText)
		}()
	}
	wg.Wait()

	log := m.Log()
	require.Len(t, log, n)

	seen := make(map[uint64]bool, n)
	for _, entry := range log {
		assert.False(t, seen[entry.SequenceNumber], "duplicate sequence number")
		seen[entry.SequenceNumber] = true
	}
	for i := uint64(1); i <= n; i++ {
		assert.True(t, seen[i], "missing sequence number %d", i)
	}
}

func TestMeeting_AddParticipant_RejectsDuplicateName(t *testing.T) {
	m := NewMeeting("ROAD-0731", "Roadmap", "", "alice", 1, 5)

	require.NoError(t, m.AddParticipant(NewParticipant(m.ID, "A", ParticipantKindInternal)))
	err := m.AddParticipant(NewParticipant(m.ID, "A", ParticipantKindExternal))
	assert.ErrorIs(t, err, ErrDuplicateParticipant)

	assert.Len(t, m.Participants(), 1)
}

func TestMeeting_HumanMessageQueue_DrainIsAtomicAndEmpties(t *testing.T) {
	m := NewMeeting("ROAD-0731", "Roadmap", "", "alice", 1, 5)

	m.EnqueueHumanMessage("alice", "please focus on timeline")
	m.EnqueueHumanMessage("alice", "also budget")

	drained := m.DrainHumanMessages()
	require.Len(t, drained, 2)
	assert.Equal(t, "please focus on timeline", drained[0].Content)

	assert.Nil(t, m.DrainHumanMessages())
}

func TestMeeting_LogSince_FiltersBySequence(t *testing.T) {
	m := NewMeeting("ROAD-0731", "Roadmap", "", "alice", 1, 5)

	for i := 0; i < 5; i++ {
		m.AppendMessage("A", SenderKindAgent, MessageTypeMessage, "msg", ContentTypeText)
	}

	recent := m.LogSince(3)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(4), recent[0].SequenceNumber)
	assert.Equal(t, uint64(5), recent[1].SequenceNumber)
}

func TestMeeting_Directives_AccumulateAndSnapshot(t *testing.T) {
	m := NewMeeting("ROAD-0731", "Roadmap", "", "alice", 1, 5)

	m.AddDirective(NewDirective(m.ID, "keep it under 30 minutes"))
	m.AddDirective(NewDirective(m.ID, "focus on Q3"))

	dirs := m.Directives()
	require.Len(t, dirs, 2)
	assert.Equal(t, "keep it under 30 minutes", dirs[0].Payload)
}

func TestMeeting_MarkStarted_SetsActiveAndTimestamp(t *testing.T) {
	m := NewMeeting("ROAD-0731", "Roadmap", "", "alice", 1, 5)
	assert.Equal(t, MeetingStateWaiting, m.State())

	m.MarkStarted()
	assert.Equal(t, MeetingStateActive, m.State())
	assert.NotNil(t, m.StartedAt())
}
