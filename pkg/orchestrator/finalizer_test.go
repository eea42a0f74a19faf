package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-run/roundtable/pkg/aiprovider"
	"github.com/roundtable-run/roundtable/pkg/models"
)

func TestFinalize_RunsExactlyOnceAndUnregisters(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	persistence := &fakePersistence{}

	m := models.NewMeeting("FIN-0731", "Topic", "", "host", 0, 1)
	unregistered := make(chan string, 4)

	deps := newTestDeps(aiprovider.NewStub("[PASS]"), broadcaster, persistence)
	deps.Unregister = func(code string) { unregistered <- code }

	o := New(m, deps)
	require.NoError(t, o.Start(""))
	waitDone(t, o, 5*time.Second)

	o.finalize()
	o.finalize()

	assert.Equal(t, models.MeetingStateClosed, m.State())
	assert.Equal(t, 1, broadcaster.countOf("session.complete"))
	assert.Equal(t, 1, broadcaster.countOf("meeting_ended"))
	require.Len(t, unregistered, 1)
	assert.Equal(t, "FIN-0731", <-unregistered)
}

func TestBuildTranscript_FormatsEveryMessageType(t *testing.T) {
	m := models.NewMeeting("TRX-0731", "Topic", "", "host", 0, 1)
	m.AppendMessage("", models.SenderKindSystem, models.MessageTypeStatus, "started", models.ContentTypeText)
	m.AppendMessage("Host", models.SenderKindHuman, models.MessageTypeDirective, "stay on topic", models.ContentTypeText)
	m.AppendMessage("A", models.SenderKindAgent, models.MessageTypeArtifact, "# doc", models.ContentTypeMarkdown)
	m.AppendMessage("A", models.SenderKindAgent, models.MessageTypeMessage, "hello", models.ContentTypeText)

	o := New(m, Deps{})
	transcript := o.buildTranscript()

	assert.Contains(t, transcript, "[System]: started")
	assert.Contains(t, transcript, "[Directive from Host]: stay on topic")
	assert.Contains(t, transcript, "[A — artifact]:\n# doc")
	assert.Contains(t, transcript, "[A]: hello")
}
