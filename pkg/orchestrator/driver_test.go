package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	rtcontext "github.com/roundtable-run/roundtable/pkg/context"
	"github.com/roundtable-run/roundtable/pkg/models"
)

func TestClassifyResponse_Pass(t *testing.T) {
	for _, raw := range []string{"", "   ", "[PASS]", "  [PASS]  "} {
		r := classifyResponse(raw)
		assert.True(t, r.isPass, "expected pass for %q", raw)
	}
}

func TestClassifyResponse_Artifact(t *testing.T) {
	r := classifyResponse("[ARTIFACT]\n# Heading\nbody")
	assert.False(t, r.isPass)
	assert.True(t, r.isArtifact)
	assert.Equal(t, models.ContentTypeMarkdown, r.contentType)
	assert.NotContains(t, r.content, artifactTag)
}

func TestClassifyResponse_OrdinaryMessage(t *testing.T) {
	r := classifyResponse("Sounds good to me.")
	assert.False(t, r.isPass)
	assert.False(t, r.isArtifact)
	assert.Equal(t, models.ContentTypeText, r.contentType)
	assert.Equal(t, "Sounds good to me.", r.content)
}

func TestBuildSystemPrompt_IncludesDirectivesAndNotes(t *testing.T) {
	m := models.NewMeeting("SYS-0731", "Launch plan", "Decide the date", "host", 0, 3)
	m.MemorySnapshot = strings.Repeat("m", 50)
	m.AddDirective(models.NewDirective(m.ID, "Stay focused on the date"))

	p := models.NewParticipant(m.ID, "A", models.ParticipantKindInternal)
	o := New(m, Deps{MaxContextMessages: 30})
	o.contextNotes = []rtcontext.HumanNote{
		{SessionID: "s1", Content: "note one"},
		{SessionID: "s2", Content: "note two"},
	}

	prompt := o.buildSystemPrompt(nil, p)

	assert.Contains(t, prompt, "You are A,")
	assert.Contains(t, prompt, "Decide the date")
	assert.Contains(t, prompt, strings.Repeat("m", 50))
	assert.Contains(t, prompt, "Stay focused on the date")
	assert.Contains(t, prompt, "note one")
	assert.Contains(t, prompt, "note two")
	assert.Contains(t, prompt, "[PASS]")
}

func TestBuildUserContent_TruncatesToMaxContextMessages(t *testing.T) {
	m := models.NewMeeting("CTX-0731", "Topic", "", "host", 0, 1)
	for i := 0; i < 40; i++ {
		m.AppendMessage("A", models.SenderKindAgent, models.MessageTypeMessage, "line", models.ContentTypeText)
	}

	o := New(m, Deps{MaxContextMessages: 5})
	content := o.buildUserContent()
	lines := strings.Split(content, "\n")
	assert.Len(t, lines, 5)
}
