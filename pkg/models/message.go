package models

import (
	"fmt"
	"time"
)

// Message is one immutable entry in a Meeting's log: a chat message, a
// rendered artifact, a directive echo, or a system status line.
type Message struct {
	ID             string // ULID, monotonic within the process
	MeetingID      string
	SenderName     string
	SenderKind     SenderKind
	Type           MessageType
	Content        string
	ContentType    string
	SequenceNumber uint64
	CreatedAt      time.Time
}

// TranscriptLine renders the message the way the Finalizer assembles the
// final transcript: one line per log entry, speaker-attributed.
func (m *Message) TranscriptLine() string {
	switch m.Type {
	case MessageTypeStatus:
		return fmt.Sprintf("[System]: %s", m.Content)
	case MessageTypeDirective:
		return fmt.Sprintf("[Directive from %s]: %s", m.SenderName, m.Content)
	case MessageTypeArtifact:
		return fmt.Sprintf("[%s — artifact]:\n%s", m.SenderName, m.Content)
	default:
		if m.SenderKind == SenderKindSystem {
			return fmt.Sprintf("[System]: %s", m.Content)
		}
		return fmt.Sprintf("[%s]: %s", m.SenderName, m.Content)
	}
}

// PromptLine renders the message the way the Agent Driver formats trailing
// context into a turn's user content.
func (m *Message) PromptLine() string {
	return m.TranscriptLine()
}
