package services

import (
	"fmt"
	"strings"
)

const meetingTopicPrefix = "meeting:"

// Dispatcher adapts MeetingService's code-keyed orchestrator handles to
// events.MeetingDispatcher, so pkg/events never needs to import
// pkg/orchestrator or pkg/registry directly.
type Dispatcher struct {
	meetings *MeetingService
}

// NewDispatcher constructs a Dispatcher over meetings.
func NewDispatcher(meetings *MeetingService) *Dispatcher {
	return &Dispatcher{meetings: meetings}
}

// Directive implements events.MeetingDispatcher.
func (d *Dispatcher) Directive(topic, issuer, payload string) error {
	code, err := meetingCodeFromTopic(topic)
	if err != nil {
		return err
	}
	return d.meetings.Directive(code, issuer, payload)
}

// HumanMessage implements events.MeetingDispatcher.
func (d *Dispatcher) HumanMessage(topic, senderName, content string) error {
	code, err := meetingCodeFromTopic(topic)
	if err != nil {
		return err
	}
	return d.meetings.HumanMessage(code, senderName, content)
}

// ExternalResponse implements events.MeetingDispatcher.
func (d *Dispatcher) ExternalResponse(topic, agentName, response string) error {
	code, err := meetingCodeFromTopic(topic)
	if err != nil {
		return err
	}
	return d.meetings.RespondExternal(code, agentName, response)
}

func meetingCodeFromTopic(topic string) (string, error) {
	code, ok := strings.CutPrefix(topic, meetingTopicPrefix)
	if !ok || code == "" {
		return "", fmt.Errorf("topic %q: %w", topic, ErrInvalidInput)
	}
	return code, nil
}
