package api

import "github.com/roundtable-run/roundtable/pkg/models"

// createMeetingRequest is the JSON body for POST /meetings.
type createMeetingRequest struct {
	Topic           string                   `json:"topic" binding:"required"`
	Task            string                   `json:"task"`
	Host            string                   `json:"host" binding:"required"`
	CooldownSeconds *float64                 `json:"cooldown_seconds"`
	MaxRounds       *int                     `json:"max_rounds"`
	AutoStart       bool                     `json:"auto_start"`
	Agents          []participantSpecRequest `json:"agents"`
}

type participantSpecRequest struct {
	Name           string `json:"name" binding:"required"`
	Kind           string `json:"kind"`
	SocketID       string `json:"socket_id"`
	PersonaPrompt  string `json:"persona_prompt"`
	PreferredModel string `json:"preferred_model"`
}

func (r participantSpecRequest) kind() models.ParticipantKind {
	if r.Kind == string(models.ParticipantKindExternal) {
		return models.ParticipantKindExternal
	}
	return models.ParticipantKindInternal
}

// joinMeetingRequest is the JSON body for POST /meetings/{code}/join.
type joinMeetingRequest struct {
	AgentName     string `json:"agent_name" binding:"required"`
	SocketID      string `json:"socket_id"`
	PersonaPrompt string `json:"persona_prompt"`
}

// startMeetingRequest is the JSON body for POST /meetings/{code}/start.
type startMeetingRequest struct {
	SeriesID string `json:"series_id"`
}

// respondRequest is the JSON body for POST /meetings/{code}/respond.
type respondRequest struct {
	AgentName string `json:"agent_name"`
	Response  string `json:"response" binding:"required"`
}

// directiveRequest is the JSON body for a host-directive REST supplement.
type directiveRequest struct {
	Issuer  string `json:"issuer" binding:"required"`
	Payload string `json:"payload" binding:"required"`
}

// humanMessageRequest is the JSON body for a human-chat REST supplement.
type humanMessageRequest struct {
	SenderName string `json:"sender_name" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// registerAgentRequest is the JSON body for POST /agents/register.
type registerAgentRequest struct {
	AgentName string `json:"agent_name" binding:"required"`
}

// wallPostRequest is the JSON body for POST /wall.
type wallPostRequest struct {
	AuthorName string `json:"author_name" binding:"required"`
	Content    string `json:"content" binding:"required"`
	ParentID   string `json:"parent_id"`
}

// wallReactRequest is the JSON body for POST /wall/{id}/react.
type wallReactRequest struct {
	Emoji  string `json:"emoji" binding:"required"`
	Author string `json:"author" binding:"required"`
}
