package api

import (
	"time"

	"github.com/roundtable-run/roundtable/pkg/database"
	"github.com/roundtable-run/roundtable/pkg/models"
	"github.com/roundtable-run/roundtable/pkg/services"
)

type participantResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	SocketID       string     `json:"socket_id,omitempty"`
	PreferredModel string     `json:"preferred_model,omitempty"`
	JoinedAt       time.Time  `json:"joined_at"`
	LeftAt         *time.Time `json:"left_at,omitempty"`
}

func newParticipantResponse(p *models.Participant) participantResponse {
	return participantResponse{
		ID:             p.ID.String(),
		Name:           p.Name,
		Kind:           string(p.Kind),
		SocketID:       p.SocketID,
		PreferredModel: p.PreferredModel,
		JoinedAt:       p.JoinedAt,
		LeftAt:         p.LeftAt,
	}
}

type meetingResponse struct {
	ID              string                `json:"id"`
	Code            string                `json:"code"`
	Topic           string                `json:"topic"`
	Task            string                `json:"task"`
	Host            string                `json:"host"`
	State           string                `json:"state"`
	CooldownSeconds float64               `json:"cooldown_seconds"`
	MaxRounds       int                   `json:"max_rounds"`
	CreatedAt       time.Time             `json:"created_at"`
	StartedAt       *time.Time            `json:"started_at,omitempty"`
	EndedAt         *time.Time            `json:"ended_at,omitempty"`
	Participants    []participantResponse `json:"participants"`
}

func newMeetingResponse(m *models.Meeting) meetingResponse {
	participants := m.Participants()
	out := make([]participantResponse, len(participants))
	for i, p := range participants {
		out[i] = newParticipantResponse(p)
	}
	return meetingResponse{
		ID:              m.ID.String(),
		Code:            m.Code,
		Topic:           m.Topic,
		Task:            m.Task,
		Host:            m.Host,
		State:           string(m.State()),
		CooldownSeconds: m.CooldownSeconds,
		MaxRounds:       m.MaxRounds,
		CreatedAt:       m.CreatedAt,
		StartedAt:       m.StartedAt(),
		EndedAt:         m.EndedAt(),
		Participants:    out,
	}
}

type meetingRecordResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Topic string `json:"topic"`
	Task  string `json:"task"`
	Host  string `json:"host"`
	State string `json:"state"`
}

func newMeetingRecordResponse(rec *database.MeetingRecord) meetingRecordResponse {
	return meetingRecordResponse{
		ID:    rec.ID.String(),
		Code:  rec.Code,
		Topic: rec.Topic,
		Task:  rec.Task,
		Host:  rec.Host,
		State: string(rec.State),
	}
}

type joinMeetingResponse struct {
	Participant participantResponse `json:"participant"`
	Token       string              `json:"token,omitempty"`
}

type contextMessageResponse struct {
	ID             string    `json:"id"`
	SenderName     string    `json:"sender_name"`
	SenderKind     string    `json:"sender_kind"`
	Type           string    `json:"type"`
	Content        string    `json:"content"`
	RenderedHTML   string    `json:"rendered_html,omitempty"`
	SequenceNumber uint64    `json:"sequence_number"`
	CreatedAt      time.Time `json:"created_at"`
}

type contextSnapshotResponse struct {
	State        string                   `json:"state"`
	Topic        string                   `json:"topic"`
	Task         string                   `json:"task"`
	Participants []participantResponse    `json:"participants"`
	Messages     []contextMessageResponse `json:"messages"`
}

func newContextSnapshotResponse(snap *services.ContextSnapshot) contextSnapshotResponse {
	participants := make([]participantResponse, len(snap.Participants))
	for i, p := range snap.Participants {
		participants[i] = newParticipantResponse(p)
	}
	messages := make([]contextMessageResponse, len(snap.Messages))
	for i, m := range snap.Messages {
		messages[i] = contextMessageResponse{
			ID:             m.ID,
			SenderName:     m.SenderName,
			SenderKind:     string(m.SenderKind),
			Type:           string(m.Type),
			Content:        m.Content,
			RenderedHTML:   m.RenderedHTML,
			SequenceNumber: m.SequenceNumber,
			CreatedAt:      m.CreatedAt,
		}
	}
	return contextSnapshotResponse{
		State:        string(snap.State),
		Topic:        snap.Topic,
		Task:         snap.Task,
		Participants: participants,
		Messages:     messages,
	}
}

type wallPostResponse struct {
	ID         string                     `json:"id"`
	AuthorName string                     `json:"author_name"`
	Content    string                     `json:"content"`
	PostType   string                     `json:"post_type"`
	ParentID   string                     `json:"parent_id,omitempty"`
	Reactions  map[string]map[string]bool `json:"reactions"`
	CreatedAt  time.Time                  `json:"created_at"`
}

func newWallPostResponse(p *models.WallPost) wallPostResponse {
	resp := wallPostResponse{
		ID:         p.ID.String(),
		AuthorName: p.AuthorName,
		Content:    p.Content,
		PostType:   string(p.PostType),
		Reactions:  p.Reactions,
		CreatedAt:  p.CreatedAt,
	}
	if p.ParentID != nil {
		resp.ParentID = p.ParentID.String()
	}
	return resp
}

type registerAgentResponse struct {
	AgentID       string                      `json:"agent_id"`
	Token         string                      `json:"token"`
	OnboardingDoc string                      `json:"onboarding_doc_html"`
	Endpoints     services.DiscoveryEndpoints `json:"endpoints"`
}
