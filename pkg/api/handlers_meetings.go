package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roundtable-run/roundtable/pkg/models"
	"github.com/roundtable-run/roundtable/pkg/services"
)

// createMeetingHandler handles POST /meetings.
func (s *Server) createMeetingHandler(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	agents := make([]services.ParticipantSpec, len(req.Agents))
	for i, a := range req.Agents {
		agents[i] = services.ParticipantSpec{
			Name:           a.Name,
			Kind:           a.kind(),
			SocketID:       a.SocketID,
			PersonaPrompt:  a.PersonaPrompt,
			PreferredModel: a.PreferredModel,
		}
	}

	meeting, err := s.meetings.CreateMeeting(c.Request.Context(), services.CreateMeetingRequest{
		Topic:           req.Topic,
		Task:            req.Task,
		Host:            req.Host,
		CooldownSeconds: req.CooldownSeconds,
		MaxRounds:       req.MaxRounds,
		AutoStart:       req.AutoStart,
		Agents:          agents,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newMeetingResponse(meeting))
}

// listMeetingsHandler handles GET /meetings.
func (s *Server) listMeetingsHandler(c *gin.Context) {
	records, err := s.meetings.ListMeetings(c.Request.Context(), c.Query("state"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]meetingRecordResponse, len(records))
	for i, rec := range records {
		out[i] = newMeetingRecordResponse(rec)
	}
	c.JSON(http.StatusOK, gin.H{"meetings": out})
}

// getMeetingHandler handles GET /meetings/{code}.
func (s *Server) getMeetingHandler(c *gin.Context) {
	meeting, err := s.meetings.GetMeeting(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMeetingResponse(meeting))
}

// joinMeetingHandler handles POST /meetings/{code}/join.
func (s *Server) joinMeetingHandler(c *gin.Context) {
	var req joinMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	participant, token, err := s.meetings.JoinMeeting(c.Request.Context(), c.Param("code"), services.ParticipantSpec{
		Name:          req.AgentName,
		Kind:          models.ParticipantKindExternal,
		SocketID:      req.SocketID,
		PersonaPrompt: req.PersonaPrompt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, joinMeetingResponse{
		Participant: newParticipantResponse(participant),
		Token:       token,
	})
}

// startMeetingHandler handles POST /meetings/{code}/start.
func (s *Server) startMeetingHandler(c *gin.Context) {
	var req startMeetingRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	if err := s.meetings.StartMeeting(c.Param("code"), req.SeriesID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondHandler handles POST /meetings/{code}/respond.
func (s *Server) respondHandler(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	agentName := req.AgentName
	if agentName == "" {
		if cred := callerCredential(c); cred != nil {
			agentName = cred.DisplayName
		}
	}
	if agentName == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "agent_name is required"})
		return
	}

	if err := s.meetings.RespondExternal(c.Param("code"), agentName, req.Response); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// contextHandler handles GET /meetings/{code}/context.
func (s *Server) contextHandler(c *gin.Context) {
	snap, err := s.meetings.Snapshot(c.Param("code"), s.maxContextMessages)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContextSnapshotResponse(snap))
}

// directiveHandler handles the REST supplement POST /meetings/{code}/directive.
func (s *Server) directiveHandler(c *gin.Context) {
	var req directiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.meetings.Directive(c.Param("code"), req.Issuer, req.Payload); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// humanMessageHandler handles the REST supplement POST /meetings/{code}/messages.
func (s *Server) humanMessageHandler(c *gin.Context) {
	var req humanMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.meetings.HumanMessage(c.Param("code"), req.SenderName, req.Content); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// pauseMeetingHandler handles the REST supplement POST /meetings/{code}/pause.
func (s *Server) pauseMeetingHandler(c *gin.Context) {
	if err := s.meetings.Pause(c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// resumeMeetingHandler handles the REST supplement POST /meetings/{code}/resume.
func (s *Server) resumeMeetingHandler(c *gin.Context) {
	if err := s.meetings.Resume(c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// stopMeetingHandler handles the REST supplement POST /meetings/{code}/stop.
func (s *Server) stopMeetingHandler(c *gin.Context) {
	if err := s.meetings.Stop(c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
