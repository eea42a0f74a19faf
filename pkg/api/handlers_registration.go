package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// registerAgentHandler handles POST /agents/register. Unauthenticated by
// design: self-registration is how an agent obtains its first credential.
func (s *Server) registerAgentHandler(c *gin.Context) {
	var req registerAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.registration.Register(c.Request.Context(), req.AgentName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, registerAgentResponse{
		AgentID:       result.AgentID.String(),
		Token:         result.Token,
		OnboardingDoc: result.OnboardingDoc,
		Endpoints:     result.Endpoints,
	})
}

// listSocketsHandler handles GET /api/v1/sockets: the socket-persona
// discovery endpoint referenced by a newly registered agent.
func (s *Server) listSocketsHandler(c *gin.Context) {
	all := s.sockets.GetAll()
	out := make([]socketSummary, 0, len(all))
	for _, sock := range all {
		out = append(out, socketSummary{
			ID:          sock.ID,
			Name:        sock.Name,
			Description: sock.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sockets": out})
}

type socketSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
