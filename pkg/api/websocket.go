package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/roundtable-run/roundtable/pkg/events"
)

// websocketHandler upgrades GET /ws?topic=meeting:CODE&token=... to a
// WebSocket connection and hands it to the ConnectionManager. Per spec, an
// unauthorized token is rejected with close code 4001 rather than an HTTP
// status: the upgrade must complete first, since a plain HTTP client can
// observe a close frame but not a pre-upgrade status code.
func (s *Server) websocketHandler(c *gin.Context) {
	conn, err := events.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	identity := events.Identity{Kind: "observer", DisplayName: "observer"}

	token := c.Query("token")
	if token == "" {
		if hdr, ok := bearerToken(c.GetHeader("Authorization")); ok {
			token = hdr
		}
	}
	if token != "" {
		cred, err := s.credentials.Verify(token)
		if err != nil {
			events.RejectUnauthorized(conn)
			return
		}
		identity = events.Identity{
			DisplayName: cred.DisplayName,
			Kind:        "agent",
			AgentName:   cred.DisplayName,
		}
	}

	s.connections.HandleConnection(c.Request.Context(), conn, identity)
}
