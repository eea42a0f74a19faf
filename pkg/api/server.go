// Package api wires the Meeting Registry, Turn Scheduler, Credential
// Store, Wall, and Live Broadcast Fabric into a gin-routed HTTP surface:
// meeting lifecycle, the External Turn Protocol's join/respond paths,
// the shared Agent Wall, agent self-registration, and the WebSocket
// upgrade endpoint.
package api

import (
	"context"
	stdsql "database/sql"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roundtable-run/roundtable/pkg/config"
	"github.com/roundtable-run/roundtable/pkg/credential"
	"github.com/roundtable-run/roundtable/pkg/database"
	"github.com/roundtable-run/roundtable/pkg/events"
	"github.com/roundtable-run/roundtable/pkg/models"
	"github.com/roundtable-run/roundtable/pkg/services"
	"github.com/roundtable-run/roundtable/pkg/version"
	"github.com/roundtable-run/roundtable/pkg/wall"
)

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	meetings           *services.MeetingService
	registration       *services.RegistrationService
	wall               *wall.Service
	wallPosts          *database.WallPostRepository
	credentials        *credential.Store
	connections        *events.ConnectionManager
	sockets            *config.SocketRegistry
	db                 *stdsql.DB
	maxContextMessages int
}

// NewServer constructs a Server with every route registered. db is the raw
// connection pool used by the health check; it may be nil in tests that
// never exercise database connectivity.
func NewServer(
	meetings *services.MeetingService,
	registration *services.RegistrationService,
	wallSvc *wall.Service,
	wallPosts *database.WallPostRepository,
	credentials *credential.Store,
	connections *events.ConnectionManager,
	sockets *config.SocketRegistry,
	db *stdsql.DB,
	maxContextMessages int,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:             engine,
		meetings:           meetings,
		registration:       registration,
		wall:               wallSvc,
		wallPosts:          wallPosts,
		credentials:        credentials,
		connections:        connections,
		sockets:            sockets,
		db:                 db,
		maxContextMessages: maxContextMessages,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	auth := func(scope models.Scope) gin.HandlerFunc { return requireScope(s.credentials, scope) }

	v1 := s.engine.Group("/api/v1")

	v1.POST("/meetings", auth(models.ScopeSessionsWrite), s.createMeetingHandler)
	v1.GET("/meetings", auth(models.ScopeSessionsRead), s.listMeetingsHandler)
	v1.GET("/meetings/:code", auth(models.ScopeSessionsRead), s.getMeetingHandler)
	v1.GET("/meetings/:code/context", auth(models.ScopeSessionsRead), s.contextHandler)

	v1.POST("/meetings/:code/join", auth(models.ScopeRoomsWrite), s.joinMeetingHandler)
	v1.POST("/meetings/:code/start", auth(models.ScopeRoomsWrite), s.startMeetingHandler)
	v1.POST("/meetings/:code/respond", auth(models.ScopeRoomsWrite), s.respondHandler)
	v1.POST("/meetings/:code/directive", auth(models.ScopeRoomsWrite), s.directiveHandler)
	v1.POST("/meetings/:code/messages", auth(models.ScopeRoomsWrite), s.humanMessageHandler)
	v1.POST("/meetings/:code/pause", auth(models.ScopeRoomsWrite), s.pauseMeetingHandler)
	v1.POST("/meetings/:code/resume", auth(models.ScopeRoomsWrite), s.resumeMeetingHandler)
	v1.POST("/meetings/:code/stop", auth(models.ScopeRoomsWrite), s.stopMeetingHandler)

	v1.GET("/wall", auth(models.ScopeWallRead), s.listWallPostsHandler)
	v1.POST("/wall", auth(models.ScopeWallWrite), s.createWallPostHandler)
	v1.POST("/wall/:id/react", auth(models.ScopeWallWrite), s.reactWallPostHandler)

	// Unauthenticated: self-registration is how an agent gets its first token.
	v1.POST("/agents/register", s.registerAgentHandler)

	v1.GET("/sockets", s.listSocketsHandler)

	s.engine.GET("/ws", s.websocketHandler)
}

func (s *Server) healthHandler(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":             "healthy",
		"version":            version.Full(),
		"active_connections": s.connections.ActiveConnections(),
		"registered_sockets": len(s.sockets.GetAll()),
	}

	if s.db != nil {
		dbHealth, err := database.Health(c.Request.Context(), s.db)
		if err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
		}
		body["database"] = dbHealth
	}

	c.JSON(status, body)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, for
// tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
