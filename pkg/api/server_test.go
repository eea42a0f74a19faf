package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-run/roundtable/pkg/aiprovider"
	"github.com/roundtable-run/roundtable/pkg/config"
	"github.com/roundtable-run/roundtable/pkg/credential"
	"github.com/roundtable-run/roundtable/pkg/events"
	"github.com/roundtable-run/roundtable/pkg/models"
	"github.com/roundtable-run/roundtable/pkg/orchestrator"
	"github.com/roundtable-run/roundtable/pkg/registry"
	"github.com/roundtable-run/roundtable/pkg/services"
)

type noopDispatcher struct{}

func (noopDispatcher) Directive(string, string, string) error        { return nil }
func (noopDispatcher) HumanMessage(string, string, string) error     { return nil }
func (noopDispatcher) ExternalResponse(string, string, string) error { return nil }

func newTestServer(t *testing.T) (*Server, *credential.Store) {
	t.Helper()

	creds := credential.New("rt")
	conns := events.NewConnectionManager(nil, noopDispatcher{}, time.Second)
	sockets := config.NewSocketRegistry(nil)

	meetingSvc := services.NewMeetingService(services.MeetingServiceDeps{
		Registry:    registry.New(),
		Credentials: creds,
		OrchestratorDeps: orchestrator.Deps{
			Provider:            aiprovider.NewStub("[PASS]"),
			Broadcaster:         conns,
			Persistence:         noopPersistence{},
			Interpreter:         orchestrator.NoopInterpreter{},
			DefaultModel:        "stub-model",
			ExternalTurnTimeout: 200 * time.Millisecond,
			StopGrace:           50 * time.Millisecond,
			MaxContextMessages:  30,
			IdlePassMultiplier:  2,
		},
		MaxRoundsDefault: 5,
	})

	srv := NewServer(meetingSvc, nil, nil, nil, creds, conns, sockets, nil, 30)
	return srv, creds
}

type noopPersistence struct{}

func (noopPersistence) PersistMessage(context.Context, *models.Message) error { return nil }
func (noopPersistence) PersistMeetingState(context.Context, string, models.MeetingState) error {
	return nil
}
func (noopPersistence) PersistTranscript(context.Context, string, string) error { return nil }

func doRequest(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler_ReportsHealthy(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateMeeting_RequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/meetings", "", createMeetingRequest{Topic: "Standup", Host: "alice"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateMeeting_RejectsWrongScope(t *testing.T) {
	srv, creds := newTestServer(t)
	_, token, err := creds.Mint(uuid.Nil, uuid.Nil, "alice", []models.Scope{models.ScopeWallRead})
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/meetings", token, createMeetingRequest{Topic: "Standup", Host: "alice"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAndGetMeeting_HappyPath(t *testing.T) {
	srv, creds := newTestServer(t)
	_, token, err := creds.Mint(uuid.Nil, uuid.Nil, "alice", nil)
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/meetings", token, createMeetingRequest{
		Topic: "Standup Notes", Host: "alice",
		Agents: []participantSpecRequest{{Name: "bot-a"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created meetingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "waiting", created.State)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/meetings/"+created.Code, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMeeting_UnknownCodeIs404(t *testing.T) {
	srv, creds := newTestServer(t)
	_, token, err := creds.Mint(uuid.Nil, uuid.Nil, "alice", nil)
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/meetings/NOPE-0101", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterAgent_RejectsBlankName(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/agents/register", "", registerAgentRequest{AgentName: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSockets_ReturnsEmptyRegistry(t *testing.T) {
	srv, creds := newTestServer(t)
	_, token, err := creds.Mint(uuid.Nil, uuid.Nil, "alice", nil)
	require.NoError(t, err)
	_ = token

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/sockets", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sockets")
}
