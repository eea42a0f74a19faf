package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCatchupQuerier struct {
	events []CatchupEvent
	err    error
}

func (m *mockCatchupQuerier) GetCatchupEvents(_ context.Context, _ string, _ uint64, limit int) ([]CatchupEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

// mockDispatcher implements MeetingDispatcher, recording calls for assertion.
type mockDispatcher struct {
	mu         sync.Mutex
	directives []string
	humanMsgs  []string
	responses  []string
	failNext   error
}

func (d *mockDispatcher) Directive(topic, issuer, payload string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNext != nil {
		err := d.failNext
		d.failNext = nil
		return err
	}
	d.directives = append(d.directives, fmt.Sprintf("%s|%s|%s", topic, issuer, payload))
	return nil
}

func (d *mockDispatcher) HumanMessage(topic, senderName, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.humanMsgs = append(d.humanMsgs, fmt.Sprintf("%s|%s|%s", topic, senderName, content))
	return nil
}

func (d *mockDispatcher) ExternalResponse(topic, agentName, response string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responses = append(d.responses, fmt.Sprintf("%s|%s|%s", topic, agentName, response))
	return nil
}

func setupTestManager(t *testing.T, dispatcher MeetingDispatcher, catchup CatchupQuerier) (*ConnectionManager, *httptest.Server) {
	t.Helper()
	if catchup == nil {
		catchup = &mockCatchupQuerier{}
	}
	manager := NewConnectionManager(catchup, dispatcher, 5*time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("websocket upgrade error: %v", err)
			return
		}
		identity := Identity{DisplayName: r.URL.Query().Get("name"), Kind: "observer"}
		if a := r.URL.Query().Get("agent"); a != "" {
			identity.AgentName = a
			identity.Kind = "agent"
		}
		manager.HandleConnection(r.Context(), conn, identity)
	}))
	t.Cleanup(server.Close)
	return manager, server
}

func connectWS(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):] + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeJSON(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func ptr(v uint64) *uint64 { return &v }

func TestConnectionManager_ConnectionEstablished(t *testing.T) {
	_, server := setupTestManager(t, nil, nil)
	conn := connectWS(t, server, "")

	msg := readJSON(t, conn)
	assert.Equal(t, "connection.established", msg["type"])
	assert.NotEmpty(t, msg["connection_id"])
}

func TestConnectionManager_SubscribeUnsubscribe(t *testing.T) {
	manager, server := setupTestManager(t, nil, nil)
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "subscribe", Topic: "meeting:ABCD-0731"})
	msg := readJSON(t, conn)
	assert.Equal(t, "subscription.confirmed", msg["type"])
	assert.Equal(t, "meeting:ABCD-0731", msg["topic"])

	require.Eventually(t, func() bool {
		return manager.ActiveConnections() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnectionManager_Broadcast(t *testing.T) {
	manager, server := setupTestManager(t, nil, nil)
	conn1 := connectWS(t, server, "")
	conn2 := connectWS(t, server, "")
	readJSON(t, conn1)
	readJSON(t, conn2)

	topic := "meeting:broadcast-test"
	writeJSON(t, conn1, ClientMessage{Action: "subscribe", Topic: topic})
	writeJSON(t, conn2, ClientMessage{Action: "subscribe", Topic: topic})
	readJSON(t, conn1)
	readJSON(t, conn2)

	require.Eventually(t, func() bool {
		return manager.subscriberCount(topic) == 2
	}, 2*time.Second, 10*time.Millisecond)

	manager.Broadcast(topic, "meeting_message", map[string]string{"content": "hello"})

	msg1 := readJSON(t, conn1)
	msg2 := readJSON(t, conn2)
	assert.Equal(t, "meeting_message", msg1["type"])
	assert.Equal(t, "hello", msg1["data"].(map[string]interface{})["content"])
	assert.Equal(t, "meeting_message", msg2["type"])
}

func TestConnectionManager_PingPong(t *testing.T) {
	_, server := setupTestManager(t, nil, nil)
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "ping"})
	msg := readJSON(t, conn)
	assert.Equal(t, "pong", msg["type"])
}

func TestConnectionManager_CatchupNormal(t *testing.T) {
	events := []CatchupEvent{
		{Sequence: 1, Payload: map[string]interface{}{"type": "meeting_message", "content": "first"}},
		{Sequence: 2, Payload: map[string]interface{}{"type": "meeting_message", "content": "second"}},
	}
	_, server := setupTestManager(t, nil, &mockCatchupQuerier{events: events})
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "subscribe", Topic: "meeting:catchup-test"})
	readJSON(t, conn) // subscription.confirmed

	for i := 0; i < 2; i++ {
		msg := readJSON(t, conn)
		assert.Equal(t, float64(i+1), msg["sequence"])
	}

	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no overflow expected for a small catchup set")
}

func TestConnectionManager_CatchupOverflow(t *testing.T) {
	manyEvents := make([]CatchupEvent, catchupLimit+5)
	for i := range manyEvents {
		manyEvents[i] = CatchupEvent{Sequence: uint64(i + 1), Payload: map[string]interface{}{"type": "meeting_message"}}
	}
	_, server := setupTestManager(t, nil, &mockCatchupQuerier{events: manyEvents})
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "subscribe", Topic: "meeting:overflow-test"})
	readJSON(t, conn)

	var overflowed bool
	for i := 0; i < catchupLimit+5; i++ {
		msg := readJSON(t, conn)
		if msg["type"] == "catchup.overflow" {
			overflowed = true
			assert.Equal(t, true, msg["has_more"])
			break
		}
	}
	assert.True(t, overflowed, "expected catchup.overflow message")
}

func TestConnectionManager_CatchupError(t *testing.T) {
	_, server := setupTestManager(t, nil, &mockCatchupQuerier{err: fmt.Errorf("database unreachable")})
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "subscribe", Topic: "meeting:err-test"})
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "ping"})
	msg := readJSON(t, conn)
	assert.Equal(t, "pong", msg["type"])
}

func TestConnectionManager_BroadcastIsolation(t *testing.T) {
	manager, server := setupTestManager(t, nil, nil)
	conn1 := connectWS(t, server, "")
	conn2 := connectWS(t, server, "")
	readJSON(t, conn1)
	readJSON(t, conn2)

	writeJSON(t, conn1, ClientMessage{Action: "subscribe", Topic: "meeting:room1"})
	readJSON(t, conn1)
	writeJSON(t, conn2, ClientMessage{Action: "subscribe", Topic: "meeting:room2"})
	readJSON(t, conn2)

	require.Eventually(t, func() bool {
		return manager.subscriberCount("meeting:room1") == 1 && manager.subscriberCount("meeting:room2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	manager.Broadcast("meeting:room1", "meeting_message", map[string]string{"room": "1"})
	msg := readJSON(t, conn1)
	assert.Equal(t, "1", msg["data"].(map[string]interface{})["room"])

	_ = conn2.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn2.ReadMessage()
	assert.Error(t, err, "conn2 should not receive room1 broadcast")
}

func TestConnectionManager_Unsubscribe(t *testing.T) {
	manager, server := setupTestManager(t, nil, nil)
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	topic := "meeting:unsub-test"
	writeJSON(t, conn, ClientMessage{Action: "subscribe", Topic: topic})
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "unsubscribe", Topic: topic})
	require.Eventually(t, func() bool {
		return manager.subscriberCount(topic) == 0
	}, 2*time.Second, 10*time.Millisecond)

	manager.Broadcast(topic, "meeting_message", map[string]string{})
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestConnectionManager_EmptyTopicValidation(t *testing.T) {
	_, server := setupTestManager(t, nil, nil)
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "subscribe", Topic: ""})
	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Contains(t, msg["message"], "topic is required")

	writeJSON(t, conn, ClientMessage{Action: "catchup", Topic: "", LastSeq: ptr(0)})
	msg = readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])

	writeJSON(t, conn, ClientMessage{Action: "ping"})
	msg = readJSON(t, conn)
	assert.Equal(t, "pong", msg["type"])
}

func TestConnectionManager_ClientActionsDispatch(t *testing.T) {
	dispatcher := &mockDispatcher{}
	_, server := setupTestManager(t, dispatcher, nil)
	conn := connectWS(t, server, "?name=Casey")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "directive", Topic: "meeting:ABCD-0731", Payload: "wrap it up"})
	writeJSON(t, conn, ClientMessage{Action: "human_message", Topic: "meeting:ABCD-0731", Content: "hello everyone"})

	require.Eventually(t, func() bool {
		dispatcher.mu.Lock()
		defer dispatcher.mu.Unlock()
		return len(dispatcher.directives) == 1 && len(dispatcher.humanMsgs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	dispatcher.mu.Lock()
	assert.Equal(t, "meeting:ABCD-0731|Casey|wrap it up", dispatcher.directives[0])
	assert.Equal(t, "meeting:ABCD-0731|Casey|hello everyone", dispatcher.humanMsgs[0])
	dispatcher.mu.Unlock()
}

func TestConnectionManager_ExternalAgentResponseUsesIdentity(t *testing.T) {
	dispatcher := &mockDispatcher{}
	_, server := setupTestManager(t, dispatcher, nil)
	conn := connectWS(t, server, "?agent=Researcher")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "external_agent_response", Topic: "meeting:ABCD-0731", Response: "done"})

	require.Eventually(t, func() bool {
		dispatcher.mu.Lock()
		defer dispatcher.mu.Unlock()
		return len(dispatcher.responses) == 1
	}, 2*time.Second, 10*time.Millisecond)

	dispatcher.mu.Lock()
	assert.Equal(t, "meeting:ABCD-0731|Researcher|done", dispatcher.responses[0])
	dispatcher.mu.Unlock()
}

func TestConnectionManager_DispatchErrorReportedToSender(t *testing.T) {
	dispatcher := &mockDispatcher{failNext: fmt.Errorf("no pending turn")}
	_, server := setupTestManager(t, dispatcher, nil)
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "directive", Topic: "meeting:x", Payload: "p"})
	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Contains(t, msg["message"], "no pending turn")
}

func TestConnectionManager_ActionWithoutDispatcherReportsUnsupported(t *testing.T) {
	_, server := setupTestManager(t, nil, nil)
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "human_message", Topic: "meeting:x", Content: "hi"})
	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
}

func TestConnectionManager_KickClosesMatchingConnectionAndRefusesReconnect(t *testing.T) {
	manager, server := setupTestManager(t, nil, nil)
	conn := connectWS(t, server, "?agent=Researcher")
	readJSON(t, conn)

	topic := "meeting:kick-test"
	writeJSON(t, conn, ClientMessage{Action: "subscribe", Topic: topic})
	readJSON(t, conn)

	require.Eventually(t, func() bool { return manager.subscriberCount(topic) == 1 }, 2*time.Second, 10*time.Millisecond)

	manager.Kick(topic, "Researcher")

	require.Eventually(t, func() bool { return manager.IsKicked(topic, "Researcher") }, time.Second, 5*time.Millisecond)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "kicked connection should be force-closed")
}

func TestConnectionManager_ForgetTopicClearsState(t *testing.T) {
	manager, server := setupTestManager(t, nil, nil)
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	topic := "meeting:forget-test"
	writeJSON(t, conn, ClientMessage{Action: "subscribe", Topic: topic})
	readJSON(t, conn)

	require.Eventually(t, func() bool { return manager.subscriberCount(topic) == 1 }, 2*time.Second, 10*time.Millisecond)

	manager.Kick(topic, "someone")
	manager.ForgetTopic(topic)

	assert.Equal(t, 0, manager.subscriberCount(topic))
	assert.False(t, manager.IsKicked(topic, "someone"))
}

func TestConnectionManager_CleanupOnDisconnect(t *testing.T) {
	manager, server := setupTestManager(t, nil, nil)
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	writeJSON(t, conn, ClientMessage{Action: "subscribe", Topic: "meeting:cleanup-test"})
	readJSON(t, conn)

	require.Eventually(t, func() bool { return manager.ActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return manager.ActiveConnections() == 0 }, 2*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		manager.Broadcast("meeting:cleanup-test", "meeting_message", map[string]string{})
	})
}

func TestConnectionManager_BroadcastToNonExistentTopic(t *testing.T) {
	manager, _ := setupTestManager(t, nil, nil)
	assert.NotPanics(t, func() {
		manager.Broadcast("meeting:nonexistent", "meeting_message", map[string]string{})
	})
}

func TestConnectionManager_ConcurrentBroadcast(t *testing.T) {
	manager, server := setupTestManager(t, nil, nil)
	conn := connectWS(t, server, "")
	readJSON(t, conn)

	topic := "meeting:concurrent-test"
	writeJSON(t, conn, ClientMessage{Action: "subscribe", Topic: topic})
	readJSON(t, conn)

	require.Eventually(t, func() bool { return manager.subscriberCount(topic) == 1 }, 2*time.Second, 10*time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			manager.Broadcast(topic, "meeting_message", map[string]int{"idx": idx})
		}(i)
	}
	wg.Wait()

	received := 0
	for i := 0; i < 20; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		received++
	}
	assert.Equal(t, 20, received)
}
