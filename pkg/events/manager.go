// Package events implements the Live Broadcast Fabric: a per-process
// WebSocket connection manager that fans meeting events out to observers
// subscribed to a meeting's topic.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// catchupLimit is the maximum number of events returned in a catchup
// response. If more events were missed, a catchup.overflow message tells
// the client to fall back to a full REST reload instead of paginating.
const catchupLimit = 200

// Close codes used when evicting a connection, per spec §6.
const (
	CloseUnauthorized = 4001
	CloseKicked       = 4003
)

// Upgrader upgrades an incoming HTTP request to a WebSocket connection.
// CheckOrigin is permissive; origin enforcement belongs to the HTTP layer
// in front of this package, not the socket manager.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RejectUnauthorized closes an already-upgraded connection with the
// unauthorized close code. Authentication can only be rejected this way:
// once the HTTP layer has upgraded the request, there is no status code
// left to send, only a close frame the client can observe.
func RejectUnauthorized(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(CloseUnauthorized, "unauthorized")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
	_ = conn.Close()
}

// CatchupEvent is one row of missed history returned by a catchup query.
type CatchupEvent struct {
	Sequence uint64
	Payload  map[string]interface{}
}

// CatchupQuerier answers "what did I miss since sequence N on this topic",
// backed by pkg/database.MessageRepository.ListSince.
type CatchupQuerier interface {
	GetCatchupEvents(ctx context.Context, topic string, sinceSeq uint64, limit int) ([]CatchupEvent, error)
}

// MeetingDispatcher routes client-to-server socket messages into the
// running meeting identified by topic. Implemented by an adapter over
// pkg/registry + pkg/orchestrator so this package never imports either.
type MeetingDispatcher interface {
	Directive(topic, issuer, payload string) error
	HumanMessage(topic, senderName, content string) error
	ExternalResponse(topic, agentName, response string) error
}

// Identity describes who is on the other end of a connection, established
// by the HTTP layer (bearer token / query-param auth) before the socket is
// handed to HandleConnection.
type Identity struct {
	DisplayName string
	Kind        string // "human", "agent", "observer"
	AgentName   string // non-empty only for external agents, used for kick checks
}

// ClientMessage is a client-to-server envelope on an already-established
// socket, per spec §6: directive, human_message, external_agent_response,
// identify, plus the housekeeping actions subscribe/unsubscribe/catchup/ping.
type ClientMessage struct {
	Action      string  `json:"action"`
	Topic       string  `json:"topic"`
	LastSeq     *uint64 `json:"last_seq,omitempty"`
	Payload     string  `json:"payload,omitempty"`
	SenderName  string  `json:"sender_name,omitempty"`
	Content     string  `json:"content,omitempty"`
	AgentName   string  `json:"agent_name,omitempty"`
	Response    string  `json:"response,omitempty"`
}

// ConnectionManager manages WebSocket connections and per-topic
// subscriptions. Each process running the HTTP server has one instance.
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	// topic -> set of connection ids subscribed to it
	channels  map[string]map[string]bool
	channelMu sync.RWMutex

	// topic -> set of kicked agent names, enforced at connect time
	kicks  map[string]map[string]bool
	kickMu sync.Mutex

	catchupQuerier CatchupQuerier
	dispatcher     MeetingDispatcher
	writeTimeout   time.Duration
}

// Connection represents a single WebSocket client.
//
// subscriptions is only ever touched by the goroutine running
// HandleConnection's read loop (and its deferred cleanup), so it needs no
// lock of its own. Writes to the underlying socket go through writeMu
// because Broadcast and the read loop's replies can race on the same
// connection.
type Connection struct {
	ID            string
	Identity      Identity
	Conn          *websocket.Conn
	subscriptions map[string]bool
	writeMu       sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewConnectionManager creates a ConnectionManager. dispatcher may be nil
// if the caller only needs read-only observer connections (no client-to-
// server meeting actions).
func NewConnectionManager(catchupQuerier CatchupQuerier, dispatcher MeetingDispatcher, writeTimeout time.Duration) *ConnectionManager {
	return &ConnectionManager{
		connections:    make(map[string]*Connection),
		channels:       make(map[string]map[string]bool),
		kicks:          make(map[string]map[string]bool),
		catchupQuerier: catchupQuerier,
		dispatcher:     dispatcher,
		writeTimeout:   writeTimeout,
	}
}

// IsKicked reports whether agentName has been kicked from topic and must
// be refused on (re)connect.
func (m *ConnectionManager) IsKicked(topic, agentName string) bool {
	if agentName == "" {
		return false
	}
	m.kickMu.Lock()
	defer m.kickMu.Unlock()
	return m.kicks[topic][agentName]
}

// Kick evicts every connection identified as agentName on topic and
// refuses future connections from that name on that topic.
func (m *ConnectionManager) Kick(topic, agentName string) {
	m.kickMu.Lock()
	if m.kicks[topic] == nil {
		m.kicks[topic] = make(map[string]bool)
	}
	m.kicks[topic][agentName] = true
	m.kickMu.Unlock()

	m.channelMu.RLock()
	ids := make([]string, 0, len(m.channels[topic]))
	for id := range m.channels[topic] {
		ids = append(ids, id)
	}
	m.channelMu.RUnlock()

	m.mu.RLock()
	var victims []*Connection
	for _, id := range ids {
		if c, ok := m.connections[id]; ok && c.Identity.AgentName == agentName {
			victims = append(victims, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range victims {
		msg := websocket.FormatCloseMessage(CloseKicked, "kicked")
		_ = c.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(m.writeTimeout))
		c.cancel()
	}
}

// ForgetTopic discards subscription and kick state for a finished meeting.
// Live connections are not closed; they simply stop receiving events for
// a topic that will never broadcast again.
func (m *ConnectionManager) ForgetTopic(topic string) {
	m.channelMu.Lock()
	delete(m.channels, topic)
	m.channelMu.Unlock()

	m.kickMu.Lock()
	delete(m.kicks, topic)
	m.kickMu.Unlock()
}

// HandleConnection manages the lifecycle of a single WebSocket connection.
// Called by the HTTP layer after Upgrader.Upgrade. Blocks until the
// connection closes.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn, identity Identity) {
	connID := uuid.New().String()
	ctx, cancel := context.WithCancel(parentCtx)

	c := &Connection{
		ID:            connID,
		Identity:      identity,
		Conn:          conn,
		subscriptions: make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
	}

	m.registerConnection(c)
	defer m.unregisterConnection(c)

	m.sendJSON(c, map[string]string{
		"type":          "connection.established",
		"connection_id": connID,
	})

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid websocket message", "connection_id", connID, "error", err)
			continue
		}

		m.handleClientMessage(ctx, c, &msg)
	}
}

// Broadcast satisfies orchestrator.Broadcaster: it sends an eventType/
// payload envelope to every connection subscribed to topic.
func (m *ConnectionManager) Broadcast(topic, eventType string, payload any) {
	envelope := map[string]any{"type": eventType, "topic": topic, "data": payload}
	data, err := json.Marshal(envelope)
	if err != nil {
		slog.Error("failed to marshal broadcast event", "topic", topic, "event_type", eventType, "error", err)
		return
	}

	m.channelMu.RLock()
	connIDs, ok := m.channels[topic]
	if !ok {
		m.channelMu.RUnlock()
		return
	}
	ids := make([]string, 0, len(connIDs))
	for id := range connIDs {
		ids = append(ids, id)
	}
	m.channelMu.RUnlock()

	// Snapshot connection pointers, then release mu before writing so a
	// slow client can't stall register/unregister for everyone else.
	m.mu.RLock()
	conns := make([]*Connection, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.connections[id]; ok {
			conns = append(conns, c)
		}
	}
	m.mu.RUnlock()

	var dead []*Connection
	for _, c := range conns {
		if err := m.sendRaw(c, data); err != nil {
			slog.Warn("dropping dead observer connection", "connection_id", c.ID, "topic", topic, "error", err)
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		m.unsubscribe(c, topic)
	}
}

// PruneDeadConnections removes subscription entries left behind by
// connections that are no longer registered (a safety net for the rare
// case where a connection's own unregister on disconnect never ran, e.g.
// a hard process crash). Returns the number of stale entries removed.
func (m *ConnectionManager) PruneDeadConnections() int {
	m.mu.RLock()
	live := make(map[string]bool, len(m.connections))
	for id := range m.connections {
		live[id] = true
	}
	m.mu.RUnlock()

	removed := 0
	m.channelMu.Lock()
	for topic, subs := range m.channels {
		for id := range subs {
			if !live[id] {
				delete(subs, id)
				removed++
			}
		}
		if len(subs) == 0 {
			delete(m.channels, topic)
		}
	}
	m.channelMu.Unlock()

	return removed
}

// ActiveConnections returns the number of live WebSocket connections.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

func (m *ConnectionManager) subscriberCount(topic string) int {
	m.channelMu.RLock()
	defer m.channelMu.RUnlock()
	return len(m.channels[topic])
}

func (m *ConnectionManager) handleClientMessage(ctx context.Context, c *Connection, msg *ClientMessage) {
	switch msg.Action {
	case "identify":
		if msg.AgentName != "" {
			c.Identity.AgentName = msg.AgentName
		}
		if msg.SenderName != "" {
			c.Identity.DisplayName = msg.SenderName
		}

	case "subscribe":
		if msg.Topic == "" {
			m.sendJSON(c, map[string]string{"type": "error", "message": "topic is required for subscribe"})
			return
		}
		m.subscribe(c, msg.Topic)
		m.sendJSON(c, map[string]string{"type": "subscription.confirmed", "topic": msg.Topic})
		m.handleCatchup(ctx, c, msg.Topic, 0)

	case "unsubscribe":
		if msg.Topic == "" {
			m.sendJSON(c, map[string]string{"type": "error", "message": "topic is required for unsubscribe"})
			return
		}
		m.unsubscribe(c, msg.Topic)

	case "catchup":
		if msg.Topic == "" {
			m.sendJSON(c, map[string]string{"type": "error", "message": "topic is required for catchup"})
			return
		}
		since := uint64(0)
		if msg.LastSeq != nil {
			since = *msg.LastSeq
		}
		m.handleCatchup(ctx, c, msg.Topic, since)

	case "ping":
		m.sendJSON(c, map[string]string{"type": "pong"})

	case "directive":
		m.dispatch(c, msg.Topic, func() error {
			return m.dispatcher.Directive(msg.Topic, c.Identity.DisplayName, msg.Payload)
		})

	case "human_message":
		m.dispatch(c, msg.Topic, func() error {
			sender := msg.SenderName
			if sender == "" {
				sender = c.Identity.DisplayName
			}
			return m.dispatcher.HumanMessage(msg.Topic, sender, msg.Content)
		})

	case "external_agent_response":
		m.dispatch(c, msg.Topic, func() error {
			agent := msg.AgentName
			if agent == "" {
				agent = c.Identity.AgentName
			}
			return m.dispatcher.ExternalResponse(msg.Topic, agent, msg.Response)
		})

	default:
		m.sendJSON(c, map[string]string{"type": "error", "message": fmt.Sprintf("unknown action %q", msg.Action)})
	}
}

// dispatch runs fn against the dispatcher and reports any error back to
// the sending connection, never to the meeting topic at large.
func (m *ConnectionManager) dispatch(c *Connection, topic string, fn func() error) {
	if m.dispatcher == nil {
		m.sendJSON(c, map[string]string{"type": "error", "message": "action not supported on this connection"})
		return
	}
	if err := fn(); err != nil {
		m.sendJSON(c, map[string]string{"type": "error", "topic": topic, "message": err.Error()})
	}
}

func (m *ConnectionManager) subscribe(c *Connection, topic string) {
	m.channelMu.Lock()
	if m.channels[topic] == nil {
		m.channels[topic] = make(map[string]bool)
	}
	m.channels[topic][c.ID] = true
	m.channelMu.Unlock()

	c.subscriptions[topic] = true
}

func (m *ConnectionManager) unsubscribe(c *Connection, topic string) {
	m.channelMu.Lock()
	if subs, ok := m.channels[topic]; ok {
		delete(subs, c.ID)
		if len(subs) == 0 {
			delete(m.channels, topic)
		}
	}
	m.channelMu.Unlock()

	delete(c.subscriptions, topic)
}

// handleCatchup sends every event missed since sinceSeq to the client.
func (m *ConnectionManager) handleCatchup(ctx context.Context, c *Connection, topic string, sinceSeq uint64) {
	if m.catchupQuerier == nil {
		return
	}

	events, err := m.catchupQuerier.GetCatchupEvents(ctx, topic, sinceSeq, catchupLimit+1)
	if err != nil {
		slog.Error("catchup query failed", "topic", topic, "error", err)
		return
	}

	hasMore := len(events) > catchupLimit
	if hasMore {
		events = events[:catchupLimit]
	}

	for _, evt := range events {
		evt.Payload["sequence"] = evt.Sequence
		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			continue
		}
		if err := m.sendRaw(c, payload); err != nil {
			slog.Warn("failed to send catchup event", "connection_id", c.ID, "error", err)
			return
		}
	}

	if hasMore {
		m.sendJSON(c, map[string]any{"type": "catchup.overflow", "topic": topic, "has_more": true})
	}
}

func (m *ConnectionManager) registerConnection(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[c.ID] = c
}

func (m *ConnectionManager) unregisterConnection(c *Connection) {
	for topic := range c.subscriptions {
		m.unsubscribe(c, topic)
	}

	m.mu.Lock()
	delete(m.connections, c.ID)
	m.mu.Unlock()

	c.cancel()
	_ = c.Conn.Close()
}

func (m *ConnectionManager) sendJSON(c *Connection, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("failed to marshal websocket message", "connection_id", c.ID, "error", err)
		return
	}
	if err := m.sendRaw(c, data); err != nil {
		slog.Warn("failed to send websocket message", "connection_id", c.ID, "error", err)
	}
}

func (m *ConnectionManager) sendRaw(c *Connection, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(m.writeTimeout))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}
