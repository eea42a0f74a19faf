package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roundtable-run/roundtable/pkg/models"
)

const defaultExternalTurnTimeout = 30 * time.Second

// ErrNoPendingTurn is returned by SubmitExternalResponse when no turn is
// currently awaiting a response from the named agent.
var ErrNoPendingTurn = fmt.Errorf("no pending external turn for this agent")

// externalPromise is a single pending external-turn response slot. It is
// resolved at most once, either by SubmitExternalResponse or by the
// scheduler's timeout.
type externalPromise struct {
	resultCh chan string
	once     sync.Once
}

func newExternalPromise() *externalPromise {
	return &externalPromise{resultCh: make(chan string, 1)}
}

func (p *externalPromise) resolve(response string) bool {
	resolved := false
	p.once.Do(func() {
		p.resultCh <- response
		resolved = true
	})
	return resolved
}

// externalTable maps external-agent name to its pending promise. It is
// exclusively owned by the scheduler goroutine for writes that create or
// remove entries, but SubmitExternalResponse (called from an HTTP handler
// goroutine) needs to resolve an existing entry concurrently, so lookups
// and resolution are guarded.
type externalTable struct {
	mu      sync.Mutex
	pending map[string]*externalPromise
}

func newExternalTable() *externalTable {
	return &externalTable{pending: make(map[string]*externalPromise)}
}

// await creates a promise for agentName, broadcasts nothing itself (the
// caller broadcasts turn_request), and blocks until a response arrives, the
// timeout elapses, or ctx is cancelled. It always removes the entry before
// returning.
func (t *externalTable) await(ctx context.Context, agentName string, timeout <-chan time.Time) (response string, timedOut bool) {
	p := newExternalPromise()

	t.mu.Lock()
	t.pending[agentName] = p
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, agentName)
		t.mu.Unlock()
	}()

	select {
	case resp := <-p.resultCh:
		return resp, false
	case <-timeout:
		return "", true
	case <-ctx.Done():
		return "", true
	}
}

// submit resolves the pending promise for agentName, if any. Returns
// ErrNoPendingTurn if no turn is currently pending for that agent, or if it
// was already resolved (e.g. the timeout fired first).
func (t *externalTable) submit(agentName, response string) error {
	t.mu.Lock()
	p, ok := t.pending[agentName]
	t.mu.Unlock()

	if !ok {
		return ErrNoPendingTurn
	}
	if !p.resolve(response) {
		return ErrNoPendingTurn
	}
	return nil
}

// driveExternalTurn implements the External Turn Protocol for one turn:
// create a promise, broadcast turn_request, await with a deadline, and on
// timeout emit a System message and return a pass.
func (o *Orchestrator) driveExternalTurn(ctx context.Context, p *models.Participant) turnResult {
	timeout := o.deps.ExternalTurnTimeout
	if timeout <= 0 {
		timeout = defaultExternalTurnTimeout
	}

	o.deps.Broadcaster.Broadcast(meetingTopic(o.meeting.Code), "turn_request", map[string]any{
		"agent_name":   p.Name,
		"topic":        o.meeting.Topic,
		"conversation": o.buildUserContent(),
		"directives":   o.meeting.Directives(),
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	resp, timedOut := o.external.await(ctx, p.Name, timer.C)
	if timedOut {
		o.appendAndPublish("", models.SenderKindSystem, models.MessageTypeStatus,
			fmt.Sprintf("%s timed out, skipping", p.Name), models.ContentTypeText)
		return passResult()
	}

	return classifyResponse(resp)
}
