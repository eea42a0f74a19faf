package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-run/roundtable/pkg/config"
)

type fakeMeetingPruner struct {
	calls   int
	cutoffs []time.Time
	count   int
	err     error
}

func (f *fakeMeetingPruner) DeleteClosedBefore(_ context.Context, cutoff time.Time) (int, error) {
	f.calls++
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.count, f.err
}

type fakeConnectionPruner struct {
	calls int
	count int
}

func (f *fakeConnectionPruner) PruneDeadConnections() int {
	f.calls++
	return f.count
}

func testRetentionConfig() *config.RetentionConfig {
	return &config.RetentionConfig{
		MeetingRetentionDays: 90,
		ConnectionTTL:        1 * time.Hour,
		CleanupInterval:      1 * time.Hour,
	}
}

func TestService_RunAll_DeletesClosedMeetingsBeforeCutoff(t *testing.T) {
	meetings := &fakeMeetingPruner{count: 3}
	connections := &fakeConnectionPruner{}
	svc := NewService(testRetentionConfig(), meetings, connections)

	before := time.Now()
	svc.runAll(context.Background())

	require.Len(t, meetings.cutoffs, 1)
	expected := before.Add(-90 * 24 * time.Hour)
	assert.WithinDuration(t, expected, meetings.cutoffs[0], 5*time.Second)
}

func TestService_RunAll_PrunesDeadConnections(t *testing.T) {
	meetings := &fakeMeetingPruner{}
	connections := &fakeConnectionPruner{count: 2}
	svc := NewService(testRetentionConfig(), meetings, connections)

	svc.runAll(context.Background())

	assert.Equal(t, 1, connections.calls)
}

func TestService_RunAll_ToleratesNilCollaborators(t *testing.T) {
	svc := NewService(testRetentionConfig(), nil, nil)
	assert.NotPanics(t, func() { svc.runAll(context.Background()) })
}

func TestService_RunAll_LogsAndContinuesOnMeetingDeleteError(t *testing.T) {
	meetings := &fakeMeetingPruner{err: errors.New("db unavailable")}
	connections := &fakeConnectionPruner{count: 1}
	svc := NewService(testRetentionConfig(), meetings, connections)

	svc.runAll(context.Background())

	assert.Equal(t, 1, meetings.calls)
	assert.Equal(t, 1, connections.calls)
}

func TestService_StartStop_RunsOnceImmediatelyThenStopsCleanly(t *testing.T) {
	meetings := &fakeMeetingPruner{count: 1}
	connections := &fakeConnectionPruner{count: 1}
	svc := NewService(testRetentionConfig(), meetings, connections)

	svc.Start(context.Background())
	require.Eventually(t, func() bool { return meetings.calls >= 1 }, time.Second, 10*time.Millisecond)
	svc.Stop()

	assert.GreaterOrEqual(t, meetings.calls, 1)
}

func TestService_StartTwice_IsNoop(t *testing.T) {
	svc := NewService(testRetentionConfig(), &fakeMeetingPruner{}, &fakeConnectionPruner{})
	svc.Start(context.Background())
	firstCancel := svc.cancel
	svc.Start(context.Background())
	assert.NotNil(t, firstCancel)
	svc.Stop()
}

func TestService_StopBeforeStart_IsNoop(t *testing.T) {
	svc := NewService(testRetentionConfig(), &fakeMeetingPruner{}, &fakeConnectionPruner{})
	assert.NotPanics(t, svc.Stop)
}
