package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-run/roundtable/pkg/models"
)

func TestRegistry_RegisterLookupUnregister(t *testing.T) {
	r := New()
	m := models.NewMeeting("ROAD-0731", "Roadmap", "", "alice", 1, 5)

	require.NoError(t, r.Register("ROAD-0731", m))

	got, err := r.Lookup("ROAD-0731")
	require.NoError(t, err)
	assert.Same(t, m, got)

	r.Unregister("ROAD-0731")
	_, err = r.Lookup("ROAD-0731")
	assert.ErrorIs(t, err, ErrNotFound)

	// Unregistering an already-absent code is a no-op, not an error.
	assert.NotPanics(t, func() { r.Unregister("ROAD-0731") })
}

func TestRegistry_Register_RejectsDuplicateCode(t *testing.T) {
	r := New()
	m1 := models.NewMeeting("ROAD-0731", "Roadmap", "", "alice", 1, 5)
	m2 := models.NewMeeting("ROAD-0731", "Other", "", "bob", 1, 5)

	require.NoError(t, r.Register("ROAD-0731", m1))
	err := r.Register("ROAD-0731", m2)
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestRegistry_Register_ConcurrentSameCode_OnlyOneSucceeds(t *testing.T) {
	r := New()

	const attempts = 20
	var wg sync.WaitGroup
	successCount := int32(0)
	var mu sync.Mutex

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			m := models.NewMeeting("ROAD-0731", "Roadmap", "", "alice", 1, 5)
			if err := r.Register("ROAD-0731", m); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, successCount)
}
