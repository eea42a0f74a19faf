package context

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSeriesSource struct {
	memory     string
	notes      []HumanNote
	memoryCalls int
}

func (f *fakeSeriesSource) SeriesMemory(_ context.Context, _ string) (string, error) {
	f.memoryCalls++
	return f.memory, nil
}

func (f *fakeSeriesSource) RecentHumanNotes(_ context.Context, _ string, limit int) ([]HumanNote, error) {
	if limit < len(f.notes) {
		return f.notes[:limit], nil
	}
	return f.notes, nil
}

func TestLoader_Load_TruncatesAndCaches(t *testing.T) {
	src := &fakeSeriesSource{
		memory: strings.Repeat("x", 5000),
		notes:  []HumanNote{{SessionID: "s1", Content: strings.Repeat("y", 1000)}},
	}
	loader := NewLoader(src, NewMemoryCache(time.Minute), 3000, 3)

	snap, err := loader.Load(context.Background(), "series-1")
	require.NoError(t, err)
	assert.Len(t, snap.MemorySnippet, 3000)
	assert.Len(t, snap.RecentNotes, 1)
	assert.Len(t, snap.RecentNotes[0].Content, 500)

	_, err = loader.Load(context.Background(), "series-1")
	require.NoError(t, err)
	assert.Equal(t, 1, src.memoryCalls, "second load should hit the cache, not the source")
}

func TestLoader_Load_NoSeriesIsEmptySnapshot(t *testing.T) {
	loader := NewLoader(nil, NewMemoryCache(time.Minute), 3000, 3)
	snap, err := loader.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, snap.MemorySnippet)
	assert.Empty(t, snap.RecentNotes)
}
