package context

import (
	stdctx "context"
	"strings"
)

// HumanNote is one prior-session human note block, as returned by the
// series collaborator.
type HumanNote struct {
	SessionID string
	Content   string
}

// SeriesMemorySource is the narrow interface onto the out-of-scope
// session/series collaborator: given a series id, it returns a condensed
// memory summary and the most recent human note blocks.
type SeriesMemorySource interface {
	SeriesMemory(ctx stdctx.Context, seriesID string) (string, error)
	RecentHumanNotes(ctx stdctx.Context, seriesID string, limit int) ([]HumanNote, error)
}

// Loader assembles the Context Loader's contribution to an internal
// agent's system prompt.
type Loader struct {
	source             SeriesMemorySource
	cache              *MemoryCache
	memorySnippetChars int
	recentNotesLimit   int
}

// NewLoader constructs a Loader. source may be nil, in which case Load
// returns an empty snapshot (meetings need not belong to a series).
func NewLoader(source SeriesMemorySource, cache *MemoryCache, memorySnippetChars, recentNotesLimit int) *Loader {
	return &Loader{
		source:             source,
		cache:              cache,
		memorySnippetChars: memorySnippetChars,
		recentNotesLimit:   recentNotesLimit,
	}
}

// Snapshot is the combined prior-context payload spliced into a meeting's
// system prompt once, before it goes Active.
type Snapshot struct {
	MemorySnippet string
	RecentNotes   []HumanNote
}

// Load fetches (or reuses a cached copy of) the series memory snippet,
// truncated to memorySnippetChars, plus up to recentNotesLimit recent
// human note blocks, each truncated to 500 chars.
func (l *Loader) Load(ctx stdctx.Context, seriesID string) (Snapshot, error) {
	if l.source == nil || seriesID == "" {
		return Snapshot{}, nil
	}

	snippet, ok := l.cache.Get(seriesID)
	if !ok {
		full, err := l.source.SeriesMemory(ctx, seriesID)
		if err != nil {
			return Snapshot{}, err
		}
		snippet = truncate(full, l.memorySnippetChars)
		l.cache.Set(seriesID, snippet)
	}

	notes, err := l.source.RecentHumanNotes(ctx, seriesID, l.recentNotesLimit)
	if err != nil {
		return Snapshot{}, err
	}
	for i := range notes {
		notes[i].Content = truncate(notes[i].Content, 500)
	}

	return Snapshot{MemorySnippet: snippet, RecentNotes: notes}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max])
}
