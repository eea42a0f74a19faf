package config

import (
	"log/slog"
	"time"

	"dario.cat/mergo"
)

// Defaults contains the system-wide default configuration enumerated in
// the orchestrator's design notes. Any field left unset in roundtable.yaml
// falls back to the built-in value applied in loader.go.
type Defaults struct {
	// AIProvider names the AI provider adapter to construct (e.g. "stub",
	// "anthropic"). Meetings fall back to this when a participant doesn't
	// specify PreferredModel.
	AIProvider string `yaml:"ai_provider,omitempty"`

	// DefaultModel is the model identifier passed to the AI provider when
	// a participant has no PreferredModel of its own.
	DefaultModel string `yaml:"default_model,omitempty"`

	// AutoInterpret enables the Finalizer's call to the interpretation
	// collaborator (an out-of-scope narrow interface).
	AutoInterpret bool `yaml:"auto_interpret"`

	// AutoPostSummaries enables the Finalizer posting a summary WallPost.
	AutoPostSummaries bool `yaml:"auto_post_summaries"`

	// CooldownSecondsDefault is used when a meeting is created without an
	// explicit cooldown.
	CooldownSecondsDefault float64 `yaml:"cooldown_seconds_default"`

	// MaxRoundsDefault is used when a meeting is created without an
	// explicit max_rounds.
	MaxRoundsDefault int `yaml:"max_rounds_default"`

	// ExternalTurnTimeout bounds how long the scheduler waits for an
	// external agent's response before treating the turn as a pass.
	ExternalTurnTimeout time.Duration `yaml:"external_turn_timeout"`

	// StopGrace bounds how long Stop waits for the scheduler loop to
	// drain before the loop's context is cancelled outright.
	StopGrace time.Duration `yaml:"stop_grace"`

	// MaxContextMessages is how many trailing log entries are formatted
	// into an internal agent's user content.
	MaxContextMessages int `yaml:"max_context_messages"`

	// MemorySnippetChars bounds the prior-series memory snapshot included
	// in an internal agent's system prompt.
	MemorySnippetChars int `yaml:"memory_snippet_chars"`

	// RecentNotesLimit bounds how many prior-session human note blocks are
	// included in an internal agent's system prompt.
	RecentNotesLimit int `yaml:"recent_notes_limit"`

	// IdlePassMultiplier sets the consecutive-pass threshold as a multiple
	// of participant count before the scheduler ends a meeting early.
	IdlePassMultiplier int `yaml:"idle_pass_multiplier"`
}

// DefaultDefaults returns the built-in values for every enumerated option,
// applied for any field left zero-valued after YAML load.
func DefaultDefaults() *Defaults {
	return &Defaults{
		AIProvider:             "stub",
		DefaultModel:           "default",
		AutoInterpret:          false,
		AutoPostSummaries:      false,
		CooldownSecondsDefault: 2,
		MaxRoundsDefault:       10,
		ExternalTurnTimeout:    30 * time.Second,
		StopGrace:              10 * time.Second,
		MaxContextMessages:     30,
		MemorySnippetChars:     3000,
		RecentNotesLimit:       3,
		IdlePassMultiplier:     2,
	}
}

// applyDefaults fills zero-valued fields of d with fallback's values.
// mergo's default merge semantics only populate fields that are currently
// empty on the destination, which is exactly the "YAML overrides built-in"
// behavior every other merge in this package follows.
func applyDefaults(d, fallback *Defaults) {
	if err := mergo.Merge(d, fallback); err != nil {
		// fallback is a trusted, well-formed literal; a merge error here
		// means a field type mismatch introduced by a future edit.
		slog.Error("failed to apply built-in defaults", "error", err)
	}
}
