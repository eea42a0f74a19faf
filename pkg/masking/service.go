package masking

import "log/slog"

// TokenMasker applies the built-in credential-shaped redaction patterns
// plus any registered structural Maskers. Created once at startup
// (singleton); stateless aside from its compiled patterns, so it is safe
// for concurrent use by the Finalizer, Message Log, and Wall.
type TokenMasker struct {
	patterns []*CompiledPattern
	maskers  []Masker
}

// NewTokenMasker compiles the built-in patterns and registers extra,
// optional structural maskers.
func NewTokenMasker(extra ...Masker) *TokenMasker {
	m := &TokenMasker{
		patterns: builtinPatterns(),
		maskers:  extra,
	}
	slog.Info("masking service initialized", "patterns", len(m.patterns), "maskers", len(m.maskers))
	return m
}

// Mask redacts credential-shaped substrings from content. Failure-mode is
// fail-open: a masker that panics-recovers would be a worse outcome than
// shipping unmasked content once, but none of the built-ins can fail, so
// this simply always returns a result.
func (m *TokenMasker) Mask(content string) string {
	if content == "" {
		return content
	}

	masked := content
	for _, masker := range m.maskers {
		if masker.AppliesTo(masked) {
			masked = masker.Mask(masked)
		}
	}
	for _, p := range m.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}
