package masking

import "regexp"

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// builtinPatterns returns the patterns applied to every piece of content,
// independent of which credential prefix this process mints under — an
// agent may echo back a token minted by a different roundtable process
// (e.g. copy-pasted from another meeting), so the sweep isn't limited to
// the local Credential Store's own prefix.
func builtinPatterns() []*CompiledPattern {
	return []*CompiledPattern{
		{
			Name: "bearer_token",
			// "<prefix>_<urlsafe-base64 body>", per the Credential Store's
			// token format: ASCII prefix, underscore, >= 32 random bytes.
			Regex:       regexp.MustCompile(`\b[a-z][a-z0-9]{1,15}_[A-Za-z0-9_-]{32,}\b`),
			Replacement: "[REDACTED_TOKEN]",
		},
		{
			Name:        "bearer_header",
			Regex:       regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]{16,}`),
			Replacement: "Bearer [REDACTED_TOKEN]",
		},
		{
			Name:        "aws_access_key",
			Regex:       regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
			Replacement: "[REDACTED_AWS_KEY]",
		},
		{
			Name:        "generic_api_key_assignment",
			Regex:       regexp.MustCompile(`(?i)(api[_-]?key|secret|token)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,}['"]?`),
			Replacement: "$1=[REDACTED]",
		},
	}
}
