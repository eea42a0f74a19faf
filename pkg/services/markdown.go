package services

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// renderMarkdown converts source markdown (an Artifact message's content,
// or the onboarding doc template after substitution) to sanitized HTML for
// display in the context-snapshot polling payload. Goldmark's default
// renderer escapes raw HTML in the source by treating it as plain text,
// so no separate sanitizer pass is needed.
func renderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
