package services

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// GenerateMeetingCode derives a short, human-memorable meeting code from a
// title: a 4-letter title-derived prefix plus the 4-digit MMDD date,
// joined by a hyphen (e.g. "STAN-0731" for "Standup" on July 31st). A
// title shorter than 4 characters falls back to 4 random hex characters,
// same as a blank title. taken reports whether a candidate code is
// already registered; on collision a single random hex nibble is
// appended and the check repeats.
func GenerateMeetingCode(title string, now time.Time, taken func(code string) bool) (string, error) {
	prefix, err := titlePrefix(title)
	if err != nil {
		return "", err
	}
	base := fmt.Sprintf("%s-%s", prefix, now.Format("0102"))

	if !taken(base) {
		return base, nil
	}

	for attempt := 0; attempt < 16; attempt++ {
		nibble, err := randomHex(1)
		if err != nil {
			return "", err
		}
		candidate := base + nibble
		if !taken(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("generate meeting code: exhausted collision retries for %q", base)
}

// titlePrefix takes the first 4 runes of title, uppercased, with spaces
// mapped to 'X'. Titles shorter than 4 runes fall back to 4 random hex
// characters, uppercased.
func titlePrefix(title string) (string, error) {
	runes := []rune(title)
	if len(runes) < 4 {
		hex, err := randomHex(2)
		if err != nil {
			return "", err
		}
		return strings.ToUpper(hex), nil
	}

	prefix := strings.ToUpper(string(runes[:4]))
	return strings.ReplaceAll(prefix, " ", "X"), nil
}

func randomHex(nbytes int) (string, error) {
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random hex: %w", err)
	}
	return fmt.Sprintf("%x", b), nil
}
