// Package names validates player names before they go on the leaderboard.
package names

import (
	"strings"

	goaway "github.com/TwiN/go-away"
)

// Screen wraps a profanity detector primed with the Dutch wordlist on
// top of the library's English defaults.
type Screen struct {
	detector *goaway.ProfanityDetector
}

// NewScreen builds the name screen used at registration.
func NewScreen() *Screen {
	profanities := make([]string, 0, len(goaway.DefaultProfanities)+len(dutchProfanities))
	profanities = append(profanities, goaway.DefaultProfanities...)
	profanities = append(profanities, dutchProfanities...)

	return &Screen{
		detector: goaway.NewProfanityDetector().WithCustomDictionary(
			profanities,
			goaway.DefaultFalsePositives,
			goaway.DefaultFalseNegatives,
		),
	}
}

// Clean trims a raw player name. An empty result means the name was blank.
func Clean(raw string) string {
	return strings.TrimSpace(raw)
}

// Allowed reports whether a cleaned name passes the profanity screen.
func (s *Screen) Allowed(name string) bool {
	return !s.detector.IsProfane(name)
}
