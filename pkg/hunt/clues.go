// Package hunt holds the clue chain that drives a treasure hunt: an
// ordered set of tags, each pointing at the next one to scan.
package hunt

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Clue is a single entry of the clues file. Tags are the identifiers
// encoded on the physical NFC/QR markers players scan.
type Clue struct {
	Tag     string `yaml:"tag"`
	Clue    string `yaml:"clue"`
	NextTag string `yaml:"next_tag,omitempty"`
	Final   bool   `yaml:"final,omitempty"`
}

// Clues is an immutable, validated clue chain. The first entry of the
// file is the initial tag that starts the hunt.
type Clues struct {
	order []string
	byTag map[string]Clue
}

// Load reads and validates a clues yaml file. The hunt cannot run
// without one, so any failure here is fatal to the caller.
func Load(path string) (*Clues, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clues file %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a clue chain from yaml bytes.
func Parse(raw []byte) (*Clues, error) {
	var entries []Clue
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("syntax error in clues file: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("clues file defines no clues")
	}

	c := &Clues{byTag: make(map[string]Clue, len(entries))}
	for i, entry := range entries {
		tag := strings.TrimSpace(entry.Tag)
		if tag == "" {
			return nil, fmt.Errorf("clue #%d has no tag", i+1)
		}
		if strings.TrimSpace(entry.Clue) == "" {
			return nil, fmt.Errorf("clue %q has no clue text", tag)
		}
		if _, dup := c.byTag[tag]; dup {
			return nil, fmt.Errorf("duplicate tag %q", tag)
		}
		entry.Tag = tag
		c.byTag[tag] = entry
		c.order = append(c.order, tag)
	}

	// Every non-final clue must chain to a tag that exists.
	for _, tag := range c.order {
		entry := c.byTag[tag]
		if entry.Final {
			if entry.NextTag != "" {
				return nil, fmt.Errorf("final clue %q must not set next_tag", tag)
			}
			continue
		}
		if entry.NextTag == "" {
			return nil, fmt.Errorf("clue %q needs next_tag or final: true", tag)
		}
		if _, ok := c.byTag[entry.NextTag]; !ok {
			return nil, fmt.Errorf("clue %q chains to unknown tag %q", tag, entry.NextTag)
		}
	}

	return c, nil
}

// InitialTag returns the tag that starts the hunt.
func (c *Clues) InitialTag() string {
	return c.order[0]
}

// Get looks up a clue by tag.
func (c *Clues) Get(tag string) (Clue, bool) {
	clue, ok := c.byTag[tag]
	return clue, ok
}

// Count reports how many clues the chain holds.
func (c *Clues) Count() int {
	return len(c.order)
}

// FormatDuration renders a completion time the way the clue pages and
// leaderboard show it, e.g. "12 minutes and 4 seconds".
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	minutes, seconds := total/60, total%60
	return fmt.Sprintf("%d minutes and %d seconds", minutes, seconds)
}

// FormatShort renders a duration in the compact leaderboard form, e.g. "12m 4s".
func FormatShort(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}
