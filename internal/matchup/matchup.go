// Package matchup models a deck's matchup profile and normalizes it so that
// opponent usage rates cover the whole metagame.
package matchup

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// FullUsage is the usage total a complete metagame adds up to.
const FullUsage = 100.0

// DefaultUnknownDeckName names the synthetic entry covering unlisted decks.
const DefaultUnknownDeckName = "Unknown deck"

// ErrNoMatchups is returned when no row has both a deck name and a usage rate.
var ErrNoMatchups = errors.New("at least one matchup is required")

// RawEntry is one form row as typed by the user.
type RawEntry struct {
	DeckName  string `json:"deckName" toml:"deck" yaml:"deck"`
	UsageRate string `json:"usageRate" toml:"usage" yaml:"usage"`
	Advantage string `json:"advantage" toml:"advantage" yaml:"advantage"`
}

// Entry is a validated matchup.
type Entry struct {
	DeckName  string    `json:"deckName"`
	UsageRate float64   `json:"usageRate"`
	Advantage Advantage `json:"advantage"`
	Unknown   bool      `json:"unknown,omitempty"`
}

// Set is a normalized matchup profile.
type Set struct {
	Entries []Entry `json:"entries"`

	// TotalUsage is the sum of the user-entered usage rates.
	TotalUsage float64 `json:"totalUsage"`

	// UnknownRate is the usage assigned to the synthetic entry (0 if none was added).
	UnknownRate float64 `json:"unknownRate"`
}

// Normalizer builds Sets from raw rows.
type Normalizer struct {
	// UnknownDeckName overrides DefaultUnknownDeckName when non-empty.
	UnknownDeckName string
}

// Normalize filters raw rows and fills the gap to 100% usage with an unknown
// deck at even advantage. It uses DefaultUnknownDeckName.
func Normalize(raw []RawEntry) (*Set, error) {
	return Normalizer{}.Normalize(raw)
}

// Normalize filters raw rows and fills the gap to 100% usage with an unknown
// deck at even advantage. Rows without a deck name or a numeric usage rate are
// dropped; if none remain, ErrNoMatchups is returned.
func (n Normalizer) Normalize(raw []RawEntry) (*Set, error) {
	entries := make([]Entry, 0, len(raw)+1)
	total := 0.0

	for _, r := range raw {
		name := strings.TrimSpace(r.DeckName)
		if name == "" {
			continue
		}
		usage, ok := parseUsage(r.UsageRate)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			DeckName:  name,
			UsageRate: usage,
			Advantage: AdvantageOrDefault(r.Advantage),
		})
		total += usage
	}

	if len(entries) == 0 {
		return nil, ErrNoMatchups
	}

	return n.fill(entries, total), nil
}

func (n Normalizer) fill(entries []Entry, total float64) *Set {
	unknown := math.Max(0, FullUsage-total)
	if unknown > 0 {
		name := n.UnknownDeckName
		if name == "" {
			name = DefaultUnknownDeckName
		}
		entries = append(entries, Entry{
			DeckName:  name,
			UsageRate: unknown,
			Advantage: AdvantageEven,
			Unknown:   true,
		})
	}

	return &Set{
		Entries:     entries,
		TotalUsage:  total,
		UnknownRate: unknown,
	}
}

// Usage returns the summed usage of every entry, including the unknown deck.
func (s *Set) Usage() float64 {
	sum := 0.0
	for _, e := range s.Entries {
		sum += e.UsageRate
	}
	return sum
}

// Overfull reports whether the entered usage rates exceed 100%.
// The expected win rate of such a set is only an approximation.
func (s *Set) Overfull() bool {
	return s.TotalUsage > FullUsage
}

// parseUsage accepts anything strconv.ParseFloat does ("25", "2.5e1", "0x1p4")
// except NaN and infinities.
func parseUsage(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
