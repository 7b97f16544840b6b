// Package profile reads matchup profiles from TOML or YAML files and watches
// them for changes.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ramonehamilton/deck-winrate/internal/matchup"
	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

// Profile is a saved form: the deck's matchups plus optional records.
//
// Example (TOML):
//
//	deck = "Azorius Control"
//
//	[[matchups]]
//	deck = "Mono Red"
//	usage = 25
//	advantage = 40
//
//	[actual]
//	battles = 10
//	wins = 7
type Profile struct {
	Deck     string    `toml:"deck" yaml:"deck"`
	Matchups []Matchup `toml:"matchups" yaml:"matchups"`
	Actual   *Record   `toml:"actual,omitempty" yaml:"actual,omitempty"`
	Custom   *Record   `toml:"custom,omitempty" yaml:"custom,omitempty"`
}

// Matchup is one opponent row. Usage is a pointer so a missing rate can be
// told apart from 0.
type Matchup struct {
	Deck      string   `toml:"deck" yaml:"deck"`
	Usage     *float64 `toml:"usage" yaml:"usage"`
	Advantage int      `toml:"advantage" yaml:"advantage"`
}

// Record is a battles/wins pair. Wins is optional for custom projections.
type Record struct {
	Battles int  `toml:"battles" yaml:"battles"`
	Wins    *int `toml:"wins" yaml:"wins"`
}

// Load reads a profile, choosing the decoder from the file extension.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a profile. ext is ".toml", ".yaml" or ".yml".
func Parse(data []byte, ext string) (*Profile, error) {
	var p Profile
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse TOML profile: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse YAML profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format %q", ext)
	}
	return &p, nil
}

// Request converts the profile into the raw values the calculator expects.
func (p *Profile) Request() winrate.Request {
	req := winrate.Request{
		Matchups: make([]matchup.RawEntry, 0, len(p.Matchups)),
	}

	for _, m := range p.Matchups {
		raw := matchup.RawEntry{DeckName: m.Deck}
		if m.Usage != nil {
			raw.UsageRate = strconv.FormatFloat(*m.Usage, 'f', -1, 64)
		}
		if m.Advantage != 0 {
			raw.Advantage = strconv.Itoa(m.Advantage)
		}
		req.Matchups = append(req.Matchups, raw)
	}

	if p.Actual != nil {
		req.ActualBattles = strconv.Itoa(p.Actual.Battles)
		if p.Actual.Wins != nil {
			req.ActualWins = strconv.Itoa(*p.Actual.Wins)
		}
	}

	if p.Custom != nil {
		req.CustomBattles = strconv.Itoa(p.Custom.Battles)
		if p.Custom.Wins != nil {
			req.CustomWins = strconv.Itoa(*p.Custom.Wins)
		}
	}

	return req
}
