// Package display prints calculation results for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/ramonehamilton/deck-winrate/internal/matchup"
	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

const rule = "═══════════════════════════════════════════════════════════════"

// ResultDisplayer writes a Result in a readable format.
type ResultDisplayer struct {
	w    io.Writer
	lang string
}

// NewResultDisplayer creates a displayer writing to w with advantage labels in lang.
func NewResultDisplayer(w io.Writer, lang string) *ResultDisplayer {
	return &ResultDisplayer{w: w, lang: lang}
}

// Display writes every section of result.
func (d *ResultDisplayer) Display(title string, result *winrate.Result) {
	if result == nil {
		fmt.Fprintln(d.w, "No result to display.")
		return
	}

	if title == "" {
		title = "Expected Win Rate"
	}
	fmt.Fprintf(d.w, "\n%s\n%s\n", title, strings.Repeat("=", len([]rune(title))))
	fmt.Fprintf(d.w, "Expected win rate: %s%%\n", result.ExpectedWinrate)
	if result.Overfull {
		fmt.Fprintf(d.w, "Warning: usage rates add up to %s%% (over 100%%)\n", winrate.FormatFixed(result.TotalUsage, 2))
	}
	fmt.Fprintln(d.w)

	d.displayMatchups(result.Matchups)
	d.displayProjections(result)

	if result.ActualRecord != nil {
		a := result.ActualRecord
		fmt.Fprintln(d.w, rule)
		fmt.Fprintf(d.w, "Actual record: %d wins / %d battles\n", a.Wins, a.Battles)
		fmt.Fprintf(d.w, "├─ Observed win rate: %s%%\n", a.ObservedWinrate)
		fmt.Fprintf(d.w, "└─ Difference from expected: %s%%\n\n", a.Delta)
	}

	if result.ProbabilityOfRecord != nil {
		p := result.ProbabilityOfRecord
		fmt.Fprintln(d.w, rule)
		fmt.Fprintf(d.w, "Chance of exactly %d wins in %d battles at %s%%: %s%%\n", p.Wins, p.Battles, p.ExpectedWinrate, p.Probability)
		fmt.Fprintf(d.w, "Chance of at least %d wins: %s%%\n\n", p.Wins, p.AtLeastProbability)
	}
}

func (d *ResultDisplayer) displayMatchups(entries []matchup.Entry) {
	fmt.Fprintln(d.w, rule)
	fmt.Fprintf(d.w, "Matchups (%d)\n", len(entries))
	fmt.Fprintln(d.w, rule)
	fmt.Fprintf(d.w, "%-28s %8s  %s\n", "Deck", "Usage", "Matchup")
	for _, e := range entries {
		name := e.DeckName
		if e.Unknown {
			name += " *"
		}
		fmt.Fprintf(d.w, "%-28s %7s%%  %s\n", name, winrate.FormatFixed(e.UsageRate, 2), e.Advantage.Label(d.lang))
	}
	fmt.Fprintln(d.w)
}

func (d *ResultDisplayer) displayProjections(result *winrate.Result) {
	fmt.Fprintln(d.w, rule)
	fmt.Fprintln(d.w, "Projected wins")
	fmt.Fprintln(d.w, rule)
	fmt.Fprintf(d.w, "%8s %14s %8s\n", "Battles", "Expected wins", "Rounded")
	for _, p := range result.BattleProjections {
		fmt.Fprintf(d.w, "%8d %14s %8d\n", p.Battles, p.ExpectedWins, p.RoundedWins)
	}
	if c := result.CustomProjection; c != nil {
		fmt.Fprintf(d.w, "%8d %14s %8d  (custom)\n", c.Battles, c.ExpectedWins, c.RoundedWins)
	}
	fmt.Fprintln(d.w)
}
