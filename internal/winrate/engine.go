// Package winrate derives expected win rates, win projections and record
// probabilities from a normalized matchup set. Every function is pure.
package winrate

import (
	"math"

	"github.com/ramonehamilton/deck-winrate/internal/matchup"
)

// DefaultProjectionBattles is the largest battle count in the default projection table.
const DefaultProjectionBattles = 10

// LogSpaceThreshold is the battle count above which the binomial probability is
// evaluated with log-gamma instead of an exact coefficient.
const LogSpaceThreshold = 1000

// Projection is the expected number of wins over a number of battles.
type Projection struct {
	Battles      int     `json:"battles"`
	ExpectedWins string  `json:"expectedWins"`
	RoundedWins  int     `json:"roundedWins"`
	Raw          float64 `json:"rawExpectedWins"`
}

// ExpectedWinrate returns the usage-weighted average advantage of the set as a
// fraction. Sets whose usage exceeds 100% are not rescaled.
func ExpectedWinrate(set *matchup.Set) float64 {
	if set == nil {
		return 0
	}
	sum := 0.0
	for _, e := range set.Entries {
		sum += (e.UsageRate / 100) * e.Advantage.Probability()
	}
	return sum
}

// DefaultBattleCounts returns 1 through DefaultProjectionBattles.
func DefaultBattleCounts() []int {
	return BattleRange(DefaultProjectionBattles)
}

// BattleRange returns 1 through n.
func BattleRange(n int) []int {
	if n <= 0 {
		return nil
	}
	counts := make([]int, n)
	for i := range counts {
		counts[i] = i + 1
	}
	return counts
}

// ProjectBattles projects expected wins for each battle count. Non-positive
// counts are skipped.
func ProjectBattles(expectedWinrate float64, battleCounts []int) []Projection {
	projections := make([]Projection, 0, len(battleCounts))
	for _, battles := range battleCounts {
		if p, ok := Project(expectedWinrate, battles); ok {
			projections = append(projections, p)
		}
	}
	return projections
}

// Project projects expected wins for a single battle count.
func Project(expectedWinrate float64, battles int) (Projection, bool) {
	if battles <= 0 {
		return Projection{}, false
	}
	wins := float64(battles) * expectedWinrate
	return Projection{
		Battles:      battles,
		ExpectedWins: FormatFixed(wins, 2),
		RoundedWins:  RoundHalfUp(wins),
		Raw:          wins,
	}, true
}

// ActualRecord compares an observed record against the expected win rate.
type ActualRecord struct {
	Battles         int     `json:"battles"`
	Wins            int     `json:"wins"`
	ObservedWinrate string  `json:"observedWinrate"`
	Delta           string  `json:"delta"`
	ObservedValue   float64 `json:"observedValue"`
	DeltaValue      float64 `json:"deltaValue"`
}

// ValidRecord reports whether wins out of battles is a possible record.
func ValidRecord(battles, wins int) bool {
	return battles > 0 && wins >= 0 && wins <= battles
}

// CompareActual returns the observed win rate and its signed difference from
// the expected win rate. It returns false for impossible records.
func CompareActual(expectedWinrate float64, battles, wins int) (*ActualRecord, bool) {
	if !ValidRecord(battles, wins) {
		return nil, false
	}
	observed := float64(wins) / float64(battles)
	delta := observed - expectedWinrate
	return &ActualRecord{
		Battles:         battles,
		Wins:            wins,
		ObservedWinrate: FormatPercent(observed),
		Delta:           FormatSignedPercent(delta),
		ObservedValue:   observed,
		DeltaValue:      delta,
	}, true
}

// Binomial returns the binomial coefficient C(n, k). Coefficients are exact
// while they stay below 2^53 and overflow to +Inf for very large n.
func Binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	if k == 0 || k == n {
		return 1
	}
	if k > n-k {
		k = n - k
	}
	c := 1.0
	for i := 1; i <= k; i++ {
		c = c * float64(n-k+i) / float64(i)
	}
	return math.Round(c)
}

// ProbabilityOfExactRecord returns P(X = wins) for X ~ Binomial(battles, p).
// Callers must ensure ValidRecord(battles, wins).
func ProbabilityOfExactRecord(p float64, battles, wins int) float64 {
	switch {
	case wins < 0 || wins > battles:
		return 0
	case p <= 0:
		if wins == 0 {
			return 1
		}
		return 0
	case p >= 1:
		if wins == battles {
			return 1
		}
		return 0
	}

	if battles > LogSpaceThreshold {
		return math.Exp(logBinomial(battles, wins) +
			float64(wins)*math.Log(p) +
			float64(battles-wins)*math.Log1p(-p))
	}
	return Binomial(battles, wins) * math.Pow(p, float64(wins)) * math.Pow(1-p, float64(battles-wins))
}

func logBinomial(n, k int) float64 {
	ln, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln - lk - lnk
}

// Distribution returns P(X = k) for k = 0..battles.
func Distribution(p float64, battles int) []float64 {
	if battles <= 0 {
		return nil
	}
	dist := make([]float64, battles+1)
	for k := range dist {
		dist[k] = ProbabilityOfExactRecord(p, battles, k)
	}
	return dist
}

// ProbabilityAtLeast returns P(X >= wins) for X ~ Binomial(battles, p).
func ProbabilityAtLeast(p float64, battles, wins int) float64 {
	if wins <= 0 {
		return 1
	}
	if wins > battles {
		return 0
	}
	sum := 0.0
	for k := wins; k <= battles; k++ {
		sum += ProbabilityOfExactRecord(p, battles, k)
	}
	return math.Min(sum, 1)
}
