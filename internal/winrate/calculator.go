package winrate

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ramonehamilton/deck-winrate/internal/matchup"
)

// Request carries the raw form values of one calculation.
// Optional fields are left empty when the user did not fill them in. Counts
// must be whole numbers; "10" and "10.0" are equivalent.
type Request struct {
	Matchups      []matchup.RawEntry `json:"matchups"`
	ActualBattles string             `json:"actualBattles,omitempty"`
	ActualWins    string             `json:"actualWins,omitempty"`
	CustomBattles string             `json:"customBattles,omitempty"`
	CustomWins    string             `json:"customWins,omitempty"`
}

// UnmarshalJSON accepts the optional counts as JSON numbers as well as strings.
func (r *Request) UnmarshalJSON(data []byte) error {
	var aux struct {
		Matchups      []matchup.RawEntry `json:"matchups"`
		ActualBattles matchup.FormValue  `json:"actualBattles"`
		ActualWins    matchup.FormValue  `json:"actualWins"`
		CustomBattles matchup.FormValue  `json:"customBattles"`
		CustomWins    matchup.FormValue  `json:"customWins"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Request{
		Matchups:      aux.Matchups,
		ActualBattles: string(aux.ActualBattles),
		ActualWins:    string(aux.ActualWins),
		CustomBattles: string(aux.CustomBattles),
		CustomWins:    string(aux.CustomWins),
	}
	return nil
}

// RecordProbability is the chance of an exact won/played record at the expected win rate.
type RecordProbability struct {
	Battles            int     `json:"battles"`
	Wins               int     `json:"wins"`
	Probability        string  `json:"probability"`
	AtLeastProbability string  `json:"atLeastProbability"`
	ExpectedWinrate    string  `json:"expectedWinrate"`
	ProbabilityValue   float64 `json:"probabilityValue"`
}

// Result is everything derived from one Request.
type Result struct {
	ExpectedWinrate      string             `json:"expectedWinrate"`
	ExpectedWinrateValue float64            `json:"expectedWinrateValue"`
	Matchups             []matchup.Entry    `json:"matchups"`
	BattleProjections    []Projection       `json:"battleProjections"`
	CustomProjection     *Projection        `json:"customProjection,omitempty"`
	ActualRecord         *ActualRecord      `json:"actualRecord,omitempty"`
	ProbabilityOfRecord  *RecordProbability `json:"probabilityOfRecord,omitempty"`
	UnknownRate          float64            `json:"unknownRate"`
	TotalUsage           float64            `json:"totalUsage"`
	Overfull             bool               `json:"overfull,omitempty"`
}

// Options tune a Calculator.
type Options struct {
	// ProjectionBattles is the largest battle count of the projection table.
	// Default: DefaultProjectionBattles
	ProjectionBattles int

	// UnknownDeckName names the synthetic unknown matchup.
	// Default: matchup.DefaultUnknownDeckName
	UnknownDeckName string
}

// DefaultOptions returns the options matching the original form.
func DefaultOptions() Options {
	return Options{
		ProjectionBattles: DefaultProjectionBattles,
		UnknownDeckName:   matchup.DefaultUnknownDeckName,
	}
}

// Calculator turns raw form values into a Result. It holds no state between
// calls and is safe for concurrent use.
type Calculator struct {
	opts       Options
	normalizer matchup.Normalizer
}

// NewCalculator creates a Calculator. Zero option fields take their defaults.
func NewCalculator(opts Options) *Calculator {
	if opts.ProjectionBattles <= 0 {
		opts.ProjectionBattles = DefaultProjectionBattles
	}
	if strings.TrimSpace(opts.UnknownDeckName) == "" {
		opts.UnknownDeckName = matchup.DefaultUnknownDeckName
	}
	return &Calculator{
		opts:       opts,
		normalizer: matchup.Normalizer{UnknownDeckName: opts.UnknownDeckName},
	}
}

// Options returns the effective options.
func (c *Calculator) Options() Options {
	return c.opts
}

// Calculate runs the full calculation. The only error is matchup.ErrNoMatchups;
// malformed optional inputs simply leave their section out of the result.
func (c *Calculator) Calculate(req Request) (*Result, error) {
	set, err := c.normalizer.Normalize(req.Matchups)
	if err != nil {
		return nil, err
	}

	expected := ExpectedWinrate(set)
	result := &Result{
		ExpectedWinrate:      FormatPercent(expected),
		ExpectedWinrateValue: expected,
		Matchups:             set.Entries,
		BattleProjections:    ProjectBattles(expected, BattleRange(c.opts.ProjectionBattles)),
		UnknownRate:          set.UnknownRate,
		TotalUsage:           set.TotalUsage,
		Overfull:             set.Overfull(),
	}

	actualBattles, okBattles := parseCount(req.ActualBattles)
	actualWins, okWins := parseCount(req.ActualWins)
	if okBattles && okWins {
		if record, ok := CompareActual(expected, actualBattles, actualWins); ok {
			result.ActualRecord = record
		}
	}

	customBattles, okCustom := parseCount(req.CustomBattles)
	if okCustom {
		if p, ok := Project(expected, customBattles); ok {
			result.CustomProjection = &p
		}
	}

	customWins, okCustomWins := parseCount(req.CustomWins)
	if okCustom && okCustomWins && ValidRecord(customBattles, customWins) {
		prob := ProbabilityOfExactRecord(expected, customBattles, customWins)
		result.ProbabilityOfRecord = &RecordProbability{
			Battles:            customBattles,
			Wins:               customWins,
			Probability:        FormatPercent(prob),
			AtLeastProbability: FormatPercent(ProbabilityAtLeast(expected, customBattles, customWins)),
			ExpectedWinrate:    FormatPercent(expected),
			ProbabilityValue:   prob,
		}
	}

	return result, nil
}

// Calculate runs a calculation with DefaultOptions.
func Calculate(req Request) (*Result, error) {
	return NewCalculator(DefaultOptions()).Calculate(req)
}

// parseCount parses an optional whole-number field. Integral decimals such as
// "10.0" (what JSON encoders emit for whole floats) are accepted. Empty,
// fractional or non-numeric input counts as absent.
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
