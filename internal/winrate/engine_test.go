package winrate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deck-winrate/internal/matchup"
)

func mustNormalize(t *testing.T, raw ...matchup.RawEntry) *matchup.Set {
	t.Helper()
	set, err := matchup.Normalize(raw)
	require.NoError(t, err)
	return set
}

func TestExpectedWinrate(t *testing.T) {
	tests := []struct {
		name string
		raw  []matchup.RawEntry
		want float64
	}{
		{
			name: "Two matchups plus unknown deck",
			raw: []matchup.RawEntry{
				{DeckName: "A", UsageRate: "60", Advantage: "70"},
				{DeckName: "B", UsageRate: "30", Advantage: "30"},
			},
			want: 0.56,
		},
		{
			name: "Single full matchup",
			raw: []matchup.RawEntry{
				{DeckName: "A", UsageRate: "100", Advantage: "80"},
			},
			want: 0.80,
		},
		{
			name: "Only unknown usage is neutral",
			raw: []matchup.RawEntry{
				{DeckName: "A", UsageRate: "0", Advantage: "20"},
			},
			want: 0.50,
		},
		{
			name: "Overfull usage is not rescaled",
			raw: []matchup.RawEntry{
				{DeckName: "A", UsageRate: "80", Advantage: "80"},
				{DeckName: "B", UsageRate: "40", Advantage: "50"},
			},
			want: 0.84,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpectedWinrate(mustNormalize(t, tt.raw...))
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestExpectedWinrate_SingleFullMatchupIsExact(t *testing.T) {
	set := mustNormalize(t, matchup.RawEntry{DeckName: "A", UsageRate: "100", Advantage: "80"})
	assert.Equal(t, 0.8, ExpectedWinrate(set))
	assert.Equal(t, "80.00", FormatPercent(ExpectedWinrate(set)))
}

func TestExpectedWinrate_NilSet(t *testing.T) {
	assert.Equal(t, 0.0, ExpectedWinrate(nil))
}

func TestExpectedWinrate_OrderInvariant(t *testing.T) {
	raw := []matchup.RawEntry{
		{DeckName: "A", UsageRate: "12.5", Advantage: "70"},
		{DeckName: "B", UsageRate: "20", Advantage: "30"},
		{DeckName: "C", UsageRate: "7.3", Advantage: "80"},
		{DeckName: "D", UsageRate: "31", Advantage: "40"},
		{DeckName: "E", UsageRate: "9", Advantage: "60"},
	}
	want := ExpectedWinrate(mustNormalize(t, raw...))

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]matchup.RawEntry(nil), raw...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.InDelta(t, want, ExpectedWinrate(mustNormalize(t, shuffled...)), 1e-12)
	}
}

func TestExpectedWinrate_InUnitRange(t *testing.T) {
	advantages := matchup.Advantages()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		remaining := 100.0
		var raw []matchup.RawEntry
		for j := 0; j < 1+rng.Intn(6); j++ {
			usage := math.Floor(rng.Float64() * remaining)
			remaining -= usage
			raw = append(raw, matchup.RawEntry{
				DeckName:  string(rune('A' + j)),
				UsageRate: FormatFixed(usage, 0),
				Advantage: advantages[rng.Intn(len(advantages))].String(),
			})
		}
		set := mustNormalize(t, raw...)
		require.InDelta(t, 100, set.Usage(), 1e-9)

		p := ExpectedWinrate(set)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestProjectBattles_Default(t *testing.T) {
	set := mustNormalize(t,
		matchup.RawEntry{DeckName: "A", UsageRate: "60", Advantage: "70"},
		matchup.RawEntry{DeckName: "B", UsageRate: "30", Advantage: "30"},
	)
	projections := ProjectBattles(ExpectedWinrate(set), DefaultBattleCounts())
	require.Len(t, projections, 10)

	wantText := []string{"0.56", "1.12", "1.68", "2.24", "2.80", "3.36", "3.92", "4.48", "5.04", "5.60"}
	wantRounded := []int{1, 1, 2, 2, 3, 3, 4, 4, 5, 6}
	for i, p := range projections {
		assert.Equal(t, i+1, p.Battles)
		assert.Equal(t, wantText[i], p.ExpectedWins, "battles=%d", p.Battles)
		assert.Equal(t, wantRounded[i], p.RoundedWins, "battles=%d", p.Battles)
	}
}

func TestProjectBattles_SkipsNonPositive(t *testing.T) {
	projections := ProjectBattles(0.5, []int{0, -3, 4, 0, 7})
	require.Len(t, projections, 2)
	assert.Equal(t, 4, projections[0].Battles)
	assert.Equal(t, "2.00", projections[0].ExpectedWins)
	assert.Equal(t, 7, projections[1].Battles)
	assert.Equal(t, 4, projections[1].RoundedWins, "3.5 rounds half up")
}

func TestProject_Custom(t *testing.T) {
	p, ok := Project(0.56, 25)
	require.True(t, ok)
	assert.Equal(t, "14.00", p.ExpectedWins)
	assert.Equal(t, 14, p.RoundedWins)

	_, ok = Project(0.56, 0)
	assert.False(t, ok)
}

func TestProjectBattles_RoundedWinsNonDecreasing(t *testing.T) {
	for _, p := range []float64{0.01, 0.2, 0.35, 0.5, 0.56, 0.615, 0.8, 1} {
		projections := ProjectBattles(p, BattleRange(100))
		for i := 1; i < len(projections); i++ {
			if projections[i].RoundedWins < projections[i-1].RoundedWins {
				t.Errorf("p=%v: rounded wins decreased from %d to %d at %d battles",
					p, projections[i-1].RoundedWins, projections[i].RoundedWins, projections[i].Battles)
			}
		}
	}
}

func TestBattleRange(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, BattleRange(3))
	assert.Nil(t, BattleRange(0))
	assert.Equal(t, BattleRange(10), DefaultBattleCounts())
}

func TestCompareActual(t *testing.T) {
	record, ok := CompareActual(0.56, 10, 7)
	require.True(t, ok)
	assert.Equal(t, "70.00", record.ObservedWinrate)
	assert.Equal(t, "+14.00", record.Delta)
	assert.InDelta(t, 0.14, record.DeltaValue, 1e-12)

	record, ok = CompareActual(0.56, 10, 5)
	require.True(t, ok)
	assert.Equal(t, "-6.00", record.Delta)

	record, ok = CompareActual(0.5, 4, 2)
	require.True(t, ok)
	assert.Equal(t, "+0.00", record.Delta)
}

func TestCompareActual_OutOfDomain(t *testing.T) {
	tests := []struct {
		name    string
		battles int
		wins    int
	}{
		{"Zero battles", 0, 0},
		{"Negative battles", -1, 0},
		{"Wins exceed battles", 5, 6},
		{"Negative wins", 5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, ok := CompareActual(0.5, tt.battles, tt.wins)
			assert.False(t, ok)
			assert.Nil(t, record)
		})
	}
}

func TestBinomial(t *testing.T) {
	tests := []struct {
		n, k int
		want float64
	}{
		{10, 7, 120},
		{10, 3, 120},
		{5, 0, 1},
		{5, 5, 1},
		{0, 0, 1},
		{5, 6, 0},
		{5, -1, 0},
		{20, 10, 184756},
		{52, 5, 2598960},
		{40, 20, 137846528820},
	}

	for _, tt := range tests {
		if got := Binomial(tt.n, tt.k); got != tt.want {
			t.Errorf("Binomial(%d, %d) = %v, want %v", tt.n, tt.k, got, tt.want)
		}
	}

	if !math.IsInf(Binomial(1100, 550), 1) {
		t.Error("Binomial(1100, 550) should overflow to +Inf")
	}
}

func TestProbabilityOfExactRecord(t *testing.T) {
	got := ProbabilityOfExactRecord(0.5, 10, 7)
	assert.InDelta(t, 0.1171875, got, 1e-15)
	assert.Equal(t, "11.72", FormatPercent(got))

	assert.Equal(t, 1.0, ProbabilityOfExactRecord(0, 5, 0))
	assert.Equal(t, 0.0, ProbabilityOfExactRecord(0, 5, 1))
	assert.Equal(t, 1.0, ProbabilityOfExactRecord(1, 5, 5))
	assert.Equal(t, 0.0, ProbabilityOfExactRecord(1, 5, 4))
	assert.Equal(t, 0.0, ProbabilityOfExactRecord(0.5, 5, 6))
}

func TestProbabilityOfExactRecord_SumsToOne(t *testing.T) {
	for _, n := range []int{1, 2, 5, 10, 30, 99, 1000, 2000} {
		for _, p := range []float64{0.2, 0.5, 0.56, 0.8} {
			sum := 0.0
			for k := 0; k <= n; k++ {
				sum += ProbabilityOfExactRecord(p, n, k)
			}
			assert.InDelta(t, 1.0, sum, 1e-6, "n=%d p=%v", n, p)
		}
	}
}

func TestProbabilityOfExactRecord_LogSpaceMatchesExact(t *testing.T) {
	n, k, p := 900, 500, 0.56
	exact := ProbabilityOfExactRecord(p, n, k)
	logSpace := math.Exp(logBinomial(n, k) + float64(k)*math.Log(p) + float64(n-k)*math.Log1p(-p))
	assert.InEpsilon(t, exact, logSpace, 1e-9)
}

func TestDistribution(t *testing.T) {
	dist := Distribution(0.5, 4)
	require.Len(t, dist, 5)
	want := []float64{0.0625, 0.25, 0.375, 0.25, 0.0625}
	for k := range want {
		assert.InDelta(t, want[k], dist[k], 1e-15)
	}
	assert.Nil(t, Distribution(0.5, 0))
}

func TestProbabilityAtLeast(t *testing.T) {
	assert.InDelta(t, 0.171875, ProbabilityAtLeast(0.5, 10, 7), 1e-15)
	assert.Equal(t, 1.0, ProbabilityAtLeast(0.5, 10, 0))
	assert.Equal(t, 0.0, ProbabilityAtLeast(0.5, 10, 11))
}
