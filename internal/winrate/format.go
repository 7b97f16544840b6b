package winrate

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// FormatFixed formats v with the given number of decimals. Ties are resolved
// on the exact binary value and rounded away from zero, so 1.125 becomes
// "1.13" while 1.005 (stored as 1.00499...) becomes "1.00".
func FormatFixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	exact := strconv.FormatFloat(v, 'f', 40, 64)
	d, err := decimal.NewFromString(exact)
	if err != nil {
		return strconv.FormatFloat(v, 'f', int(places), 64)
	}
	return d.StringFixed(places)
}

// FormatPercent formats a fraction as a percentage with two decimals, e.g. 0.56 -> "56.00".
func FormatPercent(fraction float64) string {
	return FormatFixed(fraction*100, 2)
}

// FormatSignedPercent is FormatPercent with an explicit sign for non-negative values.
func FormatSignedPercent(fraction float64) string {
	s := FormatPercent(fraction)
	if s[0] != '-' {
		return "+" + s
	}
	if s == "-0.00" {
		return "+0.00"
	}
	return s
}

// RoundHalfUp rounds to the nearest integer with halves rounded towards +Inf.
func RoundHalfUp(v float64) int {
	f := math.Floor(v)
	if v-f >= 0.5 {
		f++
	}
	return int(f)
}
