package matchup

import (
	"fmt"
	"strconv"
	"strings"
)

// Advantage is this deck's win probability against an opponent, in percent.
// Only the values of the dropdown are valid.
type Advantage int

const (
	AdvantageLargeDisadvantage  Advantage = 20
	AdvantageDisadvantage       Advantage = 30
	AdvantageSlightDisadvantage Advantage = 40
	AdvantageEven               Advantage = 50
	AdvantageSlightAdvantage    Advantage = 60
	AdvantageFavored            Advantage = 70
	AdvantageLargeAdvantage     Advantage = 80
)

// DefaultAdvantage is used for new rows and for unparseable input.
const DefaultAdvantage = AdvantageEven

// Supported label languages.
const (
	LangEnglish  = "en"
	LangJapanese = "ja"
)

type advantageLabels struct {
	en string
	ja string
}

var labels = map[Advantage]advantageLabels{
	AdvantageLargeAdvantage:     {en: "Large advantage", ja: "大有利"},
	AdvantageFavored:            {en: "Advantage", ja: "有利"},
	AdvantageSlightAdvantage:    {en: "Slight advantage", ja: "やや有利"},
	AdvantageEven:               {en: "Even", ja: "互角"},
	AdvantageSlightDisadvantage: {en: "Slight disadvantage", ja: "やや不利"},
	AdvantageDisadvantage:       {en: "Disadvantage", ja: "不利"},
	AdvantageLargeDisadvantage:  {en: "Large disadvantage", ja: "大不利"},
}

// Advantages returns every valid advantage, most favorable first.
func Advantages() []Advantage {
	return []Advantage{
		AdvantageLargeAdvantage,
		AdvantageFavored,
		AdvantageSlightAdvantage,
		AdvantageEven,
		AdvantageSlightDisadvantage,
		AdvantageDisadvantage,
		AdvantageLargeDisadvantage,
	}
}

// Valid reports whether a is one of the dropdown values.
func (a Advantage) Valid() bool {
	_, ok := labels[a]
	return ok
}

// Probability returns the advantage as a fraction in [0,1].
func (a Advantage) Probability() float64 {
	return float64(a) / 100
}

// Label returns the display label, e.g. "Even (50%)". Unknown languages fall back to English.
func (a Advantage) Label(lang string) string {
	l, ok := labels[a]
	if !ok {
		return fmt.Sprintf("%d%%", int(a))
	}
	if lang == LangJapanese {
		return fmt.Sprintf("%s（%d%%）", l.ja, int(a))
	}
	return fmt.Sprintf("%s (%d%%)", l.en, int(a))
}

func (a Advantage) String() string {
	return strconv.Itoa(int(a))
}

// ParseAdvantage parses a dropdown value such as "60" or "60%".
func ParseAdvantage(s string) (Advantage, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse advantage %q: %w", s, err)
	}
	a := Advantage(v)
	if !a.Valid() {
		return 0, fmt.Errorf("advantage %d is not one of 20..80 in steps of 10", v)
	}
	return a, nil
}

// AdvantageOrDefault parses s and falls back to DefaultAdvantage.
func AdvantageOrDefault(s string) Advantage {
	a, err := ParseAdvantage(s)
	if err != nil {
		return DefaultAdvantage
	}
	return a
}
