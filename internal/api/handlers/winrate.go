package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ramonehamilton/deck-winrate/internal/api/response"
	"github.com/ramonehamilton/deck-winrate/internal/charts"
	"github.com/ramonehamilton/deck-winrate/internal/matchup"
	"github.com/ramonehamilton/deck-winrate/internal/metrics"
	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

const (
	maxBodyBytes = 1 << 20

	// MaxDistributionBattles bounds the distribution endpoint.
	MaxDistributionBattles = 10000
)

// WinrateHandler handles calculation API requests.
type WinrateHandler struct {
	calculator *winrate.Calculator
	metrics    *metrics.Recorder
	chart      charts.ChartConfig
}

// NewWinrateHandler creates a new WinrateHandler. recorder may be nil.
func NewWinrateHandler(calculator *winrate.Calculator, recorder *metrics.Recorder, chart charts.ChartConfig) *WinrateHandler {
	if calculator == nil {
		calculator = winrate.NewCalculator(winrate.DefaultOptions())
	}
	if chart.Language == "" {
		chart.Language = matchup.LangEnglish
	}
	return &WinrateHandler{calculator: calculator, metrics: recorder, chart: chart}
}

// Calculate computes the expected win rate for the posted form values.
func (h *WinrateHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	result, ok := h.calculate(w, r)
	if !ok {
		return
	}
	response.Success(w, result)
}

// Chart renders the posted calculation as an HTML chart report.
func (h *WinrateHandler) Chart(w http.ResponseWriter, r *http.Request) {
	result, ok := h.calculate(w, r)
	if !ok {
		return
	}

	config := h.chart
	if lang := r.URL.Query().Get("lang"); lang != "" {
		if !supportedLanguage(lang) {
			response.BadRequest(w, fmt.Errorf("unsupported language %q", lang))
			return
		}
		config.Language = lang
	}

	var buf bytes.Buffer
	if err := charts.RenderReport(&buf, result, config); err != nil {
		response.InternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// calculate decodes the body and runs the calculator, writing the error
// response itself when it fails.
func (h *WinrateHandler) calculate(w http.ResponseWriter, r *http.Request) (*winrate.Result, bool) {
	var req winrate.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return nil, false
	}

	start := time.Now()
	result, err := h.calculator.Calculate(req)
	if h.metrics != nil {
		h.metrics.ObserveCalculation(metrics.SourceHTTP, time.Since(start), err)
	}
	if err != nil {
		if errors.Is(err, matchup.ErrNoMatchups) {
			response.UnprocessableEntity(w, err)
		} else {
			response.InternalError(w, err)
		}
		return nil, false
	}

	return result, true
}

// AdvantageOption is one selectable matchup.
type AdvantageOption struct {
	Value       int     `json:"value"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Default     bool    `json:"default,omitempty"`
}

// GetAdvantages lists the selectable matchups, most favorable first.
func (h *WinrateHandler) GetAdvantages(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = h.chart.Language
	}
	if !supportedLanguage(lang) {
		response.BadRequest(w, fmt.Errorf("unsupported language %q", lang))
		return
	}

	advantages := matchup.Advantages()
	options := make([]AdvantageOption, len(advantages))
	for i, a := range advantages {
		options[i] = AdvantageOption{
			Value:       int(a),
			Label:       a.Label(lang),
			Probability: a.Probability(),
			Default:     a == matchup.DefaultAdvantage,
		}
	}

	response.Success(w, options)
}

// DistributionPoint is the chance of one win total.
type DistributionPoint struct {
	Wins        int     `json:"wins"`
	Probability string  `json:"probability"`
	AtLeast     string  `json:"atLeast"`
	Value       float64 `json:"value"`
}

// GetDistribution returns the chance of each win total over a number of
// battles at a given win rate (percent).
func (h *WinrateHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pct, err := strconv.ParseFloat(strings.TrimSpace(q.Get("winrate")), 64)
	if err != nil || pct < 0 || pct > 100 {
		response.BadRequest(w, errors.New("winrate must be a number between 0 and 100"))
		return
	}

	battles, err := strconv.Atoi(strings.TrimSpace(q.Get("battles")))
	if err != nil || battles <= 0 || battles > MaxDistributionBattles {
		response.BadRequest(w, fmt.Errorf("battles must be an integer between 1 and %d", MaxDistributionBattles))
		return
	}

	pmf := winrate.Distribution(pct/100, battles)
	points := make([]DistributionPoint, len(pmf))
	tail := 0.0
	for k := len(pmf) - 1; k >= 0; k-- {
		tail += pmf[k]
		if tail > 1 {
			tail = 1
		}
		points[k] = DistributionPoint{
			Wins:        k,
			Probability: winrate.FormatPercent(pmf[k]),
			AtLeast:     winrate.FormatPercent(tail),
			Value:       pmf[k],
		}
	}

	response.Success(w, points)
}

func supportedLanguage(lang string) bool {
	return lang == matchup.LangEnglish || lang == matchup.LangJapanese
}
