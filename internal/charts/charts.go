// Package charts renders calculation results as interactive go-echarts HTML.
package charts

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ramonehamilton/deck-winrate/internal/matchup"
	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Width    string   // Chart width (e.g., "900px")
	Height   string   // Chart height (e.g., "500px")
	Theme    string   // Chart theme
	Language string   // Advantage label language
	Colors   []string // Series colors
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:    "900px",
		Height:   "500px",
		Theme:    "light",
		Language: matchup.LangEnglish,
		Colors:   []string{"#5470C6", "#91CC75", "#FAC858", "#EE6666", "#73C0DE", "#3BA272", "#FC8452", "#9A60B4", "#EA7CCC"},
	}
}

func (c ChartConfig) colors() []string {
	if len(c.Colors) == 0 {
		return DefaultChartConfig().Colors
	}
	return c.Colors
}

func (c ChartConfig) globalOptions(title, subtitle, trigger string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     c.Width,
			Height:    c.Height,
			Theme:     c.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: trigger,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
		charts.WithColorsOpts(opts.Colors(c.colors())),
	}
}

// ProjectionChart plots expected and rounded wins for each projected battle count.
func ProjectionChart(result *winrate.Result, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(
		config.globalOptions("Projected wins", "Expected win rate "+result.ExpectedWinrate+"%", "axis"),
		charts.WithXAxisOpts(opts.XAxis{Name: "Battles"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Wins"}),
	)...)

	xLabels := make([]string, len(result.BattleProjections))
	expected := make([]opts.BarData, len(result.BattleProjections))
	rounded := make([]opts.BarData, len(result.BattleProjections))
	for i, p := range result.BattleProjections {
		xLabels[i] = strconv.Itoa(p.Battles)
		expected[i] = opts.BarData{Value: p.Raw}
		rounded[i] = opts.BarData{Value: p.RoundedWins}
	}

	bar.SetXAxis(xLabels).
		AddSeries("Expected wins", expected).
		AddSeries("Rounded wins", rounded).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
		)

	return bar
}

// MatchupChart shows the share of each opponent deck, including the unknown remainder.
func MatchupChart(result *winrate.Result, config ChartConfig) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(config.globalOptions("Matchup share", fmt.Sprintf("Total usage %s%%", winrate.FormatFixed(result.TotalUsage, 2)), "item")...)

	data := make([]opts.PieData, 0, len(result.Matchups))
	for _, e := range result.Matchups {
		data = append(data, opts.PieData{
			Name:  e.DeckName + " / " + e.Advantage.Label(config.Language),
			Value: e.UsageRate,
		})
	}

	pie.AddSeries("Usage rate", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(true),
			}),
		)

	return pie
}

// DistributionChart plots the chance of each win total over battles games at
// the expected win rate, next to the chance of at least that many wins.
func DistributionChart(result *winrate.Result, battles int, config ChartConfig) (*charts.Line, error) {
	if battles <= 0 {
		return nil, fmt.Errorf("battles must be positive: %d", battles)
	}

	pmf := winrate.Distribution(result.ExpectedWinrateValue, battles)

	line := charts.NewLine()
	line.SetGlobalOptions(append(
		config.globalOptions("Win distribution", fmt.Sprintf("%d battles at %s%%", battles, result.ExpectedWinrate), "axis"),
		charts.WithXAxisOpts(opts.XAxis{Name: "Wins"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%"}),
	)...)

	xLabels := make([]string, len(pmf))
	exact := make([]opts.LineData, len(pmf))
	atLeast := make([]opts.LineData, len(pmf))
	tail := 0.0
	for k := len(pmf) - 1; k >= 0; k-- {
		tail += pmf[k]
		xLabels[k] = strconv.Itoa(k)
		exact[k] = opts.LineData{Value: pmf[k] * 100}
		atLeast[k] = opts.LineData{Value: math.Min(tail, 1) * 100}
	}

	line.SetXAxis(xLabels).
		AddSeries("Exactly", exact).
		AddSeries("At least", atLeast).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{
				Smooth: opts.Bool(true),
			}),
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
		)

	return line, nil
}

// RenderReport writes a single HTML page with the projection, matchup and
// distribution charts. The distribution covers the projection range.
func RenderReport(w io.Writer, result *winrate.Result, config ChartConfig) error {
	if result == nil {
		return fmt.Errorf("no result to render")
	}

	battles := len(result.BattleProjections)
	if result.ProbabilityOfRecord != nil {
		battles = result.ProbabilityOfRecord.Battles
	}
	if battles == 0 {
		battles = winrate.DefaultProjectionBattles
	}

	distribution, err := DistributionChart(result, battles, config)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = "Expected win rate"
	page.AddCharts(
		ProjectionChart(result, config),
		MatchupChart(result, config),
		distribution,
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// WriteReport renders the report into a new file at outputPath.
func WriteReport(outputPath string, result *winrate.Result, config ChartConfig) (err error) {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return RenderReport(f, result, config)
}

// OpenInBrowser opens the given file path in the default web browser.
func OpenInBrowser(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", absPath)
	case "linux":
		cmd = exec.Command("xdg-open", absPath)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
