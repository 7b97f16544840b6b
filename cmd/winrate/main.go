// Package main is the command-line expected win rate calculator.
//
// Usage:
//
//	winrate -m "Mono Red=25:40" -m "Esper=30:60" -custom-battles 10 -custom-wins 7
//	winrate -profile deck.toml -chart report.html -open
//	winrate -profile deck.yaml -watch
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ramonehamilton/deck-winrate/internal/charts"
	"github.com/ramonehamilton/deck-winrate/internal/config"
	"github.com/ramonehamilton/deck-winrate/internal/display"
	"github.com/ramonehamilton/deck-winrate/internal/matchup"
	"github.com/ramonehamilton/deck-winrate/internal/profile"
	"github.com/ramonehamilton/deck-winrate/internal/version"
	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

// matchupFlags collects repeated -m values.
type matchupFlags []matchup.RawEntry

func (m *matchupFlags) String() string {
	parts := make([]string, len(*m))
	for i, e := range *m {
		parts[i] = fmt.Sprintf("%s=%s:%s", e.DeckName, e.UsageRate, e.Advantage)
	}
	return strings.Join(parts, ", ")
}

func (m *matchupFlags) Set(value string) error {
	entry, err := parseMatchup(value)
	if err != nil {
		return err
	}
	*m = append(*m, entry)
	return nil
}

// parseMatchup parses "Name=usage[:advantage]". The value is kept raw so the
// calculator applies its usual rules to it.
func parseMatchup(value string) (matchup.RawEntry, error) {
	i := strings.LastIndex(value, "=")
	if i < 0 {
		return matchup.RawEntry{}, fmt.Errorf("matchup %q: expected Name=usage[:advantage]", value)
	}

	name := strings.TrimSpace(value[:i])
	if name == "" {
		return matchup.RawEntry{}, fmt.Errorf("matchup %q: deck name is empty", value)
	}

	usage, advantage, _ := strings.Cut(value[i+1:], ":")
	return matchup.RawEntry{
		DeckName:  name,
		UsageRate: strings.TrimSpace(usage),
		Advantage: strings.TrimSpace(advantage),
	}, nil
}

type options struct {
	configPath    string
	profilePath   string
	matchups      matchupFlags
	actualBattles string
	actualWins    string
	customBattles string
	customWins    string
	battles       int
	lang          string
	jsonOutput    bool
	chartPath     string
	openChart     bool
	watch         bool
	showVersion   bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("winrate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Config file path (default: ~/.deck-winrate/config.toml)")
	fs.StringVar(&o.profilePath, "profile", "", "Matchup profile (.toml, .yaml or .yml)")
	fs.Var(&o.matchups, "m", `Matchup as "Name=usage[:advantage]" (repeatable)`)
	fs.StringVar(&o.actualBattles, "actual-battles", "", "Battles played so far")
	fs.StringVar(&o.actualWins, "actual-wins", "", "Wins so far")
	fs.StringVar(&o.customBattles, "custom-battles", "", "Battle count to project")
	fs.StringVar(&o.customWins, "custom-wins", "", "Win count whose exact probability is reported")
	fs.IntVar(&o.battles, "battles", 0, "Largest battle count of the projection table (overrides config)")
	fs.StringVar(&o.lang, "lang", "", `Matchup label language, "en" or "ja" (overrides config)`)
	fs.BoolVar(&o.jsonOutput, "json", false, "Print the result as JSON")
	fs.StringVar(&o.chartPath, "chart", "", "Write an HTML chart report to this file")
	fs.BoolVar(&o.openChart, "open", false, "Open the chart report in the browser")
	fs.BoolVar(&o.watch, "watch", false, "Recalculate whenever the profile changes")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if o.watch && o.profilePath == "" {
		return nil, errors.New("-watch requires -profile")
	}
	if o.openChart && o.chartPath == "" {
		return nil, errors.New("-open requires -chart")
	}
	return o, nil
}

// request merges the profile (if any) with the command-line values.
// Command-line counts override the profile's.
func (o *options) request(p *profile.Profile) winrate.Request {
	var req winrate.Request
	if p != nil {
		req = p.Request()
	}
	req.Matchups = append(req.Matchups, o.matchups...)

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&req.ActualBattles, o.actualBattles)
	override(&req.ActualWins, o.actualWins)
	override(&req.CustomBattles, o.customBattles)
	override(&req.CustomWins, o.customWins)
	return req
}

type app struct {
	opts       *options
	cfg        *config.Config
	calculator *winrate.Calculator
	stdout     io.Writer
	logger     *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Fprintln(stdout, version.GetVersion())
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.battles > 0 {
		cfg.Calculator.ProjectionBattles = opts.battles
	}
	if opts.lang != "" {
		cfg.Calculator.Language = opts.lang
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a := &app{
		opts:       opts,
		cfg:        cfg,
		calculator: winrate.NewCalculator(cfg.CalculatorOptions()),
		stdout:     stdout,
		logger:     cfg.NewLogger(stderr),
	}

	if opts.watch {
		return a.watch(ctx)
	}

	var p *profile.Profile
	if opts.profilePath != "" {
		if p, err = profile.Load(opts.profilePath); err != nil {
			return err
		}
	}

	result, err := a.calculator.Calculate(opts.request(p))
	if err != nil {
		return err
	}

	title := ""
	if p != nil {
		title = p.Deck
	}
	return a.report(title, result)
}

// watch prints a new report every time the profile changes, until ctx is done.
// Command-line rows and counts are merged in on every reload.
func (a *app) watch(ctx context.Context) error {
	watcher, err := profile.NewWatcher(profile.WatcherConfig{
		Path:       a.opts.profilePath,
		Calculator: a.calculator,
		Logger:     a.logger,
		Request:    a.opts.request,
	})
	if err != nil {
		return err
	}

	return watcher.Run(ctx, func(u profile.Update) {
		if u.Err != nil {
			fmt.Fprintf(a.stdout, "Error: %v\n", u.Err)
			return
		}
		if err := a.report(u.Profile.Deck, u.Result); err != nil {
			a.logger.Error("Failed to write report", "error", err)
		}
	})
}

func (a *app) report(title string, result *winrate.Result) error {
	if a.opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		display.NewResultDisplayer(a.stdout, a.cfg.Calculator.Language).Display(title, result)
	}

	if a.opts.chartPath == "" {
		return nil
	}

	if err := charts.WriteReport(a.opts.chartPath, result, a.cfg.ChartOptions()); err != nil {
		return err
	}
	a.logger.Info("Chart report written", "path", a.opts.chartPath)

	if a.opts.openChart {
		if err := charts.OpenInBrowser(a.opts.chartPath); err != nil {
			a.logger.Warn("Failed to open browser", "error", err)
		}
	}
	return nil
}
