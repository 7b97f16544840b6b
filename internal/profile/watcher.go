package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

// Update is delivered after every reload of a watched profile.
// Exactly one of Result and Err is set.
type Update struct {
	Path    string
	Profile *Profile
	Result  *winrate.Result
	Err     error

	// Duration of the calculation; zero when the file could not be loaded.
	Duration time.Duration
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	Path       string
	Calculator *winrate.Calculator
	Logger     *slog.Logger

	// Request builds the calculator input from a freshly loaded profile.
	// Default: (*Profile).Request
	Request func(*Profile) winrate.Request

	// Debounce collapses bursts of write events (editors often write twice).
	// Default: 100ms
	Debounce time.Duration
}

// Watcher recalculates a profile each time its file changes.
type Watcher struct {
	config WatcherConfig
	logger *slog.Logger
}

// NewWatcher creates a profile watcher.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("profile path is required")
	}
	if config.Calculator == nil {
		config.Calculator = winrate.NewCalculator(winrate.DefaultOptions())
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Request == nil {
		config.Request = (*Profile).Request
	}
	if config.Debounce <= 0 {
		config.Debounce = 100 * time.Millisecond
	}
	return &Watcher{config: config, logger: config.Logger}, nil
}

// Evaluate loads the profile once and calculates it.
func (w *Watcher) Evaluate() Update {
	u := Update{Path: w.config.Path}

	p, err := Load(w.config.Path)
	if err != nil {
		u.Err = err
		return u
	}
	u.Profile = p

	start := time.Now()
	result, err := w.config.Calculator.Calculate(w.config.Request(p))
	u.Duration = time.Since(start)
	if err != nil {
		u.Err = err
		return u
	}
	u.Result = result
	return u
}

// Run evaluates the profile immediately and again after every change, calling
// onUpdate each time, until ctx is cancelled. The parent directory is watched
// so that editors replacing the file by rename are picked up.
func (w *Watcher) Run(ctx context.Context, onUpdate func(Update)) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	target, err := filepath.Abs(w.config.Path)
	if err != nil {
		return fmt.Errorf("resolve profile path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch profile directory: %w", err)
	}

	w.logger.Info("Watching matchup profile", "path", target)
	onUpdate(w.Evaluate())

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Profile changed", "op", event.Op.String())
			debounce = time.After(w.config.Debounce)

		case <-debounce:
			debounce = nil
			update := w.Evaluate()
			if update.Err != nil {
				w.logger.Warn("Profile recalculation failed", "path", target, "error", update.Err)
			}
			onUpdate(update)

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}
