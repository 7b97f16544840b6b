package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deck-winrate/internal/matchup"
	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

func TestParseMatchup(t *testing.T) {
	tests := []struct {
		value   string
		want    matchup.RawEntry
		wantErr bool
	}{
		{"Mono Red=25:40", matchup.RawEntry{DeckName: "Mono Red", UsageRate: "25", Advantage: "40"}, false},
		{"Esper=30", matchup.RawEntry{DeckName: "Esper", UsageRate: "30"}, false},
		{"A=B=10:70", matchup.RawEntry{DeckName: "A=B", UsageRate: "10", Advantage: "70"}, false},
		{" Izzet = 12.5 : 60 ", matchup.RawEntry{DeckName: "Izzet", UsageRate: "12.5", Advantage: "60"}, false},
		{"Esper", matchup.RawEntry{}, true},
		{" =30", matchup.RawEntry{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseMatchup(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlags_Errors(t *testing.T) {
	var stderr bytes.Buffer

	_, err := parseFlags([]string{"-watch"}, &stderr)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-open"}, &stderr)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-m", "nope"}, &stderr)
	assert.Error(t, err)

	_, err = parseFlags([]string{"extra"}, &stderr)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-h"}, &stderr)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestRun_Text(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-config", filepath.Join(t.TempDir(), "none.toml"),
		"-m", "A=60:70",
		"-m", "B=30:30",
		"-actual-battles", "10",
		"-actual-wins", "7",
	}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "Expected win rate: 56.00%")
	assert.Contains(t, stdout.String(), "+14.00%")
}

func TestRun_JSONWithProfileAndChart(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "deck.yaml")
	require.NoError(t, os.WriteFile(profilePath, []byte(`
deck: Azorius
matchups:
  - deck: A
    usage: 60
    advantage: 70
custom:
  battles: 5
`), 0o644))
	chartPath := filepath.Join(dir, "report.html")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-config", filepath.Join(dir, "none.toml"),
		"-profile", profilePath,
		"-m", "B=30:30",
		"-custom-battles", "10",
		"-custom-wins", "7",
		"-battles", "5",
		"-json",
		"-chart", chartPath,
	}, &stdout, &stderr)
	require.NoError(t, err)

	var result winrate.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	assert.Equal(t, "56.00", result.ExpectedWinrate)
	assert.Len(t, result.BattleProjections, 5)
	require.NotNil(t, result.CustomProjection)
	assert.Equal(t, 10, result.CustomProjection.Battles, "flag overrides profile")
	require.NotNil(t, result.ProbabilityOfRecord)

	_, err = os.Stat(chartPath)
	assert.NoError(t, err)
}

func TestRun_NoMatchups(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "none.toml")}, &stdout, &stderr)
	assert.True(t, errors.Is(err, matchup.ErrNoMatchups))
}

func TestRun_InvalidLanguage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "none.toml"), "-lang", "fr", "-m", "A=10"}, &stdout, &stderr)
	assert.Error(t, err)
}

// lockedBuffer lets the watch goroutine write while the test reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_WatchMergesFlagMatchups(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "deck.toml")
	require.NoError(t, os.WriteFile(profilePath, []byte("deck = \"Mine\"\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr lockedBuffer
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{
			"-config", filepath.Join(dir, "none.toml"),
			"-profile", profilePath,
			"-watch",
			"-m", "A=60:70",
			"-m", "B=30:30",
		}, &stdout, &stderr)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(stdout.String(), "Expected win rate: 56.00%") {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for report, got %q", stdout.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.NotContains(t, stdout.String(), "Error:")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}
