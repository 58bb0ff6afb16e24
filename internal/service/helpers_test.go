package service_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/session"
	"fundbridge-gpt/internal/tokens"
)

func init() {
	// Set default logger to discard output for cleaner test output
	// This suppresses logs from slog.Default() used in the service layer
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// testContext returns a context for testing.
// The default logger is already set to discard in init().
func testContext() context.Context {
	return context.Background()
}

// fixedCounter counts every text as the same number of tokens.
type fixedCounter int

func (c fixedCounter) Count(string) int { return int(c) }

func fixedBudget(n int) *tokens.Budget {
	return tokens.NewBudget(fixedCounter(n))
}

// recordingObserver captures every event a controller reports.
type recordingObserver struct {
	stages    []service.Stage
	estimates []tokens.Estimate
	warnings  []string
}

func (o *recordingObserver) OnStage(_ context.Context, stage service.Stage) {
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) OnEstimate(_ context.Context, est tokens.Estimate) {
	o.estimates = append(o.estimates, est)
}

func (o *recordingObserver) OnWarning(_ context.Context, message string) {
	o.warnings = append(o.warnings, message)
}

func (o *recordingObserver) last() service.Stage {
	if len(o.stages) == 0 {
		return ""
	}
	return o.stages[len(o.stages)-1]
}

func newSession(model string) *session.Session {
	return session.New("sess-1", model, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

// assertEmptyDir fails when staged files were left behind.
func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		t.Errorf("staged file left behind: %s", e.Name())
	}
}
