package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		logger := New(tc.level)
		if logger == nil || logger.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", tc.level)
		}
		if !logger.Enabled(context.Background(), tc.want) {
			t.Errorf("New(%q): expected level %v to be enabled", tc.level, tc.want)
		}
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("Default returned nil")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("default logger should not enable debug")
	}
}
