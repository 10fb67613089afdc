package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/use-agent/mirror/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitLogger_File(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "mirror.log")
	var console bytes.Buffer
	closer := initLogger(config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1}, &console)

	slog.Info("crawl resolved", "url", "https://x.com/a")
	slog.Debug("filtered out")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for name, out := range map[string]string{"console": console.String(), "file": string(written)} {
		if !strings.Contains(out, `"msg":"crawl resolved"`) {
			t.Errorf("%s output missing record: %q", name, out)
		}
		if strings.Contains(out, "filtered out") {
			t.Errorf("%s output has debug record at info level", name)
		}
	}
}
