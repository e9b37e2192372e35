package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"chatty":  zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_WritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "shoplist.log")
	logger, closer, err := New(Options{File: path, Level: "debug"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug().Str("owner", "alice").Msg("hello")
	logger.Info().Msg("second")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"owner":"alice"`) || !strings.Contains(text, `"service":"shoplist"`) {
		t.Fatalf("log output missing fields:\n%s", text)
	}
	if strings.Count(text, "\n") != 2 {
		t.Fatalf("expected two entries:\n%s", text)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shoplist.log")
	logger, closer, err := New(Options{File: path, Level: "warn"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")
	_ = closer.Close()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "dropped") || !strings.Contains(string(data), "kept") {
		t.Fatalf("level filter not applied:\n%s", data)
	}
}

func TestNew_EmptyPathDisablesLogging(t *testing.T) {
	logger, closer, err := New(Options{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if logger.GetLevel() != zerolog.Disabled {
		t.Fatalf("level = %v, want disabled", logger.GetLevel())
	}
	if closer == nil || closer.Close() != nil {
		t.Fatalf("closer should be a no-op")
	}
}
