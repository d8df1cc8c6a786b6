package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCreatesLogDirectory(t *testing.T) {
	dir := t.TempDir()

	if err := Init(Config{ConfigDir: dir}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "logs")); err != nil {
		t.Errorf("expected logs directory to exist: %v", err)
	}
	if Logger == nil {
		t.Error("expected global Logger to be set")
	}
}

func TestHelpersAreNilSafe(t *testing.T) {
	saved := Logger
	Logger = nil
	defer func() { Logger = saved }()

	// Must not panic when logging before Init.
	Debug("debug message")
	Info("info message", "key", "value")
	Warn("warn message")
	Error("error message", "err", "boom")
}
