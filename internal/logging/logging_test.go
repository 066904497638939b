package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func useStateHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	xdg.Reload()

	saved, savedLevel, savedConsole := log.Logger, zerolog.GlobalLevel(), console
	var buf bytes.Buffer
	console = &buf
	t.Cleanup(func() {
		log.Logger = saved
		zerolog.SetGlobalLevel(savedLevel)
		console = savedConsole
		xdg.Reload()
	})
	return dir
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		wantLevel zerolog.Level
	}{
		{"default warn level", 0, zerolog.WarnLevel},
		{"info level", 1, zerolog.InfoLevel},
		{"debug level", 2, zerolog.DebugLevel},
		{"trace level", 3, zerolog.TraceLevel},
		{"high verbosity defaults to trace", 7, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := useStateHome(t)
			closeLog := SetupLogger(tt.verbosity)
			defer closeLog()

			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("SetupLogger(%d) set level %v, want %v", tt.verbosity, zerolog.GlobalLevel(), tt.wantLevel)
			}
			logPath := filepath.Join(dir, "ecellbrew", FileName)
			if _, err := os.Stat(logPath); err != nil {
				t.Errorf("log file not created at %s: %v", logPath, err)
			}
		})
	}
}

func TestGetLoggerWritesComponent(t *testing.T) {
	dir := useStateHome(t)
	closeLog := SetupLogger(1)
	logger := GetLogger("build")
	logger.Info().Str("target", "core").Msg("phase completed")
	closeLog()

	data, err := os.ReadFile(filepath.Join(dir, "ecellbrew", FileName))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"component":"build"`, `"target":"core"`, `"message":"phase completed"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log file missing %s:\n%s", want, line)
		}
	}
}
