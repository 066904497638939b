// Package logging configures the global zerolog logger for the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ecell/ecellbrew/internal/env"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileName is the log file kept in env.StateDir.
const FileName = "ecellbrew.log"

var console io.Writer = os.Stderr

// Level maps a -v count to a log level.
func Level(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	}
	return zerolog.TraceLevel
}

// SetupLogger configures the global logger to write to the console and to
// the log file. The returned function closes the file.
func SetupLogger(verbosity int) (closeFn func()) {
	zerolog.SetGlobalLevel(Level(verbosity))

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}}

	logFile, err := FilePath()
	var file *os.File
	if err == nil {
		file, err = openLogFile(logFile)
	}
	if file != nil {
		writers = append(writers, file)
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Err(err).Str("path", logFile).Msg("Failed to create log file, logging to console only")
	}
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}
	log.Debug().Int("verbosity", verbosity).Str("logFile", logFile).Msg("Logger initialized")

	return func() {
		if file != nil {
			_ = file.Close()
		}
	}
}

// GetLogger returns the global logger tagged with component.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// FilePath returns the log file path.
func FilePath() (string, error) {
	dir, err := env.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
