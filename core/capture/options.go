package capture

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultChunkCadence = 100 * time.Millisecond
	DefaultMaxDuration  = 5 * time.Minute
)

type Config struct {
	ChunkCadence  time.Duration
	MaxDuration   time.Duration
	RecordingDir  string
	KeepRecording bool
	Logger        *slog.Logger

	onAutoStop func(sessionID uuid.UUID, locator string)
	onFailure  func(sessionID uuid.UUID, err error)
}

func DefaultConfig() Config {
	return Config{
		ChunkCadence:  DefaultChunkCadence,
		MaxDuration:   DefaultMaxDuration,
		RecordingDir:  filepath.Join(os.TempDir(), "ema-voice"),
		KeepRecording: true,
	}
}

type Option func(*Config)

func WithChunkCadence(cadence time.Duration) Option {
	return func(c *Config) {
		c.ChunkCadence = cadence
	}
}

// WithMaxDuration bounds a single recording. Zero disables the auto stop.
func WithMaxDuration(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDuration = d
	}
}

func WithRecordingDir(dir string) Option {
	return func(c *Config) {
		c.RecordingDir = dir
		c.KeepRecording = true
	}
}

// WithoutRecordingFile skips writing a WAV artifact; Stop returns "".
func WithoutRecordingFile() Option {
	return func(c *Config) {
		c.KeepRecording = false
	}
}

// WithAutoStopCallback is called with the artifact locator after the session
// stopped itself at MaxDuration.
func WithAutoStopCallback(callback func(sessionID uuid.UUID, locator string)) Option {
	return func(c *Config) {
		c.onAutoStop = callback
	}
}

// WithFailureCallback is called after a device failure ended the session.
func WithFailureCallback(callback func(sessionID uuid.UUID, err error)) Option {
	return func(c *Config) {
		c.onFailure = callback
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
