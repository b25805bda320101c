// Package config loads the ema-voice CLI configuration from a YAML file and
// the environment.
//
// Example file:
//
//	endpoint: wss://voice.example.com/ws
//	user_id: 42
//	backend: miniaudio
//	chunk_cadence: 100ms
//	max_recording_duration: 2m
//	recording_dir: ./recordings
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	orchestration "github.com/koscakluka/ema-voice/core"
)

const (
	EnvUserID   = "EMA_VOICE_USER_ID"
	EnvToken    = "EMA_VOICE_TOKEN"
	EnvEndpoint = "EMA_VOICE_ENDPOINT"

	BackendMiniaudio = "miniaudio"
	BackendPortaudio = "portaudio"
)

var (
	ErrMissingUserID  = errors.New("user_id is required, set it in the config file or " + EnvUserID)
	ErrUnknownBackend = errors.New("unknown audio backend")
)

type Config struct {
	Endpoint string `yaml:"endpoint"`
	UserID   string `yaml:"user_id"`
	Token    string `yaml:"token"`

	Backend    string `yaml:"backend"`
	BufferSize int    `yaml:"buffer_size"`

	SampleRate           int           `yaml:"sample_rate"`
	Channels             int           `yaml:"channels"`
	ChunkCadence         time.Duration `yaml:"chunk_cadence"`
	MaxRecordingDuration time.Duration `yaml:"max_recording_duration"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	BaseBackoffDelay     time.Duration `yaml:"base_backoff_delay"`
	LevelPollInterval    time.Duration `yaml:"level_poll_interval"`
	RecordingDir         string        `yaml:"recording_dir"`
	KeepRecordings       bool          `yaml:"keep_recordings"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Default() Config {
	defaults := orchestration.DefaultConfig()
	return Config{
		Endpoint:             defaults.Endpoint,
		Backend:              BackendMiniaudio,
		BufferSize:           1024,
		SampleRate:           defaults.SampleRate,
		Channels:             defaults.Channels,
		ChunkCadence:         defaults.ChunkCadence,
		MaxRecordingDuration: defaults.MaxRecordingDuration,
		MaxReconnectAttempts: defaults.MaxReconnectAttempts,
		BaseBackoffDelay:     defaults.BaseBackoffDelay,
		LevelPollInterval:    defaults.LevelPollInterval,
		RecordingDir:         defaults.RecordingDir,
		KeepRecordings:       defaults.KeepRecordings,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if value, ok := lookup(EnvUserID); ok && value != "" {
		c.UserID = value
	}
	if value, ok := lookup(EnvToken); ok && value != "" {
		c.Token = value
	}
	if value, ok := lookup(EnvEndpoint); ok && value != "" {
		c.Endpoint = value
	}
}

func (c Config) Validate() error {
	if c.UserID == "" {
		return ErrMissingUserID
	}
	switch c.Backend {
	case BackendMiniaudio, BackendPortaudio:
	default:
		return fmt.Errorf("%w %q, expected %s or %s", ErrUnknownBackend, c.Backend, BackendMiniaudio, BackendPortaudio)
	}
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return fmt.Errorf("invalid audio format: %d Hz, %d channels", c.SampleRate, c.Channels)
	}
	if c.ChunkCadence <= 0 {
		return fmt.Errorf("chunk_cadence must be positive, got %s", c.ChunkCadence)
	}
	return nil
}

// Orchestration converts the file settings into the orchestrator config.
func (c Config) Orchestration() orchestration.Config {
	return orchestration.Config{
		Endpoint:             c.Endpoint,
		SampleRate:           c.SampleRate,
		Channels:             c.Channels,
		ChunkCadence:         c.ChunkCadence,
		MaxRecordingDuration: c.MaxRecordingDuration,
		MaxReconnectAttempts: c.MaxReconnectAttempts,
		BaseBackoffDelay:     c.BaseBackoffDelay,
		LevelPollInterval:    c.LevelPollInterval,
		RecordingDir:         c.RecordingDir,
		KeepRecordings:       c.KeepRecordings,
	}
}
