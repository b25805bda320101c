package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/transport"
	"github.com/koscakluka/ema-voice/internal/config"
	"github.com/koscakluka/ema-voice/internal/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	backend    string
	userID     string
	token      string
	endpoint   string
	logLevel   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the voice service and talk to it",
	Long: `Connects to the voice service and reads commands from stdin:

  r          start or stop recording
  s <json>   send a control message, e.g. s {"action":"check_availability"}
  status     print the current state
  q          quit`,
	Args: cobra.NoArgs,
	RunE: runVoice,
}

func init() {
	flags := runCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&backend, "backend", "", "audio backend: miniaudio or portaudio")
	flags.StringVar(&userID, "user", "", "user id, overrides "+config.EnvUserID)
	flags.StringVar(&token, "token", "", "bearer token, overrides "+config.EnvToken)
	flags.StringVar(&endpoint, "endpoint", "", "websocket endpoint, overrides "+config.EnvEndpoint)
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(runCmd)
}

func loadRunConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("user") {
		cfg.UserID = userID
	}
	if flags.Changed("token") {
		cfg.Token = token
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

func runVoice(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	log.Init(cfg.LogLevel, cfg.LogFormat)
	logger := log.L()

	devices, err := openDevices(cfg)
	if err != nil {
		return err
	}
	defer devices.close()

	o := orchestration.NewOrchestrator(
		orchestration.WithConfig(cfg.Orchestration()),
		orchestration.WithCaptureDevice(devices.capture),
		orchestration.WithPlaybackDevice(devices.playback),
		orchestration.WithLogger(logger),
		orchestration.WithEventHandler(eventPrinter(cmd.OutOrStdout(), logger)),
	)
	defer o.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := o.Activate(ctx, transport.Identity{UserID: cfg.UserID, Token: cfg.Token}); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	return readCommands(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), o)
}

// controller is the part of the orchestrator the command loop drives.
type controller interface {
	ToggleRecording() error
	SendControlMessage(msg map[string]any) error
	Snapshot() orchestration.Snapshot
}

var errQuit = errors.New("quit")

func readCommands(ctx context.Context, in io.Reader, out io.Writer, c controller) error {
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleCommand(line, out, c); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

func handleCommand(line string, out io.Writer, c controller) error {
	command, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch command {
	case "":
		return nil
	case "q", "quit":
		return errQuit
	case "r", "record":
		return c.ToggleRecording()
	case "s", "send":
		var msg map[string]any
		if err := json.Unmarshal([]byte(rest), &msg); err != nil {
			return fmt.Errorf("control message must be a JSON object: %w", err)
		}
		return c.SendControlMessage(msg)
	case "status":
		printSnapshot(out, c.Snapshot())
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printSnapshot(out io.Writer, snapshot orchestration.Snapshot) {
	fmt.Fprintf(out, "state: %s, connection: %s, recording: %s, playback: %s, queued: %d\n",
		snapshot.State, snapshot.Connection, snapshot.Recording, snapshot.Playback, snapshot.PendingPlayback)
	if snapshot.LastError != nil {
		fmt.Fprintf(out, "last error: %v\n", snapshot.LastError)
	}
	for _, entry := range snapshot.Messages {
		if entry.Appointment != nil {
			fmt.Fprintf(out, "  [%s] %s: %s on %s at %s for %s\n", entry.ReceivedAt.Format("15:04:05"), entry.Kind,
				entry.Appointment.Service, entry.Appointment.Date, entry.Appointment.Time, entry.Appointment.ClientName)
			continue
		}
		fmt.Fprintf(out, "  [%s] %s: %s\n", entry.ReceivedAt.Format("15:04:05"), entry.Kind, entry.Text)
	}
}

// eventPrinter writes the events a user cares about to out and logs the rest.
func eventPrinter(out io.Writer, logger *slog.Logger) func(events.Event) {
	return func(event events.Event) {
		switch e := event.(type) {
		case events.StateChanged:
			fmt.Fprintf(out, "* %s\n", e.To)
		case events.AppointmentCreated:
			fmt.Fprintf(out, "appointment booked: %s on %s at %s for %s\n",
				e.Appointment.Service, e.Appointment.Date, e.Appointment.Time, e.Appointment.ClientName)
		case events.AvailabilityChecked:
			fmt.Fprintf(out, "availability: %s\n", e.Text)
		case events.ServiceError:
			fmt.Fprintf(out, "service error: %s\n", e.Text)
		case events.RecordingStopped:
			if e.Locator != "" {
				fmt.Fprintf(out, "recording saved to %s\n", e.Locator)
			}
		case events.ConnectionFailed:
			fmt.Fprintf(out, "connection failed: %v\n", e.Err)
		case events.AudioLevelUpdated:
			// too chatty for the terminal
		default:
			logger.Debug("event", "kind", event.Kind())
		}
	}
}
