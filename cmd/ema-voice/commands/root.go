package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ema-voice",
	Short: "Push-to-talk client for the booking voice service",
	Long: `ema-voice streams microphone audio to the voice service and plays its
spoken answers back.

Configuration is read from a YAML file (--config) and the environment:
  EMA_VOICE_USER_ID    user the session is opened for
  EMA_VOICE_TOKEN      bearer token
  EMA_VOICE_ENDPOINT   websocket endpoint, e.g. ws://localhost:8000/ws`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
