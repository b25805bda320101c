// Command ema-voice is a push-to-talk client for the booking voice service.
//
// Usage:
//
//	ema-voice run [--config path] [--backend miniaudio|portaudio]
//	ema-voice schema
package main

import (
	"fmt"
	"os"

	"github.com/koscakluka/ema-voice/cmd/ema-voice/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
