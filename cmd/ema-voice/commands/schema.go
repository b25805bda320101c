package commands

import (
	"fmt"

	"github.com/koscakluka/ema-voice/core/transport"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of messages sent by the voice service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := transport.EnvelopeSchemaJSON()
		if err != nil {
			return fmt.Errorf("render schema: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
