package cli

import (
	"github.com/spf13/cobra"
)

// NewServeCommand запускает HTTP API, gRPC health, планировщик и Kafka consumer
func NewServeCommand(build BuildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the stocksync service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := build(cmd.Context())
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}
}
