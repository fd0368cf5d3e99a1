package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shestoi/stocksync/internal/service"
)

// NewSyncCommand выполняет один ручной прогон синхронизации
func NewSyncCommand(rootOpts *RootOptions, build BuildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one manual stock sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			result, err := application.Sync(cmd.Context(), service.TriggerManual)
			if err != nil {
				if rootOpts.Format == "json" {
					_ = writeJSON(cmd, map[string]string{
						"error":   service.ErrorCode(err),
						"message": err.Error(),
					})
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
				}
				return errSilent
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), FormatSyncResult(result))
			for _, msg := range result.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", msg)
			}
			return nil
		},
	}
}

// FormatSyncResult сообщение администратору об успешном прогоне
func FormatSyncResult(r service.Result) string {
	return fmt.Sprintf("Sync completed. %d products updated, %d skipped.", r.Updated, r.Skipped)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
