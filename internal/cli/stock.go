package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStockCommand печатает сводный остаток товара
func NewStockCommand(rootOpts *RootOptions, build BuildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stock <sku>",
		Short: "Show combined stock for a SKU",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			view, err := application.Stock(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get stock for %s: %w", args[0], err)
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "SKU:            %s\n", view.SKU)
			fmt.Fprintf(out, "Manage stock:   %t\n", view.ManageStock)
			fmt.Fprintf(out, "Local stock:    %d\n", view.LocalStock)
			fmt.Fprintf(out, "External stock: %d\n", view.ExternalStock)
			fmt.Fprintf(out, "Combined stock: %d\n", view.CombinedStock)
			fmt.Fprintf(out, "Status:         %s\n", view.Status)
			return nil
		},
	}
}
