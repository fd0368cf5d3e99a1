package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/shestoi/stocksync/internal/service"
)

// Application то, что команды CLI используют от собранного приложения
type Application interface {
	Run(ctx context.Context) error
	Sync(ctx context.Context, trigger service.Trigger) (service.Result, error)
	Stock(ctx context.Context, sku string) (service.StockView, error)
	Close()
}

// errSilent завершает команду с ненулевым кодом, когда сообщение уже выведено
var errSilent = errors.New("command failed")

// IsSilent сообщает, что ошибка уже показана пользователю
func IsSilent(err error) bool {
	return errors.Is(err, errSilent)
}

// BuildFunc собирает приложение из конфигурации окружения
type BuildFunc func(ctx context.Context) (Application, error)

// RootOptions глобальные флаги всех команд
type RootOptions struct {
	Format string // "text" | "json"
}

// ValidFormats допустимые форматы вывода
var ValidFormats = []string{"text", "json"}

// NewRootCommand создаёт корневую команду stocksync
func NewRootCommand(build BuildFunc) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stocksync",
		Short: "Inventory synchronization service",
		Long:  "stocksync pulls stock levels from a remote feed and keeps combined local and external stock consistent.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true, // ошибки печатает main
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(build))
	cmd.AddCommand(NewSyncCommand(opts, build))
	cmd.AddCommand(NewStockCommand(opts, build))

	return cmd
}
