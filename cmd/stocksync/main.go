package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shestoi/stocksync/internal/app"
	"github.com/shestoi/stocksync/internal/cli"
	"github.com/shestoi/stocksync/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Build собирает граф зависимостей; конфигурация читается из окружения
	build := func(ctx context.Context) (cli.Application, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		application, err := app.Build(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return application, nil
	}

	root := cli.NewRootCommand(build)
	if err := root.ExecuteContext(ctx); err != nil {
		if !cli.IsSilent(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
