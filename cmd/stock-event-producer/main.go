// Package main содержит dev-утилиту, которая отправляет событие order.item.stock_reduced.
//
// Нужна для локальной проверки перебалансировки без сервиса заказов:
//
//	stock-event-producer --product-id 42 --quantity 3
//
// Брокеры и топик берутся из той же конфигурации, что и у stocksync
// (KAFKA_BROKERS, KAFKA_STOCK_REDUCED_TOPIC).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	platformlogging "github.com/shestoi/stocksync/platform/logging"

	"github.com/shestoi/stocksync/internal/config"
	eventkafka "github.com/shestoi/stocksync/internal/event/kafka"
)

func main() {
	var event eventkafka.StockReducedEvent

	cmd := &cobra.Command{
		Use:          "stock-event-producer",
		Short:        "Send an order.item.stock_reduced event to Kafka",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), event)
		},
	}
	cmd.Flags().StringVar(&event.OrderID, "order-id", "dev-order", "order id")
	cmd.Flags().StringVar(&event.ProductID, "product-id", "", "purchased product id")
	cmd.Flags().StringVar(&event.VariationID, "variation-id", "", "purchased variation id")
	cmd.Flags().Int64Var(&event.Quantity, "quantity", 1, "reduced quantity")
	_ = cmd.MarkFlagRequired("product-id")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, event eventkafka.StockReducedEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "stock-event-producer",
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer platformlogging.Sync(logger)

	if event.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", event.Quantity)
	}

	logger.Info("kafka config loaded",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.KafkaStockReducedTopic),
	)

	producer := eventkafka.NewStockReducedProducer(logger, cfg.Kafka, cfg.KafkaStockReducedTopic)
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("failed to close kafka writer", zap.Error(err))
		}
	}()

	return producer.Publish(ctx, event)
}
