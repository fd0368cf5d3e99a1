package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// Config содержит общие настройки подключения к Kafka.
// Доменные топики и group id сервис хранит в своём конфиге.
type Config struct {
	// Enabled выключает consumer/publisher целиком (локальная разработка без брокера)
	Enabled bool `env:"KAFKA_ENABLED" envDefault:"false"`
	// Brokers список брокеров через запятую: "broker1:9092,broker2:9092"
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// RetryMaxAttempts сколько раз consumer пытается обработать сообщение до отказа
	RetryMaxAttempts int `env:"KAFKA_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	// RetryBackoffBase база экспоненциального backoff: 1s, 2s, 4s...
	RetryBackoffBase time.Duration `env:"KAFKA_RETRY_BACKOFF_BASE" envDefault:"1s"`
}

// NewWriter создаёт writer для топика с балансировкой LeastBytes
func NewWriter(cfg Config, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// NewReader создаёт reader в consumer group; offset коммитится вручную через CommitMessages
func NewReader(cfg Config, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
}

// Backoff возвращает задержку перед попыткой attempt (начиная с 2): base, 2*base, 4*base...
func (c Config) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return c.RetryBackoffBase * time.Duration(1<<uint(attempt-2))
}
