package service

import (
	"context"

	"github.com/shestoi/stocksync/internal/feed"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=FeedClient --dir=. --output=./mocks --outpkg=mocks

// FeedClient определяет интерфейс для получения записей удалённого фида
// Реализация feed.Client, в тестах подменяется моком
type FeedClient interface {
	// Fetch выполняет один запрос к фиду без повторов
	Fetch(ctx context.Context, endpoint, apiKey string) ([]feed.Record, error)
}

// SettingsProvider отдаёт снимок настроек на один прогон
type SettingsProvider interface {
	Settings(ctx context.Context) (Settings, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=SyncEventPublisher --dir=. --output=./mocks --outpkg=mocks

// SyncEventPublisher определяет интерфейс для публикации события о завершённом прогоне
// Ошибка публикации не влияет на результат прогона
type SyncEventPublisher interface {
	PublishSyncCompleted(ctx context.Context, event SyncCompletedEvent) error
}
