package service

import (
	"context"
	"time"

	"github.com/shestoi/stocksync/internal/stock"
)

// Settings неизменяемый снимок настроек синхронизации
type Settings struct {
	Endpoint       string
	APIKey         string
	DefaultStatus  stock.Status
	EnableAutoSync bool
	SyncInterval   string
	Timeout        time.Duration
}

// StaticSettings отдаёт настройки, собранные из конфигурации при старте
type StaticSettings struct {
	settings Settings
}

// NewStaticSettings создаёт провайдер; статус по умолчанию проверяется сразу
func NewStaticSettings(s Settings) *StaticSettings {
	s.DefaultStatus = stock.DefaultStatus(string(s.DefaultStatus))
	return &StaticSettings{settings: s}
}

// Settings возвращает копию снимка
func (p *StaticSettings) Settings(context.Context) (Settings, error) {
	return p.settings, nil
}
