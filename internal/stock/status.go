package stock

import "strings"

// Status статус наличия товара, значения совпадают с форматом удалённого фида
type Status string

const (
	StatusInStock     Status = "instock"
	StatusOutOfStock  Status = "outofstock"
	StatusOnBackorder Status = "onbackorder"
)

// Valid сообщает, является ли s одним из трёх известных статусов
func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusOutOfStock, StatusOnBackorder:
		return true
	}
	return false
}

// ParseStatus нормализует сырое значение (нижний регистр, только [a-z0-9_-])
// и возвращает false, если результат не является известным статусом
func ParseStatus(raw string) (Status, bool) {
	s := Status(normalizeKey(raw))
	return s, s.Valid()
}

// DefaultStatus возвращает статус по умолчанию для синхронизации.
// Допустимы только instock и outofstock, всё остальное превращается в instock.
func DefaultStatus(raw string) Status {
	s, _ := ParseStatus(raw)
	if s == StatusInStock || s == StatusOutOfStock {
		return s
	}
	return StatusInStock
}

func normalizeKey(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
