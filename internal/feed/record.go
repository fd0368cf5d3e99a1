package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record одна запись удалённого фида остатков.
// Необязательные поля равны nil, если их нет в записи или они null.
type Record struct {
	SKU           string
	StockQuantity *int64
	Status        *string
	ExternalStock *int64
}

type wireRecord struct {
	SKU           flexString `json:"sku"`
	StockQuantity flexInt    `json:"stock_quantity"`
	Status        flexString `json:"status"`
	ExternalStock flexInt    `json:"external_stock"`
}

// UnmarshalJSON проверяет типы один раз при декодировании.
// Числа принимаются как JSON number (дробная часть отбрасывается) или как числовая строка,
// sku приходит строкой или числом.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*r = Record{
		SKU:           w.SKU.value,
		StockQuantity: w.StockQuantity.ptr(),
		ExternalStock: w.ExternalStock.ptr(),
	}
	if w.Status.set {
		s := w.Status.value
		r.Status = &s
	}
	return nil
}

type flexString struct {
	value string
	set   bool
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &f.value); err != nil {
			return err
		}
		f.set = true
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	f.value = n.String()
	f.set = true
	return nil
}

type flexInt struct {
	value int64
	set   bool
}

func (f *flexInt) ptr() *int64 {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
	}

	v, err := parseInt(raw)
	if err != nil {
		return fmt.Errorf("expected integer, got %s", data)
	}
	f.value = v
	f.set = true
	return nil
}

func parseInt(raw string) (int64, error) {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	fv, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(fv) || math.IsInf(fv, 0) || fv > math.MaxInt64 || fv < math.MinInt64 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return int64(fv), nil
}
