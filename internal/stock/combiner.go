// Package stock содержит чистые правила работы с остатками:
// объединение локального и внешнего остатка, вывод статуса и перебалансировку.
// Пакет не делает ввода-вывода и безопасен для конкурентного использования.
package stock

// Levels согласованный снимок остатков одного товара
type Levels struct {
	ManageStock bool
	Local       int64
	External    int64
}

// Combine возвращает объединённый остаток: max(0, local) + max(0, external)
func Combine(local, external int64) int64 {
	return max(0, local) + max(0, external)
}

// CombineLevels считает объединённый остаток для снимка.
// Для товаров без учёта остатков локальное значение возвращается как есть.
// Считать нужно только от сырых сохранённых значений, а не от уже объединённых.
func CombineLevels(l Levels) int64 {
	if !l.ManageStock {
		return l.Local
	}
	return Combine(l.Local, l.External)
}

// DeriveStatus приводит сохранённый статус в соответствие с объединённым остатком.
// onbackorder никогда не переопределяется.
func DeriveStatus(reported Status, combined int64) Status {
	switch {
	case reported == StatusOutOfStock && combined > 0:
		return StatusInStock
	case reported == StatusInStock && combined <= 0:
		return StatusOutOfStock
	default:
		return reported
	}
}

// DeriveLevelsStatus применяет DeriveStatus к снимку; без учёта остатков статус не меняется
func DeriveLevelsStatus(reported Status, l Levels) Status {
	if !l.ManageStock {
		return reported
	}
	return DeriveStatus(reported, CombineLevels(l))
}
