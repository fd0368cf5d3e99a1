package stock

// Rebalance переносит недостачу из внешнего остатка в локальный после списания по заказу.
// Ничего не делает, если local >= 0 или external <= 0.
// После вызова либо newLocal >= 0, либо newExternal == 0; внешний остаток не уходит в минус.
func Rebalance(local, external int64) (newLocal, newExternal int64, changed bool) {
	if local >= 0 || external <= 0 {
		return local, external, false
	}

	// сравниваем через -external, чтобы не переполнить -local на math.MinInt64
	shortage := external
	if local > -external {
		shortage = -local
	}
	return local + shortage, external - shortage, true
}
