package rebal

import (
	"github.com/shopspring/decimal"
)

// шаг цены тайваньской биржи в зависимости от ценового диапазона
var tickTable = []struct {
	upTo decimal.Decimal
	tick decimal.Decimal
}{
	{decimal.NewFromInt(10), decimal.RequireFromString("0.01")},
	{decimal.NewFromInt(50), decimal.RequireFromString("0.05")},
	{decimal.NewFromInt(100), decimal.RequireFromString("0.1")},
	{decimal.NewFromInt(500), decimal.RequireFromString("0.5")},
	{decimal.NewFromInt(1000), decimal.NewFromInt(1)},
}

var maxTick = decimal.NewFromInt(5)

func tickSize(price decimal.Decimal) decimal.Decimal {
	for _, band := range tickTable {
		if price.LessThanOrEqual(band.upTo) {
			return band.tick
		}
	}
	return maxTick
}

// CalculatePriceWithExtraBid сдвигает цену на extraBidPct и прижимает результат
// к сетке шагов цены. При положительном проценте (агрессивная заявка) цена
// округляется вниз, чтобы не переплатить сверх задуманного; при отрицательном -
// вверх, чтобы не продешевить. Нулевой процент возвращает цену без изменений.
func CalculatePriceWithExtraBid(price, extraBidPct decimal.Decimal) decimal.Decimal {
	if extraBidPct.IsZero() {
		return price
	}

	raw := price.Mul(decimal.NewFromInt(1).Add(extraBidPct))
	tick := tickSize(raw)
	steps := raw.Div(tick)
	if extraBidPct.IsPositive() {
		steps = steps.Floor()
	} else {
		steps = steps.Ceil()
	}
	return steps.Mul(tick)
}
