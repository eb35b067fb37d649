package rebal

import (
	"github.com/shopspring/decimal"
)

// Снимок котировки по бумаге. Поля заполняет брокерский адаптер,
// ядро читает их и никогда не меняет.
type Stock struct {
	StockID   string
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal // цена последней сделки
	BidPrice  decimal.Decimal
	BidVolume decimal.Decimal
	AskPrice  decimal.Decimal
	AskVolume decimal.Decimal
}

// Ценовые лимиты торговой сессии. Выставляемая цена зажимается
// в диапазон [LimitDown, LimitUp]
type PriceLimit struct {
	LimitUp   decimal.Decimal
	LimitDown decimal.Decimal
}
