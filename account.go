package rebal

import (
	"context"

	"github.com/shopspring/decimal"
)

// Дополнительные свойства заявки при выставлении.
type OrderFlags struct {
	OddLot         bool // заявка на неполный лот, количество в акциях
	MarketOrder    bool // исполнить как можно быстрее: покупка по верхнему лимиту, продажа по нижнему
	BestPriceLimit bool // пассивная цена: покупка по нижнему лимиту, продажа по верхнему
}

// Интерфейс брокерского счёта. Реализуется адаптерами к конкретным брокерам,
// ядро работает только через него.
type Account interface {
	GetPosition(ctx context.Context) (Position, error)                  // текущий портфель счёта
	GetOrders(ctx context.Context) (map[string]Order, error)            // все заявки, ключ - идентификатор заявки
	GetStocks(ctx context.Context, ids []string) (map[string]Stock, error) // котировки по списку бумаг
	CreateOrder(ctx context.Context, action Action, stockID string, quantity decimal.Decimal, price decimal.Decimal, orderCondition OrderCondition, flags OrderFlags) (string, error)
	UpdateOrder(ctx context.Context, orderID string, price *decimal.Decimal, quantity *decimal.Decimal) error
	CancelOrder(ctx context.Context, orderID string) error
	GetTotalBalance(ctx context.Context) (decimal.Decimal, error)
	SepOddLotOrder() bool // true, если неполные лоты выставляются отдельными заявками
}

// Необязательная возможность счёта: лимиты цен текущей сессии.
// Проверяется утверждением типа, как и остальные возможности ниже
type PriceInfoProvider interface {
	GetPriceInfo(ctx context.Context) (map[string]PriceLimit, error)
}

// Необязательная возможность счёта: тикеры обязаны заканчиваться на базовую
// валюту (крипто-биржи), перед сверкой суффикс отрезается.
type BaseCurrencyProvider interface {
	BaseCurrency() string
}

// Параметры рынка, нужные при построении позиции из весов,
// когда размер лота не задан явно.
type MarketConfig interface {
	GetBoardLotSize() int
}
