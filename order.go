package rebal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Заявка на стороне брокера
type Order struct {
	OrderID        string
	StockID        string
	Action         Action
	Price          decimal.Decimal
	Quantity       decimal.Decimal // в лотах, дробная часть - неполный лот
	Status         OrderStatus
	OrderCondition OrderCondition
	Time           time.Time // время выставления в UTC
}

// заявка ещё стоит в стакане и её можно снять или переставить
func (o Order) IsActive() bool {
	return o.Status == StatusNew || o.Status == StatusPartiallyFilled
}
