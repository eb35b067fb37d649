package rebal_test

import (
	"time"

	"github.com/go-trading/rebal"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quote(stockID, close string) rebal.Stock {
	return rebal.Stock{StockID: stockID, Close: d(close)}
}

// дневная серия закрытий для оценки волатильности
func series(closes ...float64) *techan.TimeSeries {
	ts := techan.NewTimeSeries()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candle := techan.NewCandle(techan.NewTimePeriod(start.Add(time.Duration(i)*24*time.Hour), 24*time.Hour))
		candle.ClosePrice = big.NewDecimal(c)
		ts.AddCandle(candle)
	}
	return ts
}

func entriesEqual(a, b []rebal.PositionEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].StockID != b[i].StockID ||
			a[i].OrderCondition != b[i].OrderCondition ||
			!a[i].Quantity.Equal(b[i].Quantity) {
			return false
		}
	}
	return true
}
