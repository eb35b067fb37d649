package rebal

// Назначение маржинального финансирования: часть длинных CASH-позиций
// переводится в MARGIN_TRADING, начиная с наименее волатильных бумаг,
// пока профинансированная стоимость не достигнет (L-1)/L от портфеля

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sdcoffey/techan"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

const annualisationFactor = 252

type leverageRow struct {
	entry PositionEntry
	value decimal.Decimal
	sigma float64
}

// ApplyLeverage возвращает новый портфель, в котором сумма маржинальных ног
// отличается от целевой (L-1)/L * стоимость не больше, чем на стоимость одного
// лота. Количество по каждой бумаге сохраняется. Короткие, нулевые и
// не-CASH строки проходят без изменений.
func ApplyLeverage(pos Position, prices map[string]decimal.Decimal, history map[string]*techan.TimeSeries, leverage float64, boardLotSize int) (Position, error) {
	if leverage <= 1 {
		return pos, nil
	}
	if boardLotSize <= 0 {
		return Position{}, errors.New("board lot size must be positive")
	}

	boardLot := decimal.NewFromInt(int64(boardLotSize))

	var rows []leverageRow
	var passThrough []PositionEntry
	for _, e := range pos.Entries() {
		if e.OrderCondition != Cash || !e.Quantity.IsPositive() {
			passThrough = append(passThrough, e)
			continue
		}
		price, ok := prices[e.StockID]
		sigma, volOK := annualizedVolatility(history[e.StockID])
		if !ok || !volOK {
			passThrough = append(passThrough, e)
			continue
		}
		rows = append(rows, leverageRow{
			entry: e,
			value: e.Quantity.Mul(boardLot).Mul(price),
			sigma: sigma,
		})
	}
	if len(rows) == 0 {
		return Position{}, errors.New("empty or incompatible position, nothing to leverage")
	}

	totalValue := decimal.Zero
	for _, r := range rows {
		totalValue = totalValue.Add(r.value)
	}
	target := totalValue.
		Mul(decimal.NewFromFloat(leverage - 1)).
		Div(decimal.NewFromFloat(leverage))

	// финансируем сначала наименее волатильные бумаги
	slices.SortStableFunc(rows, func(a, b leverageRow) bool {
		if a.sigma != b.sigma {
			return a.sigma < b.sigma
		}
		return a.entry.StockID < b.entry.StockID
	})

	remaining := target
	var result []PositionEntry
	for _, r := range rows {
		if !remaining.IsPositive() {
			result = append(result, r.entry)
			continue
		}
		if r.value.LessThanOrEqual(remaining) {
			e := r.entry
			e.OrderCondition = MarginTrading
			result = append(result, e)
			remaining = remaining.Sub(r.value)
			continue
		}

		// бумага на границе финансирования делится на две ноги с шагом
		// в десятую лота, маржинальная нога округляется вверх
		lotValue := prices[r.entry.StockID].Mul(boardLot)
		marginLots := remaining.Div(lotValue).Mul(decimal.NewFromInt(10)).Ceil().Div(decimal.NewFromInt(10))
		if marginLots.GreaterThan(r.entry.Quantity) {
			marginLots = r.entry.Quantity
		}
		cashLots := r.entry.Quantity.Sub(marginLots)

		if marginLots.IsPositive() {
			e := r.entry
			e.Quantity = marginLots
			e.OrderCondition = MarginTrading
			if r.entry.Weight != nil {
				w := *r.entry.Weight
				e.Weight = &w
			}
			result = append(result, e)
		}
		if cashLots.IsPositive() {
			e := r.entry
			e.Quantity = cashLots
			if r.entry.Weight != nil {
				w := *r.entry.Weight
				e.Weight = &w
			}
			result = append(result, e)
		}
		remaining = decimal.Zero
	}

	return PositionFromEntries(append(result, passThrough...)), nil
}

// годовая волатильность по дневным изменениям цены закрытия,
// выборочное стандартное отклонение * sqrt(252)
func annualizedVolatility(series *techan.TimeSeries) (float64, bool) {
	if series == nil || len(series.Candles) < 3 {
		return 0, false
	}
	returns := make([]float64, 0, len(series.Candles)-1)
	for i := 1; i < len(series.Candles); i++ {
		prev := series.Candles[i-1].ClosePrice.Float()
		cur := series.Candles[i].ClosePrice.Float()
		if prev == 0 {
			continue
		}
		returns = append(returns, cur/prev-1)
	}
	if len(returns) < 2 {
		return 0, false
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(annualisationFactor), true
}
