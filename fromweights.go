package rebal

// Построение портфеля из целевых весов: жадное распределение бюджета по лотам
// с учётом размера лота, неполных лотов и целевого плеча

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sdcoffey/techan"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Параметры построения позиции из весов.
type FromWeightsConfig struct {
	OddLot       bool                          // разрешить неполные лоты
	BoardLotSize int                           // акций в одном лоте; 0 - взять из Market
	Market       MarketConfig                  // источник размера лота, когда BoardLotSize не задан
	Precision    int                           // знаков дробной части лота: 1 - десятые, 2 - сотые
	Leverage     float64                       // целевое плечо; >1 включает маржинальное финансирование
	PriceHistory map[string]*techan.TimeSeries // история цен для оценки волатильности, обязательна при Leverage > 1
	Position     PositionConfig
}

// PositionFromWeights строит портфель из весов, цен и бюджета. Ключи весов
// могут содержать биржевой суффикс после пробела ("2330 TT"), для поиска цены
// берётся первая часть. Бумаги без цены выбывают с предупреждением.
func PositionFromWeights(weights map[string]decimal.Decimal, fund decimal.Decimal, prices map[string]decimal.Decimal, cfg FromWeightsConfig) (Position, error) {
	boardLot := cfg.BoardLotSize
	if boardLot == 0 && cfg.Market != nil {
		boardLot = cfg.Market.GetBoardLotSize()
	}
	if boardLot <= 0 {
		return Position{}, errors.New("board lot size must be configured or provided by market config")
	}
	if cfg.Precision < 0 {
		return Position{}, errors.New("precision is out of the valid range >= 0")
	}
	precision := cfg.Precision
	if precision != 0 && boardLot != 1 {
		l.Warn("precision задан при размере лота больше одной акции",
			zap.Int("board_lot_size", boardLot),
			zap.Int("precision", precision),
		)
	}
	if cfg.OddLot {
		switch boardLot {
		case 1000:
			precision = maxInt(3, precision)
		case 100:
			precision = maxInt(2, precision)
		case 10:
			precision = maxInt(1, precision)
		case 1:
			// лот из одной акции дробить некуда
		default:
			return Position{}, errors.Errorf("board lot size %d is out of the valid range 1, 10, 100, 1000", boardLot)
		}
	}

	// суффикс после пробела отрезается, бумаги без цены выбывают
	normWeights := map[string]decimal.Decimal{}
	lotPrices := map[string]decimal.Decimal{}
	for id, w := range weights {
		base := strings.Fields(id)[0]
		price, ok := prices[base]
		if !ok {
			warnDroppedStock(id)
			continue
		}
		normWeights[base] = normWeights[base].Add(w)
		lotPrices[base] = price.Mul(decimal.NewFromInt(int64(boardLot)))
	}

	effectiveFund := fund
	if cfg.Leverage > 1 {
		effectiveFund = fund.Mul(decimal.NewFromFloat(cfg.Leverage))
	}

	// бюджет масштабируется на 10^precision, лоты делятся обратно:
	// так жадный алгоритм остаётся целочисленным
	multiple := decimal.New(1, int32(precision))
	allocation, _ := GreedyAllocation(normWeights, lotPrices, effectiveFund.Mul(multiple))

	stocks := map[string]decimal.Decimal{}
	for id, lots := range allocation {
		q := decimal.NewFromInt(lots).Div(multiple)
		if !cfg.OddLot {
			q = q.Round(0)
		}
		stocks[id] = q
	}

	long, short, err := cfg.Position.conditions()
	if err != nil {
		return Position{}, err
	}
	pos := newPosition(stocks, normWeights, long, short)

	if cfg.Leverage > 1 {
		if cfg.PriceHistory == nil {
			return Position{}, errors.New("price history must be provided when leverage > 1")
		}
		pos, err = ApplyLeverage(pos, prices, cfg.PriceHistory, cfg.Leverage, boardLot)
		if err != nil {
			return Position{}, err
		}
	}
	return pos, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
