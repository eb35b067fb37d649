package rebal

import (
	"context"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// OrderExecutor сверяет целевой портфель с брокерским счётом и выставляет
// заявки, закрывающие расхождение. Внутри одного вызова работает по одному
// снимку котировок и позиции. Параллельные вызовы по одному счёту должен
// сериализовать вызывающий, иначе возможна гонка снятия и выставления заявок
type OrderExecutor struct {
	target  Position
	account Account
}

func NewOrderExecutor(target Position, account Account) *OrderExecutor {
	return &OrderExecutor{target: target, account: account}
}

func (e *OrderExecutor) TargetPosition() Position {
	return e.target
}

// Режим исполнения заявок. MarketOrder, BestPriceLimit и ненулевой ExtraBidPct
// взаимоисключающие.
type ExecuteConfig struct {
	MarketOrder    bool            // покупка по верхнему лимиту, продажа по нижнему: исполнить как можно быстрее
	BestPriceLimit bool            // покупка по нижнему лимиту, продажа по верхнему: пассивная цена
	ExtraBidPct    decimal.Decimal // сдвиг лимитной цены в долях, от -0.1 до 0.1
	ViewOnly       bool            // только вернуть расчитанные заявки, ничего не выставлять
	BuyOnly        bool            // выставлять только покупки
	SellOnly       bool            // выставлять только продажи
}

// Параметры полного цикла CreateOrders.
type CreateConfig struct {
	ExecuteConfig
	Progress          float64 // доля расхождения к исполнению; ноль трактуется как 1
	ProgressPrecision int32   // знаков дробной части лота при масштабировании Progress
}

var extraBidLimit = decimal.RequireFromString("0.1")

// CancelOrders снимает все активные заявки счёта. Неудачное снятие одной
// заявки не останавливает остальные: ошибки копятся и пишутся в лог.
func (e *OrderExecutor) CancelOrders(ctx context.Context) error {
	orders, err := e.account.GetOrders(ctx)
	if err != nil {
		return errors.Wrap(err, "get orders")
	}

	var errs error
	for _, id := range sortedOrderIDs(orders) {
		if !orders[id].IsActive() {
			continue
		}
		if err := e.account.CancelOrder(ctx, id); err != nil {
			l.Warn("не смог снять заявку",
				zap.String("order_id", id),
				zap.String("stock_id", orders[id].StockID),
				zap.Error(err),
			)
			errs = multierror.Append(errs, err)
			continue
		}
		orderCancelledMetric.Inc()
	}
	if errs != nil {
		l.Warn("часть заявок осталась не снятой", zap.Error(errs))
	}
	return nil
}

// GenerateOrders считает расхождение между целевым портфелем и счётом.
// При progress меньше единицы количества масштабируются и округляются до
// progressPrecision знаков - так портфель можно перекладывать поэтапно.
// Повторный вызов без изменений на счёте возвращает тот же результат.
func (e *OrderExecutor) GenerateOrders(ctx context.Context, progress float64, progressPrecision int32) ([]PositionEntry, error) {
	if progress < 0 || progress > 1 {
		return nil, errors.New("progress should be in the range of 0 to 1")
	}

	target := e.target
	if bc, ok := e.account.(BaseCurrencyProvider); ok {
		stripped, err := stripBaseCurrency(target, bc.BaseCurrency())
		if err != nil {
			return nil, err
		}
		target = stripped
	}

	current, err := e.account.GetPosition(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get position")
	}

	entries := target.Sub(current).Entries()
	if progress != 1 {
		scale := decimal.NewFromFloat(progress)
		for i := range entries {
			entries[i].Quantity = entries[i].Quantity.Mul(scale).Round(progressPrecision)
		}
	}

	for _, en := range entries {
		qty, _ := en.Quantity.Float64()
		orderQuantityMetric.WithLabelValues(en.StockID, en.OrderCondition.String()).Set(qty)
	}
	return entries, nil
}

// у крипто-счетов тикер обязан заканчиваться на базовую валюту,
// перед сверкой суффикс отрезается
func stripBaseCurrency(target Position, base string) (Position, error) {
	entries := target.Entries()
	for i, en := range entries {
		if !strings.HasSuffix(en.StockID, base) {
			return Position{}, errors.Errorf("stock id %s does not end with %s", en.StockID, base)
		}
		entries[i].StockID = strings.TrimSuffix(en.StockID, base)
	}
	return PositionFromEntries(entries), nil
}

// ExecuteOrders выставляет заявки по списку расхождений. Проверки аргументов
// выполняются до любых обращений к счёту. Бумага без котировки пропускается с
// предупреждением; нулевая опорная цена после всех запасных вариантов -
// ошибка всего вызова.
func (e *OrderExecutor) ExecuteOrders(ctx context.Context, orders []PositionEntry, cfg ExecuteConfig) ([]PositionEntry, error) {
	exclusive := 0
	for _, set := range []bool{cfg.MarketOrder, cfg.BestPriceLimit, !cfg.ExtraBidPct.IsZero()} {
		if set {
			exclusive++
		}
	}
	if exclusive > 1 {
		return nil, errors.New("only one of market order, best price limit, or extra bid pct can be set")
	}
	if cfg.ExtraBidPct.LessThan(extraBidLimit.Neg()) || cfg.ExtraBidPct.GreaterThan(extraBidLimit) {
		return nil, errors.New("extra bid pct is out of the valid range -0.1 to 0.1")
	}
	if cfg.BuyOnly && cfg.SellOnly {
		return nil, errors.New("buy only and sell only cannot be set at the same time")
	}

	stocks, err := e.account.GetStocks(ctx, orderStockIDs(orders))
	if err != nil {
		return nil, errors.Wrap(err, "get stocks")
	}

	var pinfo map[string]PriceLimit
	if provider, ok := e.account.(PriceInfoProvider); ok {
		pinfo, err = provider.GetPriceInfo(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "get price info")
		}
	}

	for _, o := range orders {
		if o.Quantity.IsZero() {
			continue
		}
		action := Buy
		if o.Quantity.IsNegative() {
			action = Sell
		}
		if cfg.BuyOnly && action == Sell {
			continue
		}
		if cfg.SellOnly && action == Buy {
			continue
		}

		stock, ok := stocks[o.StockID]
		if !ok {
			l.Warn("нет котировки по бумаге, заявка пропущена", zap.String("stock_id", o.StockID))
			continue
		}

		price, err := referencePrice(stock, action)
		if err != nil {
			return nil, err
		}

		if !cfg.ExtraBidPct.IsZero() {
			pct := cfg.ExtraBidPct
			if action == Sell {
				pct = pct.Neg()
			}
			price = CalculatePriceWithExtraBid(price, pct)
		}
		price = clampToLimits(price, o.StockID, pinfo)

		l.Info("выставляю заявку",
			zap.String("action", action.String()),
			zap.String("stock_id", o.StockID),
			zap.String("quantity", o.Quantity.Abs().Round(3).String()),
			zap.String("price", priceLabel(price, action, cfg)),
			zap.String("order_condition", o.OrderCondition.String()),
		)

		if cfg.ViewOnly {
			continue
		}

		quantity := o.Quantity.Abs()
		boardLots := quantity.Floor()
		oddShares := quantity.Sub(boardLots).Mul(decimal.NewFromInt(1000)).Round(0)
		flags := OrderFlags{MarketOrder: cfg.MarketOrder, BestPriceLimit: cfg.BestPriceLimit}

		if e.account.SepOddLotOrder() {
			if !oddShares.IsZero() {
				oddFlags := flags
				oddFlags.OddLot = true
				if err := e.create(ctx, action, o.StockID, oddShares, price, o.OrderCondition, oddFlags); err != nil {
					return nil, err
				}
			}
			if !boardLots.IsZero() {
				if err := e.create(ctx, action, o.StockID, boardLots, price, o.OrderCondition, flags); err != nil {
					return nil, err
				}
			}
		} else {
			if err := e.create(ctx, action, o.StockID, quantity, price, o.OrderCondition, flags); err != nil {
				return nil, err
			}
		}
	}
	return orders, nil
}

// CreateOrders выполняет полный цикл: снять активные заявки, посчитать
// расхождение, выставить новые заявки.
func (e *OrderExecutor) CreateOrders(ctx context.Context, cfg CreateConfig) ([]PositionEntry, error) {
	if cfg.Progress == 0 {
		cfg.Progress = 1
	}
	if err := e.CancelOrders(ctx); err != nil {
		return nil, err
	}
	orders, err := e.GenerateOrders(ctx, cfg.Progress, cfg.ProgressPrecision)
	if err != nil {
		return nil, err
	}
	return e.ExecuteOrders(ctx, orders, cfg.ExecuteConfig)
}

// UpdateOrderPrice переставляет активные заявки по свежей котировке, чтобы
// неисполненный лимитник догонял цену. Заявка с уже актуальной ценой не
// трогается - меньше перестановок, меньше давление на лимиты брокера.
func (e *OrderExecutor) UpdateOrderPrice(ctx context.Context, extraBidPct decimal.Decimal) error {
	if extraBidPct.LessThan(extraBidLimit.Neg()) || extraBidPct.GreaterThan(extraBidLimit) {
		return errors.New("extra bid pct is out of the valid range -0.1 to 0.1")
	}

	orders, err := e.account.GetOrders(ctx)
	if err != nil {
		return errors.Wrap(err, "get orders")
	}

	ids := map[string]bool{}
	for _, o := range orders {
		if o.IsActive() {
			ids[o.StockID] = true
		}
	}
	stockIDs := make([]string, 0, len(ids))
	for id := range ids {
		stockIDs = append(stockIDs, id)
	}
	sort.Strings(stockIDs)

	stocks, err := e.account.GetStocks(ctx, stockIDs)
	if err != nil {
		return errors.Wrap(err, "get stocks")
	}

	var pinfo map[string]PriceLimit
	if provider, ok := e.account.(PriceInfoProvider); ok {
		pinfo, err = provider.GetPriceInfo(ctx)
		if err != nil {
			return errors.Wrap(err, "get price info")
		}
	}

	for _, id := range sortedOrderIDs(orders) {
		o := orders[id]
		if !o.IsActive() {
			continue
		}
		stock, ok := stocks[o.StockID]
		if !ok {
			l.Warn("нет котировки по бумаге, заявка не переставлена", zap.String("stock_id", o.StockID))
			continue
		}

		// обе цены приведены к decimal, сравнение без сюрпризов смешанных типов
		price := stock.Close
		if o.Price.Equal(price) {
			continue
		}

		pct := extraBidPct
		if o.Action == Sell {
			pct = pct.Neg()
		}
		price = CalculatePriceWithExtraBid(price, pct)
		price = clampToLimits(price, o.StockID, pinfo)

		if err := e.account.UpdateOrder(ctx, id, &price, nil); err != nil {
			return errors.Wrapf(err, "update order %s", id)
		}
		orderUpdatedMetric.Inc()
	}
	return nil
}

// Сводная строка по бумаге для наблюдения за ходом синхронизации.
type OrderInfo struct {
	StockID         string
	OrderCondition  OrderCondition
	Price           decimal.Decimal
	CurrentQuantity decimal.Decimal
	TargetQuantity  decimal.Decimal
	OrderQuantity   decimal.Decimal
}

// OrderInfo возвращает по каждой бумаге текущее, целевое количество и размер
// необходимой заявки, отсортированные по убыванию стоимости заявки.
func (e *OrderExecutor) OrderInfo(ctx context.Context) ([]OrderInfo, error) {
	current, err := e.account.GetPosition(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get position")
	}

	var rows []OrderInfo
	ids := map[string]bool{}
	for _, cond := range orderConditions {
		tq := e.target.SumQuantities(cond)
		cq := current.SumQuantities(cond)
		union := map[string]decimal.Decimal{}
		for id, q := range tq {
			union[id] = q
		}
		for id := range cq {
			union[id] = union[id]
		}
		for _, id := range sortedKeys(union) {
			rows = append(rows, OrderInfo{
				StockID:         id,
				OrderCondition:  cond,
				CurrentQuantity: cq[id],
				TargetQuantity:  tq[id],
				OrderQuantity:   tq[id].Sub(cq[id]),
			})
			ids[id] = true
		}
	}

	stockIDs := make([]string, 0, len(ids))
	for id := range ids {
		stockIDs = append(stockIDs, id)
	}
	sort.Strings(stockIDs)
	stocks, err := e.account.GetStocks(ctx, stockIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get stocks")
	}
	for i := range rows {
		if s, ok := stocks[rows[i].StockID]; ok {
			rows[i].Price = s.Close
		}
	}

	slices.SortStableFunc(rows, func(a, b OrderInfo) bool {
		return a.OrderQuantity.Mul(a.Price).GreaterThan(b.OrderQuantity.Mul(b.Price))
	})
	return rows, nil
}

func (e *OrderExecutor) create(ctx context.Context, action Action, stockID string, quantity, price decimal.Decimal, cond OrderCondition, flags OrderFlags) error {
	if _, err := e.account.CreateOrder(ctx, action, stockID, quantity, price, cond, flags); err != nil {
		return errors.Wrapf(err, "create order %s %s", action, stockID)
	}
	orderCreatedMetric.WithLabelValues(action.String(), cond.String()).Inc()
	return nil
}

// опорная цена: последняя сделка, затем лучшая встречная котировка.
// если и она нулевая, бумагу нечем оценить - ошибка вызова
func referencePrice(stock Stock, action Action) (decimal.Decimal, error) {
	price := stock.Close
	if price.IsZero() {
		if action == Buy {
			price = stock.BidPrice
		} else {
			price = stock.AskPrice
		}
	}
	if price.IsZero() {
		return decimal.Zero, errors.Errorf("reference price for %s resolves to zero", stock.StockID)
	}
	return price, nil
}

func clampToLimits(price decimal.Decimal, stockID string, pinfo map[string]PriceLimit) decimal.Decimal {
	limit, ok := pinfo[stockID]
	if !ok {
		l.Warn("нет информации о ценовых лимитах", zap.String("stock_id", stockID))
		return price
	}
	if price.LessThan(limit.LimitDown) {
		price = limit.LimitDown
	}
	if price.GreaterThan(limit.LimitUp) {
		price = limit.LimitUp
	}
	return price
}

// подпись цены в логе: рыночная и пассивная заявки идут по лимитам сессии
func priceLabel(price decimal.Decimal, action Action, cfg ExecuteConfig) string {
	switch {
	case cfg.BestPriceLimit && action == Buy, cfg.MarketOrder && action == Sell:
		return "LOWEST"
	case cfg.BestPriceLimit && action == Sell, cfg.MarketOrder && action == Buy:
		return "HIGHEST"
	default:
		return price.String()
	}
}

func orderStockIDs(orders []PositionEntry) []string {
	ids := map[string]bool{}
	for _, o := range orders {
		ids[o.StockID] = true
	}
	result := make([]string, 0, len(ids))
	for id := range ids {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

func sortedOrderIDs(orders map[string]Order) []string {
	ids := make([]string, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
