package paper

// Счёт-симулятор в памяти: реализация rebal.Account для тестов и прогона
// синхронизации без живого брокера. Заявки копятся как активные, исполнение
// запускается явно через Fill

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/go-trading/rebal"
)

var _ rebal.Account = (*Account)(nil)
var _ rebal.PriceInfoProvider = (*Account)(nil)

type positionKey struct {
	stockID string
	cond    rebal.OrderCondition
}

// Счётчики действий по счёту, удобны в тестах и при отладке стратегий.
type Stats struct {
	Created   int
	Updated   int
	Cancelled int
	Filled    int
}

type Config struct {
	Balance        decimal.Decimal
	BoardLotSize   int  // акций в лоте, для пересчёта неполных лотов при исполнении; по умолчанию 1000
	SepOddLotOrder bool // выставлять ли неполные лоты отдельными заявками
}

type Account struct {
	mu        sync.Mutex
	balance   decimal.Decimal
	boardLot  decimal.Decimal
	sepOddLot bool
	positions map[positionKey]decimal.Decimal
	orders    map[string]rebal.Order
	oddLots   map[string]bool // заявки, у которых количество задано в акциях
	stocks    map[string]rebal.Stock
	limits    map[string]rebal.PriceLimit
	stats     Stats
	now       func() time.Time
}

func NewAccount(cfg Config) *Account {
	boardLot := cfg.BoardLotSize
	if boardLot <= 0 {
		boardLot = 1000
	}
	return &Account{
		balance:   cfg.Balance,
		boardLot:  decimal.NewFromInt(int64(boardLot)),
		sepOddLot: cfg.SepOddLotOrder,
		positions: map[positionKey]decimal.Decimal{},
		orders:    map[string]rebal.Order{},
		oddLots:   map[string]bool{},
		stocks:    map[string]rebal.Stock{},
		limits:    map[string]rebal.PriceLimit{},
		now:       time.Now,
	}
}

// SetStock задаёт котировку, которую счёт будет отдавать в GetStocks.
func (a *Account) SetStock(s rebal.Stock) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stocks[s.StockID] = s
}

// SetPriceLimit задаёт лимиты цены сессии по бумаге.
func (a *Account) SetPriceLimit(stockID string, limit rebal.PriceLimit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.limits[stockID] = limit
}

// SeedPosition замещает портфель счёта, минуя заявки.
func (a *Account) SeedPosition(pos rebal.Position) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.positions = map[positionKey]decimal.Decimal{}
	for _, e := range pos.Entries() {
		a.positions[positionKey{e.StockID, e.OrderCondition}] = e.Quantity
	}
}

func (a *Account) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

func (a *Account) GetPosition(_ context.Context) (rebal.Position, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var entries []rebal.PositionEntry
	for k, q := range a.positions {
		entries = append(entries, rebal.PositionEntry{
			StockID:        k.stockID,
			Quantity:       q,
			OrderCondition: k.cond,
		})
	}
	return rebal.PositionFromEntries(entries), nil
}

func (a *Account) GetOrders(_ context.Context) (map[string]rebal.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make(map[string]rebal.Order, len(a.orders))
	for id, o := range a.orders {
		result[id] = o
	}
	return result, nil
}

func (a *Account) GetStocks(_ context.Context, ids []string) (map[string]rebal.Stock, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := map[string]rebal.Stock{}
	for _, id := range ids {
		if s, ok := a.stocks[id]; ok {
			result[id] = s
		}
	}
	return result, nil
}

func (a *Account) GetPriceInfo(_ context.Context) (map[string]rebal.PriceLimit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make(map[string]rebal.PriceLimit, len(a.limits))
	for id, limit := range a.limits {
		result[id] = limit
	}
	return result, nil
}

func (a *Account) CreateOrder(_ context.Context, action rebal.Action, stockID string, quantity, price decimal.Decimal, cond rebal.OrderCondition, flags rebal.OrderFlags) (string, error) {
	if !quantity.IsPositive() {
		return "", errors.Errorf("order quantity must be positive, got %s", quantity)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	id := uuid.New().String()
	a.orders[id] = rebal.Order{
		OrderID:        id,
		StockID:        stockID,
		Action:         action,
		Price:          price,
		Quantity:       quantity,
		Status:         rebal.StatusNew,
		OrderCondition: cond,
		Time:           a.now().UTC(),
	}
	a.oddLots[id] = flags.OddLot
	a.stats.Created++

	l.Debug("принял заявку",
		zap.String("order_id", id),
		zap.String("action", action.String()),
		zap.String("stock_id", stockID),
		zap.String("quantity", quantity.String()),
		zap.String("price", price.String()),
		zap.Bool("odd_lot", flags.OddLot),
	)
	return id, nil
}

func (a *Account) UpdateOrder(_ context.Context, orderID string, price, quantity *decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.orders[orderID]
	if !ok {
		return errors.Errorf("order %s not found", orderID)
	}
	if !o.IsActive() {
		return errors.Errorf("order %s is not active", orderID)
	}
	if price != nil {
		o.Price = *price
	}
	if quantity != nil {
		o.Quantity = *quantity
	}
	a.orders[orderID] = o
	a.stats.Updated++
	return nil
}

func (a *Account) CancelOrder(_ context.Context, orderID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.orders[orderID]
	if !ok {
		return errors.Errorf("order %s not found", orderID)
	}
	if !o.IsActive() {
		return errors.Errorf("order %s is not active", orderID)
	}
	o.Status = rebal.StatusCancel
	a.orders[orderID] = o
	a.stats.Cancelled++
	return nil
}

func (a *Account) GetTotalBalance(_ context.Context) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance, nil
}

func (a *Account) SepOddLotOrder() bool {
	return a.sepOddLot
}

// Fill исполняет активную заявку целиком по её лимитной цене: позиция и баланс
// меняются, заявка помечается исполненной. Неполные лоты приходят в акциях и
// пересчитываются в доли лота.
func (a *Account) Fill(orderID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.orders[orderID]
	if !ok {
		return errors.Errorf("order %s not found", orderID)
	}
	if !o.IsActive() {
		return errors.Errorf("order %s is not active", orderID)
	}

	lots := o.Quantity
	if a.oddLots[orderID] {
		lots = lots.Div(a.boardLot)
	}
	signed := lots
	if o.Action == rebal.Sell {
		signed = signed.Neg()
	}

	key := positionKey{o.StockID, o.OrderCondition}
	q := a.positions[key].Add(signed)
	if q.IsZero() {
		delete(a.positions, key)
	} else {
		a.positions[key] = q
	}

	cost := lots.Mul(a.boardLot).Mul(o.Price)
	if o.Action == rebal.Buy {
		a.balance = a.balance.Sub(cost)
	} else {
		a.balance = a.balance.Add(cost)
	}

	o.Status = rebal.StatusFilled
	a.orders[orderID] = o
	a.stats.Filled++
	return nil
}

// FillAll исполняет все активные заявки.
func (a *Account) FillAll() error {
	for id, o := range a.ordersSnapshot() {
		if !o.IsActive() {
			continue
		}
		if err := a.Fill(id); err != nil {
			return err
		}
	}
	return nil
}

func (a *Account) ordersSnapshot() map[string]rebal.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make(map[string]rebal.Order, len(a.orders))
	for id, o := range a.orders {
		result[id] = o
	}
	return result
}

var _ rebal.BaseCurrencyProvider = (*CryptoAccount)(nil)

// CryptoAccount - тот же симулятор, но с базовой валютой в тикерах:
// целевые позиции вида BTCUSDT сверяются с позициями счёта вида BTC.
type CryptoAccount struct {
	*Account
	base string
}

func NewCryptoAccount(cfg Config, baseCurrency string) *CryptoAccount {
	return &CryptoAccount{Account: NewAccount(cfg), base: baseCurrency}
}

func (a *CryptoAccount) BaseCurrency() string {
	return a.base
}
