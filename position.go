package rebal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// Одна строка портфеля: бумага, количество в лотах и режим финансирования.
// Вес заполняется только при построении позиции из весов и протаскивается
// через арифметику, пока он есть у обоих операндов
type PositionEntry struct {
	StockID        string           `json:"stock_id"`
	Quantity       decimal.Decimal  `json:"quantity"`
	OrderCondition OrderCondition   `json:"order_condition"`
	Weight         *decimal.Decimal `json:"weight,omitempty"`
}

// Position - неизменяемое описание портфеля. Все операции возвращают новое
// значение, ключ строки - пара (бумага, режим финансирования), нулевые
// количества не хранятся.
type Position struct {
	entries []PositionEntry
}

// Выбор режимов финансирования для длинной и короткой части портфеля.
type PositionConfig struct {
	MarginTrading   bool // длинные позиции за счёт маржинального кредита
	ShortSelling    bool // короткие позиции через займ бумаг
	DayTradingLong  bool // внутридневная, сначала покупка
	DayTradingShort bool // внутридневная, сначала продажа
}

func (c PositionConfig) conditions() (long, short OrderCondition, err error) {
	if c.MarginTrading && c.DayTradingLong {
		return 0, 0, errors.New("margin trading and day trading long cannot be combined")
	}
	if c.ShortSelling && c.DayTradingShort {
		return 0, 0, errors.New("short selling and day trading short cannot be combined")
	}
	long, short = Cash, Cash
	if c.MarginTrading {
		long = MarginTrading
	} else if c.DayTradingLong {
		long = DayTradingLong
	}
	if c.ShortSelling {
		short = ShortSelling
	} else if c.DayTradingShort {
		short = DayTradingShort
	}
	return long, short, nil
}

// NewPosition строит портфель из количеств в лотах. Положительные количества
// попадают в CASH как длинные, отрицательные - как короткие.
func NewPosition(stocks map[string]decimal.Decimal) Position {
	p, _ := NewPositionWithConfig(stocks, PositionConfig{})
	return p
}

// NewPositionWithConfig строит портфель, выбирая режимы финансирования по
// конфигурации. Конфликтующие режимы - ошибка.
func NewPositionWithConfig(stocks map[string]decimal.Decimal, cfg PositionConfig) (Position, error) {
	long, short, err := cfg.conditions()
	if err != nil {
		return Position{}, err
	}
	return newPosition(stocks, nil, long, short), nil
}

func newPosition(stocks, weights map[string]decimal.Decimal, long, short OrderCondition) Position {
	ids := make([]string, 0, len(stocks))
	for id := range stocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var entries []PositionEntry
	for _, id := range ids {
		q := stocks[id]
		if q.IsZero() {
			continue
		}
		cond := long
		if q.IsNegative() {
			cond = short
		}
		e := PositionEntry{StockID: id, Quantity: q, OrderCondition: cond}
		if w, ok := weights[id]; ok {
			w := w
			e.Weight = &w
		}
		entries = append(entries, e)
	}
	sortEntries(entries)
	return Position{entries: entries}
}

// PositionFromEntries нормализует произвольный список строк: дубли по ключу
// (бумага, режим) складываются, нулевые количества выбрасываются.
func PositionFromEntries(entries []PositionEntry) Position {
	type key struct {
		id   string
		cond OrderCondition
	}
	qty := map[key]decimal.Decimal{}
	wgt := map[key]decimal.Decimal{}
	hasW := map[key]bool{}
	order := []key{}
	for _, e := range entries {
		k := key{e.StockID, e.OrderCondition}
		if _, ok := qty[k]; !ok {
			order = append(order, k)
		}
		qty[k] = qty[k].Add(e.Quantity)
		if e.Weight != nil {
			wgt[k] = wgt[k].Add(*e.Weight)
			hasW[k] = true
		}
	}

	var result []PositionEntry
	for _, k := range order {
		q := qty[k]
		if q.IsZero() {
			continue
		}
		e := PositionEntry{StockID: k.id, Quantity: q, OrderCondition: k.cond}
		if hasW[k] {
			w := wgt[k]
			e.Weight = &w
		}
		result = append(result, e)
	}
	sortEntries(result)
	return Position{entries: result}
}

// строки в каноническом порядке: сначала по режиму, затем по бумаге
func sortEntries(entries []PositionEntry) {
	slices.SortFunc(entries, func(a, b PositionEntry) bool {
		if a.OrderCondition != b.OrderCondition {
			return a.OrderCondition < b.OrderCondition
		}
		return a.StockID < b.StockID
	})
}

// Entries возвращает копию строк портфеля.
func (p Position) Entries() []PositionEntry {
	result := make([]PositionEntry, len(p.entries))
	for i, e := range p.entries {
		result[i] = e
		if e.Weight != nil {
			w := *e.Weight
			result[i].Weight = &w
		}
	}
	return result
}

func (p Position) IsEmpty() bool {
	return len(p.entries) == 0
}

// пустая позиция считается носителем весов, как и позиция,
// где вес есть хотя бы у одной строки
func hasWeight(entries []PositionEntry) bool {
	if len(entries) == 0 {
		return true
	}
	for _, e := range entries {
		if e.Weight != nil {
			return true
		}
	}
	return false
}

func (p Position) Add(other Position) Position { return p.combine(other, false) }
func (p Position) Sub(other Position) Position { return p.combine(other, true) }

// арифметика идёт независимо по каждому режиму финансирования: CASH никогда
// не схлопывается с MARGIN_TRADING по той же бумаге
func (p Position) combine(other Position, subtract bool) Position {
	withWeight := hasWeight(p.entries) && hasWeight(other.entries)

	var result []PositionEntry
	for _, cond := range orderConditions {
		q1 := sumByCondition(p.entries, cond, quantityOf)
		q2 := sumByCondition(other.entries, cond, quantityOf)
		qs := combineMaps(q1, q2, subtract)

		var ws map[string]decimal.Decimal
		if withWeight {
			w1 := sumByCondition(p.entries, cond, weightOf)
			w2 := sumByCondition(other.entries, cond, weightOf)
			ws = combineMaps(w1, w2, subtract)
		}

		ids := make([]string, 0, len(qs))
		for id := range qs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			e := PositionEntry{StockID: id, Quantity: qs[id], OrderCondition: cond}
			if withWeight {
				w := ws[id]
				e.Weight = &w
			}
			result = append(result, e)
		}
	}
	return Position{entries: result}
}

func quantityOf(e PositionEntry) decimal.Decimal { return e.Quantity }

func weightOf(e PositionEntry) decimal.Decimal {
	if e.Weight == nil {
		return decimal.Zero
	}
	return *e.Weight
}

func sumByCondition(entries []PositionEntry, cond OrderCondition, attr func(PositionEntry) decimal.Decimal) map[string]decimal.Decimal {
	result := map[string]decimal.Decimal{}
	for _, e := range entries {
		if e.OrderCondition == cond {
			result[e.StockID] = result[e.StockID].Add(attr(e))
		}
	}
	return result
}

// объединение по ключам, точные нули выбрасываются
func combineMaps(m1, m2 map[string]decimal.Decimal, subtract bool) map[string]decimal.Decimal {
	result := map[string]decimal.Decimal{}
	for id, v := range m1 {
		result[id] = v
	}
	for id, v := range m2 {
		if subtract {
			result[id] = result[id].Sub(v)
		} else {
			result[id] = result[id].Add(v)
		}
	}
	for id, v := range result {
		if v.IsZero() {
			delete(result, id)
		}
	}
	return result
}

// MulScalar умножает количества (и веса, если они есть) на скаляр.
func (p Position) MulScalar(scalar decimal.Decimal) Position {
	withWeight := hasWeight(p.entries)
	entries := make([]PositionEntry, 0, len(p.entries))
	for _, e := range p.entries {
		q := e.Quantity.Mul(scalar)
		if q.IsZero() {
			continue
		}
		ne := PositionEntry{StockID: e.StockID, Quantity: q, OrderCondition: e.OrderCondition}
		if withWeight && e.Weight != nil {
			w := e.Weight.Mul(scalar)
			ne.Weight = &w
		}
		entries = append(entries, ne)
	}
	return Position{entries: entries}
}

// DivScalar делит количества (и веса, если они есть) на скаляр.
func (p Position) DivScalar(scalar decimal.Decimal) Position {
	withWeight := hasWeight(p.entries)
	entries := make([]PositionEntry, 0, len(p.entries))
	for _, e := range p.entries {
		q := e.Quantity.Div(scalar)
		if q.IsZero() {
			continue
		}
		ne := PositionEntry{StockID: e.StockID, Quantity: q, OrderCondition: e.OrderCondition}
		if withWeight && e.Weight != nil {
			w := e.Weight.Div(scalar)
			ne.Weight = &w
		}
		entries = append(entries, ne)
	}
	return Position{entries: entries}
}

// Equal сравнивает портфели по значению, с точностью до равенства decimal.
func (p Position) Equal(other Position) bool {
	a := p.Entries()
	b := other.Entries()
	sortEntries(a)
	sortEntries(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].StockID != b[i].StockID ||
			a[i].OrderCondition != b[i].OrderCondition ||
			!a[i].Quantity.Equal(b[i].Quantity) {
			return false
		}
		if (a[i].Weight == nil) != (b[i].Weight == nil) {
			return false
		}
		if a[i].Weight != nil && !a[i].Weight.Equal(*b[i].Weight) {
			return false
		}
	}
	return true
}

// SumQuantities складывает количества по бумагам внутри одного режима.
func (p Position) SumQuantities(cond OrderCondition) map[string]decimal.Decimal {
	return sumByCondition(p.entries, cond, quantityOf)
}

// FallBackCash переводит внутридневные режимы в обычную позицию:
// неисполненный за день day-trade остаётся на счёте как CASH
func (p Position) FallBackCash() Position {
	entries := p.Entries()
	for i, e := range entries {
		if e.OrderCondition == DayTradingLong || e.OrderCondition == DayTradingShort {
			entries[i].OrderCondition = Cash
		}
		entries[i].Weight = nil
	}
	return PositionFromEntries(entries)
}

func (p Position) MarshalJSON() ([]byte, error) {
	if p.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.entries)
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var entries []PositionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*p = PositionFromEntries(entries)
	return nil
}

// ToJSON сериализует портфель. Количества и веса кодируются строками,
// чтобы не потерять десятичную точность.
func (p Position) ToJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(p)
}

// PositionFromJSON восстанавливает портфель из снимка, созданного ToJSON.
func PositionFromJSON(r io.Reader) (Position, error) {
	var p Position
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Position{}, errors.Wrap(err, "decode position")
	}
	return p, nil
}

func (p Position) String() string {
	if len(p.entries) == 0 {
		return "empty position"
	}
	var buf bytes.Buffer
	tbl := tabwriter.NewWriter(&buf, 1, 1, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tbl, "stock_id\tquantity\torder_condition\tweight\t")
	for _, e := range p.entries {
		w := ""
		if e.Weight != nil {
			w = e.Weight.String()
		}
		fmt.Fprintf(tbl, "%s\t%s\t%s\t%s\t\n", e.StockID, e.Quantity, e.OrderCondition, w)
	}
	tbl.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

// предупреждение в стиле исходного интерфейса: бумага без цены выбывает
func warnDroppedStock(id string) {
	l.Warn("нет цены по бумаге, она исключена из позиции", zap.String("stock_id", id))
}
