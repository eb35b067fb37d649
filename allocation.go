package rebal

// Жадное распределение капитала: непрерывные веса превращаются в целые лоты
// при ограничении на бюджет. Портфель с короткими весами режется на длинную и
// короткую части, каждая распределяется отдельно

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

type allocationItem struct {
	stockID string
	weight  decimal.Decimal
}

// GreedyAllocation распределяет fund по бумагам пропорционально весам и
// возвращает количество лотов на бумагу вместе с нераспределённым остатком.
// Бумаги без цены или с нулевой ценой выбывают до распределения.
// Инвариант: суммарная стоимость купленного никогда не превышает fund.
func GreedyAllocation(weights, prices map[string]decimal.Decimal, fund decimal.Decimal) (map[string]int64, decimal.Decimal) {
	items := make([]allocationItem, 0, len(weights))
	for id, w := range weights {
		price, ok := prices[id]
		if !ok || price.IsZero() {
			continue
		}
		items = append(items, allocationItem{stockID: id, weight: w})
	}
	if len(items) == 0 {
		return map[string]int64{}, fund
	}

	// сортировка по убыванию веса, при равенстве - по коду бумаги,
	// чтобы результат был воспроизводим
	slices.SortFunc(items, func(a, b allocationItem) bool {
		if !a.weight.Equal(b.weight) {
			return a.weight.GreaterThan(b.weight)
		}
		return a.stockID < b.stockID
	})

	if items[len(items)-1].weight.IsNegative() {
		return allocateLongShort(items, prices, fund)
	}
	return allocateLong(items, prices, fund)
}

// длинная и короткая части нормируются к единице, бюджет делится
// пропорционально массе весов, затем рекурсия по каждой части
func allocateLongShort(items []allocationItem, prices map[string]decimal.Decimal, fund decimal.Decimal) (map[string]int64, decimal.Decimal) {
	longs := map[string]decimal.Decimal{}
	shorts := map[string]decimal.Decimal{}
	longTotal := decimal.Zero
	shortTotal := decimal.Zero
	for _, it := range items {
		if it.weight.IsNegative() {
			shorts[it.stockID] = it.weight.Neg()
			shortTotal = shortTotal.Add(it.weight.Neg())
		} else {
			longs[it.stockID] = it.weight
			longTotal = longTotal.Add(it.weight)
		}
	}
	for id, w := range longs {
		if !longTotal.IsZero() {
			longs[id] = w.Div(longTotal)
		}
	}
	for id, w := range shorts {
		if !shortTotal.IsZero() {
			shorts[id] = w.Div(shortTotal)
		}
	}

	longAlloc, longLeft := GreedyAllocation(longs, prices, fund)
	shortAlloc, shortLeft := GreedyAllocation(shorts, prices, fund.Mul(shortTotal))

	allocation := map[string]int64{}
	for id, lots := range longAlloc {
		if lots != 0 {
			allocation[id] = lots
		}
	}
	for id, lots := range shortAlloc {
		if lots != 0 {
			allocation[id] = -lots
		}
	}
	return allocation, longLeft.Add(shortLeft)
}

func allocateLong(items []allocationItem, prices map[string]decimal.Decimal, fund decimal.Decimal) (map[string]int64, decimal.Decimal) {
	available := fund
	shares := make([]int64, len(items))

	// первый проход: по floor(weight*fund/price) лотов на бумагу.
	// веса <= 1 и округление вниз гарантируют, что бюджет не превышен
	for i, it := range items {
		price := prices[it.stockID]
		n := it.weight.Mul(fund).Div(price).Floor().IntPart()
		if n < 0 {
			n = 0
		}
		cost := price.Mul(decimal.NewFromInt(n))
		available = available.Sub(cost)
		shares[i] = n
	}

	// второй проход: докупаем по одному лоту той бумаге, чей фактический вес
	// сильнее всего отстаёт от целевого, пока хватает остатка
	for available.IsPositive() {
		spent := make([]float64, len(items))
		total := 0.0
		for i, it := range items {
			price, _ := prices[it.stockID].Float64()
			spent[i] = price * float64(shares[i])
			total += spent[i]
		}
		deficit := make([]float64, len(items))
		for i, it := range items {
			realized := 0.0
			if total != 0 {
				realized = spent[i] / total
			}
			w, _ := it.weight.Float64()
			deficit[i] = w - realized
		}

		idx := argmax(deficit)
		price := prices[items[idx].stockID]

		// если бумага не по карману, ищем следующий по величине дефицит,
		// не больше 10 попыток за итерацию
		counter := 0
		for price.GreaterThan(available) {
			deficit[idx] = 0
			idx = argmax(deficit)
			if deficit[idx] < 0 || counter == 10 {
				break
			}
			price = prices[items[idx].stockID]
			counter++
		}
		if deficit[idx] <= 0 || counter == 10 {
			break
		}

		shares[idx]++
		available = available.Sub(price)
	}

	allocation := make(map[string]int64, len(items))
	for i, it := range items {
		allocation[it.stockID] = shares[i]
	}
	return allocation, available
}

func argmax(values []float64) int {
	idx := 0
	for i, v := range values {
		if v > values[idx] {
			idx = i
		}
	}
	return idx
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
