package rebal_test

import (
	"context"
	"testing"

	"github.com/go-trading/rebal"
	"github.com/go-trading/rebal/paper"
	"github.com/shopspring/decimal"
)

func newTestAccount(sepOddLot bool) *paper.Account {
	account := paper.NewAccount(paper.Config{
		Balance:        d("10000000"),
		BoardLotSize:   1000,
		SepOddLotOrder: sepOddLot,
	})
	account.SetStock(quote("1101", "37.35"))
	account.SetStock(quote("2330", "563"))
	return account
}

func TestCreateOrdersEndToEnd(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(false)
	account.SeedPosition(rebal.NewPosition(decimalMap(map[string]string{"2330": "2"})))

	target := rebal.NewPosition(decimalMap(map[string]string{"1101": "1", "2330": "3"}))
	executor := rebal.NewOrderExecutor(target, account)

	orders, err := executor.CreateOrders(ctx, rebal.CreateConfig{})
	if err != nil {
		t.Fatal(err)
	}
	want := []rebal.PositionEntry{
		{StockID: "1101", Quantity: d("1"), OrderCondition: rebal.Cash},
		{StockID: "2330", Quantity: d("1"), OrderCondition: rebal.Cash},
	}
	if !entriesEqual(orders, want) {
		t.Errorf("orders = %v, want %v", orders, want)
	}
	if got := account.Stats().Created; got != 2 {
		t.Errorf("создано заявок %d, want 2", got)
	}

	if err := account.FillAll(); err != nil {
		t.Fatal(err)
	}
	pos, err := account.GetPosition(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !pos.Equal(target) {
		t.Errorf("после исполнения портфель %v, want %v", pos, target)
	}
}

func TestGenerateOrdersIdempotent(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(false)
	account.SeedPosition(rebal.NewPosition(decimalMap(map[string]string{"2330": "2"})))
	executor := rebal.NewOrderExecutor(rebal.NewPosition(decimalMap(map[string]string{"2330": "5"})), account)

	first, err := executor.GenerateOrders(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := executor.GenerateOrders(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !entriesEqual(first, second) {
		t.Errorf("повторный вызов без изменений на счёте дал другой результат: %v != %v", second, first)
	}
}

func TestGenerateOrdersProgress(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(false)
	executor := rebal.NewOrderExecutor(rebal.NewPosition(decimalMap(map[string]string{"2330": "10"})), account)

	orders, err := executor.GenerateOrders(ctx, 0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 || !orders[0].Quantity.Equal(d("5")) {
		t.Errorf("progress 0.5 должен дать половину расхождения: %v", orders)
	}

	for _, progress := range []float64{-0.1, 1.1} {
		if _, err := executor.GenerateOrders(ctx, progress, 0); err == nil {
			t.Errorf("progress %v вне диапазона должен быть ошибкой", progress)
		}
	}
}

func TestExecuteOrdersValidation(t *testing.T) {
	ctx := context.Background()
	executor := rebal.NewOrderExecutor(rebal.Position{}, newTestAccount(false))

	cases := []struct {
		name string
		cfg  rebal.ExecuteConfig
	}{
		{"market order и extra bid вместе", rebal.ExecuteConfig{MarketOrder: true, ExtraBidPct: d("0.05")}},
		{"market order и best price вместе", rebal.ExecuteConfig{MarketOrder: true, BestPriceLimit: true}},
		{"extra bid за верхней границей", rebal.ExecuteConfig{ExtraBidPct: d("0.2")}},
		{"extra bid за нижней границей", rebal.ExecuteConfig{ExtraBidPct: d("-0.2")}},
		{"buy only и sell only вместе", rebal.ExecuteConfig{BuyOnly: true, SellOnly: true}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := executor.ExecuteOrders(ctx, nil, c.cfg); err == nil {
				t.Error("ожидали ошибку валидации")
			}
		})
	}
}

func TestExecuteOrdersSideFilters(t *testing.T) {
	ctx := context.Background()
	diff := []rebal.PositionEntry{
		{StockID: "1101", Quantity: d("1"), OrderCondition: rebal.Cash},
		{StockID: "2330", Quantity: d("-1"), OrderCondition: rebal.Cash},
	}

	account := newTestAccount(false)
	executor := rebal.NewOrderExecutor(rebal.Position{}, account)
	if _, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{BuyOnly: true}); err != nil {
		t.Fatal(err)
	}
	orders, _ := account.GetOrders(ctx)
	if len(orders) != 1 {
		t.Fatalf("buy only должен выставить одну заявку, получили %d", len(orders))
	}
	for _, o := range orders {
		if o.Action != rebal.Buy || o.StockID != "1101" {
			t.Errorf("buy only выставил %v", o)
		}
	}

	account = newTestAccount(false)
	executor = rebal.NewOrderExecutor(rebal.Position{}, account)
	if _, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{SellOnly: true}); err != nil {
		t.Fatal(err)
	}
	orders, _ = account.GetOrders(ctx)
	if len(orders) != 1 {
		t.Fatalf("sell only должен выставить одну заявку, получили %d", len(orders))
	}
	for _, o := range orders {
		if o.Action != rebal.Sell || o.StockID != "2330" {
			t.Errorf("sell only выставил %v", o)
		}
	}
}

func TestExecuteOrdersViewOnly(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(false)
	executor := rebal.NewOrderExecutor(rebal.Position{}, account)

	diff := []rebal.PositionEntry{{StockID: "2330", Quantity: d("1"), OrderCondition: rebal.Cash}}
	orders, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{ViewOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if !entriesEqual(orders, diff) {
		t.Errorf("view only должен вернуть расчёт без изменений: %v", orders)
	}
	if got := account.Stats().Created; got != 0 {
		t.Errorf("view only выставил %d заявок", got)
	}
}

func TestExecuteOrdersOddLotSplit(t *testing.T) {
	ctx := context.Background()
	diff := []rebal.PositionEntry{{StockID: "2330", Quantity: d("2.5"), OrderCondition: rebal.Cash}}

	// счёт с раздельными заявками: 2 полных лота и 500 акций неполного
	account := newTestAccount(true)
	executor := rebal.NewOrderExecutor(rebal.Position{}, account)
	if _, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{}); err != nil {
		t.Fatal(err)
	}
	orders, _ := account.GetOrders(ctx)
	if len(orders) != 2 {
		t.Fatalf("ожидали две заявки, получили %d", len(orders))
	}
	seen := map[string]bool{}
	for _, o := range orders {
		seen[o.Quantity.String()] = true
	}
	if !seen["2"] || !seen["500"] {
		t.Errorf("ожидали количества 2 и 500, получили %v", seen)
	}

	// счёт без разделения: одна заявка на 2.5 лота
	account = newTestAccount(false)
	executor = rebal.NewOrderExecutor(rebal.Position{}, account)
	if _, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{}); err != nil {
		t.Fatal(err)
	}
	orders, _ = account.GetOrders(ctx)
	if len(orders) != 1 {
		t.Fatalf("ожидали одну заявку, получили %d", len(orders))
	}
	for _, o := range orders {
		if !o.Quantity.Equal(d("2.5")) {
			t.Errorf("quantity = %s, want 2.5", o.Quantity)
		}
	}
}

func TestExecuteOrdersExtraBidPrice(t *testing.T) {
	ctx := context.Background()

	account := newTestAccount(false)
	account.SetStock(quote("5871", "5.2"))
	executor := rebal.NewOrderExecutor(rebal.Position{}, account)
	diff := []rebal.PositionEntry{{StockID: "5871", Quantity: d("1"), OrderCondition: rebal.Cash}}
	if _, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{ExtraBidPct: d("0.06")}); err != nil {
		t.Fatal(err)
	}
	for _, o := range mustOrders(t, account) {
		if !o.Price.Equal(d("5.51")) {
			t.Errorf("цена покупки = %s, want 5.51", o.Price)
		}
	}

	// для продажи сдвиг зеркалится в минус
	account = newTestAccount(false)
	account.SetStock(quote("5871", "11.05"))
	executor = rebal.NewOrderExecutor(rebal.Position{}, account)
	diff = []rebal.PositionEntry{{StockID: "5871", Quantity: d("-1"), OrderCondition: rebal.Cash}}
	if _, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{ExtraBidPct: d("0.1")}); err != nil {
		t.Fatal(err)
	}
	for _, o := range mustOrders(t, account) {
		if !o.Price.Equal(d("9.95")) {
			t.Errorf("цена продажи = %s, want 9.95", o.Price)
		}
	}
}

func TestExecuteOrdersLimitClamp(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(false)
	account.SetStock(quote("5871", "100"))
	account.SetPriceLimit("5871", rebal.PriceLimit{LimitUp: d("105"), LimitDown: d("95")})
	executor := rebal.NewOrderExecutor(rebal.Position{}, account)

	diff := []rebal.PositionEntry{{StockID: "5871", Quantity: d("1"), OrderCondition: rebal.Cash}}
	if _, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{ExtraBidPct: d("0.06")}); err != nil {
		t.Fatal(err)
	}
	for _, o := range mustOrders(t, account) {
		if !o.Price.Equal(d("105")) {
			t.Errorf("цена должна прижаться к лимиту 105, получили %s", o.Price)
		}
	}
}

func TestExecuteOrdersMissingQuote(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(false)
	executor := rebal.NewOrderExecutor(rebal.Position{}, account)

	diff := []rebal.PositionEntry{
		{StockID: "9999", Quantity: d("1"), OrderCondition: rebal.Cash},
		{StockID: "2330", Quantity: d("1"), OrderCondition: rebal.Cash},
	}
	if _, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{}); err != nil {
		t.Fatal(err)
	}
	if got := account.Stats().Created; got != 1 {
		t.Errorf("бумага без котировки должна пропускаться: создано %d заявок", got)
	}
}

func TestExecuteOrdersReferencePrice(t *testing.T) {
	ctx := context.Background()

	// нулевое закрытие: покупка идёт по лучшей встречной котировке
	account := newTestAccount(false)
	account.SetStock(rebal.Stock{StockID: "5871", BidPrice: d("50")})
	executor := rebal.NewOrderExecutor(rebal.Position{}, account)
	diff := []rebal.PositionEntry{{StockID: "5871", Quantity: d("1"), OrderCondition: rebal.Cash}}
	if _, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{}); err != nil {
		t.Fatal(err)
	}
	for _, o := range mustOrders(t, account) {
		if !o.Price.Equal(d("50")) {
			t.Errorf("опорная цена = %s, want 50", o.Price)
		}
	}

	// нечем оценить бумагу - ошибка всего вызова
	account = newTestAccount(false)
	account.SetStock(rebal.Stock{StockID: "5871"})
	executor = rebal.NewOrderExecutor(rebal.Position{}, account)
	if _, err := executor.ExecuteOrders(ctx, diff, rebal.ExecuteConfig{}); err == nil {
		t.Error("нулевая опорная цена должна быть ошибкой")
	}
}

func TestUpdateOrderPrice(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(false)
	executor := rebal.NewOrderExecutor(rebal.Position{}, account)

	if _, err := account.CreateOrder(ctx, rebal.Buy, "2330", d("1"), d("563"), rebal.Cash, rebal.OrderFlags{}); err != nil {
		t.Fatal(err)
	}

	// цена заявки совпадает с котировкой: перестановка не нужна
	if err := executor.UpdateOrderPrice(ctx, decimal.Zero); err != nil {
		t.Fatal(err)
	}
	if got := account.Stats().Updated; got != 0 {
		t.Errorf("заявка с актуальной ценой переставлена %d раз", got)
	}

	// котировка ушла: заявка догоняет цену
	account.SetStock(quote("2330", "570"))
	if err := executor.UpdateOrderPrice(ctx, decimal.Zero); err != nil {
		t.Fatal(err)
	}
	if got := account.Stats().Updated; got != 1 {
		t.Errorf("ожидали одну перестановку, получили %d", got)
	}
	for _, o := range mustOrders(t, account) {
		if !o.Price.Equal(d("570")) {
			t.Errorf("цена заявки = %s, want 570", o.Price)
		}
	}

	if err := executor.UpdateOrderPrice(ctx, d("0.2")); err == nil {
		t.Error("extra bid вне диапазона должен быть ошибкой")
	}
}

func TestCancelOrders(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(false)
	executor := rebal.NewOrderExecutor(rebal.Position{}, account)

	activeID, err := account.CreateOrder(ctx, rebal.Buy, "2330", d("1"), d("563"), rebal.Cash, rebal.OrderFlags{})
	if err != nil {
		t.Fatal(err)
	}
	filledID, err := account.CreateOrder(ctx, rebal.Buy, "1101", d("1"), d("37.35"), rebal.Cash, rebal.OrderFlags{})
	if err != nil {
		t.Fatal(err)
	}
	if err := account.Fill(filledID); err != nil {
		t.Fatal(err)
	}

	if err := executor.CancelOrders(ctx); err != nil {
		t.Fatal(err)
	}
	orders := mustOrders(t, account)
	if got := orders[activeID].Status; got != rebal.StatusCancel {
		t.Errorf("активная заявка должна быть снята, статус %s", got)
	}
	if got := orders[filledID].Status; got != rebal.StatusFilled {
		t.Errorf("исполненную заявку трогать нельзя, статус %s", got)
	}
	if got := account.Stats().Cancelled; got != 1 {
		t.Errorf("снято %d заявок, want 1", got)
	}
}

func TestGenerateOrdersBaseCurrency(t *testing.T) {
	ctx := context.Background()
	account := paper.NewCryptoAccount(paper.Config{BoardLotSize: 1}, "USDT")
	account.SeedPosition(rebal.NewPosition(decimalMap(map[string]string{"BTC": "1"})))

	target := rebal.NewPosition(decimalMap(map[string]string{"BTCUSDT": "2"}))
	executor := rebal.NewOrderExecutor(target, account)
	orders, err := executor.GenerateOrders(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []rebal.PositionEntry{{StockID: "BTC", Quantity: d("1"), OrderCondition: rebal.Cash}}
	if !entriesEqual(orders, want) {
		t.Errorf("orders = %v, want %v", orders, want)
	}

	executor = rebal.NewOrderExecutor(rebal.NewPosition(decimalMap(map[string]string{"ETH": "1"})), account)
	if _, err := executor.GenerateOrders(ctx, 1, 0); err == nil {
		t.Error("тикер без суффикса базовой валюты должен быть ошибкой")
	}
}

func TestOrderInfo(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(false)
	account.SeedPosition(rebal.NewPosition(decimalMap(map[string]string{"2330": "2"})))

	target := rebal.NewPosition(decimalMap(map[string]string{"1101": "1", "2330": "3"}))
	executor := rebal.NewOrderExecutor(target, account)

	rows, err := executor.OrderInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("ожидали две строки, получили %v", rows)
	}
	// сортировка по убыванию стоимости заявки: 2330 дороже
	if rows[0].StockID != "2330" || rows[1].StockID != "1101" {
		t.Errorf("порядок строк: %v", rows)
	}
	if !rows[0].CurrentQuantity.Equal(d("2")) || !rows[0].TargetQuantity.Equal(d("3")) || !rows[0].OrderQuantity.Equal(d("1")) {
		t.Errorf("строка 2330: %+v", rows[0])
	}
	if !rows[1].Price.Equal(d("37.35")) {
		t.Errorf("цена 1101 = %s, want 37.35", rows[1].Price)
	}
}

func mustOrders(t *testing.T, account *paper.Account) map[string]rebal.Order {
	t.Helper()
	orders, err := account.GetOrders(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return orders
}
