package paper_test

import (
	"context"
	"testing"

	"github.com/go-trading/rebal"
	"github.com/go-trading/rebal/paper"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFillOddLotOrder(t *testing.T) {
	ctx := context.Background()
	account := paper.NewAccount(paper.Config{Balance: d("100000"), BoardLotSize: 1000})

	// неполный лот приходит в акциях и пересчитывается в доли лота
	id, err := account.CreateOrder(ctx, rebal.Buy, "2330", d("500"), d("10"), rebal.Cash, rebal.OrderFlags{OddLot: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := account.Fill(id); err != nil {
		t.Fatal(err)
	}

	pos, err := account.GetPosition(ctx)
	if err != nil {
		t.Fatal(err)
	}
	entries := pos.Entries()
	if len(entries) != 1 || !entries[0].Quantity.Equal(d("0.5")) {
		t.Errorf("позиция после исполнения: %v, want 0.5 лота", entries)
	}

	balance, err := account.GetTotalBalance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Equal(d("95000")) {
		t.Errorf("баланс = %s, want 95000", balance)
	}
}

func TestFillSellClosesPosition(t *testing.T) {
	ctx := context.Background()
	account := paper.NewAccount(paper.Config{BoardLotSize: 1000})
	account.SeedPosition(rebal.NewPosition(map[string]decimal.Decimal{"2330": d("1")}))

	id, err := account.CreateOrder(ctx, rebal.Sell, "2330", d("1"), d("563"), rebal.Cash, rebal.OrderFlags{})
	if err != nil {
		t.Fatal(err)
	}
	if err := account.Fill(id); err != nil {
		t.Fatal(err)
	}

	pos, err := account.GetPosition(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !pos.IsEmpty() {
		t.Errorf("закрытая позиция должна исчезнуть: %v", pos)
	}
}

func TestOrderLifecycleErrors(t *testing.T) {
	ctx := context.Background()
	account := paper.NewAccount(paper.Config{})

	if _, err := account.CreateOrder(ctx, rebal.Buy, "2330", d("0"), d("1"), rebal.Cash, rebal.OrderFlags{}); err == nil {
		t.Error("нулевое количество должно быть ошибкой")
	}
	if err := account.CancelOrder(ctx, "missing"); err == nil {
		t.Error("снятие несуществующей заявки должно быть ошибкой")
	}

	id, err := account.CreateOrder(ctx, rebal.Buy, "2330", d("1"), d("563"), rebal.Cash, rebal.OrderFlags{})
	if err != nil {
		t.Fatal(err)
	}
	if err := account.Fill(id); err != nil {
		t.Fatal(err)
	}
	if err := account.CancelOrder(ctx, id); err == nil {
		t.Error("снятие исполненной заявки должно быть ошибкой")
	}
	if err := account.UpdateOrder(ctx, id, nil, nil); err == nil {
		t.Error("перестановка исполненной заявки должна быть ошибкой")
	}
}

func TestUpdateOrderChangesPriceAndQuantity(t *testing.T) {
	ctx := context.Background()
	account := paper.NewAccount(paper.Config{})

	id, err := account.CreateOrder(ctx, rebal.Buy, "2330", d("1"), d("563"), rebal.Cash, rebal.OrderFlags{})
	if err != nil {
		t.Fatal(err)
	}
	price, quantity := d("570"), d("2")
	if err := account.UpdateOrder(ctx, id, &price, &quantity); err != nil {
		t.Fatal(err)
	}

	orders, err := account.GetOrders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	o := orders[id]
	if !o.Price.Equal(price) || !o.Quantity.Equal(quantity) {
		t.Errorf("после перестановки: %+v", o)
	}
	if got := account.Stats().Updated; got != 1 {
		t.Errorf("Stats().Updated = %d, want 1", got)
	}
}
