package main

import (
	"fmt"

	"github.com/go-trading/rebal"
	"github.com/go-trading/rebal/paper"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func sync(c *cli.Context) error {
	target := loadPosition(c.Path("target"))
	current := loadPosition(c.Path("current"))

	account := paper.NewAccount(paper.Config{
		BoardLotSize:   c.Int("board-lot"),
		SepOddLotOrder: true,
	})
	account.SeedPosition(current)
	for _, s := range loadQuotes(c.Path("quotes")) {
		account.SetStock(s)
	}
	if path := c.Path("limits"); path != "" {
		for id, limit := range loadLimits(path) {
			account.SetPriceLimit(id, limit)
		}
	}

	executor := rebal.NewOrderExecutor(target, account)
	orders, err := executor.CreateOrders(c.Context, rebal.CreateConfig{
		Progress:          c.Float64("progress"),
		ProgressPrecision: int32(c.Int("progress-precision")),
		ExecuteConfig: rebal.ExecuteConfig{
			MarketOrder:    c.Bool("market-order"),
			BestPriceLimit: c.Bool("best-price-limit"),
			ExtraBidPct:    decimal.NewFromFloat(c.Float64("extra-bid-pct")),
			ViewOnly:       !c.Bool("execute"),
			BuyOnly:        c.Bool("buy-only"),
			SellOnly:       c.Bool("sell-only"),
		},
	})
	if err != nil {
		return err
	}
	printEntries(orders)

	if c.Bool("execute") {
		if err := account.FillAll(); err != nil {
			return err
		}
		pos, err := account.GetPosition(c.Context)
		if err != nil {
			return err
		}
		fmt.Println("портфель после исполнения:")
		fmt.Println(pos)
	}
	return nil
}
