package main

import (
	"fmt"

	"github.com/go-trading/rebal"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func allocate(c *cli.Context) error {
	weights := loadWeights(c.Path("weights"))

	prices := map[string]decimal.Decimal{}
	for _, s := range loadQuotes(c.Path("quotes")) {
		prices[s.StockID] = s.Close
	}

	pos, err := rebal.PositionFromWeights(
		weights,
		decimal.NewFromFloat(c.Float64("fund")),
		prices,
		rebal.FromWeightsConfig{
			OddLot:       c.Bool("odd-lot"),
			BoardLotSize: c.Int("board-lot"),
		},
	)
	if err != nil {
		return err
	}

	fmt.Println(pos)

	if out := c.Path("out"); out != "" {
		savePosition(out, pos)
	}
	return nil
}
