package main

// описание аргументов командной строки

import (
	"github.com/urfave/cli/v2"
)

var globalFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "debug",
		Usage: "Подробное логирование",
	},
	&cli.StringFlag{
		Name:    "monitoring",
		Usage:   "Адрес, на котором поднять /metrics",
		EnvVars: []string{"REBAL_MONITORING"},
	},
}

var (
	weightsFlag = &cli.PathFlag{
		Name:     "weights",
		Usage:    "JSON с целевыми весами, код бумаги -> вес",
		Required: true,
	}
	quotesFlag = &cli.PathFlag{
		Name:     "quotes",
		Usage:    "CSV с котировками: stock_id,open,high,low,close,bid_price,bid_volume,ask_price,ask_volume",
		Required: true,
	}
	limitsFlag = &cli.PathFlag{
		Name:  "limits",
		Usage: "JSON с лимитами цены: код бумаги -> {limit_up, limit_down}",
	}
	fundFlag = &cli.Float64Flag{
		Name:    "fund",
		Usage:   "Бюджет портфеля",
		Value:   1000000,
		EnvVars: []string{"REBAL_FUND"},
	}
	boardLotFlag = &cli.IntFlag{
		Name:    "board-lot",
		Usage:   "Количество акций в одном лоте",
		Value:   1000,
		EnvVars: []string{"REBAL_BOARD_LOT"},
	}
	oddLotFlag = &cli.BoolFlag{
		Name:  "odd-lot",
		Usage: "Разрешить неполные лоты",
	}
	outFlag = &cli.PathFlag{
		Name:  "out",
		Usage: "Куда сохранить целевой портфель (JSON); без флага - только показать",
	}
	targetFlag = &cli.PathFlag{
		Name:     "target",
		Usage:    "JSON-снимок целевого портфеля",
		Required: true,
	}
	currentFlag = &cli.PathFlag{
		Name:     "current",
		Usage:    "JSON-снимок текущего портфеля счёта",
		Required: true,
	}
	executeFlag = &cli.BoolFlag{
		Name:  "execute",
		Usage: "Выставить и исполнить заявки на симуляторе, а не только показать",
	}
	extraBidFlag = &cli.Float64Flag{
		Name:  "extra-bid-pct",
		Usage: "Сдвиг лимитной цены в долях, от -0.1 до 0.1",
	}
	marketOrderFlag = &cli.BoolFlag{
		Name:  "market-order",
		Usage: "Покупка по верхнему лимиту, продажа по нижнему",
	}
	bestPriceLimitFlag = &cli.BoolFlag{
		Name:  "best-price-limit",
		Usage: "Пассивная цена: покупка по нижнему лимиту, продажа по верхнему",
	}
	buyOnlyFlag = &cli.BoolFlag{
		Name:  "buy-only",
		Usage: "Выставлять только покупки",
	}
	sellOnlyFlag = &cli.BoolFlag{
		Name:  "sell-only",
		Usage: "Выставлять только продажи",
	}
	progressFlag = &cli.Float64Flag{
		Name:  "progress",
		Usage: "Доля расхождения к исполнению, от 0 до 1",
		Value: 1,
	}
	progressPrecisionFlag = &cli.IntFlag{
		Name:  "progress-precision",
		Usage: "Знаков дробной части лота при масштабировании progress",
	}
)
