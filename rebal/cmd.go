package main

// В файле описаны все команды, доступные в командной строке

import (
	"github.com/urfave/cli/v2"
)

var commands = []*cli.Command{
	{
		Name:   "allocate",
		Usage:  "Построить целевой портфель из весов: веса и котировки на входе, лоты на выходе",
		Action: allocate,
		Flags:  []cli.Flag{weightsFlag, quotesFlag, fundFlag, boardLotFlag, oddLotFlag, outFlag},
	}, {
		Name:   "diff",
		Usage:  "Посчитать расхождение между двумя снимками портфеля",
		Action: diff,
		Flags:  []cli.Flag{targetFlag, currentFlag},
	}, {
		Name:   "sync",
		Usage:  "Прогнать синхронизацию портфеля на счёте-симуляторе (по умолчанию только показать заявки)",
		Action: sync,
		Flags: []cli.Flag{
			targetFlag, currentFlag, quotesFlag, limitsFlag, boardLotFlag,
			executeFlag, extraBidFlag, marketOrderFlag, bestPriceLimitFlag,
			buyOnlyFlag, sellOnlyFlag, progressFlag, progressPrecisionFlag,
		},
	},
}
