package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/go-trading/rebal"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func loadPosition(path string) rebal.Position {
	file, err := os.Open(path)
	if err != nil {
		l.Fatal("не смог открыть снимок портфеля", zap.String("path", path), zap.Error(err))
	}
	defer file.Close()

	pos, err := rebal.PositionFromJSON(file)
	if err != nil {
		l.Fatal("не смог разобрать снимок портфеля", zap.String("path", path), zap.Error(err))
	}
	return pos
}

func savePosition(path string, pos rebal.Position) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		l.Fatal("не смог открыть файл на запись", zap.String("path", path), zap.Error(err))
	}
	defer file.Close()

	if err := pos.ToJSON(file); err != nil {
		l.Fatal("не смог записать снимок портфеля", zap.String("path", path), zap.Error(err))
	}
}

func loadWeights(path string) map[string]decimal.Decimal {
	file, err := os.Open(path)
	if err != nil {
		l.Fatal("не смог открыть файл весов", zap.String("path", path), zap.Error(err))
	}
	defer file.Close()

	weights := map[string]decimal.Decimal{}
	if err := json.NewDecoder(file).Decode(&weights); err != nil {
		l.Fatal("не смог разобрать файл весов", zap.String("path", path), zap.Error(err))
	}
	return weights
}

// котировки в csv, столбцы:
// stock_id,open,high,low,close,bid_price,bid_volume,ask_price,ask_volume
func loadQuotes(path string) []rebal.Stock {
	file, err := os.Open(path)
	if err != nil {
		l.Fatal("не смог открыть файл котировок", zap.String("path", path), zap.Error(err))
	}
	defer file.Close()

	var result []rebal.Stock
	r := csv.NewReader(bufio.NewReader(file))
	line := 0
	for {
		line++
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			l.Fatal("ошибка парсинга файла котировок", zap.String("path", path), zap.Int("line", line), zap.Error(err))
		}
		if len(record) != 9 {
			l.Fatal("количество столбцов отличается от 9", zap.String("path", path), zap.Int("line", line))
		}
		if line == 1 {
			// пропускаем строку с заголовком
			continue
		}

		fields := make([]decimal.Decimal, 8)
		for i := range fields {
			fields[i], err = decimal.NewFromString(record[i+1])
			if err != nil {
				l.Fatal("не смог разобрать число", zap.String("path", path), zap.Int("line", line), zap.Error(err))
			}
		}
		result = append(result, rebal.Stock{
			StockID:   record[0],
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			BidPrice:  fields[4],
			BidVolume: fields[5],
			AskPrice:  fields[6],
			AskVolume: fields[7],
		})
	}
	return result
}

func loadLimits(path string) map[string]rebal.PriceLimit {
	file, err := os.Open(path)
	if err != nil {
		l.Fatal("не смог открыть файл лимитов", zap.String("path", path), zap.Error(err))
	}
	defer file.Close()

	type limitRow struct {
		LimitUp   decimal.Decimal `json:"limit_up"`
		LimitDown decimal.Decimal `json:"limit_down"`
	}
	rows := map[string]limitRow{}
	if err := json.NewDecoder(file).Decode(&rows); err != nil {
		l.Fatal("не смог разобрать файл лимитов", zap.String("path", path), zap.Error(err))
	}

	result := make(map[string]rebal.PriceLimit, len(rows))
	for id, row := range rows {
		result[id] = rebal.PriceLimit{LimitUp: row.LimitUp, LimitDown: row.LimitDown}
	}
	return result
}

func printEntries(entries []rebal.PositionEntry) {
	if len(entries) == 0 {
		fmt.Println("расхождений нет")
		return
	}
	tbl := tabwriter.NewWriter(os.Stdout, 1, 1, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tbl, "action\tstock_id\tquantity\torder_condition\t")
	for _, e := range entries {
		if e.Quantity.IsZero() {
			continue
		}
		action := rebal.Buy
		if e.Quantity.IsNegative() {
			action = rebal.Sell
		}
		fmt.Fprintf(tbl, "%s\t%s\t%s\t%s\t\n", action, e.StockID, e.Quantity.Abs(), e.OrderCondition)
	}
	tbl.Flush()
}
