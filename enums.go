package rebal

// Режим финансирования позиции. Позиции с разными режимами никогда не
// схлопываются между собой, даже по одной и той же бумаге.
type OrderCondition int

const (
	Cash            OrderCondition = iota + 1 // обычная покупка за собственные средства
	MarginTrading                             // длинная позиция с маржинальным финансированием
	ShortSelling                              // короткая позиция с займом бумаг
	DayTradingLong                            // внутридневная, сначала покупка
	DayTradingShort                           // внутридневная, сначала продажа
)

// порядок обхода режимов при арифметике позиций
var orderConditions = []OrderCondition{
	Cash,
	MarginTrading,
	ShortSelling,
	DayTradingLong,
	DayTradingShort,
}

func (c OrderCondition) String() string {
	switch c {
	case Cash:
		return "CASH"
	case MarginTrading:
		return "MARGIN_TRADING"
	case ShortSelling:
		return "SHORT_SELLING"
	case DayTradingLong:
		return "DAY_TRADING_LONG"
	case DayTradingShort:
		return "DAY_TRADING_SHORT"
	default:
		return "UNKNOWN"
	}
}

// Направление сделки.
type Action int

const (
	Buy Action = iota + 1
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Статус заявки на стороне брокера.
type OrderStatus int

const (
	StatusNew             OrderStatus = iota + 1 // заявка принята, не исполнена
	StatusPartiallyFilled                        // частично исполнена
	StatusFilled                                 // полностью исполнена
	StatusCancel                                 // снята или отклонена
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}
