package rebal

// Метрики исполнителя заявок. Если поднять PrometheusService, за синхронизацией
// портфеля можно наблюдать в мониторинге

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orderCreatedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rebal_orders_created_total",
		Help: "Количество выставленных заявок",
	},
		[]string{"action", "order_condition"},
	)
	orderCancelledMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rebal_orders_cancelled_total",
		Help: "Количество снятых заявок",
	})
	orderUpdatedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rebal_orders_updated_total",
		Help: "Количество заявок с обновлённой ценой",
	})
	orderQuantityMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rebal_order_quantity",
		Help: "Расхождение между целевой и текущей позицией в лотах",
	},
		[]string{"stock_id", "order_condition"},
	)
)
