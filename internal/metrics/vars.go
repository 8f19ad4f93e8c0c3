package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PortfolioValue = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bot_portfolio_value_usd",
		Help: "Total portfolio value (cash + crypto) in USD",
	})

	CashBalance = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bot_cash_balance_usd",
		Help: "Uninvested cash in USD",
	})

	OpenPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bot_open_positions",
		Help: "Number of open positions",
	})

	Drawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bot_drawdown_pct",
		Help: "Drawdown from the equity high-water mark, percent",
	})

	BreakerTripped = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bot_circuit_breaker_tripped",
		Help: "1 while the drawdown circuit breaker halts trading",
	})

	OrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_orders_total",
		Help: "Orders by final state",
	}, []string{"state"})

	OrderRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_order_retries_total",
		Help: "Order submissions retried after transport failures",
	})

	IterationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bot_iteration_duration_seconds",
		Help:    "Wall time of one full trading iteration",
		Buckets: prometheus.DefBuckets,
	})

	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bot_simulation_duration_seconds",
		Help:    "Wall time of the Monte Carlo batch",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		PortfolioValue,
		CashBalance,
		OpenPositions,
		Drawdown,
		BreakerTripped,
		OrdersTotal,
		OrderRetries,
		IterationDuration,
		SimulationDuration,
	)
}
