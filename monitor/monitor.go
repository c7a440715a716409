package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器。
type Monitor struct {
	registry *prometheus.Registry

	// 账户指标
	balance           prometheus.Gauge
	equity            prometheus.Gauge
	unrealizedPnL     prometheus.Gauge
	trailingThreshold prometheus.Gauge
	highWater         prometheus.Gauge
	dailyDrawdown     prometheus.Gauge

	// 订单指标
	ordersPlaced   prometheus.Counter
	ordersRejected *prometheus.CounterVec

	// 风控指标
	riskTriggers  *prometheus.CounterVec
	killSwitchOn  prometheus.Gauge
	accountClosed prometheus.Gauge
	dailyLocked   prometheus.Gauge

	// 时段指标
	sessionStarts   prometheus.Counter
	sessionEnds     prometheus.Counter
	flattens        prometheus.Counter
	flattenFailures prometheus.Counter
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "trader",
		Subsystem: "risk",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Monitor{
		registry: reg,

		balance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "account_balance", Help: "已实现账户余额",
		}),
		equity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "account_equity", Help: "账户权益（含浮动盈亏）",
		}),
		unrealizedPnL: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "unrealized_pnl", Help: "浮动盈亏合计",
		}),
		trailingThreshold: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "trailing_threshold", Help: "trailing 回撤下限（单调不降）",
		}),
		highWater: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "high_water_balance", Help: "账户最高收盘余额",
		}),
		dailyDrawdown: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "daily_drawdown", Help: "当日相对开盘余额的回撤",
		}),

		ordersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "orders_placed_total", Help: "成功提交到券商的订单数",
		}),
		ordersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "orders_rejected_total", Help: "被本地闸门拒绝的订单数",
		}, []string{"reason"}),

		riskTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "risk_triggers_total", Help: "风控触发次数",
		}, []string{"reason"}),
		killSwitchOn: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "kill_switch_on", Help: "kill switch 状态（1=触发）",
		}),
		accountClosed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "account_closed", Help: "账户关闭状态（1=关闭）",
		}),
		dailyLocked: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "daily_locked", Help: "当日锁定状态（1=锁定）",
		}),

		sessionStarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "session_starts_total", Help: "交易时段开启次数",
		}),
		sessionEnds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "session_ends_total", Help: "交易时段结束次数",
		}),
		flattens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "flatten_total", Help: "强平执行次数",
		}),
		flattenFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "flatten_failures_total", Help: "强平失败次数（留有真实敞口）",
		}),
	}

	return m
}

// Handler 返回 /metrics HTTP处理器。
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 暴露底层registry（测试用）。
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// SetAccount 更新账户资金指标。
func (m *Monitor) SetAccount(balance, equity float64) {
	m.balance.Set(balance)
	m.equity.Set(equity)
	m.unrealizedPnL.Set(equity - balance)
}

// SetRiskState 更新风控状态指标。
func (m *Monitor) SetRiskState(trailingThreshold, highWater, dailyDrawdown float64, killSwitchOn, dailyLocked, accountClosed bool) {
	m.trailingThreshold.Set(trailingThreshold)
	m.highWater.Set(highWater)
	m.dailyDrawdown.Set(dailyDrawdown)
	m.killSwitchOn.Set(boolGauge(killSwitchOn))
	m.dailyLocked.Set(boolGauge(dailyLocked))
	m.accountClosed.Set(boolGauge(accountClosed))
}

func (m *Monitor) IncOrderPlaced()             { m.ordersPlaced.Inc() }
func (m *Monitor) IncOrderRejected(reason string) {
	m.ordersRejected.WithLabelValues(reason).Inc()
}
func (m *Monitor) IncRiskTrigger(reason string) { m.riskTriggers.WithLabelValues(reason).Inc() }
func (m *Monitor) IncSessionStart()             { m.sessionStarts.Inc() }
func (m *Monitor) IncSessionEnd()               { m.sessionEnds.Inc() }
func (m *Monitor) IncFlatten()                  { m.flattens.Inc() }
func (m *Monitor) IncFlattenFailure()           { m.flattenFailures.Inc() }

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
