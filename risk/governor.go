package risk

import (
	"sync"

	"futures-trader-go/infrastructure/logger"
)

// GovernorConfig 账户风控参数。
type GovernorConfig struct {
	InitialBalance   float64 // 初始账户余额；为 0 时延迟到首个交易日以开盘余额初始化
	DailyLossLimit   float64 // 单日最大亏损额度（正数）
	TrailingDrawdown float64 // trailing 最大回撤额度（正数）
}

// Governor 执行日内亏损额度与 trailing 回撤下限两条硬规则，
// 并持有交易日状态（开盘余额、日内锁定、账户关闭）与回撤状态
// （最高余额、单调不降的 trailing 下限）。
//
// Governor 不直接下单或平仓：CheckLimits 触发 KillSwitch 并返回
// Violation，由 Coordinator 负责强平与封锁后续订单。
type Governor struct {
	mu  sync.Mutex
	cfg GovernorConfig

	initialized       bool
	initialBalance    float64
	highWater         float64
	trailingThreshold float64
	startOfDay        float64

	dailyLocked   bool
	accountClosed bool

	ks  *KillSwitch
	log *logger.Logger
}

// NewGovernor 创建 Governor。ks 为 nil 时自建 KillSwitch。
func NewGovernor(cfg GovernorConfig, ks *KillSwitch, log *logger.Logger) *Governor {
	if ks == nil {
		ks = NewKillSwitch()
	}
	if log == nil {
		log = logger.NewNop()
	}
	g := &Governor{cfg: cfg, ks: ks, log: log}
	if cfg.InitialBalance > 0 {
		g.bootstrap(cfg.InitialBalance)
	}
	return g
}

// bootstrap 记录初始余额并设定初始 trailing 下限。调用方需持锁或在构造期调用。
func (g *Governor) bootstrap(balance float64) {
	g.initialized = true
	g.initialBalance = balance
	g.highWater = balance
	g.trailingThreshold = balance - g.cfg.TrailingDrawdown
	g.startOfDay = balance
	g.log.LogRisk("governor_initialized", map[string]interface{}{
		"initial_balance":    balance,
		"daily_loss_limit":   g.cfg.DailyLossLimit,
		"trailing_drawdown":  g.cfg.TrailingDrawdown,
		"trailing_threshold": g.trailingThreshold,
	})
}

// StartNewDay 在新交易日开始时重置日内亏损跟踪。
// 仅当 KillSwitch 因日内限额触发时复位；trailing 触发对账户是终局的，
// 不会随新交易日自动解除。
func (g *Governor) StartNewDay(balance float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.initialized {
		g.bootstrap(balance)
	}

	if g.ks.Triggered() {
		if g.ks.Reason() == ReasonDaily {
			g.ks.Reset()
			g.log.LogRisk("kill_switch_reset_new_day", map[string]interface{}{
				"prev_reason": ReasonDaily,
			})
		} else {
			g.log.LogRisk("kill_switch_persists_new_day", map[string]interface{}{
				"reason": g.ks.Reason(),
			})
		}
	}

	g.startOfDay = balance
	if !g.accountClosed {
		g.dailyLocked = false
	}
}

// EndOfDay 以收盘余额更新 trailing 下限。
// 下限只升不降；一旦累计盈利达到 trailing 额度，下限钉在初始余额不再上移。
// 同一收盘余额重复调用是无操作，end_session 因此天然幂等。
func (g *Governor) EndOfDay(closingBalance float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.initialized || closingBalance <= g.highWater {
		return
	}
	g.highWater = closingBalance

	newThreshold := g.highWater - g.cfg.TrailingDrawdown
	if newThreshold > g.initialBalance {
		newThreshold = g.initialBalance
	}
	if newThreshold > g.trailingThreshold {
		g.trailingThreshold = newThreshold
		g.log.LogRisk("trailing_threshold_raised", map[string]interface{}{
			"high_water":         g.highWater,
			"trailing_threshold": g.trailingThreshold,
		})
	}
}

// CheckLimits 以当前余额与浮动盈亏评估两条硬规则。
// 违规时触发 KillSwitch、落下对应锁并返回非 nil 的 Violation；
// 调用方必须把返回值当作"立即停止一切"，而非稍后再轮询的状态。
func (g *Governor) CheckLimits(balance, unrealizedPnL float64) *Violation {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.initialized {
		return nil
	}

	equity := balance + unrealizedPnL
	dailyDrawdown := g.startOfDay - equity

	if dailyDrawdown >= g.cfg.DailyLossLimit {
		g.ks.Activate(ReasonDaily)
		g.dailyLocked = true
		g.log.LogRisk("daily_loss_limit_breached", map[string]interface{}{
			"equity":         equity,
			"daily_drawdown": dailyDrawdown,
			"limit":          g.cfg.DailyLossLimit,
			"start_of_day":   g.startOfDay,
		})
		return &Violation{
			Reason:        ReasonDaily,
			Equity:        equity,
			DailyDrawdown: dailyDrawdown,
			Threshold:     g.cfg.DailyLossLimit,
		}
	}

	if equity <= g.trailingThreshold {
		g.ks.Activate(ReasonTrailing)
		g.accountClosed = true
		g.dailyLocked = true
		g.log.LogRisk("trailing_drawdown_breached", map[string]interface{}{
			"equity":             equity,
			"trailing_threshold": g.trailingThreshold,
			"high_water":         g.highWater,
		})
		return &Violation{
			Reason:    ReasonTrailing,
			Equity:    equity,
			Threshold: g.trailingThreshold,
		}
	}

	return nil
}

// LockDay 收盘锁定：当日不再接受新订单，与风控触发无关。
func (g *Governor) LockDay() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyLocked = true
}

// AdminReset 管理员复位：清除 trailing 触发并重新开放账户。
// 仅供带外运维使用，正常交易路径永远不会调用。
func (g *Governor) AdminReset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ks.Reset()
	g.accountClosed = false
	g.dailyLocked = false
	g.log.LogRisk("governor_admin_reset", nil)
}

func (g *Governor) DailyLocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dailyLocked
}

func (g *Governor) AccountClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accountClosed
}

func (g *Governor) TrailingThreshold() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.trailingThreshold
}

func (g *Governor) StartOfDayBalance() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.startOfDay
}

func (g *Governor) HighWater() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.highWater
}

func (g *Governor) Initialized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initialized
}

func (g *Governor) KillSwitch() *KillSwitch {
	return g.ks
}

// State 供指标与日志采集的只读快照。
type State struct {
	InitialBalance    float64
	HighWater         float64
	TrailingThreshold float64
	StartOfDay        float64
	DailyLocked       bool
	AccountClosed     bool
	KillSwitchOn      bool
	KillSwitchReason  string
}

// Snapshot 返回当前风控状态快照。
func (g *Governor) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		InitialBalance:    g.initialBalance,
		HighWater:         g.highWater,
		TrailingThreshold: g.trailingThreshold,
		StartOfDay:        g.startOfDay,
		DailyLocked:       g.dailyLocked,
		AccountClosed:     g.accountClosed,
		KillSwitchOn:      g.ks.Triggered(),
		KillSwitchReason:  g.ks.Reason(),
	}
}
