package execution

import (
	"fmt"
	"sync"

	"futures-trader-go/broker"
	"futures-trader-go/infrastructure/logger"
	"futures-trader-go/monitor"
	"futures-trader-go/risk"
	"futures-trader-go/session"
)

// Notifier 告警出口。实现方自行处理限流与投递失败。
type Notifier interface {
	Notify(severity, title, message string)
}

// Recorder 审计持久化出口。写入失败只记日志，不阻断交易路径。
type Recorder interface {
	RecordOrder(orderID, instrument, side string, quantity int, price float64) error
	RecordEquity(balance, equity float64) error
	RecordRiskEvent(reason string, equity, threshold float64) error
	RecordSession(event string, balance float64) error
}

// Config Coordinator 依赖集合。Scheduler、Governor、Broker 必填，
// 其余为可选的观测与审计组件。
type Config struct {
	Scheduler *session.Scheduler
	Governor  *risk.Governor
	Broker    broker.Port
	Guards    []risk.Guard

	Logger   *logger.Logger
	Monitor  *monitor.Monitor
	Notifier Notifier
	Recorder Recorder
}

// Coordinator 是所有订单的唯一通道：时段闸门、逐单限额、下单、
// 成交后风控复查与强平都在这里串联。
//
// 单把互斥锁覆盖完整的"检查-动作"序列；策略并发提交订单时，
// 每笔订单看到的闸门判定与其下单动作之间不会插入其他状态变化。
type Coordinator struct {
	mu sync.Mutex

	sched  *session.Scheduler
	gov    *risk.Governor
	port   broker.Port
	guards risk.MultiGuard

	log      *logger.Logger
	mon      *monitor.Monitor
	notifier Notifier
	recorder Recorder

	sessionStarted bool
	dayRan         bool
}

func New(cfg Config) (*Coordinator, error) {
	if cfg.Scheduler == nil || cfg.Governor == nil || cfg.Broker == nil {
		return nil, fmt.Errorf("scheduler, governor and broker are required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Coordinator{
		sched:    cfg.Scheduler,
		gov:      cfg.Governor,
		port:     cfg.Broker,
		guards:   risk.MultiGuard{Guards: cfg.Guards},
		log:      log,
		mon:      cfg.Monitor,
		notifier: cfg.Notifier,
		recorder: cfg.Recorder,
	}, nil
}

// Gate 返回当前订单闸门状态。只读，不产生副作用。
func (c *Coordinator) Gate() GateStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gateLocked()
}

func (c *Coordinator) gateLocked() GateStatus {
	if c.gov.AccountClosed() {
		return GateAccountClosed
	}
	if !c.sessionStarted {
		// 收盘后的日内锁是正常运行状态，区别于从未开盘
		if c.dayRan && c.gov.DailyLocked() {
			return GateDailyLocked
		}
		return GateNotStarted
	}
	if c.gov.DailyLocked() {
		return GateDailyLocked
	}
	if !c.sched.InWindow() {
		return GateOutsideHours
	}
	return GateAllowed
}

// SessionActive 当前是否处于已开盘状态。
func (c *Coordinator) SessionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionStarted
}

// StartNewSession 开启新交易日：按需连接券商，以开盘余额重置日内风控。
// 账户已因 trailing 回撤关闭时开盘属协议误用。重复开盘是无操作。
func (c *Coordinator) StartNewSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gov.AccountClosed() {
		return &ProtocolMisuseError{Msg: "cannot start a session on a closed account"}
	}
	if c.sessionStarted {
		c.log.LogSession("session_already_started", nil)
		return nil
	}

	if !c.port.IsConnected() {
		if err := c.port.Connect(); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
	}

	balance, err := c.port.AccountBalance()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	c.gov.StartNewDay(balance)
	c.sessionStarted = true

	c.log.LogSession("session_started", map[string]interface{}{
		"opening_balance": balance,
		"window_start":    c.sched.Start().String(),
		"window_flatten":  c.sched.Flatten().String(),
	})
	if c.mon != nil {
		c.mon.IncSessionStart()
	}
	c.recordSession("session_start", balance)
	c.publishStateLocked(balance, balance)
	return nil
}

// ExecuteOrder 下单唯一入口：闸门 → 请求校验 → 逐单限额 → 下单 →
// 成交后无条件风控复查。复查违规时立即强平并返回违规错误，
// 即使订单本身已成功提交。
func (c *Coordinator) ExecuteOrder(req broker.OrderRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 当日从未开盘就下单是调用方违反生命周期协议，与运行中被闸门拒绝区分开；
	// 收盘之后的下单按闸门状态拒绝
	if !c.sessionStarted && !c.dayRan && !c.gov.AccountClosed() {
		if c.mon != nil {
			c.mon.IncOrderRejected(GateNotStarted.String())
		}
		return "", &ProtocolMisuseError{Msg: "execute order before session start"}
	}

	if gate := c.gateLocked(); gate != GateAllowed {
		c.log.LogOrder("order_gated", "", map[string]interface{}{
			"instrument": req.Instrument,
			"gate":       gate.String(),
		})
		if c.mon != nil {
			c.mon.IncOrderRejected(gate.String())
		}
		return "", gate.Err()
	}

	if err := req.Validate(); err != nil {
		if c.mon != nil {
			c.mon.IncOrderRejected("validation")
		}
		return "", err
	}

	if err := c.guards.PreOrder(req.Instrument, req.SignedQuantity()); err != nil {
		c.log.LogOrder("order_blocked_pretrade", "", map[string]interface{}{
			"instrument": req.Instrument,
			"quantity":   req.SignedQuantity(),
			"reason":     err.Error(),
		})
		if c.mon != nil {
			c.mon.IncOrderRejected("pretrade_limit")
		}
		return "", err
	}

	orderID, err := c.port.PlaceOrder(req)
	if err != nil {
		c.log.LogError(err, map[string]interface{}{
			"op":         "place_order",
			"instrument": req.Instrument,
		})
		return "", err
	}

	c.log.LogOrder("order_placed", orderID, map[string]interface{}{
		"instrument": req.Instrument,
		"side":       string(req.Side),
		"quantity":   req.Quantity,
		"type":       string(req.Type),
	})
	if c.mon != nil {
		c.mon.IncOrderPlaced()
	}
	if c.recorder != nil {
		price := 0.0
		if req.Price != nil {
			price = *req.Price
		}
		if rerr := c.recorder.RecordOrder(orderID, req.Instrument, string(req.Side), req.Quantity, price); rerr != nil {
			c.log.LogError(rerr, map[string]interface{}{"op": "record_order"})
		}
	}

	// 成交可能已把账户推过限额，必须立刻复查而不是等下一轮 monitor
	if err := c.checkRiskLocked(); err != nil {
		return orderID, err
	}
	return orderID, nil
}

// Monitor 轮询钩子：到达强平时刻则收盘，否则做一次风控复查。
// 由外层循环定期调用。
func (c *Coordinator) Monitor() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sessionStarted {
		return nil
	}

	var endErr error
	if c.sched.PastFlatten() {
		c.log.LogSession("flatten_time_reached", map[string]interface{}{
			"now": c.sched.Now().Format("15:04"),
		})
		endErr = c.endSessionLocked()
	}

	// 收盘本身也可能击穿 trailing 下限，复查不可跳过
	riskErr := c.checkRiskLocked()
	if endErr != nil {
		return endErr
	}
	return riskErr
}

// EndSession 收盘：尽力强平、以收盘余额推进 trailing 下限并锁定当日。
// 已收盘后的重复调用是无操作。
func (c *Coordinator) EndSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sessionStarted {
		return nil
	}
	return c.endSessionLocked()
}

// endSessionLocked 调用方需持锁。强平失败时仍然锁定当日并结束时段，
// 但把失败作为 FlattenError 上抛，留给运维处理真实敞口。
func (c *Coordinator) endSessionLocked() error {
	var flattenErr error
	if err := c.port.FlattenAll(); err != nil {
		flattenErr = &FlattenError{Err: err}
		c.log.LogError(flattenErr, map[string]interface{}{"op": "end_session_flatten"})
		if c.mon != nil {
			c.mon.IncFlattenFailure()
		}
		c.notify("critical", "收盘强平失败", flattenErr.Error())
	} else if c.mon != nil {
		c.mon.IncFlatten()
	}

	closing, err := c.port.AccountBalance()
	if err != nil {
		c.log.LogError(err, map[string]interface{}{"op": "end_session_balance"})
	} else {
		c.gov.EndOfDay(closing)
		c.recordSession("session_end", closing)
		c.recordEquity(closing)
		c.publishStateLocked(closing, closing)
	}

	c.gov.LockDay()
	c.sessionStarted = false
	c.dayRan = true

	c.log.LogSession("session_ended", map[string]interface{}{
		"closing_balance":    closing,
		"trailing_threshold": c.gov.TrailingThreshold(),
	})
	if c.mon != nil {
		c.mon.IncSessionEnd()
	}
	return flattenErr
}

// checkRiskLocked 调用方需持锁。取余额与权益做一次硬规则评估；
// 违规时强平并返回 Violation。
func (c *Coordinator) checkRiskLocked() error {
	balance, err := c.port.AccountBalance()
	if err != nil {
		return fmt.Errorf("risk check: %w", err)
	}
	equity, err := c.port.AccountEquity()
	if err != nil {
		return fmt.Errorf("risk check: %w", err)
	}

	c.publishStateLocked(balance, equity)

	v := c.gov.CheckLimits(balance, equity-balance)
	if v == nil {
		return nil
	}
	return c.handleViolationLocked(v)
}

// handleViolationLocked 调用方需持锁。违规后的唯一正确动作是立即清仓。
func (c *Coordinator) handleViolationLocked(v *risk.Violation) error {
	if c.mon != nil {
		c.mon.IncRiskTrigger(v.Reason)
	}
	c.notify("critical", "风控触发", v.Error())
	if c.recorder != nil {
		if rerr := c.recorder.RecordRiskEvent(v.Reason, v.Equity, v.Threshold); rerr != nil {
			c.log.LogError(rerr, map[string]interface{}{"op": "record_risk_event"})
		}
	}

	if err := c.port.FlattenAll(); err != nil {
		ferr := &FlattenError{Cause: v, Err: err}
		c.log.LogError(ferr, map[string]interface{}{"op": "violation_flatten"})
		if c.mon != nil {
			c.mon.IncFlattenFailure()
		}
		c.notify("critical", "风控强平失败", ferr.Error())
		return ferr
	}
	if c.mon != nil {
		c.mon.IncFlatten()
	}
	c.log.LogRisk("violation_flattened", map[string]interface{}{
		"reason": v.Reason,
		"equity": v.Equity,
	})
	return v
}

// publishStateLocked 调用方需持锁。刷新账户与风控指标。
func (c *Coordinator) publishStateLocked(balance, equity float64) {
	if c.mon == nil {
		return
	}
	st := c.gov.Snapshot()
	c.mon.SetAccount(balance, equity)
	c.mon.SetRiskState(st.TrailingThreshold, st.HighWater, st.StartOfDay-equity,
		st.KillSwitchOn, st.DailyLocked, st.AccountClosed)
}

func (c *Coordinator) notify(severity, title, message string) {
	if c.notifier != nil {
		c.notifier.Notify(severity, title, message)
	}
}

// recordEquity 收盘权益快照。强平失败留有敞口时权益与余额不同。
func (c *Coordinator) recordEquity(balance float64) {
	if c.recorder == nil {
		return
	}
	equity := balance
	if eq, err := c.port.AccountEquity(); err == nil {
		equity = eq
	}
	if err := c.recorder.RecordEquity(balance, equity); err != nil {
		c.log.LogError(err, map[string]interface{}{"op": "record_equity"})
	}
}

func (c *Coordinator) recordSession(event string, balance float64) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordSession(event, balance); err != nil {
		c.log.LogError(err, map[string]interface{}{"op": "record_session", "event": event})
	}
}
