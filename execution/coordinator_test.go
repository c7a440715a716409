package execution_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-trader-go/broker"
	"futures-trader-go/broker/sim"
	"futures-trader-go/execution"
	"futures-trader-go/risk"
	"futures-trader-go/session"
)

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func (c *stubClock) set(hour, minute int) {
	c.now = time.Date(2026, 8, 25, hour, minute, 0, 0, time.UTC)
}

type stubNotifier struct {
	calls []string
}

func (n *stubNotifier) Notify(severity, title, message string) {
	n.calls = append(n.calls, severity+":"+title)
}

type equityRow struct {
	balance float64
	equity  float64
}

type stubRecorder struct {
	orders     int
	equityRows []equityRow
	riskEvents []string
	sessions   []string
}

func (r *stubRecorder) RecordOrder(orderID, instrument, side string, quantity int, price float64) error {
	r.orders++
	return nil
}

func (r *stubRecorder) RecordEquity(balance, equity float64) error {
	r.equityRows = append(r.equityRows, equityRow{balance: balance, equity: equity})
	return nil
}

func (r *stubRecorder) RecordRiskEvent(reason string, equity, threshold float64) error {
	r.riskEvents = append(r.riskEvents, reason)
	return nil
}

func (r *stubRecorder) RecordSession(event string, balance float64) error {
	r.sessions = append(r.sessions, event)
	return nil
}

type harness struct {
	coord    *execution.Coordinator
	broker   *sim.Broker
	governor *risk.Governor
	clock    *stubClock
	notifier *stubNotifier
	recorder *stubRecorder
}

// 日盘 09:00-16:00 UTC，初始余额 50000。
func newHarness(t *testing.T, dailyLimit, trailing float64) *harness {
	t.Helper()

	clock := &stubClock{}
	clock.set(10, 0)

	sched, err := session.NewScheduler(
		session.TimeOfDay{Hour: 9}, session.TimeOfDay{Hour: 16}, time.UTC, clock)
	require.NoError(t, err)

	gov := risk.NewGovernor(risk.GovernorConfig{
		DailyLossLimit:   dailyLimit,
		TrailingDrawdown: trailing,
	}, nil, nil)

	b := sim.New(50000)
	b.UpdateMarketPrice("MES", 5000)

	notifier := &stubNotifier{}
	recorder := &stubRecorder{}
	coord, err := execution.New(execution.Config{
		Scheduler: sched,
		Governor:  gov,
		Broker:    b,
		Notifier:  notifier,
		Recorder:  recorder,
	})
	require.NoError(t, err)

	return &harness{coord: coord, broker: b, governor: gov, clock: clock, notifier: notifier, recorder: recorder}
}

func buyMES(qty int) broker.OrderRequest {
	return broker.OrderRequest{
		Instrument: "MES", Side: broker.SideBuy, Quantity: qty, Type: broker.TypeMarket,
	}
}

func TestOrderRejectedBeforeSessionStart(t *testing.T) {
	h := newHarness(t, 1000, 2000)

	_, err := h.coord.ExecuteOrder(buyMES(1))
	var misuse *execution.ProtocolMisuseError
	require.ErrorAs(t, err, &misuse)
	assert.Equal(t, execution.GateNotStarted, h.coord.Gate())
}

func TestStartSessionAndExecute(t *testing.T) {
	h := newHarness(t, 1000, 2000)

	require.NoError(t, h.coord.StartNewSession())
	assert.True(t, h.coord.SessionActive())
	assert.Equal(t, execution.GateAllowed, h.coord.Gate())

	oid, err := h.coord.ExecuteOrder(buyMES(2))
	require.NoError(t, err)
	assert.NotEmpty(t, oid)

	positions, _ := h.broker.OpenPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, 2, positions[0].Quantity)

	// 重复开盘是无操作
	assert.NoError(t, h.coord.StartNewSession())
}

func TestOrderRejectedOutsideHours(t *testing.T) {
	h := newHarness(t, 1000, 2000)
	require.NoError(t, h.coord.StartNewSession())

	h.clock.set(8, 30)
	_, err := h.coord.ExecuteOrder(buyMES(1))
	var gerr *execution.GateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, execution.GateOutsideHours, gerr.Status)
}

func TestDailyLossBreachFlattensAndLocks(t *testing.T) {
	h := newHarness(t, 1000, 10000)
	require.NoError(t, h.coord.StartNewSession())

	_, err := h.coord.ExecuteOrder(buyMES(2))
	require.NoError(t, err)

	// 价格崩跌：浮亏 2000 超过日内限额 1000
	h.broker.UpdateMarketPrice("MES", 4000)

	err = h.coord.Monitor()
	v, ok := risk.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, risk.ReasonDaily, v.Reason)

	positions, _ := h.broker.OpenPositions()
	assert.Empty(t, positions, "violation must flatten all positions")
	assert.Equal(t, execution.GateDailyLocked, h.coord.Gate())
	assert.NotEmpty(t, h.notifier.calls)

	_, err = h.coord.ExecuteOrder(buyMES(1))
	var gerr *execution.GateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, execution.GateDailyLocked, gerr.Status)
}

func TestPostFillRecheckCatchesBreach(t *testing.T) {
	h := newHarness(t, 1000, 10000)
	require.NoError(t, h.coord.StartNewSession())

	_, err := h.coord.ExecuteOrder(buyMES(2))
	require.NoError(t, err)

	h.broker.UpdateMarketPrice("MES", 4000)

	// 下单本身成功，但成交后复查立即发现违规
	oid, err := h.coord.ExecuteOrder(buyMES(1))
	assert.NotEmpty(t, oid)
	v, ok := risk.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, risk.ReasonDaily, v.Reason)

	positions, _ := h.broker.OpenPositions()
	assert.Empty(t, positions)
}

func TestTrailingBreachClosesAccount(t *testing.T) {
	h := newHarness(t, 5000, 2000)
	require.NoError(t, h.coord.StartNewSession())

	_, err := h.coord.ExecuteOrder(buyMES(1))
	require.NoError(t, err)

	// 浮亏 2100：日内回撤未到 5000，但权益 47900 击穿 trailing 下限 48000
	h.broker.UpdateMarketPrice("MES", 2900)

	err = h.coord.Monitor()
	v, ok := risk.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, risk.ReasonTrailing, v.Reason)
	assert.Equal(t, execution.GateAccountClosed, h.coord.Gate())

	// 关闭的账户禁止再开盘
	err = h.coord.StartNewSession()
	var misuse *execution.ProtocolMisuseError
	assert.ErrorAs(t, err, &misuse)
}

func TestMonitorEndsSessionAtFlattenTime(t *testing.T) {
	h := newHarness(t, 1000, 2000)
	require.NoError(t, h.coord.StartNewSession())
	_, err := h.coord.ExecuteOrder(buyMES(2))
	require.NoError(t, err)

	h.clock.set(16, 5)
	require.NoError(t, h.coord.Monitor())

	positions, _ := h.broker.OpenPositions()
	assert.Empty(t, positions)
	assert.False(t, h.coord.SessionActive())
	assert.True(t, h.governor.DailyLocked())
}

func TestEndSessionIdempotent(t *testing.T) {
	h := newHarness(t, 1000, 2000)
	require.NoError(t, h.coord.StartNewSession())
	_, err := h.coord.ExecuteOrder(buyMES(1))
	require.NoError(t, err)

	// 盈利日：收盘余额推高 trailing 下限
	h.broker.UpdateMarketPrice("MES", 5500)
	require.NoError(t, h.coord.EndSession())

	threshold := h.governor.TrailingThreshold()
	assert.Greater(t, threshold, 48000.0)

	// 再次收盘：无操作，下限不变
	require.NoError(t, h.coord.EndSession())
	assert.Equal(t, threshold, h.governor.TrailingThreshold())
}

func TestPostCloseGateIsDailyLocked(t *testing.T) {
	h := newHarness(t, 1000, 2000)
	require.NoError(t, h.coord.StartNewSession())
	require.NoError(t, h.coord.EndSession())

	// 收盘后是日内锁定的运行状态，不是"从未开盘"
	assert.Equal(t, execution.GateDailyLocked, h.coord.Gate())

	_, err := h.coord.ExecuteOrder(buyMES(1))
	var gerr *execution.GateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, execution.GateDailyLocked, gerr.Status)

	var misuse *execution.ProtocolMisuseError
	assert.False(t, errors.As(err, &misuse), "post-close rejection is a gate, not protocol misuse")
}

func TestEndSessionRecordsClosingEquity(t *testing.T) {
	h := newHarness(t, 1000, 2000)
	require.NoError(t, h.coord.StartNewSession())
	_, err := h.coord.ExecuteOrder(buyMES(1))
	require.NoError(t, err)

	// 5000 → 5500 获利一手，收盘强平后余额 50500
	h.broker.UpdateMarketPrice("MES", 5500)
	require.NoError(t, h.coord.EndSession())

	require.Len(t, h.recorder.equityRows, 1)
	assert.InDelta(t, 50500.0, h.recorder.equityRows[0].balance, 1e-9)
	assert.InDelta(t, 50500.0, h.recorder.equityRows[0].equity, 1e-9)
	assert.Equal(t, []string{"session_start", "session_end"}, h.recorder.sessions)
}

func TestNextDayResetsDailyLockOnly(t *testing.T) {
	h := newHarness(t, 1000, 10000)
	require.NoError(t, h.coord.StartNewSession())
	_, err := h.coord.ExecuteOrder(buyMES(2))
	require.NoError(t, err)

	h.broker.UpdateMarketPrice("MES", 4000)
	_ = h.coord.Monitor()
	require.Equal(t, execution.GateDailyLocked, h.coord.Gate())
	require.NoError(t, h.coord.EndSession())

	// 次日开盘：日内锁解除，恢复交易
	require.NoError(t, h.coord.StartNewSession())
	assert.Equal(t, execution.GateAllowed, h.coord.Gate())
	_, err = h.coord.ExecuteOrder(buyMES(1))
	assert.NoError(t, err)
}

func TestPreTradeGuardBlocksOrder(t *testing.T) {
	clock := &stubClock{}
	clock.set(10, 0)
	sched, err := session.NewScheduler(
		session.TimeOfDay{Hour: 9}, session.TimeOfDay{Hour: 16}, time.UTC, clock)
	require.NoError(t, err)

	b := sim.New(50000)
	b.UpdateMarketPrice("MES", 5000)
	gov := risk.NewGovernor(risk.GovernorConfig{DailyLossLimit: 1000, TrailingDrawdown: 2000}, nil, nil)

	coord, err := execution.New(execution.Config{
		Scheduler: sched,
		Governor:  gov,
		Broker:    b,
		Guards: []risk.Guard{
			risk.NewLimitChecker(risk.Limits{SingleMax: 2, NetMax: 3, MaxOpenPositions: 5}, b.Book()),
		},
	})
	require.NoError(t, err)
	require.NoError(t, coord.StartNewSession())

	_, err = coord.ExecuteOrder(buyMES(3))
	assert.True(t, errors.Is(err, risk.ErrSingleExceed))

	_, err = coord.ExecuteOrder(buyMES(2))
	require.NoError(t, err)
	_, err = coord.ExecuteOrder(buyMES(2))
	assert.True(t, errors.Is(err, risk.ErrNetExceed))
}
