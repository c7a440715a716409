package risk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"futures-trader-go/risk"
)

func newGovernor(initial, dailyLimit, trailing float64) *risk.Governor {
	return risk.NewGovernor(risk.GovernorConfig{
		InitialBalance:   initial,
		DailyLossLimit:   dailyLimit,
		TrailingDrawdown: trailing,
	}, nil, nil)
}

func TestCheckLimits_DailyLossBreach(t *testing.T) {
	g := newGovernor(50000, 100, 2000)
	g.StartNewDay(50000)

	v := g.CheckLimits(49900, 0)
	assert.NotNil(t, v, "drawdown of exactly the limit must breach")
	assert.Equal(t, risk.ReasonDaily, v.Reason)
	assert.True(t, g.KillSwitch().Triggered())
	assert.Equal(t, risk.ReasonDaily, g.KillSwitch().Reason())
	assert.True(t, g.DailyLocked())
	assert.False(t, g.AccountClosed(), "daily breach must not close the account")
}

func TestCheckLimits_TrailingBreach(t *testing.T) {
	g := newGovernor(1000, 500, 100)
	assert.InDelta(t, 900.0, g.TrailingThreshold(), 1e-9)

	v := g.CheckLimits(900, 0)
	assert.NotNil(t, v, "equity at the threshold must breach")
	assert.Equal(t, risk.ReasonTrailing, v.Reason)
	assert.True(t, g.AccountClosed())
	assert.True(t, g.DailyLocked())
}

func TestCheckLimits_UnrealizedCountsTowardEquity(t *testing.T) {
	g := newGovernor(50000, 1000, 2000)
	g.StartNewDay(50000)

	// 余额未动，浮亏已击穿日内额度
	v := g.CheckLimits(50000, -1000)
	assert.NotNil(t, v)
	assert.Equal(t, risk.ReasonDaily, v.Reason)
}

func TestCheckLimits_WithinLimits(t *testing.T) {
	g := newGovernor(50000, 1000, 2000)
	g.StartNewDay(50000)

	assert.Nil(t, g.CheckLimits(49500, 0))
	assert.False(t, g.KillSwitch().Triggered())
	assert.False(t, g.DailyLocked())
}

func TestStartNewDay_ResetsDailyLockOnly(t *testing.T) {
	g := newGovernor(50000, 100, 2000)
	g.StartNewDay(50000)
	assert.NotNil(t, g.CheckLimits(49900, 0))
	assert.True(t, g.KillSwitch().Triggered())

	g.StartNewDay(49900)
	assert.False(t, g.KillSwitch().Triggered(), "daily trigger clears on a new day")
	assert.False(t, g.DailyLocked())

	// trailing 触发后新交易日不解除
	g2 := newGovernor(1000, 500, 100)
	assert.NotNil(t, g2.CheckLimits(850, 0))
	g2.StartNewDay(850)
	assert.True(t, g2.KillSwitch().Triggered(), "trailing trigger persists across days")
	assert.Equal(t, risk.ReasonTrailing, g2.KillSwitch().Reason())
	assert.True(t, g2.AccountClosed())
}

func TestEndOfDay_ThresholdMonotonic(t *testing.T) {
	g := newGovernor(50000, 1000, 2000)

	closes := []float64{50500, 50200, 51000, 49000, 51500, 51500}
	prev := g.TrailingThreshold()
	for _, c := range closes {
		g.EndOfDay(c)
		cur := g.TrailingThreshold()
		assert.GreaterOrEqual(t, cur, prev, "threshold must never decrease")
		prev = cur
	}
	// 51500 高水位 → 51500-2000 = 49500
	assert.InDelta(t, 49500.0, g.TrailingThreshold(), 1e-9)
}

func TestEndOfDay_ThresholdCappedAtInitial(t *testing.T) {
	g := newGovernor(50000, 1000, 2000)

	// 累计盈利超过 trailing 额度后，下限钉在初始余额
	g.EndOfDay(53000)
	assert.InDelta(t, 50000.0, g.TrailingThreshold(), 1e-9)

	g.EndOfDay(60000)
	assert.InDelta(t, 50000.0, g.TrailingThreshold(), 1e-9, "threshold stops rising at initial balance")
}

func TestEndOfDay_IdempotentForSameClose(t *testing.T) {
	g := newGovernor(50000, 1000, 2000)
	g.EndOfDay(50800)
	first := g.TrailingThreshold()
	g.EndOfDay(50800)
	assert.Equal(t, first, g.TrailingThreshold())
}

func TestLazyBootstrapFromFirstDay(t *testing.T) {
	g := risk.NewGovernor(risk.GovernorConfig{
		DailyLossLimit:   1000,
		TrailingDrawdown: 2000,
	}, nil, nil)
	assert.False(t, g.Initialized())
	assert.Nil(t, g.CheckLimits(0, 0), "uninitialized governor must not trip")

	g.StartNewDay(52000)
	assert.True(t, g.Initialized())
	assert.InDelta(t, 50000.0, g.TrailingThreshold(), 1e-9)
	assert.InDelta(t, 52000.0, g.HighWater(), 1e-9)
}
