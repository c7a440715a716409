package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-trader-go/broker"
	"futures-trader-go/ledger"
)

func newTrendFollow(t *testing.T) *TrendFollow {
	t.Helper()
	s, err := NewTrendFollow(TrendFollowConfig{
		Instrument: "MNQ",
		FastPeriod: 2,
		SlowPeriod: 4,
		OrderQty:   1,
		MaxNet:     1,
	})
	require.NoError(t, err)
	return s
}

// step feeds one tick then polls for a signal, like the live loop does.
func step(s *TrendFollow, price float64) *Signal {
	s.OnTick(tick("MNQ", price))
	return firstSignal(s)
}

func TestTrendFollowCrossoverCycle(t *testing.T) {
	s := newTrendFollow(t)

	for i := 0; i < 4; i++ {
		assert.Nil(t, step(s, 10))
	}

	// 快线上穿慢线：做多
	sig := step(s, 12)
	require.NotNil(t, sig)
	assert.Equal(t, broker.SideBuy, sig.Side)
	assert.Equal(t, 1, sig.Quantity)
	s.OnTrade(ledger.Fill{Instrument: "MNQ", Quantity: 1, Price: 12})

	assert.Nil(t, step(s, 8), "touching zero diff is not a cross")

	// 快线下穿慢线：一笔反手单平多开空
	sig = step(s, 6)
	require.NotNil(t, sig)
	assert.Equal(t, broker.SideSell, sig.Side)
	assert.Equal(t, 2, sig.Quantity)
}

func TestTrendFollowNoSignalBeforeWarmup(t *testing.T) {
	s := newTrendFollow(t)
	assert.Nil(t, step(s, 10))
	assert.Nil(t, step(s, 11))
	assert.Nil(t, step(s, 12))
}

func TestTrendFollowRejectsBadConfig(t *testing.T) {
	_, err := NewTrendFollow(TrendFollowConfig{
		Instrument: "MNQ", FastPeriod: 4, SlowPeriod: 2, OrderQty: 1,
	})
	assert.Error(t, err)
}
