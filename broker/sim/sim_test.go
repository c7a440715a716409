package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"futures-trader-go/broker"
	"futures-trader-go/ledger"
)

func market(instrument string, side broker.Side, qty int) broker.OrderRequest {
	return broker.OrderRequest{Instrument: instrument, Side: side, Quantity: qty, Type: broker.TypeMarket}
}

func limit(instrument string, side broker.Side, qty int, price float64) broker.OrderRequest {
	return broker.OrderRequest{Instrument: instrument, Side: side, Quantity: qty, Type: broker.TypeLimit, Price: &price}
}

func connected(t *testing.T, balance float64) *Broker {
	t.Helper()
	b := New(balance)
	assert.NoError(t, b.Connect())
	return b
}

func TestRequiresConnection(t *testing.T) {
	b := New(50000)
	_, err := b.PlaceOrder(market("MES", broker.SideBuy, 1))
	assert.True(t, broker.IsConnection(err))
	_, err = b.AccountBalance()
	assert.True(t, broker.IsConnection(err))
}

func TestMarketOrderFillsAtMarketPrice(t *testing.T) {
	b := connected(t, 50000)
	b.UpdateMarketPrice("MES", 5000)

	var fills []ledger.Fill
	b.SetFillHandler(func(f ledger.Fill) { fills = append(fills, f) })

	oid, err := b.PlaceOrder(market("MES", broker.SideBuy, 2))
	assert.NoError(t, err)
	assert.NotEmpty(t, oid)
	assert.Len(t, fills, 1)
	assert.Equal(t, 2, fills[0].Quantity)

	positions, err := b.OpenPositions()
	assert.NoError(t, err)
	assert.Len(t, positions, 1)
	assert.Equal(t, 2, positions[0].Quantity)
	assert.InDelta(t, 5000.0, positions[0].AvgPrice, 1e-9)
}

func TestMarketOrderWithoutPriceFails(t *testing.T) {
	b := connected(t, 50000)
	_, err := b.PlaceOrder(market("MNQ", broker.SideBuy, 1))
	assert.True(t, broker.IsValidation(err), "missing market price is a local validation rejection, got %v", err)
}

func TestLimitOrderRestsUntilTouched(t *testing.T) {
	b := connected(t, 50000)
	b.UpdateMarketPrice("MES", 5000)

	oid, err := b.PlaceOrder(limit("MES", broker.SideBuy, 1, 4990))
	assert.NoError(t, err)
	assert.Equal(t, 1, b.PendingOrders())

	b.UpdateMarketPrice("MES", 4989)
	assert.Equal(t, 0, b.PendingOrders())

	pos, ok := b.Book().Position("MES")
	assert.True(t, ok)
	assert.Equal(t, 1, pos.Quantity)

	ok, err = b.CancelOrder(oid)
	assert.NoError(t, err)
	assert.False(t, ok, "filled order can no longer be cancelled")
}

func TestMarketableLimitFillsImmediately(t *testing.T) {
	b := connected(t, 50000)
	b.UpdateMarketPrice("MES", 5000)

	_, err := b.PlaceOrder(limit("MES", broker.SideSell, 1, 4995))
	assert.NoError(t, err)
	assert.Equal(t, 0, b.PendingOrders())
}

func TestCancelPendingOrder(t *testing.T) {
	b := connected(t, 50000)
	b.UpdateMarketPrice("MES", 5000)

	oid, _ := b.PlaceOrder(limit("MES", broker.SideBuy, 1, 4000))
	ok, err := b.CancelOrder(oid)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, b.PendingOrders())
}

func TestBalanceAndEquityTrackPnL(t *testing.T) {
	b := connected(t, 50000)
	b.UpdateMarketPrice("MES", 5000)
	_, _ = b.PlaceOrder(market("MES", broker.SideBuy, 2))

	b.UpdateMarketPrice("MES", 5010)
	balance, _ := b.AccountBalance()
	equity, _ := b.AccountEquity()
	assert.InDelta(t, 50000.0, balance, 1e-9, "unrealized must not touch balance")
	assert.InDelta(t, 50020.0, equity, 1e-9)

	// 平一手锁定盈利
	_, _ = b.PlaceOrder(market("MES", broker.SideSell, 1))
	balance, _ = b.AccountBalance()
	equity, _ = b.AccountEquity()
	assert.InDelta(t, 50010.0, balance, 1e-9)
	assert.InDelta(t, 50020.0, equity, 1e-9)
}

func TestFlattenAllIdempotent(t *testing.T) {
	b := connected(t, 50000)
	b.UpdateMarketPrice("MES", 5000)
	b.UpdateMarketPrice("MNQ", 18000)
	_, _ = b.PlaceOrder(market("MES", broker.SideBuy, 2))
	_, _ = b.PlaceOrder(market("MNQ", broker.SideSell, 1))

	assert.NoError(t, b.FlattenAll())
	positions, _ := b.OpenPositions()
	assert.Empty(t, positions)

	// 已平再平是无操作
	assert.NoError(t, b.FlattenAll())
	positions, _ = b.OpenPositions()
	assert.Empty(t, positions)
}
