package strategy

import (
	"time"

	"futures-trader-go/broker"
	"futures-trader-go/ledger"
)

// Tick is one market data update for a single instrument.
type Tick struct {
	Instrument string
	Price      float64
	Volume     float64
	Ts         time.Time
}

// Signal is a strategy's desire to trade. It is advisory only: the
// execution coordinator applies gates and limits before anything
// reaches a broker.
type Signal struct {
	Instrument string
	Side       broker.Side
	Quantity   int
	Reason     string
}

// Request converts the signal into a market order request.
func (s Signal) Request() broker.OrderRequest {
	return broker.OrderRequest{
		Instrument: s.Instrument,
		Side:       s.Side,
		Quantity:   s.Quantity,
		Type:       broker.TypeMarket,
	}
}

// Port is the contract every trading strategy implements. Callbacks are
// invoked from a single goroutine; implementations need no locking.
type Port interface {
	Name() string

	// OnTick feeds one market data update.
	OnTick(t Tick)

	// OnTrade notifies the strategy of its own fills so it can track
	// net position. 撤单与他人成交不会进入这里。
	OnTrade(f ledger.Fill)

	// Signals returns the current trade desires, possibly empty. The
	// slice is never partially actionable; callers submit each signal
	// independently through the execution gate.
	Signals() []Signal
}
