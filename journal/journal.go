// Package journal persists the audit trail of a trading account:
// orders, fills, equity snapshots, risk events and session lifecycle.
// Writes are best-effort from the caller's point of view; a journal
// failure never blocks the trading path.
package journal

import "time"

// OrderRecord mirrors the orders table.
type OrderRecord struct {
	OrderID    string
	Instrument string
	Side       string
	Quantity   int
	Price      float64
	Created    time.Time
}

// FillRecord mirrors the fills table.
type FillRecord struct {
	Instrument string
	Quantity   int
	Price      float64
	FilledAt   time.Time
}

// RiskEventRecord mirrors the risk_events table.
type RiskEventRecord struct {
	Time      time.Time
	Reason    string
	Equity    float64
	Threshold float64
}

// SessionRecord mirrors the sessions table.
type SessionRecord struct {
	Time    time.Time
	Event   string
	Balance float64
}

// EquitySnapshot mirrors the equity table.
type EquitySnapshot struct {
	Time    time.Time
	Balance float64
	Equity  float64
}
