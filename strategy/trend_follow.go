package strategy

import (
	"fmt"

	"futures-trader-go/broker"
	"futures-trader-go/ledger"
)

// TrendFollowConfig 双均线趋势跟随参数。
type TrendFollowConfig struct {
	Instrument string
	FastPeriod int // 快线窗口
	SlowPeriod int // 慢线窗口，必须大于快线
	OrderQty   int
	MaxNet     int
}

// TrendFollow trades moving average crossovers: long when the fast SMA
// crosses above the slow, short when it crosses below. Position flips
// happen through one reversing order.
type TrendFollow struct {
	cfg  TrendFollowConfig
	fast *Window
	slow *Window
	net  int

	prevDiff float64
	hasPrev  bool
}

func NewTrendFollow(cfg TrendFollowConfig) (*TrendFollow, error) {
	if cfg.Instrument == "" || cfg.FastPeriod < 1 || cfg.SlowPeriod <= cfg.FastPeriod || cfg.OrderQty <= 0 {
		return nil, fmt.Errorf("invalid trend follow config")
	}
	if cfg.MaxNet <= 0 {
		cfg.MaxNet = cfg.OrderQty
	}
	return &TrendFollow{
		cfg:  cfg,
		fast: NewWindow(cfg.FastPeriod),
		slow: NewWindow(cfg.SlowPeriod),
	}, nil
}

func (s *TrendFollow) Name() string { return "trend_follow:" + s.cfg.Instrument }

func (s *TrendFollow) OnTick(t Tick) {
	if t.Instrument != s.cfg.Instrument {
		return
	}
	s.fast.Push(t.Price)
	s.slow.Push(t.Price)
}

func (s *TrendFollow) OnTrade(f ledger.Fill) {
	if f.Instrument != s.cfg.Instrument {
		return
	}
	s.net += f.Quantity
}

func (s *TrendFollow) Signals() []Signal {
	if sig := s.signal(); sig != nil {
		return []Signal{*sig}
	}
	return nil
}

func (s *TrendFollow) signal() *Signal {
	if !s.slow.Full() {
		return nil
	}
	diff := s.fast.Mean() - s.slow.Mean()
	defer func() {
		s.prevDiff = diff
		s.hasPrev = true
	}()

	if !s.hasPrev {
		return nil
	}

	// 金叉做多
	if s.prevDiff <= 0 && diff > 0 && s.net < s.cfg.MaxNet {
		qty := s.cfg.OrderQty - s.net // 反手：先平空再建多
		if qty <= 0 {
			qty = s.cfg.OrderQty
		}
		return &Signal{
			Instrument: s.cfg.Instrument,
			Side:       broker.SideBuy,
			Quantity:   qty,
			Reason:     "fast sma crossed above slow",
		}
	}

	// 死叉做空
	if s.prevDiff >= 0 && diff < 0 && s.net > -s.cfg.MaxNet {
		qty := s.cfg.OrderQty + s.net
		if qty <= 0 {
			qty = s.cfg.OrderQty
		}
		return &Signal{
			Instrument: s.cfg.Instrument,
			Side:       broker.SideSell,
			Quantity:   qty,
			Reason:     "fast sma crossed below slow",
		}
	}
	return nil
}
