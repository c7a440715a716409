package strategy

import (
	"fmt"

	"futures-trader-go/broker"
	"futures-trader-go/ledger"
)

// MeanRevertConfig 均值回归参数。
type MeanRevertConfig struct {
	Instrument string
	Lookback   int     // 滚动窗口长度（tick 数）
	EntryZ     float64 // 入场 z-score 阈值
	ExitZ      float64 // 出场 z-score 阈值（回到均值附近平仓）
	OrderQty   int     // 每次下单合约数
	MaxNet     int     // 净持仓上限（绝对值）
}

// MeanRevert fades moves away from the rolling mean: short when price
// stretches EntryZ standard deviations above it, long when below, and
// closes out once price returns inside ExitZ.
type MeanRevert struct {
	cfg    MeanRevertConfig
	window *Window
	net    int
}

func NewMeanRevert(cfg MeanRevertConfig) (*MeanRevert, error) {
	if cfg.Instrument == "" || cfg.Lookback < 2 || cfg.OrderQty <= 0 {
		return nil, fmt.Errorf("invalid mean revert config")
	}
	if cfg.EntryZ <= 0 {
		cfg.EntryZ = 2.0
	}
	if cfg.ExitZ < 0 || cfg.ExitZ >= cfg.EntryZ {
		cfg.ExitZ = cfg.EntryZ / 4
	}
	if cfg.MaxNet <= 0 {
		cfg.MaxNet = cfg.OrderQty
	}
	return &MeanRevert{cfg: cfg, window: NewWindow(cfg.Lookback)}, nil
}

func (m *MeanRevert) Name() string { return "mean_revert:" + m.cfg.Instrument }

func (m *MeanRevert) OnTick(t Tick) {
	if t.Instrument != m.cfg.Instrument {
		return
	}
	m.window.Push(t.Price)
}

func (m *MeanRevert) OnTrade(f ledger.Fill) {
	if f.Instrument != m.cfg.Instrument {
		return
	}
	m.net += f.Quantity
}

func (m *MeanRevert) Signals() []Signal {
	if sig := m.signal(); sig != nil {
		return []Signal{*sig}
	}
	return nil
}

func (m *MeanRevert) signal() *Signal {
	if !m.window.Full() {
		return nil
	}
	std := m.window.StdDev()
	if std == 0 {
		return nil
	}
	z := (m.window.Last() - m.window.Mean()) / std

	// 回到均值附近先平仓
	if m.net != 0 && z > -m.cfg.ExitZ && z < m.cfg.ExitZ {
		side := broker.SideSell
		qty := m.net
		if qty < 0 {
			side = broker.SideBuy
			qty = -qty
		}
		return &Signal{
			Instrument: m.cfg.Instrument,
			Side:       side,
			Quantity:   qty,
			Reason:     fmt.Sprintf("mean revert exit z=%.2f", z),
		}
	}

	if z >= m.cfg.EntryZ && m.net-m.cfg.OrderQty >= -m.cfg.MaxNet {
		return &Signal{
			Instrument: m.cfg.Instrument,
			Side:       broker.SideSell,
			Quantity:   m.cfg.OrderQty,
			Reason:     fmt.Sprintf("stretched above mean z=%.2f", z),
		}
	}
	if z <= -m.cfg.EntryZ && m.net+m.cfg.OrderQty <= m.cfg.MaxNet {
		return &Signal{
			Instrument: m.cfg.Instrument,
			Side:       broker.SideBuy,
			Quantity:   m.cfg.OrderQty,
			Reason:     fmt.Sprintf("stretched below mean z=%.2f", z),
		}
	}
	return nil
}
