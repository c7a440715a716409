package ledger

import "time"

// Position 单一合约的净持仓。Quantity 正为多头、负为空头、0 表示已平。
// AvgPrice 仅在 Quantity != 0 时有意义；持仓归零后条目会从账本中移除。
type Position struct {
	Instrument string
	Quantity   int
	AvgPrice   float64
	MarkPrice  float64 // 最近一次已知市场价
}

// UnrealizedPnL 按最近市场价计算浮动盈亏。
// (mark - avg) * qty 对多空同时成立：空头 qty 为负，等价于 (avg - mark) * |qty|。
func (p Position) UnrealizedPnL() float64 {
	if p.Quantity == 0 {
		return 0
	}
	return (p.MarkPrice - p.AvgPrice) * float64(p.Quantity)
}

// Side 返回持仓方向描述，便于日志输出。
func (p Position) Side() string {
	switch {
	case p.Quantity > 0:
		return "LONG"
	case p.Quantity < 0:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Fill 一笔成交回报。Quantity 带符号：买入为正、卖出为负。
// Fill 是一次性的输入，仅用于驱动持仓变化，账本不保留历史。
type Fill struct {
	Instrument string
	Quantity   int
	Price      float64
	Timestamp  time.Time
}
