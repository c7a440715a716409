package ledger

import (
	"errors"
	"sync"
)

var ErrZeroQuantity = errors.New("fill quantity must be non-zero")

// Ledger 把成交流水净额化为每个合约的持仓与已实现盈亏。
// 同一规则处理开仓、加仓、部分平仓、全平与反手，方向完全由数量符号承载。
// 已实现盈亏按合约累计，持仓归零后仍保留。
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]*Position
	realized  map[string]float64
}

func New() *Ledger {
	return &Ledger{
		positions: make(map[string]*Position),
		realized:  make(map[string]float64),
	}
}

// Apply 将一笔成交并入账本。
// 设现有持仓数量 q、均价 a，成交数量 d（带符号）、价格 p：
//   - q == 0：开仓，数量 d、均价 p
//   - 同号：加仓，均价为按数量加权的平均
//   - 异号：先平 min(|q|,|d|)，已实现盈亏 += (p-a)*sign(q)*closed；
//     若 |d| 超出则反手，剩余量以价格 p 开立新方向
func (l *Ledger) Apply(f Fill) error {
	if f.Quantity == 0 {
		return ErrZeroQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[f.Instrument]
	if !ok {
		pos = &Position{Instrument: f.Instrument}
		l.positions[f.Instrument] = pos
	}

	q, d := pos.Quantity, f.Quantity
	switch {
	case q == 0:
		pos.Quantity = d
		pos.AvgPrice = f.Price

	case sameSign(q, d):
		// 加权平均开仓价，已实现盈亏不变
		totalQty := abs(q) + abs(d)
		pos.AvgPrice = (pos.AvgPrice*float64(abs(q)) + f.Price*float64(abs(d))) / float64(totalQty)
		pos.Quantity = q + d

	default:
		closed := min(abs(q), abs(d))
		l.realized[f.Instrument] += (f.Price - pos.AvgPrice) * float64(sign(q)) * float64(closed)
		remaining := abs(d) - closed
		if remaining == 0 {
			pos.Quantity = q - sign(q)*closed
			if pos.Quantity == 0 {
				pos.AvgPrice = 0
			}
		} else {
			// 反手：旧方向全平，剩余量按成交价开新仓
			pos.Quantity = sign(d) * remaining
			pos.AvgPrice = f.Price
		}
	}

	pos.MarkPrice = f.Price
	if pos.Quantity == 0 {
		delete(l.positions, f.Instrument)
	}
	return nil
}

// MarkToMarket 更新合约市场价，用于浮动盈亏计算。
func (l *Ledger) MarkToMarket(instrument string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pos, ok := l.positions[instrument]; ok {
		pos.MarkPrice = price
	}
}

// Position 返回合约持仓的只读副本。
func (l *Ledger) Position(instrument string) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.positions[instrument]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions 返回全部未平持仓的只读副本。
func (l *Ledger) Positions() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	return out
}

// RealizedPnL 返回合约累计已实现盈亏。
func (l *Ledger) RealizedPnL(instrument string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.realized[instrument]
}

// UnrealizedPnL 返回合约当前浮动盈亏，无持仓时为 0。
func (l *Ledger) UnrealizedPnL(instrument string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pos, ok := l.positions[instrument]; ok {
		return pos.UnrealizedPnL()
	}
	return 0
}

// LifetimePnL 合约生命周期总盈亏 = 已实现 + 当前浮动。
// 不变量：任意时刻部分平仓都不丢失价值。
func (l *Ledger) LifetimePnL(instrument string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := l.realized[instrument]
	if pos, ok := l.positions[instrument]; ok {
		total += pos.UnrealizedPnL()
	}
	return total
}

// NetQuantity 返回合约当前净持仓数量（带符号），无持仓时为 0。
func (l *Ledger) NetQuantity(instrument string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pos, ok := l.positions[instrument]; ok {
		return pos.Quantity
	}
	return 0
}

// OpenPositionCount 返回当前未平持仓的合约个数。
func (l *Ledger) OpenPositionCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// TotalUnrealized 全账户浮动盈亏合计。
func (l *Ledger) TotalUnrealized() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total float64
	for _, pos := range l.positions {
		total += pos.UnrealizedPnL()
	}
	return total
}

// TotalRealized 全账户已实现盈亏合计。
func (l *Ledger) TotalRealized() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total float64
	for _, v := range l.realized {
		total += v
	}
	return total
}

func sameSign(a, b int) bool { return (a > 0) == (b > 0) }

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
