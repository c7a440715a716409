package risk

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrSingleExceed   = errors.New("single order exceed")
	ErrNetExceed      = errors.New("net position exceed")
	ErrPositionCount  = errors.New("open position count exceed")
	ErrZeroOrNegative = errors.New("quantity must be positive")
)

// Limits 逐单过滤配置。0 表示对应限制关闭。
type Limits struct {
	SingleMax        int // 单笔最大合约数
	NetMax           int // 单合约净持仓上限（绝对值）
	MaxOpenPositions int // 同时持仓的合约数上限
}

// PositionBook 提供当前持仓视图。
type PositionBook interface {
	NetQuantity(instrument string) int
	OpenPositionCount() int
}

// LimitChecker 逐单校验合约数与持仓约束；deltaQty 为本次下单数量（正买负卖）。
// 限额可通过 SetLimits 在运行中调整（配置热更新）。
type LimitChecker struct {
	mu   sync.RWMutex
	cfg  Limits
	book PositionBook
}

func NewLimitChecker(cfg Limits, book PositionBook) *LimitChecker {
	return &LimitChecker{cfg: cfg, book: book}
}

// SetLimits 原子替换限额配置，对后续 PreOrder 立即生效。
func (lc *LimitChecker) SetLimits(cfg Limits) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.cfg = cfg
}

// Limits 返回当前限额配置。
func (lc *LimitChecker) Limits() Limits {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.cfg
}

func (lc *LimitChecker) PreOrder(instrument string, deltaQty int) error {
	if deltaQty == 0 {
		return ErrZeroOrNegative
	}

	lc.mu.RLock()
	cfg := lc.cfg
	lc.mu.RUnlock()

	absQty := deltaQty
	if absQty < 0 {
		absQty = -absQty
	}
	if cfg.SingleMax > 0 && absQty > cfg.SingleMax {
		return fmt.Errorf("%w: %d > single %d", ErrSingleExceed, absQty, cfg.SingleMax)
	}

	if lc.book == nil {
		return nil
	}

	// 净持仓
	if cfg.NetMax > 0 {
		net := lc.book.NetQuantity(instrument) + deltaQty
		if net < 0 {
			net = -net
		}
		if net > cfg.NetMax {
			return fmt.Errorf("%w: %d > net %d", ErrNetExceed, net, cfg.NetMax)
		}
	}

	// 持仓合约数：仅在开新合约时约束
	if cfg.MaxOpenPositions > 0 && lc.book.NetQuantity(instrument) == 0 {
		if lc.book.OpenPositionCount() >= cfg.MaxOpenPositions {
			return fmt.Errorf("%w: %d open", ErrPositionCount, lc.book.OpenPositionCount())
		}
	}

	return nil
}
