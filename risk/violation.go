package risk

import (
	"errors"
	"fmt"
)

// Violation 风控违规。对当前操作是致命的：调用方必须立即停止、
// 强平并锁定交易，而不是把它当作可轮询的标志位。
type Violation struct {
	Reason        string  // ReasonDaily / ReasonTrailing
	Equity        float64 // 触发时的账户权益
	DailyDrawdown float64 // 日内回撤（仅 ReasonDaily 有意义）
	Threshold     float64 // 被击穿的限额：日内亏损额度或 trailing 下限
}

func (v *Violation) Error() string {
	switch v.Reason {
	case ReasonDaily:
		return fmt.Sprintf("risk violation: daily loss limit breached (drawdown %.2f >= limit %.2f, equity %.2f)",
			v.DailyDrawdown, v.Threshold, v.Equity)
	case ReasonTrailing:
		return fmt.Sprintf("risk violation: trailing drawdown breached (equity %.2f <= threshold %.2f)",
			v.Equity, v.Threshold)
	default:
		return fmt.Sprintf("risk violation: %s", v.Reason)
	}
}

// AsViolation 从错误链中提取 Violation。
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
