package execution

import "fmt"

// GateStatus 订单闸门判定结果。非 Allowed 的状态一律拒单，
// 优先级从强到弱：账户关闭 > 未开盘 > 当日锁定 > 时段外。
type GateStatus int

const (
	GateAllowed GateStatus = iota
	GateNotStarted
	GateOutsideHours
	GateDailyLocked
	GateAccountClosed
)

func (s GateStatus) String() string {
	switch s {
	case GateAllowed:
		return "allowed"
	case GateNotStarted:
		return "session_not_started"
	case GateOutsideHours:
		return "outside_trading_hours"
	case GateDailyLocked:
		return "daily_locked"
	case GateAccountClosed:
		return "account_closed"
	default:
		return fmt.Sprintf("gate_status(%d)", int(s))
	}
}

// Err 把非 Allowed 的闸门状态转成拒单错误。
func (s GateStatus) Err() error {
	if s == GateAllowed {
		return nil
	}
	return &GateError{Status: s}
}

// GateError 订单被本地闸门拒绝。不涉及券商通信，重试无意义。
type GateError struct {
	Status GateStatus
}

func (e *GateError) Error() string { return "order rejected: " + e.Status.String() }

// ProtocolMisuseError 调用方违反生命周期协议，属编程错误而非运行时状况。
type ProtocolMisuseError struct {
	Msg string
}

func (e *ProtocolMisuseError) Error() string { return "protocol misuse: " + e.Msg }

// FlattenError 风控或收盘要求强平但券商强平失败，账户留有真实敞口。
// 这是最高严重级别的错误，必须人工介入。
type FlattenError struct {
	Cause error // 触发强平的原因（风控违规或收盘），可为 nil
	Err   error // 券商返回的强平失败
}

func (e *FlattenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("flatten failed after %v: %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("flatten failed: %v", e.Err)
}

func (e *FlattenError) Unwrap() error { return e.Err }
