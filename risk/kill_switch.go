package risk

import "sync"

// 触发原因标签。start_new_day 只会清除 daily 触发，trailing 触发需要管理员显式复位。
const (
	ReasonDaily    = "daily"
	ReasonTrailing = "trailing"
)

// KillSwitch 两态闩锁：Idle / Triggered。
// Activate 立即生效且对后续调用方强一致可见；除显式 Reset 外不可逆。
// KillSwitch 本身不含任何复位策略，何时允许 Reset 由持有它的 Governor 决定。
type KillSwitch struct {
	mu        sync.RWMutex
	triggered bool
	reason    string
}

func NewKillSwitch() *KillSwitch {
	return &KillSwitch{}
}

// Activate 触发闩锁并记录原因。重复触发保留最早的原因。
func (k *KillSwitch) Activate(reason string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.triggered {
		return
	}
	if reason == "" {
		reason = "risk limit breached"
	}
	k.triggered = true
	k.reason = reason
}

// Reset 复位闩锁并清除原因。
func (k *KillSwitch) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.triggered = false
	k.reason = ""
}

func (k *KillSwitch) Triggered() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.triggered
}

func (k *KillSwitch) Reason() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.reason
}
