package alert

import (
	"fmt"
	"sync"
	"time"
)

// 告警级别
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Alert 告警信息
type Alert struct {
	Severity  string
	Title     string
	Message   string
	Timestamp time.Time
}

// Channel 告警通道接口
type Channel interface {
	Send(a Alert) error
	Name() string
}

// Throttler 按 key 限流，同一告警在间隔内只发一次。
type Throttler struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	interval time.Duration
}

func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
	}
}

// Allow 检查是否允许发送
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

// SetInterval 调整限流间隔，对后续 Allow 立即生效。
func (t *Throttler) SetInterval(interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = interval
}

// Clear 清空所有限流记录
func (t *Throttler) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[string]time.Time)
}

// Manager 告警管理器：限流后向所有通道广播。
// 单通道投递失败不影响其他通道。
type Manager struct {
	mu       sync.RWMutex
	channels []Channel
	throttle *Throttler
}

func NewManager(channels []Channel, throttleInterval time.Duration) *Manager {
	return &Manager{
		channels: channels,
		throttle: NewThrottler(throttleInterval),
	}
}

// Notify 是交易路径使用的入口。限流与投递失败对调用方透明，
// 风控与收盘逻辑绝不因告警问题中断。
func (m *Manager) Notify(severity, title, message string) {
	_ = m.Send(Alert{Severity: severity, Title: title, Message: message})
}

// Send 发送告警。全部通道失败时返回最后一个错误。
func (m *Manager) Send(a Alert) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	key := a.Severity + ":" + a.Title
	if !m.throttle.Allow(key) {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	delivered := 0
	for _, ch := range m.channels {
		if err := ch.Send(a); err != nil {
			lastErr = fmt.Errorf("channel %s: %w", ch.Name(), err)
		} else {
			delivered++
		}
	}
	if delivered == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// AddChannel 添加告警通道
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// Channels 返回全部通道名称
func (m *Manager) Channels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}

// SetThrottleInterval 调整限流间隔（配置热更新）。
func (m *Manager) SetThrottleInterval(interval time.Duration) {
	m.throttle.SetInterval(interval)
}

// ResetThrottle 清空限流状态，主要用于测试。
func (m *Manager) ResetThrottle() {
	m.throttle.Clear()
}
