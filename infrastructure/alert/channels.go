package alert

import (
	"fmt"

	"go.uber.org/zap"

	"futures-trader-go/infrastructure/logger"
)

// LogChannel 把告警写入结构化日志。
type LogChannel struct {
	log  *logger.Logger
	name string
}

func NewLogChannel(name string, log *logger.Logger) *LogChannel {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogChannel{log: log, name: name}
}

func (c *LogChannel) Send(a Alert) error {
	fields := map[string]interface{}{
		"severity": a.Severity,
		"title":    a.Title,
		"message":  a.Message,
	}
	switch a.Severity {
	case SeverityCritical:
		c.log.Error("alert", anyPairs(fields)...)
	case SeverityWarning:
		c.log.Warn("alert", anyPairs(fields)...)
	default:
		c.log.Info("alert", anyPairs(fields)...)
	}
	return nil
}

func (c *LogChannel) Name() string { return c.name }

// ConsoleChannel 控制台告警通道（彩色输出）
type ConsoleChannel struct {
	name string
}

func NewConsoleChannel(name string) *ConsoleChannel {
	return &ConsoleChannel{name: name}
}

func (c *ConsoleChannel) Send(a Alert) error {
	const reset = "\033[0m"
	color := reset
	switch a.Severity {
	case SeverityInfo:
		color = "\033[32m"
	case SeverityWarning:
		color = "\033[33m"
	case SeverityCritical:
		color = "\033[31m"
	}

	fmt.Printf("%s[%s]%s %s %s: %s\n",
		color, a.Severity, reset,
		a.Timestamp.Format("2006-01-02 15:04:05"),
		a.Title, a.Message,
	)
	return nil
}

func (c *ConsoleChannel) Name() string { return c.name }

// MockChannel 测试用通道，记录收到的全部告警。
type MockChannel struct {
	name      string
	alerts    []Alert
	shouldErr bool
}

func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(a Alert) error {
	if c.shouldErr {
		return fmt.Errorf("mock send failure")
	}
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *MockChannel) Name() string { return c.name }

func (c *MockChannel) Alerts() []Alert { return c.alerts }

func (c *MockChannel) Count() int { return len(c.alerts) }

func (c *MockChannel) SetShouldError(v bool) { c.shouldErr = v }

func (c *MockChannel) Clear() { c.alerts = nil }

func anyPairs(fields map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
