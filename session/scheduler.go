package session

import (
	"fmt"
	"time"
)

// TimeOfDay 交易所时区内的时刻（分钟精度）。
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay 解析 "HH:MM" 格式。
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return t, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return t, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Scheduler 判断当前挂钟时间（交易所时区）是否落在交易时段内。
// 时段由开盘时刻与强平时刻界定；start > flatten 表示隔夜时段，
// 允许区间为 [start, 24:00) ∪ [0:00, flatten)。
type Scheduler struct {
	start   TimeOfDay
	flatten TimeOfDay
	loc     *time.Location
	clock   Clock
}

// NewScheduler 创建调度器。clock 为 nil 时使用系统时间。
func NewScheduler(start, flatten TimeOfDay, loc *time.Location, clock Clock) (*Scheduler, error) {
	if loc == nil {
		return nil, fmt.Errorf("venue location required")
	}
	if start == flatten {
		return nil, fmt.Errorf("session start and flatten time must differ")
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{start: start, flatten: flatten, loc: loc, clock: clock}, nil
}

// Now 返回交易所时区的当前时间。
func (s *Scheduler) Now() time.Time {
	return s.clock.Now().In(s.loc)
}

// InWindow 当前时间是否在交易时段内。
func (s *Scheduler) InWindow() bool {
	cur := s.currentMinutes()
	startMin, flattenMin := s.start.minutes(), s.flatten.minutes()
	if startMin < flattenMin {
		return cur >= startMin && cur < flattenMin
	}
	// 隔夜时段
	return cur >= startMin || cur < flattenMin
}

// PastFlatten 当前时间是否已到达强平时刻（时段结束后、下一时段开始前）。
// Coordinator 的 monitor 轮询据此触发收盘强平。
func (s *Scheduler) PastFlatten() bool {
	cur := s.currentMinutes()
	startMin, flattenMin := s.start.minutes(), s.flatten.minutes()
	if startMin < flattenMin {
		return cur >= flattenMin
	}
	return cur >= flattenMin && cur < startMin
}

func (s *Scheduler) Start() TimeOfDay   { return s.start }
func (s *Scheduler) Flatten() TimeOfDay { return s.flatten }

func (s *Scheduler) currentMinutes() int {
	now := s.Now()
	return now.Hour()*60 + now.Minute()
}
