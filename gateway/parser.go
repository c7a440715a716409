package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"futures-trader-go/strategy"
)

// wireMessage 行情推送的外层包装。
type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// tickPayload 对应 type=tick 消息的核心字段。
type tickPayload struct {
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Volume     float64 `json:"volume"`
	TsMillis   int64   `json:"ts"`
}

// ParseTick 解析一条行情消息。非 tick 类型（心跳、订阅确认）返回 ok=false。
func ParseTick(raw []byte) (t strategy.Tick, ok bool, err error) {
	var msg wireMessage
	if err = json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Type != "tick" {
		return
	}

	var p tickPayload
	if err = json.Unmarshal(msg.Data, &p); err != nil {
		return
	}
	if p.Instrument == "" {
		err = fmt.Errorf("tick missing instrument")
		return
	}

	t = strategy.Tick{
		Instrument: p.Instrument,
		Price:      p.Price,
		Volume:     p.Volume,
		Ts:         time.UnixMilli(p.TsMillis).UTC(),
	}
	ok = true
	return
}
