package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"futures-trader-go/infrastructure/logger"
	"futures-trader-go/strategy"
)

// TickHandler 收到一条行情后的回调，在读取 goroutine 内同步执行。
type TickHandler func(t strategy.Tick)

// Feed 通过 websocket 订阅合约行情并持续派发 tick。
// 连接断开时 Run 返回错误，由外层决定是否重连。
type Feed struct {
	Endpoint string
	Dialer   *websocket.Dialer

	instruments []string
	log         *logger.Logger
}

func NewFeed(endpoint string, log *logger.Logger) *Feed {
	if log == nil {
		log = logger.NewNop()
	}
	return &Feed{
		Endpoint: endpoint,
		Dialer:   websocket.DefaultDialer,
		log:      log,
	}
}

// Subscribe 添加一个合约订阅，须在 Run 之前调用。
func (f *Feed) Subscribe(instrument string) error {
	if instrument == "" {
		return fmt.Errorf("instrument required")
	}
	f.instruments = append(f.instruments, instrument)
	return nil
}

type subscribeRequest struct {
	Op          string   `json:"op"`
	Instruments []string `json:"instruments"`
}

// Run 建立连接、发送订阅并进入读取循环，直到 ctx 取消或连接出错。
func (f *Feed) Run(ctx context.Context, handler TickHandler) error {
	if len(f.instruments) == 0 {
		return fmt.Errorf("no instruments subscribed")
	}

	conn, _, err := f.Dialer.DialContext(ctx, f.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close()

	sub := subscribeRequest{Op: "subscribe", Instruments: f.instruments}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	f.log.Info("feed subscribed", zap.Strings("instruments", f.instruments))

	// ctx 取消时关闭连接解除 ReadMessage 阻塞
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read feed: %w", err)
		}

		tick, ok, err := ParseTick(raw)
		if err != nil {
			f.log.LogError(err, map[string]interface{}{"op": "parse_tick"})
			continue
		}
		if ok && handler != nil {
			handler(tick)
		}
	}
}
