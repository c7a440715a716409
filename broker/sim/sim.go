package sim

import (
	"fmt"
	"sync"
	"time"

	"futures-trader-go/broker"
	"futures-trader-go/ledger"
	"futures-trader-go/pkg/id"
)

// pendingOrder 尚未成交的限价单。
type pendingOrder struct {
	orderID    string
	instrument string
	quantity   int // 带符号
	price      float64
}

// Broker 进程内撮合的模拟券商，用于测试与 dry-run。
// 持仓账本与真实券商一样由自身维护；成交、盈亏行为与实盘一致。
type Broker struct {
	mu        sync.Mutex
	connected bool

	initialBalance float64
	book           *ledger.Ledger
	marketPrices   map[string]float64
	pending        map[string]pendingOrder

	onFill func(ledger.Fill)
}

func New(initialBalance float64) *Broker {
	return &Broker{
		initialBalance: initialBalance,
		book:           ledger.New(),
		marketPrices:   make(map[string]float64),
		pending:        make(map[string]pendingOrder),
	}
}

// SetFillHandler 注册成交回调（驱动策略 OnTrade 与外部镜像账本）。
// 回调在持锁状态下同步执行，回调内不得再调用 Broker 自身的方法。
func (b *Broker) SetFillHandler(fn func(ledger.Fill)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onFill = fn
}

func (b *Broker) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

func (b *Broker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// AccountBalance 已实现资金 = 初始余额 + 账本累计已实现盈亏。
func (b *Broker) AccountBalance() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return 0, &broker.ConnectionError{Op: "account balance: not connected"}
	}
	return b.initialBalance + b.book.TotalRealized(), nil
}

// AccountEquity 权益 = 余额 + 全部浮动盈亏。
func (b *Broker) AccountEquity() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return 0, &broker.ConnectionError{Op: "account equity: not connected"}
	}
	return b.initialBalance + b.book.TotalRealized() + b.book.TotalUnrealized(), nil
}

// PlaceOrder 市价单立即按当前市场价成交；限价单满足价格条件立即成交，
// 否则挂入待成交队列等待行情触发。
func (b *Broker) PlaceOrder(req broker.OrderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return "", &broker.ConnectionError{Op: "place order: not connected"}
	}

	orderID := id.New()
	signed := req.SignedQuantity()

	switch req.Type {
	case broker.TypeMarket:
		price, ok := b.marketPrices[req.Instrument]
		if req.Price != nil {
			price, ok = *req.Price, true
		}
		if !ok {
			return "", &broker.ValidationError{Msg: "no market price for " + req.Instrument}
		}
		b.executeFill(req.Instrument, signed, price)

	case broker.TypeLimit:
		limit := *req.Price
		market, ok := b.marketPrices[req.Instrument]
		if ok && ((signed > 0 && market <= limit) || (signed < 0 && market >= limit)) {
			b.executeFill(req.Instrument, signed, market)
		} else {
			b.pending[orderID] = pendingOrder{
				orderID:    orderID,
				instrument: req.Instrument,
				quantity:   signed,
				price:      limit,
			}
		}
	}

	return orderID, nil
}

// CancelOrder 撤销待成交限价单。
func (b *Broker) CancelOrder(orderID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[orderID]; ok {
		delete(b.pending, orderID)
		return true, nil
	}
	return false, nil
}

func (b *Broker) OpenPositions() ([]ledger.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, &broker.ConnectionError{Op: "open positions: not connected"}
	}
	return b.book.Positions(), nil
}

// FlattenAll 对每个持仓发出反向市价单。已平账户重复调用是无操作。
func (b *Broker) FlattenAll() error {
	b.mu.Lock()
	positions := b.book.Positions()
	b.mu.Unlock()

	for _, pos := range positions {
		if pos.Quantity == 0 {
			continue
		}
		req := broker.OrderRequest{Instrument: pos.Instrument, Type: broker.TypeMarket}
		if pos.Quantity > 0 {
			req.Side = broker.SideSell
			req.Quantity = pos.Quantity
		} else {
			req.Side = broker.SideBuy
			req.Quantity = -pos.Quantity
		}
		if _, err := b.PlaceOrder(req); err != nil {
			return fmt.Errorf("flatten %s: %w", pos.Instrument, err)
		}
	}
	return nil
}

// UpdateMarketPrice 推进行情：刷新浮动盈亏并触发满足条件的限价单。
func (b *Broker) UpdateMarketPrice(instrument string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.marketPrices[instrument] = price
	b.book.MarkToMarket(instrument, price)

	for oid, ord := range b.pending {
		if ord.instrument != instrument {
			continue
		}
		if (ord.quantity > 0 && price <= ord.price) || (ord.quantity < 0 && price >= ord.price) {
			delete(b.pending, oid)
			b.executeFill(ord.instrument, ord.quantity, price)
		}
	}
}

// PendingOrders 当前挂单数，测试用。
func (b *Broker) PendingOrders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Book 暴露内部账本的只读视图（测试与镜像用）。
func (b *Broker) Book() *ledger.Ledger {
	return b.book
}

// executeFill 调用方需持锁。
func (b *Broker) executeFill(instrument string, signedQty int, price float64) {
	fill := ledger.Fill{
		Instrument: instrument,
		Quantity:   signedQty,
		Price:      price,
		Timestamp:  time.Now().UTC(),
	}
	// 数量非零由下单校验保证
	_ = b.book.Apply(fill)
	if b.onFill != nil {
		b.onFill(fill)
	}
}
