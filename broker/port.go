package broker

import (
	"futures-trader-go/ledger"
)

// Side indicates trade direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType is the subset of order types the execution core places.
type OrderType string

const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// OrderRequest describes one order to be placed through a Port.
// Quantity is always positive; direction is carried by Side.
type OrderRequest struct {
	Instrument string
	Quantity   int
	Type       OrderType
	Side       Side
	Price      *float64 // required for TypeLimit
	StopLoss   *float64
	TakeProfit *float64
}

// SignedQuantity folds Side into a signed contract count (buy positive).
func (r OrderRequest) SignedQuantity() int {
	if r.Side == SideSell {
		return -r.Quantity
	}
	return r.Quantity
}

// Validate rejects malformed requests locally, before they reach a broker.
func (r OrderRequest) Validate() error {
	if r.Instrument == "" {
		return &ValidationError{Msg: "instrument required"}
	}
	if r.Quantity <= 0 {
		return &ValidationError{Msg: "quantity must be positive"}
	}
	switch r.Side {
	case SideBuy, SideSell:
	default:
		return &ValidationError{Msg: "side must be BUY or SELL"}
	}
	switch r.Type {
	case TypeMarket:
	case TypeLimit:
		if r.Price == nil {
			return &ValidationError{Msg: "limit order requires a price"}
		}
	default:
		return &ValidationError{Msg: "unsupported order type " + string(r.Type)}
	}
	return nil
}

// Port is the broker capability set the execution core consumes.
// Calls are synchronous, potentially blocking I/O; timeouts are the
// implementation's responsibility and surface only as errors.
type Port interface {
	Connect() error
	IsConnected() bool

	// AccountBalance returns realized cash only.
	AccountBalance() (float64, error)
	// AccountEquity returns balance plus unrealized P&L.
	AccountEquity() (float64, error)

	PlaceOrder(req OrderRequest) (string, error)
	CancelOrder(orderID string) (bool, error)
	OpenPositions() ([]ledger.Position, error)

	// FlattenAll closes every open position with opposing market orders.
	// Must be idempotent: flattening a flat account is a no-op.
	FlattenAll() error
}

// FlattenPositions is the default FlattenAll composition: one opposing
// market order per open position. Implementations may reuse it.
func FlattenPositions(p Port) error {
	positions, err := p.OpenPositions()
	if err != nil {
		return err
	}
	for _, pos := range positions {
		if pos.Quantity == 0 {
			continue
		}
		req := OrderRequest{
			Instrument: pos.Instrument,
			Type:       TypeMarket,
		}
		if pos.Quantity > 0 {
			req.Side = SideSell
			req.Quantity = pos.Quantity
		} else {
			req.Side = SideBuy
			req.Quantity = -pos.Quantity
		}
		if _, err := p.PlaceOrder(req); err != nil {
			return err
		}
	}
	return nil
}
