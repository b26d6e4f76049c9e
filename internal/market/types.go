package market

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// OrderID is the 256-bit identifier the contract assigns to an order.
type OrderID [32]byte

// ParseOrderID parses a 0x-prefixed (or bare) 64 character hex string.
func ParseOrderID(s string) (OrderID, error) {
	var id OrderID

	clean := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(clean) != 64 {
		return id, fmt.Errorf("invalid order id %q: want 32 bytes", s)
	}

	b, err := hexutil.Decode("0x" + clean)
	if err != nil {
		return id, fmt.Errorf("invalid order id %q: %w", s, err)
	}
	copy(id[:], b)
	return id, nil
}

// Hex returns the 0x-prefixed hex form.
func (id OrderID) Hex() string {
	return hexutil.Encode(id[:])
}

func (id OrderID) String() string {
	return id.Hex()
}

// Short returns an abbreviated id for log lines.
func (id OrderID) Short() string {
	h := id.Hex()
	return h[:10] + "..." + h[len(h)-4:]
}

// OrderType is the side of an order.
type OrderType uint8

const (
	Buy OrderType = iota
	Sell
)

func (t OrderType) String() string {
	switch t {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("OrderType(%d)", uint8(t))
	}
}

// Opposite returns the other side.
func (t OrderType) Opposite() OrderType {
	if t == Buy {
		return Sell
	}
	return Buy
}

// AssetType selects the base or quote side of a market account.
type AssetType uint8

const (
	Base AssetType = iota
	Quote
)

func (a AssetType) String() string {
	switch a {
	case Base:
		return "BASE"
	case Quote:
		return "QUOTE"
	default:
		return fmt.Sprintf("AssetType(%d)", uint8(a))
	}
}

// LimitType is the execution policy of a taker order.
type LimitType uint8

const (
	GTC LimitType = iota // Good Till Cancelled
	IOC                  // Immediate Or Cancel
	FOK                  // Fill Or Kill
)

func (l LimitType) String() string {
	switch l {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return fmt.Sprintf("LimitType(%d)", uint8(l))
	}
}

// Balance is a base/quote pair of fixed-point amounts.
type Balance struct {
	Base  *big.Int
	Quote *big.Int
}

// Account is a user's balances inside one market.
// Liquid funds are free for new orders, locked funds back open orders.
type Account struct {
	Liquid Balance
	Locked Balance
}

func (a Account) String() string {
	return fmt.Sprintf("liquid{base: %s, quote: %s} locked{base: %s, quote: %s}",
		a.Liquid.Base, a.Liquid.Quote, a.Locked.Base, a.Locked.Quote)
}

// Order is an open order as stored by the contract.
type Order struct {
	ID          OrderID
	Amount      *big.Int
	OrderType   OrderType
	Owner       common.Address
	Price       *big.Int
	BlockHeight uint64
}

// OrderChangeType is the kind of an order history entry.
type OrderChangeType uint8

const (
	OrderOpened OrderChangeType = iota
	OrderCancelled
	OrderMatched
)

func (c OrderChangeType) String() string {
	switch c {
	case OrderOpened:
		return "OPENED"
	case OrderCancelled:
		return "CANCELLED"
	case OrderMatched:
		return "MATCHED"
	default:
		return fmt.Sprintf("OrderChangeType(%d)", uint8(c))
	}
}

// OrderChange is one entry of an order's history.
type OrderChange struct {
	ChangeType   OrderChangeType
	BlockHeight  uint64
	Sender       common.Address
	TxID         common.Hash
	AmountBefore *big.Int
	AmountAfter  *big.Int
}

// ProtocolFee is one volume tier of the protocol fee schedule, in basis points.
type ProtocolFee struct {
	MakerFee        *big.Int
	TakerFee        *big.Int
	VolumeThreshold *big.Int
}

// Config is the static configuration of a market.
type Config struct {
	Owner         common.Address
	BaseAsset     common.Address
	BaseDecimals  uint32
	QuoteAsset    common.Address
	QuoteDecimals uint32
	PriceDecimals uint32
	Version       uint32
}

// AssetFor maps a token address to its side in this market.
func (c Config) AssetFor(asset common.Address) (AssetType, bool) {
	switch asset {
	case c.BaseAsset:
		return Base, true
	case c.QuoteAsset:
		return Quote, true
	default:
		return 0, false
	}
}
