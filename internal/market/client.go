// Package market is a client for the order book market contract.
package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/dantezy/spark-market-scripts/internal/batch"
	"github.com/dantezy/spark-market-scripts/internal/chain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrNoOrders      = errors.New("no order ids given")
)

// Caller executes read-only contract calls. chain.Backend implements it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Market is bound to one deployed market contract.
type Market struct {
	address common.Address
	caller  Caller
	tx      *chain.Transactor
}

// New binds a market address. tx may be nil for read-only use.
func New(address common.Address, caller Caller, tx *chain.Transactor) *Market {
	return &Market{
		address: address,
		caller:  caller,
		tx:      tx,
	}
}

// Address returns the market contract address.
func (m *Market) Address() common.Address {
	return m.address
}

// Transactor returns the transactor used for writes.
func (m *Market) Transactor() *chain.Transactor {
	return m.tx
}

// Batch returns an empty batch targeting this market.
func (m *Market) Batch() *batch.Builder {
	return batch.New(m.tx, m.address)
}

// ---- call descriptors ----

func (m *Market) call(method string, value *big.Int, args ...interface{}) (batch.Call, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return batch.Call{}, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}
	return batch.Call{
		Method: method,
		Target: m.address,
		Data:   data,
		Value:  value,
	}, nil
}

// DepositCall credits amount of asset to the caller's market account. The
// market must already be approved to pull the tokens.
func (m *Market) DepositCall(amount *big.Int, asset common.Address) (batch.Call, error) {
	if !positive(amount) {
		return batch.Call{}, ErrInvalidAmount
	}
	return m.call("deposit", nil, asset, amount)
}

// WithdrawCall moves liquid funds back to the caller's wallet.
func (m *Market) WithdrawCall(amount *big.Int, asset AssetType) (batch.Call, error) {
	if !positive(amount) {
		return batch.Call{}, ErrInvalidAmount
	}
	return m.call("withdraw", nil, amount, uint8(asset))
}

// WithdrawToMarketCall moves liquid funds into the caller's account on another market.
func (m *Market) WithdrawToMarketCall(amount *big.Int, asset AssetType, target common.Address) (batch.Call, error) {
	if !positive(amount) {
		return batch.Call{}, ErrInvalidAmount
	}
	return m.call("withdrawToMarket", nil, amount, uint8(asset), target)
}

// OpenOrderCall places a limit order. fee is the native matcher fee forwarded
// with the call and may be nil.
func (m *Market) OpenOrderCall(amount *big.Int, side OrderType, price, fee *big.Int) (batch.Call, error) {
	if !positive(amount) || !positive(price) {
		return batch.Call{}, ErrInvalidAmount
	}
	return m.call("openOrder", fee, amount, uint8(side), price)
}

// CancelOrderCall cancels an order owned by the caller.
func (m *Market) CancelOrderCall(id OrderID) (batch.Call, error) {
	return m.call("cancelOrder", nil, [32]byte(id))
}

// MatchOrderPairCall matches a buy and a sell order.
func (m *Market) MatchOrderPairCall(a, b OrderID) (batch.Call, error) {
	return m.call("matchOrderPair", nil, [32]byte(a), [32]byte(b))
}

// MatchOrderManyCall matches as many of the given orders against each other as possible.
func (m *Market) MatchOrderManyCall(ids []OrderID) (batch.Call, error) {
	if len(ids) == 0 {
		return batch.Call{}, ErrNoOrders
	}
	return m.call("matchOrderMany", nil, rawIDs(ids))
}

// FulfillRequest describes a taker order filled against existing orders.
type FulfillRequest struct {
	Amount    *big.Int
	OrderType OrderType
	LimitType LimitType
	Price     *big.Int
	Slippage  *big.Int
	Orders    []OrderID
	Fee       *big.Int
}

// FulfillManyCall opens a taker order and fills it against req.Orders.
func (m *Market) FulfillManyCall(req FulfillRequest) (batch.Call, error) {
	if !positive(req.Amount) || !positive(req.Price) {
		return batch.Call{}, ErrInvalidAmount
	}
	if len(req.Orders) == 0 {
		return batch.Call{}, ErrNoOrders
	}
	slippage := req.Slippage
	if slippage == nil {
		slippage = new(big.Int)
	}
	return m.call("fulfillOrderMany", req.Fee,
		req.Amount, uint8(req.OrderType), uint8(req.LimitType), req.Price, slippage, rawIDs(req.Orders))
}

// ---- writes ----

func (m *Market) transact(ctx context.Context, c batch.Call, err error) (*chain.Outcome, error) {
	if err != nil {
		return nil, err
	}
	if m.tx == nil {
		return nil, fmt.Errorf("%s: market is read-only", c.Method)
	}
	out, err := m.tx.Transact(ctx, c.Target, c.Value, c.Data)
	if err != nil {
		return out, fmt.Errorf("%s: %w", c.Method, err)
	}
	return out, nil
}

// Deposit sends a deposit transaction.
func (m *Market) Deposit(ctx context.Context, amount *big.Int, asset common.Address) (*chain.Outcome, error) {
	c, err := m.DepositCall(amount, asset)
	return m.transact(ctx, c, err)
}

// Withdraw sends a withdraw transaction.
func (m *Market) Withdraw(ctx context.Context, amount *big.Int, asset AssetType) (*chain.Outcome, error) {
	c, err := m.WithdrawCall(amount, asset)
	return m.transact(ctx, c, err)
}

// WithdrawToMarket sends a withdrawToMarket transaction.
func (m *Market) WithdrawToMarket(ctx context.Context, amount *big.Int, asset AssetType, target common.Address) (*chain.Outcome, error) {
	c, err := m.WithdrawToMarketCall(amount, asset, target)
	return m.transact(ctx, c, err)
}

// OpenOrder places an order and returns its id.
func (m *Market) OpenOrder(ctx context.Context, amount *big.Int, side OrderType, price, fee *big.Int) (OrderID, *chain.Outcome, error) {
	c, err := m.OpenOrderCall(amount, side, price, fee)
	out, err := m.transact(ctx, c, err)
	if err != nil {
		return OrderID{}, out, err
	}
	id, err := DecodeOrderID(out.Return)
	return id, out, err
}

// CancelOrder sends a cancelOrder transaction.
func (m *Market) CancelOrder(ctx context.Context, id OrderID) (*chain.Outcome, error) {
	c, err := m.CancelOrderCall(id)
	return m.transact(ctx, c, err)
}

// MatchOrderPair sends a matchOrderPair transaction.
func (m *Market) MatchOrderPair(ctx context.Context, a, b OrderID) (*chain.Outcome, error) {
	c, err := m.MatchOrderPairCall(a, b)
	return m.transact(ctx, c, err)
}

// MatchOrderMany sends a matchOrderMany transaction.
func (m *Market) MatchOrderMany(ctx context.Context, ids []OrderID) (*chain.Outcome, error) {
	c, err := m.MatchOrderManyCall(ids)
	return m.transact(ctx, c, err)
}

// FulfillMany sends a fulfillOrderMany transaction and returns the taker order id.
func (m *Market) FulfillMany(ctx context.Context, req FulfillRequest) (OrderID, *chain.Outcome, error) {
	c, err := m.FulfillManyCall(req)
	out, err := m.transact(ctx, c, err)
	if err != nil {
		return OrderID{}, out, err
	}
	id, err := DecodeOrderID(out.Return)
	return id, out, err
}

// ---- reads ----

func (m *Market) view(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	out, err := m.caller.CallContract(ctx, ethereum.CallMsg{To: &m.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, chain.AsRevert(err))
	}

	values, err := ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	return values, nil
}

// Account returns the market balances of user.
func (m *Market) Account(ctx context.Context, user common.Address) (Account, error) {
	v, err := m.view(ctx, "account", user)
	if err != nil {
		return Account{}, err
	}
	return Account{
		Liquid: Balance{Base: v[0].(*big.Int), Quote: v[1].(*big.Int)},
		Locked: Balance{Base: v[2].(*big.Int), Quote: v[3].(*big.Int)},
	}, nil
}

// UserOrders returns the ids of user's open orders.
func (m *Market) UserOrders(ctx context.Context, user common.Address) ([]OrderID, error) {
	v, err := m.view(ctx, "userOrders", user)
	if err != nil {
		return nil, err
	}
	raw := v[0].([][32]byte)
	ids := make([]OrderID, len(raw))
	for i, r := range raw {
		ids[i] = OrderID(r)
	}
	return ids, nil
}

// Order returns an open order. It reports ok=false for unknown, cancelled or
// fully filled orders.
func (m *Market) Order(ctx context.Context, id OrderID) (Order, bool, error) {
	v, err := m.view(ctx, "order", [32]byte(id))
	if err != nil {
		return Order{}, false, err
	}
	if !v[0].(bool) {
		return Order{}, false, nil
	}
	return Order{
		ID:          id,
		Amount:      v[1].(*big.Int),
		OrderType:   OrderType(v[2].(uint8)),
		Owner:       v[3].(common.Address),
		Price:       v[4].(*big.Int),
		BlockHeight: v[5].(*big.Int).Uint64(),
	}, true, nil
}

// MustOrder is Order with a missing order reported as ErrOrderNotFound.
func (m *Market) MustOrder(ctx context.Context, id OrderID) (Order, error) {
	o, ok, err := m.Order(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id.Hex())
	}
	return o, nil
}

// OrderChangeInfo returns the history of an order, oldest first.
func (m *Market) OrderChangeInfo(ctx context.Context, id OrderID) ([]OrderChange, error) {
	v, err := m.view(ctx, "orderChangeInfo", [32]byte(id))
	if err != nil {
		return nil, err
	}

	kinds := v[0].([]uint8)
	heights := v[1].([]*big.Int)
	senders := v[2].([]common.Address)
	txIDs := v[3].([][32]byte)
	before := v[4].([]*big.Int)
	after := v[5].([]*big.Int)

	n := len(kinds)
	if len(heights) != n || len(senders) != n || len(txIDs) != n || len(before) != n || len(after) != n {
		return nil, fmt.Errorf("orderChangeInfo: inconsistent array lengths")
	}

	changes := make([]OrderChange, n)
	for i := range kinds {
		changes[i] = OrderChange{
			ChangeType:   OrderChangeType(kinds[i]),
			BlockHeight:  heights[i].Uint64(),
			Sender:       senders[i],
			TxID:         common.Hash(txIDs[i]),
			AmountBefore: before[i],
			AmountAfter:  after[i],
		}
	}
	return changes, nil
}

// MatcherFee returns the native fee a matcher earns per match, which order
// placers forward with openOrder.
func (m *Market) MatcherFee(ctx context.Context) (*big.Int, error) {
	v, err := m.view(ctx, "matcherFee")
	if err != nil {
		return nil, err
	}
	return v[0].(*big.Int), nil
}

// ProtocolFee returns the fee schedule ordered by volume threshold.
func (m *Market) ProtocolFee(ctx context.Context) ([]ProtocolFee, error) {
	v, err := m.view(ctx, "protocolFee")
	if err != nil {
		return nil, err
	}

	makers := v[0].([]*big.Int)
	takers := v[1].([]*big.Int)
	thresholds := v[2].([]*big.Int)
	if len(takers) != len(makers) || len(thresholds) != len(makers) {
		return nil, fmt.Errorf("protocolFee: inconsistent array lengths")
	}

	fees := make([]ProtocolFee, len(makers))
	for i := range makers {
		fees[i] = ProtocolFee{
			MakerFee:        makers[i],
			TakerFee:        takers[i],
			VolumeThreshold: thresholds[i],
		}
	}
	return fees, nil
}

// ProtocolFeeUser returns the maker and taker fee rates that apply to user.
func (m *Market) ProtocolFeeUser(ctx context.Context, user common.Address) (maker, taker *big.Int, err error) {
	v, err := m.view(ctx, "protocolFeeUser", user)
	if err != nil {
		return nil, nil, err
	}
	return v[0].(*big.Int), v[1].(*big.Int), nil
}

// ProtocolFeeUserAmount returns the maker and taker fees user would pay on amount.
func (m *Market) ProtocolFeeUserAmount(ctx context.Context, amount *big.Int, user common.Address) (maker, taker *big.Int, err error) {
	v, err := m.view(ctx, "protocolFeeUserAmount", amount, user)
	if err != nil {
		return nil, nil, err
	}
	return v[0].(*big.Int), v[1].(*big.Int), nil
}

// Config returns the market configuration.
func (m *Market) Config(ctx context.Context) (Config, error) {
	v, err := m.view(ctx, "config")
	if err != nil {
		return Config{}, err
	}
	return Config{
		Owner:         v[0].(common.Address),
		BaseAsset:     v[1].(common.Address),
		BaseDecimals:  v[2].(uint32),
		QuoteAsset:    v[3].(common.Address),
		QuoteDecimals: v[4].(uint32),
		PriceDecimals: v[5].(uint32),
		Version:       v[6].(uint32),
	}, nil
}

// ---- decoding ----

// DecodeOrderID decodes the bytes32 returned by openOrder or fulfillOrderMany,
// either from a direct call or from one slot of a multicall result.
func DecodeOrderID(ret []byte) (OrderID, error) {
	values, err := ABI.Methods["openOrder"].Outputs.Unpack(ret)
	if err != nil {
		return OrderID{}, fmt.Errorf("failed to decode order id: %w", err)
	}
	return OrderID(values[0].([32]byte)), nil
}

// DecodeOrderIDs decodes every multicall slot produced by an openOrder or
// fulfillOrderMany call. calls and returns must be the same batch.
func DecodeOrderIDs(calls []batch.Call, returns [][]byte) ([]OrderID, error) {
	if len(calls) != len(returns) {
		return nil, fmt.Errorf("have %d calls but %d results", len(calls), len(returns))
	}

	var ids []OrderID
	for i, c := range calls {
		if c.Method != "openOrder" && c.Method != "fulfillOrderMany" {
			continue
		}
		id, err := DecodeOrderID(returns[i])
		if err != nil {
			return nil, fmt.Errorf("call %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// OpenedOrder is a decoded OpenOrderEvent.
type OpenedOrder struct {
	ID        OrderID
	User      common.Address
	Amount    *big.Int
	OrderType OrderType
	Price     *big.Int
}

// OpenedOrders extracts OpenOrderEvent logs emitted by this market from a receipt.
func (m *Market) OpenedOrders(receipt *types.Receipt) ([]OpenedOrder, error) {
	if receipt == nil {
		return nil, nil
	}

	event := ABI.Events["OpenOrderEvent"]

	var orders []OpenedOrder
	for _, lg := range receipt.Logs {
		if lg.Address != m.address || len(lg.Topics) != 3 || lg.Topics[0] != event.ID {
			continue
		}

		values, err := event.Inputs.NonIndexed().Unpack(lg.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode OpenOrderEvent: %w", err)
		}

		orders = append(orders, OpenedOrder{
			ID:        OrderID(lg.Topics[1]),
			User:      common.BytesToAddress(lg.Topics[2].Bytes()),
			Amount:    values[0].(*big.Int),
			OrderType: OrderType(values[1].(uint8)),
			Price:     values[2].(*big.Int),
		})
	}
	return orders, nil
}

func rawIDs(ids []OrderID) [][32]byte {
	raw := make([][32]byte, len(ids))
	for i, id := range ids {
		raw[i] = id
	}
	return raw
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
