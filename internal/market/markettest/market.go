package markettest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dantezy/spark-market-scripts/internal/market"
)

// Fee tiers reported by protocolFee, in basis points.
var (
	makerFees        = []*big.Int{big.NewInt(25), big.NewInt(15)}
	takerFees        = []*big.Int{big.NewInt(40), big.NewInt(25)}
	volumeThresholds = []*big.Int{big.NewInt(0), big.NewInt(1_000_000_000_000)}
)

func (b *Backend) execMarket(f *frame, data []byte) ([]byte, error) {
	method, args, err := decode(market.ABI, data)
	if err != nil {
		return nil, err
	}
	st := f.st
	out := method.Outputs

	switch method.Name {
	case "multicall":
		inner := &frame{st: st.clone(), from: f.from, value: f.value, height: f.height, txHash: f.txHash}
		calls := args[0].([][]byte)
		results := make([][]byte, len(calls))
		for i, call := range calls {
			ret, err := b.execMarket(inner, call)
			if err != nil {
				return nil, err
			}
			results[i] = ret
		}
		*st = *inner.st
		f.logs = append(f.logs, inner.logs...)
		return out.Pack(results)

	case "deposit":
		asset, amount := args[0].(common.Address), args[1].(*big.Int)
		if err := b.deposit(f, asset, amount); err != nil {
			return nil, err
		}
		return nil, nil

	case "withdraw":
		amount, assetType := args[0].(*big.Int), market.AssetType(args[1].(uint8))
		if err := b.withdraw(f, amount, assetType, f.from); err != nil {
			return nil, err
		}
		return nil, nil

	case "withdrawToMarket":
		amount, assetType, target := args[0].(*big.Int), market.AssetType(args[1].(uint8)), args[2].(common.Address)
		if err := b.withdraw(f, amount, assetType, target); err != nil {
			return nil, err
		}
		return nil, nil

	case "openOrder":
		id, err := b.openOrder(f, args[0].(*big.Int), market.OrderType(args[1].(uint8)), args[2].(*big.Int))
		if err != nil {
			return nil, err
		}
		return out.Pack([32]byte(id))

	case "cancelOrder":
		if err := b.cancelOrder(f, market.OrderID(args[0].([32]byte))); err != nil {
			return nil, err
		}
		return nil, nil

	case "matchOrderPair":
		if err := b.matchPair(f, market.OrderID(args[0].([32]byte)), market.OrderID(args[1].([32]byte))); err != nil {
			return nil, err
		}
		return nil, nil

	case "matchOrderMany":
		if err := b.matchMany(f, toIDs(args[0].([][32]byte))); err != nil {
			return nil, err
		}
		return nil, nil

	case "fulfillOrderMany":
		id, err := b.fulfillMany(f,
			args[0].(*big.Int),
			market.OrderType(args[1].(uint8)),
			market.LimitType(args[2].(uint8)),
			args[3].(*big.Int),
			toIDs(args[5].([][32]byte)),
		)
		if err != nil {
			return nil, err
		}
		return out.Pack([32]byte(id))

	case "account":
		a, ok := st.accounts[args[0].(common.Address)]
		if !ok {
			a = newAccount()
		}
		return out.Pack(a.liquidBase, a.liquidQuote, a.lockedBase, a.lockedQuote)

	case "userOrders":
		ids := st.userOrders[args[0].(common.Address)]
		raw := make([][32]byte, len(ids))
		for i, id := range ids {
			raw[i] = id
		}
		return out.Pack(raw)

	case "order":
		o, ok := st.orders[market.OrderID(args[0].([32]byte))]
		if !ok {
			return out.Pack(false, new(big.Int), uint8(0), common.Address{}, new(big.Int), new(big.Int))
		}
		return out.Pack(true, o.amount, uint8(o.side), o.owner, o.price, new(big.Int).SetUint64(o.height))

	case "orderChangeInfo":
		history := st.history[market.OrderID(args[0].([32]byte))]
		kinds := make([]uint8, len(history))
		heights := make([]*big.Int, len(history))
		senders := make([]common.Address, len(history))
		txIDs := make([][32]byte, len(history))
		before := make([]*big.Int, len(history))
		after := make([]*big.Int, len(history))
		for i, c := range history {
			kinds[i] = uint8(c.kind)
			heights[i] = new(big.Int).SetUint64(c.height)
			senders[i] = c.sender
			txIDs[i] = c.txHash
			before[i] = c.before
			after[i] = c.after
		}
		return out.Pack(kinds, heights, senders, txIDs, before, after)

	case "matcherFee":
		return out.Pack(b.opts.MatcherFee)

	case "protocolFee":
		return out.Pack(makerFees, takerFees, volumeThresholds)

	case "protocolFeeUser":
		return out.Pack(makerFees[0], takerFees[0])

	case "protocolFeeUserAmount":
		amount := args[0].(*big.Int)
		return out.Pack(bps(amount, makerFees[0]), bps(amount, takerFees[0]))

	case "config":
		return out.Pack(b.opts.Owner, b.opts.Base, b.opts.BaseDecimals, b.opts.Quote,
			b.opts.QuoteDecimals, b.opts.PriceDecimals, uint32(1))

	default:
		return nil, revertf("market: %s not supported", method.Name)
	}
}

func (b *Backend) deposit(f *frame, asset common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return revertf("ZeroAmount")
	}

	var side market.AssetType
	switch asset {
	case b.opts.Base:
		side = market.Base
	case b.opts.Quote:
		side = market.Quote
	default:
		return revertf("InvalidAsset")
	}

	if err := spendAllowance(f.st, asset, f.from, b.opts.Market, amount); err != nil {
		return err
	}
	if err := moveToken(f.st, asset, f.from, b.opts.Market, amount); err != nil {
		return err
	}

	a := f.st.account(f.from)
	if side == market.Base {
		a.liquidBase = add(a.liquidBase, amount)
	} else {
		a.liquidQuote = add(a.liquidQuote, amount)
	}
	return nil
}

func (b *Backend) withdraw(f *frame, amount *big.Int, side market.AssetType, to common.Address) error {
	if amount.Sign() <= 0 {
		return revertf("ZeroAmount")
	}

	a := f.st.account(f.from)
	token := b.opts.Base
	liquid := &a.liquidBase
	if side == market.Quote {
		token = b.opts.Quote
		liquid = &a.liquidQuote
	}

	if (*liquid).Cmp(amount) < 0 {
		return revertf("InsufficientBalance")
	}
	*liquid = sub(*liquid, amount)
	return moveToken(f.st, token, b.opts.Market, to, amount)
}

// quoteFor converts a base amount at price into quote units.
func (b *Backend) quoteFor(amount, price *big.Int) *big.Int {
	exp := int64(b.opts.BaseDecimals) + int64(b.opts.PriceDecimals) - int64(b.opts.QuoteDecimals)
	v := new(big.Int).Mul(amount, price)
	if exp >= 0 {
		return v.Quo(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil))
	}
	return v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(-exp), nil))
}

func (b *Backend) openOrder(f *frame, amount *big.Int, side market.OrderType, price *big.Int) (market.OrderID, error) {
	if amount.Sign() <= 0 || price.Sign() <= 0 {
		return market.OrderID{}, revertf("ZeroAmount")
	}
	if side != market.Buy && side != market.Sell {
		return market.OrderID{}, revertf("InvalidOrderType")
	}

	a := f.st.account(f.from)
	if side == market.Sell {
		if a.liquidBase.Cmp(amount) < 0 {
			return market.OrderID{}, revertf("InsufficientBalance")
		}
		a.liquidBase = sub(a.liquidBase, amount)
		a.lockedBase = add(a.lockedBase, amount)
	} else {
		cost := b.quoteFor(amount, price)
		if a.liquidQuote.Cmp(cost) < 0 {
			return market.OrderID{}, revertf("InsufficientBalance")
		}
		a.liquidQuote = sub(a.liquidQuote, cost)
		a.lockedQuote = add(a.lockedQuote, cost)
	}

	f.st.seq++
	seq := new(big.Int).SetUint64(f.st.seq).Bytes()
	id := market.OrderID(crypto.Keccak256Hash(b.opts.Market.Bytes(), f.from.Bytes(), seq))

	f.st.orders[id] = &order{
		id:     id,
		amount: new(big.Int).Set(amount),
		side:   side,
		owner:  f.from,
		price:  new(big.Int).Set(price),
		height: f.height,
	}
	f.st.userOrders[f.from] = append(f.st.userOrders[f.from], id)
	f.record(id, market.OrderOpened, new(big.Int), amount)

	event := market.ABI.Events["OpenOrderEvent"]
	logData, err := event.Inputs.NonIndexed().Pack(amount, uint8(side), price)
	if err != nil {
		return market.OrderID{}, err
	}
	f.logs = append(f.logs, &types.Log{
		Address: b.opts.Market,
		Topics:  []common.Hash{event.ID, common.Hash(id), common.BytesToHash(f.from.Bytes())},
		Data:    logData,
	})
	return id, nil
}

func (b *Backend) cancelOrder(f *frame, id market.OrderID) error {
	o, ok := f.st.orders[id]
	if !ok {
		return revertf("OrderNotFound")
	}
	if o.owner != f.from {
		return revertf("Unauthorized")
	}

	b.unlock(f.st.account(o.owner), o, o.amount)
	f.record(id, market.OrderCancelled, o.amount, new(big.Int))
	f.st.removeOrder(id)
	return nil
}

func (b *Backend) unlock(a *account, o *order, amount *big.Int) {
	if o.side == market.Sell {
		a.lockedBase = sub(a.lockedBase, amount)
		a.liquidBase = add(a.liquidBase, amount)
		return
	}
	released := b.quoteFor(amount, o.price)
	a.lockedQuote = sub(a.lockedQuote, released)
	a.liquidQuote = add(a.liquidQuote, released)
}

func (b *Backend) matchPair(f *frame, x, y market.OrderID) error {
	ox, okx := f.st.orders[x]
	oy, oky := f.st.orders[y]
	if !okx || !oky {
		return revertf("OrderNotFound")
	}
	if ox.side == oy.side {
		return revertf("CantMatch")
	}

	buy, sell := ox, oy
	if buy.side == market.Sell {
		buy, sell = sell, buy
	}
	if buy.price.Cmp(sell.price) < 0 {
		return revertf("CantMatch")
	}

	b.trade(f, buy, sell, minInt(buy.amount, sell.amount))
	return nil
}

// trade fills size of buy against sell at the sell order's price.
func (b *Backend) trade(f *frame, buy, sell *order, size *big.Int) {
	buyer := f.st.account(buy.owner)
	reserved := b.quoteFor(size, buy.price)
	paid := b.quoteFor(size, sell.price)
	buyer.lockedQuote = sub(buyer.lockedQuote, reserved)
	buyer.liquidQuote = add(buyer.liquidQuote, sub(reserved, paid))
	buyer.liquidBase = add(buyer.liquidBase, size)

	seller := f.st.account(sell.owner)
	seller.lockedBase = sub(seller.lockedBase, size)
	seller.liquidQuote = add(seller.liquidQuote, paid)

	for _, o := range []*order{buy, sell} {
		before := o.amount
		o.amount = sub(o.amount, size)
		f.record(o.id, market.OrderMatched, before, o.amount)
		if o.amount.Sign() == 0 {
			f.st.removeOrder(o.id)
		}
	}
}

func (b *Backend) matchMany(f *frame, ids []market.OrderID) error {
	matched := false
	for _, x := range ids {
		for _, y := range ids {
			ox, okx := f.st.orders[x]
			oy, oky := f.st.orders[y]
			if !okx || !oky || ox.side != market.Buy || oy.side != market.Sell {
				continue
			}
			if ox.price.Cmp(oy.price) < 0 {
				continue
			}
			b.trade(f, ox, oy, minInt(ox.amount, oy.amount))
			matched = true
		}
	}
	if !matched {
		return revertf("CantMatchMany")
	}
	return nil
}

func (b *Backend) fulfillMany(f *frame, amount *big.Int, side market.OrderType, limit market.LimitType, price *big.Int, ids []market.OrderID) (market.OrderID, error) {
	id, err := b.openOrder(f, amount, side, price)
	if err != nil {
		return market.OrderID{}, err
	}

	for _, other := range ids {
		taker, ok := f.st.orders[id]
		if !ok {
			break
		}
		maker, ok := f.st.orders[other]
		if !ok || maker.side == side {
			continue
		}
		buy, sell := taker, maker
		if side == market.Sell {
			buy, sell = maker, taker
		}
		if buy.price.Cmp(sell.price) < 0 {
			continue
		}
		b.trade(f, buy, sell, minInt(buy.amount, sell.amount))
	}

	rest, open := f.st.orders[id]
	switch {
	case !open:
	case limit == market.FOK:
		return market.OrderID{}, revertf("FillOrKillNotFilled")
	case limit == market.IOC:
		b.unlock(f.st.account(f.from), rest, rest.amount)
		f.record(id, market.OrderCancelled, rest.amount, new(big.Int))
		f.st.removeOrder(id)
	}
	return id, nil
}

func (f *frame) record(id market.OrderID, kind market.OrderChangeType, before, after *big.Int) {
	f.st.history[id] = append(f.st.history[id], change{
		kind:   kind,
		height: f.height,
		sender: f.from,
		txHash: f.txHash,
		before: new(big.Int).Set(before),
		after:  new(big.Int).Set(after),
	})
}

func toIDs(raw [][32]byte) []market.OrderID {
	ids := make([]market.OrderID, len(raw))
	for i, r := range raw {
		ids[i] = market.OrderID(r)
	}
	return ids
}

func bps(amount, rate *big.Int) *big.Int {
	v := new(big.Int).Mul(amount, rate)
	return v.Quo(v, big.NewInt(10_000))
}
