package markettest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dantezy/spark-market-scripts/internal/market"
)

type account struct {
	liquidBase  *big.Int
	liquidQuote *big.Int
	lockedBase  *big.Int
	lockedQuote *big.Int
}

func newAccount() *account {
	return &account{
		liquidBase:  new(big.Int),
		liquidQuote: new(big.Int),
		lockedBase:  new(big.Int),
		lockedQuote: new(big.Int),
	}
}

type order struct {
	id     market.OrderID
	amount *big.Int
	side   market.OrderType
	owner  common.Address
	price  *big.Int
	height uint64
}

type change struct {
	kind   market.OrderChangeType
	height uint64
	sender common.Address
	txHash common.Hash
	before *big.Int
	after  *big.Int
}

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// state is the mutable world. Every *big.Int stored in it is treated as
// immutable; updates store a fresh value, so clone only copies containers.
type state struct {
	accounts   map[common.Address]*account
	orders     map[market.OrderID]*order
	userOrders map[common.Address][]market.OrderID
	history    map[market.OrderID][]change
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[allowanceKey]*big.Int
	native     map[common.Address]*big.Int
	seq        uint64
}

func newState() *state {
	return &state{
		accounts:   make(map[common.Address]*account),
		orders:     make(map[market.OrderID]*order),
		userOrders: make(map[common.Address][]market.OrderID),
		history:    make(map[market.OrderID][]change),
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[allowanceKey]*big.Int),
		native:     make(map[common.Address]*big.Int),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq

	for k, v := range s.accounts {
		a := *v
		c.accounts[k] = &a
	}
	for k, v := range s.orders {
		o := *v
		c.orders[k] = &o
	}
	for k, v := range s.userOrders {
		c.userOrders[k] = append([]market.OrderID(nil), v...)
	}
	for k, v := range s.history {
		c.history[k] = append([]change(nil), v...)
	}
	for token, holders := range s.balances {
		m := make(map[common.Address]*big.Int, len(holders))
		for k, v := range holders {
			m[k] = v
		}
		c.balances[token] = m
	}
	for token, allowed := range s.allowances {
		m := make(map[allowanceKey]*big.Int, len(allowed))
		for k, v := range allowed {
			m[k] = v
		}
		c.allowances[token] = m
	}
	for k, v := range s.native {
		c.native[k] = v
	}
	return c
}

func (s *state) account(user common.Address) *account {
	a, ok := s.accounts[user]
	if !ok {
		a = newAccount()
		s.accounts[user] = a
	}
	return a
}

func (s *state) balance(token, owner common.Address) *big.Int {
	if v, ok := s.balances[token][owner]; ok {
		return v
	}
	return new(big.Int)
}

func (s *state) setBalance(token, owner common.Address, v *big.Int) {
	holders, ok := s.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		s.balances[token] = holders
	}
	holders[owner] = v
}

func (s *state) allowance(token, owner, spender common.Address) *big.Int {
	if v, ok := s.allowances[token][allowanceKey{owner, spender}]; ok {
		return v
	}
	return new(big.Int)
}

func (s *state) setAllowance(token, owner, spender common.Address, v *big.Int) {
	allowed, ok := s.allowances[token]
	if !ok {
		allowed = make(map[allowanceKey]*big.Int)
		s.allowances[token] = allowed
	}
	allowed[allowanceKey{owner, spender}] = v
}

func (s *state) nativeBalance(owner common.Address) *big.Int {
	if v, ok := s.native[owner]; ok {
		return v
	}
	return new(big.Int)
}

func (s *state) removeOrder(id market.OrderID) {
	o, ok := s.orders[id]
	if !ok {
		return
	}
	delete(s.orders, id)

	ids := s.userOrders[o.owner]
	kept := make([]market.OrderID, 0, len(ids))
	for _, other := range ids {
		if other != id {
			kept = append(kept, other)
		}
	}
	s.userOrders[o.owner] = kept
}

func add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}

// sub returns a-b floored at zero.
func sub(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	if r.Sign() < 0 {
		return new(big.Int)
	}
	return r
}

func minInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
