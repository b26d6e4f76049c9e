// Package registry looks up market contracts by asset pair.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dantezy/spark-market-scripts/internal/chain"
)

const registryABI = `[
  {"type":"function","name":"markets","stateMutability":"view","inputs":[{"name":"bases","type":"address[]"},{"name":"quotes","type":"address[]"}],"outputs":[{"name":"markets","type":"address[]"}]},
  {"type":"function","name":"config","stateMutability":"view","inputs":[],"outputs":[{"name":"owner","type":"address"},{"name":"version","type":"uint32"}]}
]`

// ABI is the parsed registry interface.
var ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		panic("registry: invalid ABI: " + err.Error())
	}
	return parsed
}()

var ErrMarketNotRegistered = errors.New("market not registered")

// Caller executes read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Pair is a base/quote asset pair.
type Pair struct {
	Base  common.Address
	Quote common.Address
}

// Market is a registry entry. Address is the zero address when no market is
// registered for the pair.
type Market struct {
	Pair
	Address common.Address
}

// Registered reports whether the registry knows a market for the pair.
func (m Market) Registered() bool {
	return m.Address != (common.Address{})
}

// Registry is bound to the registry contract.
type Registry struct {
	address common.Address
	caller  Caller
}

// New binds a registry address.
func New(address common.Address, caller Caller) *Registry {
	return &Registry{address: address, caller: caller}
}

func (r *Registry) view(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", method, chain.AsRevert(err))
	}
	values, err := ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	return values, nil
}

// Markets resolves each pair to its market, in the order given.
func (r *Registry) Markets(ctx context.Context, pairs []Pair) ([]Market, error) {
	bases := make([]common.Address, len(pairs))
	quotes := make([]common.Address, len(pairs))
	for i, p := range pairs {
		bases[i] = p.Base
		quotes[i] = p.Quote
	}

	v, err := r.view(ctx, "markets", bases, quotes)
	if err != nil {
		return nil, err
	}

	addrs := v[0].([]common.Address)
	if len(addrs) != len(pairs) {
		return nil, fmt.Errorf("registry returned %d markets for %d pairs", len(addrs), len(pairs))
	}

	markets := make([]Market, len(pairs))
	for i, p := range pairs {
		markets[i] = Market{Pair: p, Address: addrs[i]}
	}
	return markets, nil
}

// Market resolves a single pair and fails when it is not registered.
func (r *Registry) Market(ctx context.Context, pair Pair) (common.Address, error) {
	markets, err := r.Markets(ctx, []Pair{pair})
	if err != nil {
		return common.Address{}, err
	}
	if !markets[0].Registered() {
		return common.Address{}, fmt.Errorf("%w: %s/%s", ErrMarketNotRegistered, pair.Base.Hex(), pair.Quote.Hex())
	}
	return markets[0].Address, nil
}

// Config returns the registry owner and version.
func (r *Registry) Config(ctx context.Context) (owner common.Address, version uint32, err error) {
	v, err := r.view(ctx, "config")
	if err != nil {
		return common.Address{}, 0, err
	}
	return v[0].(common.Address), v[1].(uint32), nil
}
