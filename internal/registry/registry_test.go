package registry

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// stubRegistry answers registry calls from a fixed pair table.
type stubRegistry struct {
	markets map[Pair]common.Address
	err     error
}

func (s *stubRegistry) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	method, err := ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "markets":
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		bases, quotes := args[0].([]common.Address), args[1].([]common.Address)
		out := make([]common.Address, len(bases))
		for i := range bases {
			out[i] = s.markets[Pair{Base: bases[i], Quote: quotes[i]}]
		}
		return method.Outputs.Pack(out)
	case "config":
		return method.Outputs.Pack(common.HexToAddress("0x0f"), uint32(3))
	}
	return nil, errors.New("unexpected method")
}

var (
	btc     = common.HexToAddress("0xb1")
	eth     = common.HexToAddress("0xe1")
	usdc    = common.HexToAddress("0xc1")
	btcUSDC = common.HexToAddress("0xa1")
)

func TestMarkets(t *testing.T) {
	r := New(common.HexToAddress("0x99"), &stubRegistry{
		markets: map[Pair]common.Address{{Base: btc, Quote: usdc}: btcUSDC},
	})

	markets, err := r.Markets(context.Background(), []Pair{
		{Base: btc, Quote: usdc},
		{Base: eth, Quote: usdc},
	})
	require.NoError(t, err)
	require.Len(t, markets, 2)
	require.True(t, markets[0].Registered())
	require.Equal(t, btcUSDC, markets[0].Address)
	require.Equal(t, btc, markets[0].Base)
	require.False(t, markets[1].Registered())

	addr, err := r.Market(context.Background(), Pair{Base: btc, Quote: usdc})
	require.NoError(t, err)
	require.Equal(t, btcUSDC, addr)

	_, err = r.Market(context.Background(), Pair{Base: eth, Quote: usdc})
	require.ErrorIs(t, err, ErrMarketNotRegistered)
}

func TestConfig(t *testing.T) {
	r := New(common.HexToAddress("0x99"), &stubRegistry{})

	owner, version, err := r.Config(context.Background())
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x0f"), owner)
	require.Equal(t, uint32(3), version)
}

func TestCallError(t *testing.T) {
	r := New(common.HexToAddress("0x99"), &stubRegistry{err: errors.New("dial tcp: refused")})

	_, err := r.Markets(context.Background(), []Pair{{Base: btc, Quote: usdc}})
	require.ErrorContains(t, err, "refused")
}
