// Package erc20 reads and moves ERC-20 tokens used as market assets.
package erc20

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dantezy/spark-market-scripts/internal/batch"
	"github.com/dantezy/spark-market-scripts/internal/chain"
)

const tokenABI = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

// ABI is the parsed token interface, including the mint entry point of the
// testnet tokens.
var ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		panic("erc20: invalid ABI: " + err.Error())
	}
	return parsed
}()

// Caller executes read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Token is bound to one token contract.
type Token struct {
	address common.Address
	caller  Caller
	tx      *chain.Transactor
}

// New binds a token address. tx may be nil for read-only use.
func New(address common.Address, caller Caller, tx *chain.Transactor) *Token {
	return &Token{address: address, caller: caller, tx: tx}
}

// Address returns the token contract address.
func (t *Token) Address() common.Address {
	return t.address
}

func (t *Token) view(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	out, err := t.caller.CallContract(ctx, ethereum.CallMsg{To: &t.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", t.address.Hex(), method, chain.AsRevert(err))
	}
	values, err := ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	return values, nil
}

// BalanceOf returns the token balance of owner.
func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	v, err := t.view(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return v[0].(*big.Int), nil
}

// Allowance returns how much spender may pull from owner.
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	v, err := t.view(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return v[0].(*big.Int), nil
}

// Decimals returns the token's decimal places.
func (t *Token) Decimals(ctx context.Context) (uint8, error) {
	v, err := t.view(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	return v[0].(uint8), nil
}

// Symbol returns the token symbol.
func (t *Token) Symbol(ctx context.Context) (string, error) {
	v, err := t.view(ctx, "symbol")
	if err != nil {
		return "", err
	}
	return v[0].(string), nil
}

func (t *Token) call(method string, args ...interface{}) (batch.Call, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return batch.Call{}, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	return batch.Call{Method: method, Target: t.address, Data: data, Value: new(big.Int)}, nil
}

// ApproveCall allows spender to pull amount.
func (t *Token) ApproveCall(spender common.Address, amount *big.Int) (batch.Call, error) {
	return t.call("approve", spender, amount)
}

// TransferCall sends amount to recipient.
func (t *Token) TransferCall(to common.Address, amount *big.Int) (batch.Call, error) {
	return t.call("transfer", to, amount)
}

// MintCall mints amount of a test token to recipient.
func (t *Token) MintCall(to common.Address, amount *big.Int) (batch.Call, error) {
	return t.call("mint", to, amount)
}

func (t *Token) transact(ctx context.Context, c batch.Call, err error) (*chain.Outcome, error) {
	if err != nil {
		return nil, err
	}
	if t.tx == nil {
		return nil, fmt.Errorf("%s: token is read-only", c.Method)
	}
	out, err := t.tx.Transact(ctx, c.Target, c.Value, c.Data)
	if err != nil {
		return out, fmt.Errorf("%s %s: %w", t.address.Hex(), c.Method, err)
	}
	return out, nil
}

// Approve sends an approve transaction.
func (t *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*chain.Outcome, error) {
	c, err := t.ApproveCall(spender, amount)
	return t.transact(ctx, c, err)
}

// Transfer sends a transfer transaction.
func (t *Token) Transfer(ctx context.Context, to common.Address, amount *big.Int) (*chain.Outcome, error) {
	c, err := t.TransferCall(to, amount)
	return t.transact(ctx, c, err)
}

// Mint sends a mint transaction. Only testnet tokens expose it.
func (t *Token) Mint(ctx context.Context, to common.Address, amount *big.Int) (*chain.Outcome, error) {
	c, err := t.MintCall(to, amount)
	return t.transact(ctx, c, err)
}

// EnsureAllowance approves spender for amount unless the current allowance
// already covers it. It returns a nil outcome when nothing was sent.
func (t *Token) EnsureAllowance(ctx context.Context, spender common.Address, amount *big.Int) (*chain.Outcome, error) {
	if t.tx == nil {
		return nil, fmt.Errorf("approve: token is read-only")
	}

	current, err := t.Allowance(ctx, t.tx.From(), spender)
	if err != nil {
		return nil, err
	}
	if current.Cmp(amount) >= 0 {
		return nil, nil
	}
	return t.Approve(ctx, spender, amount)
}
