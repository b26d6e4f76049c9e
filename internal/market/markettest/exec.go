package markettest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dantezy/spark-market-scripts/internal/erc20"
)

var (
	errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	stringArgs    = func() abi.Arguments {
		t, err := abi.NewType("string", "", nil)
		if err != nil {
			panic(err)
		}
		return abi.Arguments{{Type: t}}
	}()
)

// revertError mimics the JSON-RPC error a node returns for a reverted call.
// It satisfies rpc.DataError.
type revertError struct {
	reason string
	data   []byte
}

func revertf(format string, args ...interface{}) error {
	reason := fmt.Sprintf(format, args...)
	packed, err := stringArgs.Pack(reason)
	if err != nil {
		panic(err)
	}
	return &revertError{
		reason: reason,
		data:   append(append([]byte{}, errorSelector...), packed...),
	}
}

func (e *revertError) Error() string          { return "execution reverted: " + e.reason }
func (e *revertError) ErrorCode() int         { return 3 }
func (e *revertError) ErrorData() interface{} { return hexutil.Encode(e.data) }

type frame struct {
	st     *state
	from   common.Address
	value  *big.Int
	height uint64
	txHash common.Hash
	logs   []*types.Log
}

func (b *Backend) frame(st *state, from common.Address, value *big.Int, txHash common.Hash) *frame {
	if value == nil {
		value = new(big.Int)
	}
	return &frame{
		st:     st,
		from:   from,
		value:  value,
		height: b.height,
		txHash: txHash,
	}
}

func (b *Backend) exec(f *frame, to common.Address, data []byte) ([]byte, error) {
	if _, ok := b.tokens[to]; ok {
		return b.execToken(f, to, data)
	}
	if to == b.opts.Market {
		return b.execMarket(f, data)
	}
	if len(data) == 0 {
		return nil, b.transferNative(f, to)
	}
	return nil, revertf("no contract at %s", to.Hex())
}

func (b *Backend) transferNative(f *frame, to common.Address) error {
	if f.value.Sign() == 0 {
		return nil
	}
	have := f.st.nativeBalance(f.from)
	if have.Cmp(f.value) < 0 {
		return revertf("insufficient funds: have %s, want %s", have, f.value)
	}
	f.st.native[f.from] = sub(have, f.value)
	f.st.native[to] = add(f.st.nativeBalance(to), f.value)
	return nil
}

// ---- tokens ----

func (b *Backend) execToken(f *frame, token common.Address, data []byte) ([]byte, error) {
	method, args, err := decode(erc20.ABI, data)
	if err != nil {
		return nil, err
	}
	info := b.tokens[token]
	st := f.st

	switch method.Name {
	case "name", "symbol":
		return method.Outputs.Pack(info.symbol)
	case "decimals":
		return method.Outputs.Pack(info.decimals)
	case "totalSupply":
		total := new(big.Int)
		for _, v := range st.balances[token] {
			total.Add(total, v)
		}
		return method.Outputs.Pack(total)
	case "balanceOf":
		return method.Outputs.Pack(st.balance(token, args[0].(common.Address)))
	case "allowance":
		return method.Outputs.Pack(st.allowance(token, args[0].(common.Address), args[1].(common.Address)))
	case "approve":
		st.setAllowance(token, f.from, args[0].(common.Address), args[1].(*big.Int))
		return method.Outputs.Pack(true)
	case "transfer":
		if err := moveToken(st, token, f.from, args[0].(common.Address), args[1].(*big.Int)); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
	case "transferFrom":
		owner, to, amount := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
		if err := spendAllowance(st, token, owner, f.from, amount); err != nil {
			return nil, err
		}
		if err := moveToken(st, token, owner, to, amount); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
	case "mint":
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		st.setBalance(token, to, add(st.balance(token, to), amount))
		return nil, nil
	default:
		return nil, revertf("token: %s not supported", method.Name)
	}
}

func moveToken(st *state, token, from, to common.Address, amount *big.Int) error {
	have := st.balance(token, from)
	if have.Cmp(amount) < 0 {
		return revertf("ERC20: transfer amount exceeds balance")
	}
	st.setBalance(token, from, sub(have, amount))
	st.setBalance(token, to, add(st.balance(token, to), amount))
	return nil
}

func spendAllowance(st *state, token, owner, spender common.Address, amount *big.Int) error {
	allowed := st.allowance(token, owner, spender)
	if allowed.Cmp(amount) < 0 {
		return revertf("ERC20: insufficient allowance")
	}
	st.setAllowance(token, owner, spender, sub(allowed, amount))
	return nil
}

func decode(contract abi.ABI, data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, revertf("missing selector")
	}
	method, err := contract.MethodById(data[:4])
	if err != nil {
		return nil, nil, revertf("unknown selector %s", hexutil.Encode(data[:4]))
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, revertf("%s: malformed calldata", method.Name)
	}
	return method, args, nil
}
