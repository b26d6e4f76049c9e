// Package markettest is an in-memory chain hosting one market contract and
// its tokens. It implements chain.Backend so the real transactor, market
// client and batch builder can be exercised without a node.
package markettest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"

	"github.com/dantezy/spark-market-scripts/internal/chain"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/wallet"
)

// Well known development keys.
const (
	Key0 = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	Key1 = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

var (
	DefaultMarket = common.HexToAddress("0x000000000000000000000000000000000000a001")
	DefaultBase   = common.HexToAddress("0x000000000000000000000000000000000000b001")
	DefaultQuote  = common.HexToAddress("0x000000000000000000000000000000000000c001")
)

var _ chain.Backend = (*Backend)(nil)

// Options describes the simulated market.
type Options struct {
	ChainID       int64
	Market        common.Address
	Owner         common.Address
	Base          common.Address
	BaseSymbol    string
	BaseDecimals  uint32
	Quote         common.Address
	QuoteSymbol   string
	QuoteDecimals uint32
	PriceDecimals uint32
	MatcherFee    *big.Int
}

// DefaultOptions is a BTC/USDC market with 8/6 asset decimals and 9 price decimals.
func DefaultOptions() Options {
	return Options{
		ChainID:       84532,
		Market:        DefaultMarket,
		Base:          DefaultBase,
		BaseSymbol:    "BTC",
		BaseDecimals:  8,
		Quote:         DefaultQuote,
		QuoteSymbol:   "USDC",
		QuoteDecimals: 6,
		PriceDecimals: 9,
		MatcherFee:    new(big.Int),
	}
}

type tokenInfo struct {
	symbol   string
	decimals uint8
}

// Backend is the simulated chain.
type Backend struct {
	mu       sync.Mutex
	opts     Options
	tokens   map[common.Address]tokenInfo
	st       *state
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	txs      []*types.Transaction
	height   uint64
	signer   types.Signer
	sendErr  error
}

// New returns a chain with an empty market and its two tokens deployed.
func New(opts Options) *Backend {
	if opts.MatcherFee == nil {
		opts.MatcherFee = new(big.Int)
	}
	chainID := big.NewInt(opts.ChainID)

	b := &Backend{
		opts:     opts,
		tokens:   make(map[common.Address]tokenInfo),
		st:       newState(),
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
		height:   1,
		signer:   types.LatestSignerForChainID(chainID),
	}
	b.tokens[opts.Base] = tokenInfo{symbol: opts.BaseSymbol, decimals: uint8(opts.BaseDecimals)}
	b.tokens[opts.Quote] = tokenInfo{symbol: opts.QuoteSymbol, decimals: uint8(opts.QuoteDecimals)}
	return b
}

// NewDefault is New(DefaultOptions()).
func NewDefault() *Backend {
	return New(DefaultOptions())
}

// Options returns the market description.
func (b *Backend) Options() Options {
	return b.opts
}

// AddToken deploys another token.
func (b *Backend) AddToken(addr common.Address, symbol string, decimals uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[addr] = tokenInfo{symbol: symbol, decimals: decimals}
}

// Mint credits token to owner's wallet.
func (b *Backend) Mint(token, owner common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st.setBalance(token, owner, add(b.st.balance(token, owner), amount))
}

// Fund credits native coin to owner.
func (b *Backend) Fund(owner common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st.native[owner] = add(b.st.nativeBalance(owner), amount)
}

// FailSends makes every SendTransaction return err until called with nil.
func (b *Backend) FailSends(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendErr = err
}

// Account returns user's market balances.
func (b *Backend) Account(user common.Address) market.Account {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.st.accounts[user]
	if !ok {
		a = newAccount()
	}
	return market.Account{
		Liquid: market.Balance{Base: new(big.Int).Set(a.liquidBase), Quote: new(big.Int).Set(a.liquidQuote)},
		Locked: market.Balance{Base: new(big.Int).Set(a.lockedBase), Quote: new(big.Int).Set(a.lockedQuote)},
	}
}

// Orders returns user's open order ids.
func (b *Backend) Orders(user common.Address) []market.OrderID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]market.OrderID(nil), b.st.userOrders[user]...)
}

// TokenBalance returns owner's wallet balance of token.
func (b *Backend) TokenBalance(token, owner common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.st.balance(token, owner))
}

// TxCount returns the number of transactions accepted, mined or reverted.
func (b *Backend) TxCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.txs)
}

// Transactor returns a transactor for the hex key, bound to this chain.
func (b *Backend) Transactor(tb testing.TB, key string, opts ...chain.Option) *chain.Transactor {
	tb.Helper()

	w, err := wallet.NewWalletFromHex(key)
	if err != nil {
		tb.Fatalf("wallet: %v", err)
	}

	opts = append([]chain.Option{chain.WithPollInterval(time.Millisecond)}, opts...)
	tx, err := chain.NewTransactor(context.Background(), b, w, big.NewInt(b.opts.ChainID), opts...)
	if err != nil {
		tb.Fatalf("transactor: %v", err)
	}
	return tx
}

// ---- chain.Backend ----

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(b.opts.ChainID), nil
}

func (b *Backend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.st.nativeBalance(account)), nil
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, errors.New("contract creation is not supported")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f := b.frame(b.st.clone(), msg.From, msg.Value, common.Hash{})
	return b.exec(f, *msg.To, msg.Data)
}

func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{
		Number:  new(big.Int).SetUint64(b.height),
		BaseFee: big.NewInt(params.GWei),
	}, nil
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(params.GWei), nil
}

func (b *Backend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if _, err := b.CallContract(ctx, msg, nil); err != nil {
		return 0, err
	}
	return gasFor(msg.Data), nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sendErr != nil {
		return b.sendErr
	}
	if tx.To() == nil {
		return errors.New("contract creation is not supported")
	}

	from, err := types.Sender(b.signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if want := b.nonces[from]; tx.Nonce() != want {
		return fmt.Errorf("nonce mismatch: have %d, want %d", tx.Nonce(), want)
	}
	b.nonces[from]++
	b.height++
	b.txs = append(b.txs, tx)

	f := b.frame(b.st.clone(), from, tx.Value(), tx.Hash())
	_, execErr := b.exec(f, *tx.To(), tx.Data())

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusFailed,
		TxHash:      tx.Hash(),
		GasUsed:     gasFor(tx.Data()),
		BlockNumber: new(big.Int).SetUint64(b.height),
	}
	receipt.CumulativeGasUsed = receipt.GasUsed

	if execErr == nil {
		b.st = f.st
		receipt.Status = types.ReceiptStatusSuccessful
		for i, lg := range f.logs {
			lg.TxHash = tx.Hash()
			lg.BlockNumber = b.height
			lg.Index = uint(i)
		}
		receipt.Logs = f.logs
	}
	b.receipts[tx.Hash()] = receipt
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func gasFor(data []byte) uint64 {
	return params.TxGas + uint64(len(data))*params.TxDataNonZeroGasEIP2028 + 100_000
}
