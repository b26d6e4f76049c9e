package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/wallet"
)

const (
	defaultPollInterval = 2 * time.Second
	// estimated gas is padded by 20%
	gasHeadroomNum = 12
	gasHeadroomDen = 10
)

// Outcome is the result of a simulated and (unless dry run) mined transaction.
type Outcome struct {
	Tx      *types.Transaction
	Receipt *types.Receipt
	// Return holds the return data of the pre-flight eth_call.
	Return []byte
}

// TxHash returns the hash of the sent transaction, or the zero hash in dry run.
func (o *Outcome) TxHash() common.Hash {
	if o == nil || o.Tx == nil {
		return common.Hash{}
	}
	return o.Tx.Hash()
}

// Transactor signs and sends transactions from one wallet.
type Transactor struct {
	backend      Backend
	signer       *wallet.Signer
	gasLimit     uint64
	pollInterval time.Duration
	dryRun       bool
	logger       *zap.Logger

	// next nonce to use; nil until the first send or after a failed send
	nonceMu   sync.Mutex
	nextNonce *uint64
}

// Option configures a Transactor.
type Option func(*Transactor)

// WithGasLimit fixes the gas limit instead of estimating it.
func WithGasLimit(limit uint64) Option {
	return func(t *Transactor) { t.gasLimit = limit }
}

// WithPollInterval sets how often receipts are polled.
func WithPollInterval(d time.Duration) Option {
	return func(t *Transactor) { t.pollInterval = d }
}

// WithDryRun makes Transact simulate only.
func WithDryRun(dryRun bool) Option {
	return func(t *Transactor) { t.dryRun = dryRun }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Transactor) { t.logger = logger }
}

// NewTransactor binds a wallet to a backend. When chainID is nil it is read
// from the node.
func NewTransactor(ctx context.Context, backend Backend, w *wallet.Wallet, chainID *big.Int, opts ...Option) (*Transactor, error) {
	if chainID == nil || chainID.Sign() == 0 {
		id, err := backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get chain id: %w", err)
		}
		chainID = id
	}

	t := &Transactor{
		backend:      backend,
		signer:       wallet.NewSigner(w, chainID),
		pollInterval: defaultPollInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// From returns the sending address.
func (t *Transactor) From() common.Address {
	return t.signer.Address()
}

// ChainID returns the chain the transactor signs for.
func (t *Transactor) ChainID() *big.Int {
	return t.signer.ChainID()
}

// DryRun reports whether transactions are only simulated.
func (t *Transactor) DryRun() bool {
	return t.dryRun
}

// Backend returns the underlying RPC backend.
func (t *Transactor) Backend() Backend {
	return t.backend
}

// Call runs an eth_call from the transactor's address against the latest block.
func (t *Transactor) Call(ctx context.Context, to common.Address, value *big.Int, data []byte) ([]byte, error) {
	out, err := t.backend.CallContract(ctx, ethereum.CallMsg{
		From:  t.From(),
		To:    &to,
		Value: value,
		Data:  data,
	}, nil)
	if err != nil {
		return nil, AsRevert(err)
	}
	return out, nil
}

// Send builds, signs and broadcasts an EIP-1559 transaction. It does not wait
// for inclusion.
func (t *Transactor) Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	if value == nil {
		value = new(big.Int)
	}

	tipCap, err := t.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip: %w", err)
	}

	head, err := t.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	feeCap := new(big.Int).Set(tipCap)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	gasLimit := t.gasLimit
	if gasLimit == 0 {
		estimated, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:      t.From(),
			To:        &to,
			GasTipCap: tipCap,
			GasFeeCap: feeCap,
			Value:     value,
			Data:      data,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", AsRevert(err))
		}
		gasLimit = estimated * gasHeadroomNum / gasHeadroomDen
	}

	nonce, err := t.nonce(ctx)
	if err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   t.signer.ChainID(),
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signedTx, err := t.signer.SignTx(tx)
	if err != nil {
		t.resetNonce()
		return nil, err
	}

	if err := t.backend.SendTransaction(ctx, signedTx); err != nil {
		t.resetNonce()
		return nil, fmt.Errorf("failed to send transaction: %w", AsRevert(err))
	}

	t.logger.Debug("transaction sent",
		zap.String("tx", signedTx.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gasLimit),
	)
	return signedTx, nil
}

// WaitMined polls for the receipt until it is available or ctx is done.
func (t *Transactor) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := t.backend.TransactionReceipt(ctx, tx.Hash())
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			t.logger.Debug("receipt not available", zap.String("tx", tx.Hash().Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", tx.Hash().Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Transact simulates the call, sends it and waits for a successful receipt.
// A mined but failed transaction is reported as a *RevertError with TxHash set.
func (t *Transactor) Transact(ctx context.Context, to common.Address, value *big.Int, data []byte) (*Outcome, error) {
	ret, err := t.Call(ctx, to, value, data)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Return: ret}
	if t.dryRun {
		return outcome, nil
	}

	tx, err := t.Send(ctx, to, value, data)
	if err != nil {
		return nil, err
	}
	outcome.Tx = tx

	receipt, err := t.WaitMined(ctx, tx)
	if err != nil {
		return outcome, err
	}
	outcome.Receipt = receipt

	if receipt.Status != types.ReceiptStatusSuccessful {
		return outcome, &RevertError{TxHash: tx.Hash()}
	}
	return outcome, nil
}

func (t *Transactor) nonce(ctx context.Context) (uint64, error) {
	t.nonceMu.Lock()
	defer t.nonceMu.Unlock()

	if t.nextNonce == nil {
		pending, err := t.backend.PendingNonceAt(ctx, t.From())
		if err != nil {
			return 0, fmt.Errorf("failed to get nonce: %w", err)
		}
		t.nextNonce = &pending
	}

	nonce := *t.nextNonce
	*t.nextNonce = nonce + 1
	return nonce, nil
}

func (t *Transactor) resetNonce() {
	t.nonceMu.Lock()
	t.nextNonce = nil
	t.nonceMu.Unlock()
}
