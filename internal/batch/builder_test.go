package batch_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/dantezy/spark-market-scripts/internal/batch"
	"github.com/dantezy/spark-market-scripts/internal/chain"
	"github.com/dantezy/spark-market-scripts/internal/erc20"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/market/markettest"
)

var (
	centiBTC = big.NewInt(1_000_000)
	gwei     = big.NewInt(1_000_000_000)
)

func usdc(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

func price(usd int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(usd), gwei)
}

// approved mints quote to the key's wallet and approves the market for it.
func approved(t *testing.T, be *markettest.Backend, tx *chain.Transactor, amount *big.Int) {
	t.Helper()
	opts := be.Options()
	be.Mint(opts.Quote, tx.From(), amount)
	_, err := erc20.New(opts.Quote, be, tx).Approve(context.Background(), opts.Market, amount)
	require.NoError(t, err)
}

func TestSubmitOneTransactionOrderedResults(t *testing.T) {
	ctx := context.Background()
	be := markettest.NewDefault()
	tx := be.Transactor(t, markettest.Key0)
	m := market.New(be.Options().Market, be, tx)
	approved(t, be, tx, usdc(10_000))

	deposit, err := m.DepositCall(usdc(10_000), be.Options().Quote)
	require.NoError(t, err)

	b := m.Batch().Add(deposit)
	for _, p := range []int64{60_000, 59_000, 58_000} {
		open, err := m.OpenOrderCall(centiBTC, market.Buy, price(p), nil)
		require.NoError(t, err)
		b.Add(open)
	}
	require.Equal(t, 4, b.Len())

	before := be.TxCount()
	res, err := b.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, before+1, be.TxCount())
	require.NotEqual(t, common.Hash{}, res.TxHash)
	require.Equal(t, types.ReceiptStatusSuccessful, res.Receipt.Status)
	require.Len(t, res.Returns, 4)
	require.Empty(t, res.Returns[0])

	ids, err := market.DecodeOrderIDs(b.Calls(), res.Returns)
	require.NoError(t, err)
	require.Equal(t, be.Orders(tx.From()), ids)

	opened, err := m.OpenedOrders(res.Receipt)
	require.NoError(t, err)
	require.Len(t, opened, 3)
	for i, o := range opened {
		require.Equal(t, ids[i], o.ID)
	}

	acc := be.Account(tx.From())
	require.Equal(t, usdc(8_230).String(), acc.Liquid.Quote.String())
	require.Equal(t, usdc(1_770).String(), acc.Locked.Quote.String())
}

func TestFailedSimulationLeavesNoState(t *testing.T) {
	ctx := context.Background()
	be := markettest.NewDefault()
	tx := be.Transactor(t, markettest.Key0)
	m := market.New(be.Options().Market, be, tx)
	approved(t, be, tx, usdc(100))

	deposit, err := m.DepositCall(usdc(100), be.Options().Quote)
	require.NoError(t, err)
	tooBig, err := m.OpenOrderCall(big.NewInt(100_000_000), market.Buy, price(60_000), nil)
	require.NoError(t, err)

	before := be.TxCount()
	_, err = m.Batch().Add(deposit).Add(tooBig).Submit(ctx)

	var subErr *batch.SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.Equal(t, batch.PhaseSimulate, subErr.Phase)
	require.Equal(t, 2, subErr.Calls)
	require.True(t, subErr.Reverted())
	require.Equal(t, "InsufficientBalance", subErr.Reason)

	require.Equal(t, before, be.TxCount())
	require.Zero(t, be.Account(tx.From()).Liquid.Quote.Sign())
	require.Equal(t, usdc(100).String(), be.TokenBalance(be.Options().Quote, tx.From()).String())
}

// blindSender skips the pre-flight simulation so a reverting batch reaches the chain.
type blindSender struct {
	*chain.Transactor
	out []byte
}

func (s blindSender) Call(ctx context.Context, to common.Address, value *big.Int, data []byte) ([]byte, error) {
	return s.out, nil
}

func TestRevertedBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	be := markettest.NewDefault()
	tx := be.Transactor(t, markettest.Key0, chain.WithGasLimit(1_000_000))
	m := market.New(be.Options().Market, be, tx)
	approved(t, be, tx, usdc(100))

	deposit, err := m.DepositCall(usdc(100), be.Options().Quote)
	require.NoError(t, err)
	tooBig, err := m.OpenOrderCall(big.NewInt(100_000_000), market.Buy, price(60_000), nil)
	require.NoError(t, err)

	fakeOut, err := market.ABI.Methods["multicall"].Outputs.Pack([][]byte{{}, {}})
	require.NoError(t, err)

	before := be.TxCount()
	_, err = batch.New(blindSender{Transactor: tx, out: fakeOut}, m.Address()).
		Add(deposit).
		Add(tooBig).
		Submit(ctx)

	var subErr *batch.SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.Equal(t, batch.PhaseInclusion, subErr.Phase)
	require.NotEqual(t, common.Hash{}, subErr.TxHash)
	require.ErrorIs(t, err, chain.ErrReverted)

	// the transaction was mined, but the deposit that preceded the failing
	// call was rolled back with it
	require.Equal(t, before+1, be.TxCount())
	require.Zero(t, be.Account(tx.From()).Liquid.Quote.Sign())
	require.Equal(t, usdc(100).String(), be.TokenBalance(be.Options().Quote, tx.From()).String())
}

func TestSendFailure(t *testing.T) {
	ctx := context.Background()
	be := markettest.NewDefault()
	tx := be.Transactor(t, markettest.Key0)
	m := market.New(be.Options().Market, be, tx)
	approved(t, be, tx, usdc(100))

	deposit, err := m.DepositCall(usdc(100), be.Options().Quote)
	require.NoError(t, err)

	be.FailSends(errors.New("connection refused"))
	_, err = m.Batch().Add(deposit).Submit(ctx)

	var subErr *batch.SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.Equal(t, batch.PhaseSend, subErr.Phase)
	require.False(t, subErr.Pending())
	require.False(t, subErr.Reverted())
	require.ErrorContains(t, err, "connection refused")

	be.FailSends(nil)
	_, err = m.Batch().Add(deposit).Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, usdc(100).String(), be.Account(tx.From()).Liquid.Quote.String())
}

type recordingSender struct {
	dryRun    bool
	out       []byte
	callValue *big.Int
	sendValue *big.Int
	sent      int
	waitErr   error
	reverted  bool
}

func (s *recordingSender) From() common.Address { return common.HexToAddress("0x01") }
func (s *recordingSender) DryRun() bool         { return s.dryRun }

func (s *recordingSender) Call(ctx context.Context, to common.Address, value *big.Int, data []byte) ([]byte, error) {
	s.callValue = value
	return s.out, nil
}

func (s *recordingSender) Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	s.sendValue = value
	s.sent++
	return types.NewTx(&types.LegacyTx{Nonce: uint64(s.sent), To: &to, Value: value, Data: data}), nil
}

func (s *recordingSender) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if s.waitErr != nil {
		return nil, s.waitErr
	}
	if s.reverted {
		return &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: tx.Hash()}, nil
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

func packResults(t *testing.T, n int) []byte {
	t.Helper()
	out, err := market.ABI.Methods["multicall"].Outputs.Pack(make([][]byte, n))
	require.NoError(t, err)
	return out
}

func TestSubmitSumsValues(t *testing.T) {
	target := common.HexToAddress("0x0a")
	s := &recordingSender{out: packResults(t, 3)}

	b := batch.New(s, target).
		Add(batch.Call{Method: "openOrder", Target: target, Value: big.NewInt(3)}).
		Add(batch.Call{Method: "openOrder", Target: target, Value: big.NewInt(4)}).
		Add(batch.Call{Method: "cancelOrder", Target: target})
	require.Equal(t, int64(7), b.Value().Int64())

	res, err := b.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Returns, 3)
	require.Equal(t, 1, s.sent)
	require.Equal(t, int64(7), s.callValue.Int64())
	require.Equal(t, int64(7), s.sendValue.Int64())
}

func TestSubmitDryRun(t *testing.T) {
	target := common.HexToAddress("0x0a")
	s := &recordingSender{dryRun: true, out: packResults(t, 1)}

	res, err := batch.New(s, target).Add(batch.Call{Target: target}).Submit(context.Background())
	require.NoError(t, err)
	require.True(t, res.DryRun)
	require.Len(t, res.Returns, 1)
	require.Zero(t, s.sent)
}

func TestSubmitValidation(t *testing.T) {
	target := common.HexToAddress("0x0a")
	other := common.HexToAddress("0x0b")

	tests := []struct {
		name  string
		calls []batch.Call
		want  error
	}{
		{"empty", nil, batch.ErrEmptyBatch},
		{"foreign target", []batch.Call{{Target: target}, {Method: "approve", Target: other}}, batch.ErrTargetMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &recordingSender{}
			_, err := batch.New(s, target).AddAll(tt.calls...).Submit(context.Background())

			var subErr *batch.SubmissionError
			require.ErrorAs(t, err, &subErr)
			require.Equal(t, batch.PhaseBuild, subErr.Phase)
			require.ErrorIs(t, err, tt.want)
			require.Zero(t, s.sent)
		})
	}
}

func TestSubmitResultCountMismatch(t *testing.T) {
	target := common.HexToAddress("0x0a")
	s := &recordingSender{out: packResults(t, 1)}

	_, err := batch.New(s, target).
		AddAll(batch.Call{Target: target}, batch.Call{Target: target}).
		Submit(context.Background())
	require.ErrorIs(t, err, batch.ErrResultCount)
	require.Zero(t, s.sent)
}

func TestChunk(t *testing.T) {
	calls := make([]batch.Call, 7)

	tests := []struct {
		name string
		size int
		want []int
	}{
		{"even split", 7, []int{7}},
		{"remainder", 3, []int{3, 3, 1}},
		{"size one", 1, []int{1, 1, 1, 1, 1, 1, 1}},
		{"zero means all", 0, []int{7}},
		{"larger than input", 50, []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := batch.Chunk(calls, tt.size)
			got := make([]int, len(chunks))
			for i, c := range chunks {
				got[i] = len(c)
			}
			require.Equal(t, tt.want, got)
		})
	}

	require.Empty(t, batch.Chunk(nil, 10))
}

func TestSubmitChunked(t *testing.T) {
	target := common.HexToAddress("0x0a")
	s := &recordingSender{out: packResults(t, 2)}

	calls := []batch.Call{{Target: target}, {Target: target}, {Target: target}, {Target: target}}
	results, err := batch.SubmitChunked(context.Background(), s, target, calls, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 2, s.sent)

	// a group whose results don't match stops the run
	calls = append(calls, batch.Call{Target: target})
	s = &recordingSender{out: packResults(t, 2)}
	results, err = batch.SubmitChunked(context.Background(), s, target, calls, 2, 0)
	require.ErrorIs(t, err, batch.ErrResultCount)
	require.Len(t, results, 2)
}

func TestSubmitPendingAfterWaitFailure(t *testing.T) {
	target := common.HexToAddress("0x0a")
	call := batch.Call{Target: target, Data: []byte{0x01}}

	tests := []struct {
		name    string
		sender  *recordingSender
		pending bool
	}{
		{"receipt wait timed out", &recordingSender{out: packResults(t, 1), waitErr: context.DeadlineExceeded}, true},
		{"mined and reverted", &recordingSender{out: packResults(t, 1), reverted: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := batch.New(tt.sender, target).Add(call).Submit(context.Background())

			var subErr *batch.SubmissionError
			require.ErrorAs(t, err, &subErr)
			require.Equal(t, batch.PhaseInclusion, subErr.Phase)
			require.NotEqual(t, common.Hash{}, subErr.TxHash)
			require.Equal(t, 1, tt.sender.sent)
			require.Equal(t, tt.pending, subErr.Pending())
		})
	}
}
