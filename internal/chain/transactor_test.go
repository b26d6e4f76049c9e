package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/dantezy/spark-market-scripts/internal/wallet"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// nonceBackend answers just enough of Backend for Send and counts nonce lookups.
type nonceBackend struct {
	pending    uint64
	nonceCalls int
	sendErr    error
	sentNonces []uint64
}

func (b *nonceBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(84532), nil }

func (b *nonceBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return new(big.Int), nil
}

func (b *nonceBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

func (b *nonceBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: big.NewInt(1_000_000)}, nil
}

func (b *nonceBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.nonceCalls++
	return b.pending, nil
}

func (b *nonceBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000), nil
}

func (b *nonceBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21_000, nil
}

func (b *nonceBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sentNonces = append(b.sentNonces, tx.Nonce())
	return nil
}

func (b *nonceBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func newTestTransactor(t *testing.T, backend Backend, w *wallet.Wallet) *Transactor {
	t.Helper()
	tr, err := NewTransactor(context.Background(), backend, w, big.NewInt(84532))
	require.NoError(t, err)
	return tr
}

func TestSendReusesCachedNonce(t *testing.T) {
	w, err := wallet.NewWalletFromHex(testKey)
	require.NoError(t, err)
	backend := &nonceBackend{pending: 7}
	tr := newTestTransactor(t, backend, w)

	for i := 0; i < 2; i++ {
		_, err := tr.Send(context.Background(), common.HexToAddress("0x01"), nil, nil)
		require.NoError(t, err)
	}

	require.Equal(t, 1, backend.nonceCalls)
	require.Equal(t, []uint64{7, 8}, backend.sentNonces)
}

func TestSendResetsNonceOnSignFailure(t *testing.T) {
	backend := &nonceBackend{pending: 7}
	tr := newTestTransactor(t, backend, &wallet.Wallet{})

	for i := 0; i < 2; i++ {
		_, err := tr.Send(context.Background(), common.HexToAddress("0x01"), nil, nil)
		require.Error(t, err)
		require.ErrorIs(t, err, wallet.ErrNilPrivateKey)
		require.Nil(t, tr.nextNonce)
	}

	// a burned nonce would leave a gap; each attempt asks the node again
	require.Equal(t, 2, backend.nonceCalls)
	require.Empty(t, backend.sentNonces)
}

func TestSendResetsNonceOnBroadcastFailure(t *testing.T) {
	w, err := wallet.NewWalletFromHex(testKey)
	require.NoError(t, err)
	backend := &nonceBackend{pending: 7, sendErr: errors.New("connection refused")}
	tr := newTestTransactor(t, backend, w)

	_, err = tr.Send(context.Background(), common.HexToAddress("0x01"), nil, nil)
	require.ErrorContains(t, err, "failed to send transaction")
	require.Nil(t, tr.nextNonce)

	backend.sendErr = nil
	_, err = tr.Send(context.Background(), common.HexToAddress("0x01"), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, backend.nonceCalls)
	require.Equal(t, []uint64{7}, backend.sentNonces)
}
