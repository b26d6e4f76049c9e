package wallet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Test keys (DO NOT use in production)
const (
	testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testMnemonic   = "test test test test test test test test test test test junk"
	testAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestNewWalletFromHex(t *testing.T) {
	tests := []struct {
		name        string
		hexKey      string
		wantAddress string
		wantErr     bool
	}{
		{
			name:        "valid key without prefix",
			hexKey:      testPrivateKey,
			wantAddress: testAddress,
			wantErr:     false,
		},
		{
			name:        "valid key with 0x prefix",
			hexKey:      "0x" + testPrivateKey,
			wantAddress: testAddress,
			wantErr:     false,
		},
		{
			name:    "invalid key - too short",
			hexKey:  "abc123",
			wantErr: true,
		},
		{
			name:    "invalid key - not hex",
			hexKey:  "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet, err := NewWalletFromHex(tt.hexKey)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if wallet.AddressHex() != tt.wantAddress {
				t.Errorf("address mismatch: got %s, want %s", wallet.AddressHex(), tt.wantAddress)
			}
		})
	}
}

func TestNewWalletFromMnemonic(t *testing.T) {
	tests := []struct {
		name        string
		mnemonic    string
		path        string
		wantAddress string
		wantErr     bool
	}{
		{
			name:        "first account",
			mnemonic:    testMnemonic,
			path:        "m/44'/60'/0'/0/0",
			wantAddress: testAddress,
		},
		{
			name:        "second account",
			mnemonic:    testMnemonic,
			path:        "m/44'/60'/0'/0/1",
			wantAddress: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		},
		{
			name:        "extra whitespace is tolerated",
			mnemonic:    "  test test test test test test\ttest test test test test junk ",
			path:        "m/44'/60'/0'/0/0",
			wantAddress: testAddress,
		},
		{
			name:     "bad checksum",
			mnemonic: "test test test test test test test test test test test test",
			path:     "m/44'/60'/0'/0/0",
			wantErr:  true,
		},
		{
			name:     "bad path",
			mnemonic: testMnemonic,
			path:     "m/not/a/path",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet, err := NewWalletFromMnemonic(tt.mnemonic, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wallet.AddressHex() != tt.wantAddress {
				t.Errorf("address mismatch: got %s, want %s", wallet.AddressHex(), tt.wantAddress)
			}
		})
	}
}

func TestSignTxRecovery(t *testing.T) {
	wallet, err := NewWalletFromHex(testPrivateKey)
	if err != nil {
		t.Fatalf("failed to create wallet: %v", err)
	}

	chainID := big.NewInt(84532)
	signer := NewSigner(wallet, chainID)

	to := common.HexToAddress("0x1234567890123456789012345678901234567890")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     7,
		GasTipCap: big.NewInt(1_000_000),
		GasFeeCap: big.NewInt(2_000_000_000),
		Gas:       100_000,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      []byte{0xde, 0xad, 0xbe, 0xef},
	})

	signed, err := signer.SignTx(tx)
	if err != nil {
		t.Fatalf("failed to sign tx: %v", err)
	}

	from, err := signer.Sender(signed)
	if err != nil {
		t.Fatalf("failed to recover sender: %v", err)
	}
	if from != wallet.Address() {
		t.Errorf("recovered address mismatch: got %s, want %s", from.Hex(), wallet.AddressHex())
	}

	if signed.ChainId().Cmp(chainID) != 0 {
		t.Errorf("chain id mismatch: got %s, want %s", signed.ChainId(), chainID)
	}
}

func TestSignTx_Nil(t *testing.T) {
	wallet, _ := NewWalletFromHex(testPrivateKey)
	signer := NewSigner(wallet, big.NewInt(1))

	if _, err := signer.SignTx(nil); err != ErrNilTransaction {
		t.Errorf("expected ErrNilTransaction, got %v", err)
	}
}

func TestSignerChainIDIsCopied(t *testing.T) {
	wallet, _ := NewWalletFromHex(testPrivateKey)

	chainID := big.NewInt(10)
	signer := NewSigner(wallet, chainID)
	chainID.SetInt64(99)

	if signer.ChainID().Int64() != 10 {
		t.Errorf("signer chain id changed with caller's value: %s", signer.ChainID())
	}
}

func TestWalletSignRecovery(t *testing.T) {
	wallet, _ := NewWalletFromHex(testPrivateKey)

	hash := crypto.Keccak256([]byte("spark"))
	sig, err := wallet.Sign(hash)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("invalid signature length: got %d, want 65", len(sig))
	}

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		t.Fatalf("failed to recover public key: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != wallet.Address() {
		t.Error("recovered address mismatch")
	}
}

func TestWalletSign_NilKey(t *testing.T) {
	w := &Wallet{}
	if _, err := w.Sign(make([]byte, 32)); err != ErrNilPrivateKey {
		t.Errorf("expected ErrNilPrivateKey, got %v", err)
	}
}
