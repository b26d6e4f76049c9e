package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

var (
	ErrInvalidPrivateKey = errors.New("invalid private key format")
	ErrInvalidMnemonic   = errors.New("invalid mnemonic phrase")
	ErrNilPrivateKey     = errors.New("private key is nil")
)

// Wallet holds the private key and derived address for signing operations.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewWalletFromHex creates a new Wallet from a hex-encoded private key.
// The hex string can optionally include the "0x" prefix.
func NewWalletFromHex(hexKey string) (*Wallet, error) {
	cleanKey := strings.TrimPrefix(hexKey, "0x")
	cleanKey = strings.TrimPrefix(cleanKey, "0X")

	if len(cleanKey) != 64 {
		return nil, ErrInvalidPrivateKey
	}

	privateKey, err := crypto.HexToECDSA(cleanKey)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}

	return newWallet(privateKey)
}

// NewWalletFromMnemonic derives the key at path (BIP-32/BIP-44) from a BIP-39
// mnemonic with an empty passphrase.
func NewWalletFromMnemonic(mnemonic, path string) (*Wallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, ErrInvalidMnemonic
	}

	derivationPath, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid derivation path %q: %w", path, err)
	}

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	for _, index := range derivationPath {
		key, err = key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key %d: %w", index, err)
		}
	}

	btcecKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}

	return newWallet(btcecKey.ToECDSA())
}

func newWallet(privateKey *ecdsa.PrivateKey) (*Wallet, error) {
	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}

	return &Wallet{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

// Address returns the Ethereum address derived from the private key.
func (w *Wallet) Address() common.Address {
	return w.address
}

// AddressHex returns the Ethereum address as a checksummed hex string.
func (w *Wallet) AddressHex() string {
	return w.address.Hex()
}

// PrivateKey returns the underlying ECDSA private key.
// Use with caution - prefer using Sign methods instead.
func (w *Wallet) PrivateKey() *ecdsa.PrivateKey {
	return w.privateKey
}

// Sign signs the provided hash with the wallet's private key.
// Returns a 65-byte signature in [R || S || V] format with V in {0, 1}.
func (w *Wallet) Sign(hash []byte) ([]byte, error) {
	if w.privateKey == nil {
		return nil, ErrNilPrivateKey
	}

	signature, err := crypto.Sign(hash, w.privateKey)
	if err != nil {
		return nil, err
	}

	return signature, nil
}

// New picks the mnemonic when set and falls back to the hex private key.
func New(mnemonic, privateKey, path string) (*Wallet, error) {
	if mnemonic != "" {
		return NewWalletFromMnemonic(mnemonic, path)
	}
	if privateKey == "" {
		return nil, ErrNilPrivateKey
	}
	return NewWalletFromHex(privateKey)
}
