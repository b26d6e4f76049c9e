package wallet

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrNilTransaction = errors.New("transaction is nil")

// Signer signs transactions for a single chain with the wallet key.
type Signer struct {
	wallet  *Wallet
	chainID *big.Int
	signer  types.Signer
}

// NewSigner creates a Signer using the latest transaction signer rules for
// chainID (EIP-155, EIP-2930 and EIP-1559 transactions are all accepted).
func NewSigner(wallet *Wallet, chainID *big.Int) *Signer {
	id := new(big.Int).Set(chainID)
	return &Signer{
		wallet:  wallet,
		chainID: id,
		signer:  types.LatestSignerForChainID(id),
	}
}

// SignTx signs tx and returns the signed copy.
func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}

	hash := s.signer.Hash(tx)

	signature, err := s.wallet.Sign(hash.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	signedTx, err := tx.WithSignature(s.signer, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to attach signature: %w", err)
	}

	return signedTx, nil
}

// Sender recovers the sender of a signed transaction under this signer's rules.
func (s *Signer) Sender(tx *types.Transaction) (common.Address, error) {
	return types.Sender(s.signer, tx)
}

// ChainID returns a copy of the chain ID the signer is bound to.
func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Address returns the signing address.
func (s *Signer) Address() common.Address {
	return s.wallet.Address()
}

// Wallet returns the underlying wallet.
func (s *Signer) Wallet() *Wallet {
	return s.wallet
}
