// Package signer provides the key backends transactions are signed with: a raw private
// key, a key derived from a BIP-39 mnemonic, or a Ledger hardware wallet.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/usbwallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer is a key able to sign Ethereum transactions and typed-data payloads.
type Signer interface {
	Address() common.Address
	SignerFn(chainID *big.Int) bind.SignerFn
	// SignData signs keccak256(data) and returns [R || S || V] with V in {27, 28}. For
	// EIP-712 payloads data is 0x1901 || domainSeparator || structHash.
	SignData([]byte) ([]byte, error)
}

var errNoSigner = errors.New("one of private key, mnemonic or ledger must be set")

// FromPrivateKey wraps an in-memory key.
func FromPrivateKey(key *ecdsa.PrivateKey) Signer {
	return &ecdsaSigner{key: key}
}

// FromHex parses a hex encoded private key, with or without 0x prefix.
func FromHex(privateKey string) (Signer, error) {
	if len(privateKey) > 1 && privateKey[0] == '0' && (privateKey[1] == 'x' || privateKey[1] == 'X') {
		privateKey = privateKey[2:]
	}
	key, err := crypto.HexToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("error parsing private key: %w", err)
	}
	return &ecdsaSigner{key: key}, nil
}

// CreateSigner picks the key backend from whichever of privateKey or mnemonic is set,
// falling back to a connected Ledger.
func CreateSigner(privateKey, mnemonic, hdPath string) (Signer, error) {
	if privateKey != "" {
		return FromHex(privateKey)
	}

	path, err := accounts.ParseDerivationPath(hdPath)
	if err != nil {
		return nil, err
	}

	if mnemonic != "" {
		key, err := derivePrivateKeyFromMnemonic(mnemonic, path)
		if err != nil {
			return nil, fmt.Errorf("error deriving key from mnemonic: %w", err)
		}
		return &ecdsaSigner{key: key}, nil
	}

	// assume using a ledger
	ledgerHub, err := usbwallet.NewLedgerHub()
	if err != nil {
		return nil, fmt.Errorf("error starting ledger: %w", err)
	}
	wallets := ledgerHub.Wallets()
	if len(wallets) == 0 {
		return nil, fmt.Errorf("no ledgers found, please connect your ledger")
	} else if len(wallets) > 1 {
		return nil, fmt.Errorf("multiple ledgers found, please use one ledger at a time")
	}
	wallet := wallets[0]
	if err := wallet.Open(""); err != nil {
		return nil, fmt.Errorf("error opening ledger: %w", err)
	}
	account, err := wallet.Derive(path, true)
	if err != nil {
		return nil, fmt.Errorf("error deriving ledger account (have you unlocked?): %w", err)
	}
	return &walletSigner{
		wallet:  wallet,
		account: account,
	}, nil
}

// CountSources returns how many key sources are configured. Callers require exactly one.
func CountSources(privateKey string, ledger bool, mnemonic string) int {
	n := 0
	if privateKey != "" {
		n++
	}
	if ledger {
		n++
	}
	if mnemonic != "" {
		n++
	}
	return n
}

// ValidateSources returns an error unless exactly one key source is configured.
func ValidateSources(privateKey string, ledger bool, mnemonic string) error {
	switch CountSources(privateKey, ledger, mnemonic) {
	case 1:
		return nil
	case 0:
		return errNoSigner
	default:
		return errors.New("only one of private key, mnemonic or ledger may be set")
	}
}
