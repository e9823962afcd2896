package signer

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/decred/dcrd/hdkeychain/v3"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

var errTypedDataOnly = errors.New("ledger can only sign EIP-712 payloads (0x1901 || domain separator || struct hash)")

// walletSigner signs with an account of a hardware wallet.
type walletSigner struct {
	wallet  accounts.Wallet
	account accounts.Account
}

func (s *walletSigner) Address() common.Address {
	return s.account.Address
}

func (s *walletSigner) SignerFn(chainID *big.Int) bind.SignerFn {
	return func(address common.Address, tx *types.Transaction) (*types.Transaction, error) {
		return s.wallet.SignTx(s.account, tx, chainID)
	}
}

// SignData has the device display and sign an EIP-712 payload. Other data is rejected
// before reaching the device.
func (s *walletSigner) SignData(data []byte) ([]byte, error) {
	if len(data) != 66 || data[0] != 0x19 || data[1] != 0x01 {
		return nil, errTypedDataOnly
	}
	return s.wallet.SignData(s.account, accounts.MimetypeTypedData, data)
}

func (s *walletSigner) String() string {
	return "ledger:" + s.account.Address.Hex()
}

// derivePrivateKeyFromMnemonic walks path from the BIP-32 master key of the mnemonic's
// seed. The mnemonic checksum is verified.
func derivePrivateKeyFromMnemonic(mnemonic string, path accounts.DerivationPath) (*ecdsa.PrivateKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, err
	}

	privKey, err := hdkeychain.NewMaster(seed, fakeNetworkParams{})
	if err != nil {
		return nil, err
	}

	for _, child := range path {
		privKey, err = privKey.Child(child)
		if err != nil {
			return nil, err
		}
	}

	rawPrivKey, err := privKey.SerializedPrivKey()
	if err != nil {
		return nil, err
	}

	return crypto.ToECDSA(rawPrivKey)
}

// fakeNetworkParams satisfies hdkeychain's network parameters; the version bytes are
// never serialized.
type fakeNetworkParams struct{}

func (f fakeNetworkParams) HDPrivKeyVersion() [4]byte {
	return [4]byte{}
}

func (f fakeNetworkParams) HDPubKeyVersion() [4]byte {
	return [4]byte{}
}
