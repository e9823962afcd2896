package signer

import (
	"crypto/ecdsa"
	"math/big"

	opcrypto "github.com/ethereum-optimism/optimism/op-service/crypto"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type ecdsaSigner struct {
	key *ecdsa.PrivateKey
}

func (s *ecdsaSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *ecdsaSigner) SignerFn(chainID *big.Int) bind.SignerFn {
	return opcrypto.PrivateKeySignerFn(s.key, chainID)
}

func (s *ecdsaSigner) SignData(data []byte) ([]byte, error) {
	sig, err := crypto.Sign(crypto.Keccak256(data), s.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// String and GoString keep key material out of logs and formatted errors, %#v included.
func (s *ecdsaSigner) String() string {
	return "key:" + s.Address().Hex()
}

func (s *ecdsaSigner) GoString() string {
	return s.String()
}
