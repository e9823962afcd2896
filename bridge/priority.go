package bridge

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/base-org/zkbridge/contracts"
)

var errNoPriorityRequest = errors.New("no NewPriorityRequest event in receipt")

var (
	l1ToL2AliasOffset = new(big.Int).SetBytes(common.FromHex("0x1111000000000000000000000000000000001111"))
	addressModulus    = new(big.Int).Lsh(big.NewInt(1), 160)
)

// ApplyL1ToL2Alias is the address an L1 contract appears as on L2.
func ApplyL1ToL2Alias(addr common.Address) common.Address {
	v := new(big.Int).SetBytes(addr.Bytes())
	v.Add(v, l1ToL2AliasOffset)
	v.Mod(v, addressModulus)
	return common.BigToAddress(v)
}

// UndoL1ToL2Alias reverses ApplyL1ToL2Alias.
func UndoL1ToL2Alias(addr common.Address) common.Address {
	v := new(big.Int).SetBytes(addr.Bytes())
	v.Sub(v, l1ToL2AliasOffset)
	v.Mod(v, addressModulus)
	return common.BigToAddress(v)
}

// L2HashFromPriorityOp extracts the canonical L2 transaction hash from the
// NewPriorityRequest event mainContract emitted in an L1 receipt.
func L2HashFromPriorityOp(receipt *types.Receipt, mainContract common.Address) (common.Hash, error) {
	event := contracts.Mailbox.Events["NewPriorityRequest"]
	for _, l := range receipt.Logs {
		if l.Address != mainContract || len(l.Topics) == 0 || l.Topics[0] != event.ID {
			continue
		}
		values, err := contracts.Mailbox.Unpack("NewPriorityRequest", l.Data)
		if err != nil {
			return common.Hash{}, fmt.Errorf("error decoding NewPriorityRequest: %w", err)
		}
		hash, ok := values[1].([32]byte)
		if !ok {
			return common.Hash{}, fmt.Errorf("unexpected txHash type %T", values[1])
		}
		return hash, nil
	}
	return common.Hash{}, errNoPriorityRequest
}
