package helpers

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/base-org/zkbridge/contracts"
)

type l2CanonicalTransaction struct {
	TxType                 *big.Int
	From                   *big.Int
	To                     *big.Int
	GasLimit               *big.Int
	GasPerPubdataByteLimit *big.Int
	MaxFeePerGas           *big.Int
	MaxPriorityFeePerGas   *big.Int
	Paymaster              *big.Int
	Nonce                  *big.Int
	Value                  *big.Int
	Reserved               [4]*big.Int
	Data                   []byte
	Signature              []byte
	FactoryDeps            []*big.Int
	PaymasterInput         []byte
	ReservedDynamic        []byte
}

// PriorityRequestLog is the NewPriorityRequest event a mailbox at main emits when it
// queues the L2 transaction l2Hash.
func PriorityRequestLog(main common.Address, txID uint64, l2Hash common.Hash) *types.Log {
	event := contracts.Mailbox.Events["NewPriorityRequest"]
	zero := func() *big.Int { return new(big.Int) }
	data, err := event.Inputs.NonIndexed().Pack(
		new(big.Int).SetUint64(txID),
		[32]byte(l2Hash),
		uint64(0),
		l2CanonicalTransaction{
			TxType: big.NewInt(255), From: zero(), To: zero(), GasLimit: zero(),
			GasPerPubdataByteLimit: zero(), MaxFeePerGas: zero(), MaxPriorityFeePerGas: zero(),
			Paymaster: zero(), Nonce: new(big.Int).SetUint64(txID), Value: zero(),
			Reserved: [4]*big.Int{zero(), zero(), zero(), zero()},
			Data:     []byte{}, Signature: []byte{}, FactoryDeps: []*big.Int{},
			PaymasterInput: []byte{}, ReservedDynamic: []byte{},
		},
		[][]byte{},
	)
	if err != nil {
		panic(err)
	}
	return &types.Log{
		Address: main,
		Topics:  []common.Hash{event.ID},
		Data:    data,
	}
}
