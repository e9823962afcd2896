package bridge

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/base-org/zkbridge/contracts"
	"github.com/base-org/zkbridge/zktypes"
)

// L2TokenAddress maps an L1 token to its bridged L2 counterpart. The native asset maps
// to the L2 token system contract.
func (b *Builder) L2TokenAddress(ctx context.Context, l1Token common.Address) (common.Address, error) {
	if zktypes.IsETH(l1Token) {
		return zktypes.L2EthTokenAddress, nil
	}
	return b.mapToken(ctx, "l2TokenAddress", l1Token)
}

// L1TokenAddress maps a bridged L2 token back to its L1 origin.
func (b *Builder) L1TokenAddress(ctx context.Context, l2Token common.Address) (common.Address, error) {
	if zktypes.IsETH(l2Token) {
		return zktypes.EthAddress, nil
	}
	return b.mapToken(ctx, "l1TokenAddress", l2Token)
}

func (b *Builder) mapToken(ctx context.Context, method string, token common.Address) (common.Address, error) {
	set, err := b.Contracts.Contracts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	out, err := b.call(ctx, contracts.L2Bridge, set.L2ERC20Bridge, b.L2, method, token)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}
