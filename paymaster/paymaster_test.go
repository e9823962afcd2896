package paymaster

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var (
	testPaymaster = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testToken     = common.HexToAddress("0x881567B68502e6d7A7a3556FF4313B637Ba47F4E")
)

func TestApprovalBasedParams(t *testing.T) {
	params, err := ApprovalBasedParams(testPaymaster, testToken, big.NewInt(5), nil)
	require.NoError(t, err)
	require.Equal(t, testPaymaster, params.Paymaster)

	selector := crypto.Keccak256([]byte("approvalBased(address,uint256,bytes)"))[:4]
	require.Equal(t, selector, params.PaymasterInput[:4])

	args, err := flow.Methods["approvalBased"].Inputs.Unpack(params.PaymasterInput[4:])
	require.NoError(t, err)
	require.Equal(t, testToken, args[0])
	require.Zero(t, big.NewInt(5).Cmp(args[1].(*big.Int)))
	require.Empty(t, args[2])
}

func TestGeneralParams(t *testing.T) {
	params, err := GeneralParams(testPaymaster, []byte{0xca, 0xfe})
	require.NoError(t, err)

	selector := crypto.Keccak256([]byte("general(bytes)"))[:4]
	require.Equal(t, selector, params.PaymasterInput[:4])
}

func TestConfigParams(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		selector    string
		expectedErr string
	}{
		{
			name:     "default flow is approval based",
			cfg:      Config{Address: testPaymaster, Token: testToken},
			selector: "approvalBased(address,uint256,bytes)",
		},
		{
			name:     "general",
			cfg:      Config{Address: testPaymaster, Flow: FlowGeneral},
			selector: "general(bytes)",
		},
		{
			name:        "unknown flow",
			cfg:         Config{Address: testPaymaster, Flow: "Sponsored"},
			expectedErr: "unknown paymaster flow",
		},
		{
			name:        "missing address",
			cfg:         Config{Token: testToken},
			expectedErr: "paymaster address is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := tt.cfg.Params()
			if tt.expectedErr != "" {
				require.ErrorContains(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, crypto.Keccak256([]byte(tt.selector))[:4], params.PaymasterInput[:4])
		})
	}
}
