package wallet

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/base-org/zkbridge/accounts"
	"github.com/base-org/zkbridge/contracts"
	"github.com/base-org/zkbridge/eip712"
	"github.com/base-org/zkbridge/signer"
	"github.com/base-org/zkbridge/test/helpers"
	"github.com/base-org/zkbridge/zktypes"
)

const (
	testKey   = "0x7726827caac94a7f9e1b160f7ea819f172f7b6f9d2a97f992c38edeab82d4110"
	secondKey = "0xac1e735be8536c6534bb4f17f06f6afc73b2b5ba84ac2cfb12f7461b20c0bbe3"
)

var (
	testSender   = common.HexToAddress("0x36615Cf349d7F6344891B1e7CA7C72883F5dc049")
	testReceiver = common.HexToAddress("0xa61464658AfeAf65CccaaFD3a512b69A83B77618")
	testDAI      = common.HexToAddress("0x881567B68502e6d7A7a3556FF4313B637Ba47F4E")
	testSet      = zktypes.BridgeContracts{
		MainContract:  common.HexToAddress("0x0000000000000000000000000000000000000b0b"),
		L1ERC20Bridge: common.HexToAddress("0x0000000000000000000000000000000000000b1b"),
		L2ERC20Bridge: common.HexToAddress("0x0000000000000000000000000000000000000b2b"),
	}
	ether = big.NewInt(1_000_000_000_000_000_000)
)

type testEnv struct {
	l1, l2 *helpers.FakeClient
	dai    *helpers.Token
	wallet *Wallet
}

func newTestEnv(t *testing.T, txSigner accounts.TxSigner, opts ...Option) *testEnv {
	t.Helper()
	l1 := helpers.NewFakeClient(9)
	l1.BaseFee = big.NewInt(5)
	l1.GasTip = big.NewInt(1_000_000_000)
	l1.SetBalance(testSender, new(big.Int).Mul(ether, big.NewInt(10)))
	dai := l1.DeployERC20(testDAI, "DAI", "DAI", 18)
	dai.SetBalance(testSender, big.NewInt(100))

	l2 := helpers.NewFakeClient(270)
	l2.Contracts = testSet
	l2.GasPriceValue = big.NewInt(250_000_000)
	l2.L1ToL2Gas = 577_984

	if txSigner == nil {
		txSigner = keySigner(t, testKey)
	}
	opts = append([]Option{WithPollInterval(time.Millisecond)}, opts...)
	w, err := New(context.Background(), txSigner, l1, l2, opts...)
	require.NoError(t, err)
	return &testEnv{l1: l1, l2: l2, dai: dai, wallet: w}
}

func keySigner(t *testing.T, key string) *accounts.KeyTxSigner {
	t.Helper()
	s, err := signer.FromHex(key)
	require.NoError(t, err)
	return accounts.NewKeyTxSigner(s)
}

func requireStage(t *testing.T, err error, stage zktypes.Stage) {
	t.Helper()
	var se *zktypes.StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, stage, se.Stage)
}

func TestNewReadsChainIDs(t *testing.T) {
	env := newTestEnv(t, nil)
	require.EqualValues(t, 9, env.wallet.L1ChainID().Int64())
	require.EqualValues(t, 270, env.wallet.L2ChainID().Int64())

	addr, err := env.wallet.Address(context.Background())
	require.NoError(t, err)
	require.Equal(t, testSender, addr)

	set, err := env.wallet.BridgeContracts(context.Background())
	require.NoError(t, err)
	require.Equal(t, testSet, *set)
}

func TestConnect(t *testing.T) {
	env := newTestEnv(t, nil)
	other := helpers.NewFakeClient(300)

	connected, err := env.wallet.Connect(context.Background(), other)
	require.NoError(t, err)
	require.EqualValues(t, 300, connected.L2ChainID().Int64())
	require.EqualValues(t, 270, env.wallet.L2ChainID().Int64())

	l1 := helpers.NewFakeClient(11)
	connectedL1, err := env.wallet.ConnectL1(context.Background(), l1)
	require.NoError(t, err)
	require.EqualValues(t, 11, connectedL1.L1ChainID().Int64())
	require.EqualValues(t, 9, env.wallet.L1ChainID().Int64())
}

func TestDepositETH(t *testing.T) {
	env := newTestEnv(t, nil)
	l2Hash := common.HexToHash("0xabcdef")
	env.l1.ReceiptFn = func(sent helpers.Sent) *types.Receipt {
		return &types.Receipt{
			Status: types.ReceiptStatusSuccessful,
			Logs:   []*types.Log{helpers.PriorityRequestLog(testSet.MainContract, sent.Nonce, l2Hash)},
		}
	}
	env.l2.SetReceipt(l2Hash, &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: l2Hash})

	op, err := env.wallet.Deposit(context.Background(), zktypes.DepositRequest{
		Token:  zktypes.EthAddress,
		Amount: big.NewInt(7_000_000),
	})
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, op.Status())
	require.True(t, op.IsPriorityOperation())

	sent := env.l1.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, op.Hash, sent[0].Hash)
	require.Equal(t, testSender, sent[0].From)
	require.Equal(t, testSet.MainContract, *sent[0].To)
	require.Equal(t, big.NewInt(288_992_007_000_000), sent[0].Value)
	require.Equal(t, contracts.Mailbox.Methods["requestL2Transaction"].ID, sent[0].Selector())

	receipt, err := op.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, op.Hash, receipt.TxHash)
	require.Equal(t, StatusIncluded, op.Status())

	l2Receipt, err := op.WaitFinalized(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, l2Hash, l2Receipt.TxHash)
	require.Equal(t, l2Hash, op.L2Hash())
	require.Equal(t, StatusFinalizedOnL2, op.Status())
}

func TestDepositTokenApprovesOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	req := zktypes.DepositRequest{Token: testDAI, Amount: big.NewInt(5), ApproveERC20: true}

	op, err := env.wallet.Deposit(context.Background(), req)
	require.NoError(t, err)
	sent := env.l1.Sent()
	require.Len(t, sent, 2)
	require.Equal(t, contracts.ERC20.Methods["approve"].ID, sent[0].Selector())
	require.Equal(t, testDAI, *sent[0].To)
	require.Equal(t, contracts.L1ERC20Bridge.Methods["deposit"].ID, sent[1].Selector())
	require.Equal(t, op.Hash, sent[1].Hash)
	require.EqualValues(t, 0, sent[0].Nonce)
	require.EqualValues(t, 1, sent[1].Nonce)
	require.Equal(t, 1, env.dai.Approvals())
	require.EqualValues(t, 5, env.dai.Allowance(testSender, testSet.L1ERC20Bridge).Int64())

	_, err = env.wallet.Deposit(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, env.l1.Sent(), 3)
	require.Equal(t, 1, env.dai.Approvals())
}

func TestDepositTokenApprovalFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	approve := contracts.ERC20.Methods["approve"].ID
	env.l1.ReceiptFn = func(sent helpers.Sent) *types.Receipt {
		if bytes.Equal(sent.Selector(), approve) {
			return &types.Receipt{Status: types.ReceiptStatusFailed}
		}
		return &types.Receipt{Status: types.ReceiptStatusSuccessful}
	}

	_, err := env.wallet.Deposit(context.Background(), zktypes.DepositRequest{
		Token:        testDAI,
		Amount:       big.NewInt(5),
		ApproveERC20: true,
	})
	var approval *zktypes.ApprovalFailedError
	require.ErrorAs(t, err, &approval)
	var revert *zktypes.OnChainRevertError
	require.ErrorAs(t, err, &revert)
	require.Len(t, env.l1.Sent(), 1, "deposit must not be sent after a failed approval")
}

func TestDepositValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.wallet.Deposit(context.Background(), zktypes.DepositRequest{Amount: big.NewInt(0)})
	require.ErrorIs(t, err, zktypes.ErrValidation)
	requireStage(t, err, zktypes.StageBuild)
	require.Empty(t, env.l1.Sent())
}

func TestDepositInsufficientFunds(t *testing.T) {
	env := newTestEnv(t, nil)
	env.l1.SetBalance(testSender, big.NewInt(1_000))

	_, err := env.wallet.Deposit(context.Background(), zktypes.DepositRequest{Amount: big.NewInt(7_000_000)})
	var insufficient *zktypes.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	requireStage(t, err, zktypes.StageEstimate)
	require.Empty(t, env.l1.Sent())

	_, err = env.wallet.Deposit(context.Background(), zktypes.DepositRequest{Token: testDAI, Amount: big.NewInt(1_000), ApproveERC20: true})
	require.ErrorAs(t, err, &insufficient)
	require.Empty(t, env.l1.Sent(), "no approval before the funds check")
}

func TestGetDepositTxHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t, nil)
	dtx, err := env.wallet.GetDepositTx(context.Background(), zktypes.DepositRequest{
		Token:        testDAI,
		Amount:       big.NewInt(5),
		ApproveERC20: true,
	})
	require.NoError(t, err)
	require.Equal(t, testSet.L1ERC20Bridge, *dtx.Tx.To)
	require.Empty(t, env.l1.Sent())
	require.Zero(t, env.dai.Approvals())
}

func TestEstimateGasDeposit(t *testing.T) {
	env := newTestEnv(t, nil)
	env.l1.EstimateFn = func(msg ethereum.CallMsg) (uint64, error) {
		if msg.To != nil && *msg.To == testSet.L1ERC20Bridge {
			return 236_381, nil
		}
		return 124_243, nil
	}

	native, err := env.wallet.EstimateGasDeposit(context.Background(), zktypes.DepositRequest{Amount: big.NewInt(5)})
	require.NoError(t, err)
	require.EqualValues(t, 149_091, native)

	token, err := env.wallet.EstimateGasDeposit(context.Background(), zktypes.DepositRequest{Token: testDAI, Amount: big.NewInt(5)})
	require.NoError(t, err)
	require.Greater(t, token, native)
}

func TestGetFullRequiredDepositFee(t *testing.T) {
	env := newTestEnv(t, nil)
	env.l1.GasEstimate = 124_243

	quote, err := env.wallet.GetFullRequiredDepositFee(context.Background(), zktypes.DepositRequest{})
	require.NoError(t, err)
	require.Equal(t, big.NewInt(288_992_000_000_000), quote.BaseCost)
	require.EqualValues(t, 149_091, quote.L1GasLimit)
	require.EqualValues(t, 577_984, quote.L2GasLimit.Int64())
	require.Equal(t, big.NewInt(1_000_000_010), quote.MaxFeePerGas)
	require.Equal(t, big.NewInt(1_000_000_000), quote.MaxPriorityFeePerGas)
	require.Nil(t, quote.GasPrice)

	_, err = env.wallet.GetFullRequiredDepositFee(context.Background(), zktypes.DepositRequest{Token: testDAI})
	var invalid *zktypes.ValidationError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "allowance", invalid.Field)

	env.dai.SetAllowance(testSender, testSet.L1ERC20Bridge, big.NewInt(5))
	quote, err = env.wallet.GetFullRequiredDepositFee(context.Background(), zktypes.DepositRequest{Token: testDAI})
	require.NoError(t, err)
	require.NoError(t, quote.Validate())

	env.l1.SetBalance(testSender, big.NewInt(1))
	_, err = env.wallet.GetFullRequiredDepositFee(context.Background(), zktypes.DepositRequest{})
	var insufficient *zktypes.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
}

func TestRequestExecute(t *testing.T) {
	env := newTestEnv(t, nil)

	params := zktypes.RequestExecuteParams{
		ContractAddress: testSet.MainContract,
		L2Value:         big.NewInt(7_000_000_000),
		L2GasLimit:      big.NewInt(900_000),
	}
	p, err := env.wallet.GetRequestExecuteTx(context.Background(), params)
	require.NoError(t, err)
	require.EqualValues(t, 900_000, p.L2GasLimit.Int64())

	op, err := env.wallet.RequestExecute(context.Background(), params)
	require.NoError(t, err)
	require.True(t, op.IsPriorityOperation())
	sent := env.l1.Sent()
	require.Len(t, sent, 1)
	expected := new(big.Int).Add(p.BaseCost, big.NewInt(7_000_000_000))
	require.Zero(t, expected.Cmp(sent[0].Value))

	env.l1.GasEstimate = 103_566
	gas, err := env.wallet.EstimateGasRequestExecute(context.Background(), params)
	require.NoError(t, err)
	require.EqualValues(t, 124_279, gas)
}

func TestBaseCost(t *testing.T) {
	env := newTestEnv(t, nil)
	cost, err := env.wallet.BaseCost(context.Background(), big.NewInt(577_984), nil, nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(288_992_000_000_000), cost)

	cost, err = env.wallet.BaseCost(context.Background(), big.NewInt(1), big.NewInt(800), big.NewInt(100_000_000_000))
	require.NoError(t, err)
	require.EqualValues(t, 2_125_000_000, cost.Int64())
}

func TestBalancesAndAllowance(t *testing.T) {
	env := newTestEnv(t, nil)
	env.dai.SetAllowance(testSender, testSet.L1ERC20Bridge, big.NewInt(3))

	eth, err := env.wallet.BalanceL1(context.Background(), zktypes.EthAddress)
	require.NoError(t, err)
	require.Zero(t, new(big.Int).Mul(ether, big.NewInt(10)).Cmp(eth))

	dai, err := env.wallet.BalanceL1(context.Background(), testDAI)
	require.NoError(t, err)
	require.EqualValues(t, 100, dai.Int64())

	allowance, err := env.wallet.AllowanceL1(context.Background(), testDAI, nil)
	require.NoError(t, err)
	require.EqualValues(t, 3, allowance.Int64())
}

func TestTransferAndWithdraw(t *testing.T) {
	env := newTestEnv(t, nil)

	transfer, err := env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(7_000_000_000)})
	require.NoError(t, err)
	require.False(t, transfer.IsPriorityOperation())
	_, err = transfer.WaitFinalized(context.Background(), time.Second)
	require.Error(t, err)

	withdraw, err := env.wallet.Withdraw(context.Background(), zktypes.WithdrawRequest{Amount: big.NewInt(7)})
	require.NoError(t, err)

	sent := env.l2.Sent()
	require.Len(t, sent, 2)
	require.Equal(t, transfer.Hash, sent[0].Hash)
	require.Equal(t, testReceiver, *sent[0].To)
	require.Equal(t, withdraw.Hash, sent[1].Hash)
	require.Equal(t, zktypes.L2EthTokenAddress, *sent[1].To)
	require.EqualValues(t, 1, sent[1].Nonce)

	tx, sig, err := eip712.Decode(sent[0].Raw)
	require.NoError(t, err)
	require.NotNil(t, sig)
	require.Equal(t, testSender, tx.From)

	receipt, err := transfer.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, transfer.Hash, receipt.TxHash)
}

func TestAbstractWallet(t *testing.T) {
	account := common.HexToAddress("0x00000000000000000000000000000000000c0ffe")
	key, err := signer.FromHex(testKey)
	require.NoError(t, err)
	l1Key, err := signer.FromHex(secondKey)
	require.NoError(t, err)
	pm := &zktypes.PaymasterParams{Paymaster: common.HexToAddress("0xaa"), PaymasterInput: []byte{1, 2}}

	env := newTestEnv(t, accounts.NewAbstractTxSigner(account, key, accounts.WithPaymaster(pm), accounts.WithL1Key(l1Key)))
	env.l1.SetBalance(l1Key.Address(), ether)

	_, err = env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
	require.NoError(t, err)
	tx, sig, err := eip712.Decode(env.l2.Sent()[0].Raw)
	require.NoError(t, err)
	require.Nil(t, sig)
	require.Equal(t, account, tx.From)
	require.Equal(t, pm, tx.Meta.PaymasterParams)
	require.NotEmpty(t, tx.Meta.CustomSignature)

	_, err = env.wallet.Deposit(context.Background(), zktypes.DepositRequest{Amount: big.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, l1Key.Address(), env.l1.Sent()[0].From)
}

func TestConcurrentNonces(t *testing.T) {
	env := newTestEnv(t, nil)
	env.l2.SetNonce(testSender, 4)

	const n = 8
	var wg sync.WaitGroup
	ops := make([]*Operation, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ops[i], errs[i] = env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.False(t, seen[ops[i].Nonce], "nonce %d assigned twice", ops[i].Nonce)
		seen[ops[i].Nonce] = true
	}
	for nonce := uint64(4); nonce < 4+n; nonce++ {
		require.True(t, seen[nonce], "nonce %d not assigned", nonce)
	}
}

func TestExplicitNonceConflict(t *testing.T) {
	env := newTestEnv(t, nil)
	env.l2.NoReceipts = true
	nonce := uint64(5)
	req := zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1), Overrides: &zktypes.Overrides{Nonce: &nonce}}

	op, err := env.wallet.Transfer(context.Background(), req)
	require.NoError(t, err)
	require.EqualValues(t, 5, op.Nonce)

	_, err = env.wallet.Transfer(context.Background(), req)
	require.ErrorIs(t, err, zktypes.ErrNonceConflict)
	requireStage(t, err, zktypes.StageBuild)
	require.Len(t, env.l2.Sent(), 1)
}

// nodeError is a JSON-RPC error answer.
type nodeError struct {
	code int
	msg  string
}

func (e nodeError) Error() string  { return e.msg }
func (e nodeError) ErrorCode() int { return e.code }

func TestSubmissionFailureReleasesNonce(t *testing.T) {
	env := newTestEnv(t, nil)
	env.l2.SendErr = nodeError{code: -32000, msg: "insufficient funds for gas * price + value"}

	_, err := env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
	var submission *zktypes.SubmissionError
	require.ErrorAs(t, err, &submission)
	require.False(t, submission.Unconfirmed)
	requireStage(t, err, zktypes.StageSubmit)

	env.l2.SendErr = nil
	op, err := env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
	require.NoError(t, err)
	require.EqualValues(t, 0, op.Nonce)
}

type failingSigner struct {
	accounts.TxSigner
}

func (failingSigner) SignTransaction(context.Context, *zktypes.Transaction) (*zktypes.SignedTransaction, error) {
	return nil, errors.New("device disconnected")
}

func TestSigningFailureReleasesNonce(t *testing.T) {
	key := keySigner(t, testKey)
	env := newTestEnv(t, failingSigner{key})
	nonces := env.wallet.nonces

	_, err := env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
	requireStage(t, err, zktypes.StageSign)
	require.Empty(t, env.l2.Sent())

	healthy, err := New(context.Background(), key, env.l1, env.l2, WithNonceManager(nonces))
	require.NoError(t, err)
	op, err := healthy.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
	require.NoError(t, err)
	require.EqualValues(t, 0, op.Nonce)
}

func TestWaitTimeoutIsRetryable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.l2.NoReceipts = true

	op, err := env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
	require.NoError(t, err)

	_, err = op.Wait(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, zktypes.ErrPendingOrDropped)
	var timeout *zktypes.TimeoutError
	require.ErrorAs(t, err, &timeout)
	requireStage(t, err, zktypes.StageConfirm)
	require.Equal(t, StatusSubmitted, op.Status())

	env.l2.SetReceipt(op.Hash, &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: op.Hash})
	_, err = op.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusIncluded, op.Status())
}

func TestWaitRevert(t *testing.T) {
	env := newTestEnv(t, nil)
	env.l2.ReceiptFn = func(helpers.Sent) *types.Receipt {
		return &types.Receipt{Status: types.ReceiptStatusFailed}
	}

	op, err := env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
	require.NoError(t, err)

	_, err = op.Wait(context.Background(), time.Second)
	var revert *zktypes.OnChainRevertError
	require.ErrorAs(t, err, &revert)
	require.Equal(t, op.Hash, revert.Hash)
	require.Equal(t, StatusFailed, op.Status())

	_, err = op.Wait(context.Background(), time.Second)
	require.ErrorAs(t, err, &revert)
}

func TestWaitCancelled(t *testing.T) {
	env := newTestEnv(t, nil)
	env.l2.NoReceipts = true
	op, err := env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = op.Wait(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StatusSubmitted, op.Status())
}

func TestNonceManager(t *testing.T) {
	m := NewNonceManager()
	l2 := helpers.NewFakeClient(270)
	chain := big.NewInt(270)
	ctx := context.Background()

	first, err := m.Reserve(ctx, l2, chain, testSender, nil)
	require.NoError(t, err)
	second, err := m.Reserve(ctx, l2, chain, testSender, nil)
	require.NoError(t, err)
	require.EqualValues(t, 0, first)
	require.EqualValues(t, 1, second)

	other, err := m.Reserve(ctx, l2, big.NewInt(9), testSender, nil)
	require.NoError(t, err)
	require.EqualValues(t, 0, other, "chains are tracked separately")

	_, err = m.Reserve(ctx, l2, chain, testSender, &second)
	require.ErrorIs(t, err, zktypes.ErrNonceConflict)

	m.Release(chain, testSender, second)
	again, err := m.Reserve(ctx, l2, chain, testSender, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, again)

	l2.SetNonce(testSender, 10)
	next, err := m.Reserve(ctx, l2, chain, testSender, nil)
	require.NoError(t, err)
	require.EqualValues(t, 10, next)
}

func TestDepositRepricedAfterApproval(t *testing.T) {
	env := newTestEnv(t, nil)
	approve := contracts.ERC20.Methods["approve"].ID
	env.l1.OnSend = func(sent helpers.Sent) {
		if bytes.Equal(sent.Selector(), approve) {
			env.l1.BaseFee = big.NewInt(50_000_000_000)
		}
	}

	_, err := env.wallet.Deposit(context.Background(), zktypes.DepositRequest{
		Token:        testDAI,
		Amount:       big.NewInt(5),
		ApproveERC20: true,
	})
	require.NoError(t, err)
	sent := env.l1.Sent()
	require.Len(t, sent, 2)
	require.Equal(t, contracts.L1ERC20Bridge.Methods["deposit"].ID, sent[1].Selector())

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(sent[1].Raw))
	require.EqualValues(t, 101_000_000_000, tx.GasFeeCap().Int64())
	require.Equal(t, big.NewInt(1_240_498_160_000_000), sent[1].Value)
}

func TestWaitFinalizedL2RevertKeepsL1Outcome(t *testing.T) {
	env := newTestEnv(t, nil)
	l2Hash := common.HexToHash("0xdead")
	env.l1.ReceiptFn = func(sent helpers.Sent) *types.Receipt {
		return &types.Receipt{
			Status: types.ReceiptStatusSuccessful,
			Logs:   []*types.Log{helpers.PriorityRequestLog(testSet.MainContract, sent.Nonce, l2Hash)},
		}
	}
	env.l2.SetReceipt(l2Hash, &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: l2Hash})

	op, err := env.wallet.Deposit(context.Background(), zktypes.DepositRequest{Amount: big.NewInt(7)})
	require.NoError(t, err)

	var revert *zktypes.OnChainRevertError
	_, err = op.WaitFinalized(context.Background(), time.Second)
	require.ErrorAs(t, err, &revert)
	require.Equal(t, l2Hash, revert.Hash)
	require.Equal(t, StatusFailed, op.Status())

	receipt, err := op.Wait(context.Background(), time.Second)
	require.NoError(t, err, "the L1 transaction succeeded")
	require.Equal(t, op.Hash, receipt.TxHash)

	l2Receipt, err := op.WaitFinalized(context.Background(), time.Second)
	require.ErrorAs(t, err, &revert)
	require.Equal(t, l2Hash, revert.Hash)
	require.Equal(t, l2Hash, l2Receipt.TxHash)
	require.Equal(t, l2Hash, op.L2Hash())
}

func TestSignerPaymasterIsEstimated(t *testing.T) {
	account := common.HexToAddress("0x00000000000000000000000000000000000c0ffe")
	key, err := signer.FromHex(testKey)
	require.NoError(t, err)
	pm := &zktypes.PaymasterParams{Paymaster: common.HexToAddress("0xaa"), PaymasterInput: []byte{1, 2}}

	env := newTestEnv(t, accounts.NewAbstractTxSigner(account, key, accounts.WithPaymaster(pm)))
	var estimated []*zktypes.PaymasterParams
	env.l2.EstimateTxFn = func(tx *zktypes.Transaction) (uint64, error) {
		require.NotNil(t, tx.Meta)
		estimated = append(estimated, tx.Meta.PaymasterParams.Copy())
		return 900_000, nil
	}

	_, err = env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
	require.NoError(t, err)
	_, err = env.wallet.Withdraw(context.Background(), zktypes.WithdrawRequest{Amount: big.NewInt(1)})
	require.NoError(t, err)
	own := &zktypes.PaymasterParams{Paymaster: common.HexToAddress("0xbb"), PaymasterInput: []byte{3}}
	_, err = env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1), PaymasterParams: own})
	require.NoError(t, err)

	require.Equal(t, []*zktypes.PaymasterParams{pm, pm, own}, estimated)
	for i, sent := range env.l2.Sent() {
		tx, _, err := eip712.Decode(sent.Raw)
		require.NoError(t, err)
		require.Equal(t, estimated[i], tx.Meta.PaymasterParams)
		require.EqualValues(t, 900_000, tx.GasLimit)
	}
}

func TestAbstractWalletDepositsToAccount(t *testing.T) {
	account := common.HexToAddress("0x00000000000000000000000000000000000c0ffe")
	key, err := signer.FromHex(testKey)
	require.NoError(t, err)
	l1Key, err := signer.FromHex(secondKey)
	require.NoError(t, err)

	env := newTestEnv(t, accounts.NewAbstractTxSigner(account, key, accounts.WithL1Key(l1Key)))
	env.l1.SetBalance(l1Key.Address(), ether)

	dtx, err := env.wallet.GetDepositTx(context.Background(), zktypes.DepositRequest{Amount: big.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, account, dtx.Deposit.To)
	require.Equal(t, account, dtx.Deposit.RefundRecipient)
	require.Equal(t, l1Key.Address(), dtx.Tx.From)

	_, err = env.wallet.Deposit(context.Background(), zktypes.DepositRequest{Amount: big.NewInt(1)})
	require.NoError(t, err)
	sent := env.l1.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, l1Key.Address(), sent[0].From)
	args, err := contracts.Mailbox.Methods["requestL2Transaction"].Inputs.Unpack(sent[0].Data[4:])
	require.NoError(t, err)
	require.Equal(t, account, args[0])
	require.Equal(t, account, args[6])

	p, err := env.wallet.GetRequestExecuteTx(context.Background(), zktypes.RequestExecuteParams{ContractAddress: testReceiver})
	require.NoError(t, err)
	args, err = contracts.Mailbox.Methods["requestL2Transaction"].Inputs.Unpack(p.Tx.Data[4:])
	require.NoError(t, err)
	require.Equal(t, account, args[6])
}

func TestL2BalancesAndTokenMapping(t *testing.T) {
	env := newTestEnv(t, nil)
	l2DAI := common.HexToAddress("0x00000000000000000000000000000000000d2d2d")
	env.l2.Handle(testSet.L2ERC20Bridge, contracts.L2Bridge, "l2TokenAddress", func(args []interface{}) ([]interface{}, error) {
		require.Equal(t, testDAI, args[0])
		return []interface{}{l2DAI}, nil
	})
	env.l2.Handle(testSet.L2ERC20Bridge, contracts.L2Bridge, "l1TokenAddress", func(args []interface{}) ([]interface{}, error) {
		require.Equal(t, l2DAI, args[0])
		return []interface{}{testDAI}, nil
	})
	env.l2.DeployERC20(l2DAI, "DAI", "DAI", 18).SetBalance(testSender, big.NewInt(42))
	env.l2.SetBalance(testSender, big.NewInt(9))

	token, err := env.wallet.L2TokenAddress(context.Background(), testDAI)
	require.NoError(t, err)
	require.Equal(t, l2DAI, token)
	origin, err := env.wallet.L1TokenAddress(context.Background(), l2DAI)
	require.NoError(t, err)
	require.Equal(t, testDAI, origin)

	eth, err := env.wallet.L2TokenAddress(context.Background(), zktypes.EthAddress)
	require.NoError(t, err)
	require.Equal(t, zktypes.L2EthTokenAddress, eth)

	balance, err := env.wallet.Balance(context.Background(), eth)
	require.NoError(t, err)
	require.EqualValues(t, 9, balance.Int64())
	balance, err = env.wallet.Balance(context.Background(), token)
	require.NoError(t, err)
	require.EqualValues(t, 42, balance.Int64())
}

func TestL2GasSizing(t *testing.T) {
	req := zktypes.DepositRequest{Amount: big.NewInt(1)}

	node := newTestEnv(t, nil)
	dtx, err := node.wallet.GetDepositTx(context.Background(), req)
	require.NoError(t, err)
	require.EqualValues(t, 577_984, dtx.L2GasLimit.Int64())

	other := helpers.NewFakeClient(300)
	other.Contracts = testSet
	other.L1ToL2Gas = 612_000
	connected, err := node.wallet.Connect(context.Background(), other)
	require.NoError(t, err)
	dtx, err = connected.GetDepositTx(context.Background(), req)
	require.NoError(t, err)
	require.EqualValues(t, 612_000, dtx.L2GasLimit.Int64())

	formula := newTestEnv(t, nil, WithL2GasFormula())
	dtx, err = formula.wallet.GetDepositTx(context.Background(), req)
	require.NoError(t, err)
	require.EqualValues(t, 300_000, dtx.L2GasLimit.Int64())
	require.Equal(t, big.NewInt(150_000_000_000_001), dtx.Tx.Value)
}

func TestUnansweredSubmissionKeepsNonce(t *testing.T) {
	for _, sendErr := range []error{
		errors.New("Post \"http://localhost:3050\": i/o timeout"),
		nodeError{code: -32000, msg: "already known"},
	} {
		env := newTestEnv(t, nil)
		env.l2.SendErr = sendErr

		_, err := env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
		var submission *zktypes.SubmissionError
		require.ErrorAs(t, err, &submission)
		require.True(t, submission.Unconfirmed, sendErr.Error())

		env.l2.SendErr = nil
		op, err := env.wallet.Transfer(context.Background(), zktypes.TransferRequest{To: testReceiver, Amount: big.NewInt(1)})
		require.NoError(t, err)
		require.EqualValues(t, 1, op.Nonce, sendErr.Error())
	}
}

func TestNonPositiveIntervals(t *testing.T) {
	l1 := helpers.NewFakeClient(9)
	l2 := helpers.NewFakeClient(270)
	key := keySigner(t, testKey)

	_, err := New(context.Background(), key, l1, l2, WithPollInterval(0))
	require.ErrorContains(t, err, "poll interval")
	_, err = New(context.Background(), key, l1, l2, WithPollInterval(-time.Second))
	require.ErrorContains(t, err, "poll interval")
	_, err = New(context.Background(), key, l1, l2, WithApprovalTimeout(0))
	require.ErrorContains(t, err, "approval timeout")
}
