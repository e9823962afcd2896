package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/base-org/zkbridge/accounts"
	"github.com/base-org/zkbridge/client"
	"github.com/base-org/zkbridge/fees"
	"github.com/base-org/zkbridge/signer"
	"github.com/base-org/zkbridge/wallet"
	"github.com/base-org/zkbridge/zktypes"
)

var (
	tokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "Token address; empty for ETH",
	}
	amountFlag = &cli.StringFlag{
		Name:     "amount",
		Usage:    "Amount in the token's smallest unit (decimal or 0x hex)",
		Required: true,
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "Receiver address; defaults to the sender",
	}
	bridgeFlag = &cli.StringFlag{
		Name:  "bridge",
		Usage: "Custom token bridge address",
	}
	l2GasLimitFlag = &cli.StringFlag{
		Name:  "l2-gas-limit",
		Usage: "L2 gas limit of the priority operation; derived when unset",
	}
	operatorTipFlag = &cli.StringFlag{
		Name:  "operator-tip",
		Usage: "Tip paid to the operator on top of the base cost",
	}
	refundRecipientFlag = &cli.StringFlag{
		Name:  "refund-recipient",
		Usage: "L2 address receiving unspent L2 gas; defaults to the sender",
	}
	waitL2Flag = &cli.BoolFlag{
		Name:  "wait-l2",
		Usage: "After L1 inclusion, also wait for the L2 execution of the priority operation",
	}
)

var commands = []*cli.Command{
	{
		Name:  "deposit",
		Usage: "Deposit ETH or an ERC-20 token from L1 to L2",
		Flags: []cli.Flag{
			tokenFlag, amountFlag, toFlag, bridgeFlag, l2GasLimitFlag, operatorTipFlag, refundRecipientFlag, waitL2Flag,
			&cli.BoolFlag{Name: "approve", Usage: "Approve the bridge first if the token allowance is short"},
		},
		Action: depositCommand,
	},
	{
		Name:   "deposit-fee",
		Usage:  "Quote the full fee of a deposit",
		Flags:  []cli.Flag{tokenFlag, toFlag, bridgeFlag},
		Action: depositFeeCommand,
	},
	{
		Name:  "request-execute",
		Usage: "Request an L2 call from L1 through the mailbox",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "contract", Usage: "L2 contract to call", Required: true},
			&cli.StringFlag{Name: "calldata", Usage: "Hex encoded calldata", Value: "0x"},
			&cli.StringFlag{Name: "l2-value", Usage: "Value passed to the L2 call"},
			l2GasLimitFlag, operatorTipFlag, refundRecipientFlag, waitL2Flag,
		},
		Action: requestExecuteCommand,
	},
	{
		Name:   "transfer",
		Usage:  "Transfer ETH or a token on L2",
		Flags:  []cli.Flag{tokenFlag, amountFlag, &cli.StringFlag{Name: "to", Usage: "Receiver address", Required: true}},
		Action: transferCommand,
	},
	{
		Name:   "withdraw",
		Usage:  "Start a withdrawal of ETH or a token from L2 to L1",
		Flags:  []cli.Flag{tokenFlag, amountFlag, toFlag, bridgeFlag},
		Action: withdrawCommand,
	},
	{
		Name:  "approve",
		Usage: "Approve the L1 token bridge to pull an amount of a token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Usage: "Token address", Required: true},
			amountFlag, bridgeFlag,
		},
		Action: approveCommand,
	},
	{
		Name:   "balance",
		Usage:  "Show the L1 and L2 balances and the bridge allowance of the signer",
		Flags:  []cli.Flag{tokenFlag, bridgeFlag},
		Action: balanceCommand,
	},
}

// session is what every command runs against.
type session struct {
	wallet *wallet.Wallet
	// paymaster is attached to L2 requests of key signers; account signers carry their own.
	paymaster *zktypes.PaymasterParams
	wait      time.Duration
}

func newSession(c *cli.Context) (*session, error) {
	ctx := c.Context
	n, err := loadNetwork(c.String(networkFlag.Name), c.Path(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if l2RPC := c.String(l2RPCFlag.Name); l2RPC != "" {
		n.L2RPC = l2RPC
	}

	privateKey, ledger, mnemonic := c.String(privateKeyFlag.Name), c.Bool(ledgerFlag.Name), c.String(mnemonicFlag.Name)
	if err := signer.ValidateSources(privateKey, ledger, mnemonic); err != nil {
		return nil, err
	}
	s, err := signer.CreateSigner(privateKey, mnemonic, c.String(hdPathFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("error creating signer: %w", err)
	}

	var pm *zktypes.PaymasterParams
	if n.Paymaster != nil {
		if pm, err = n.Paymaster.Params(); err != nil {
			return nil, fmt.Errorf("error encoding paymaster params: %w", err)
		}
	}
	txSigner, err := newTxSigner(c.String(accountFlag.Name), s, pm)
	if err != nil {
		return nil, err
	}

	l1, err := ethclient.DialContext(ctx, c.String(l1RPCFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("error dialing L1 client: %w", err)
	}
	l2, err := client.Dial(ctx, n.L2RPC)
	if err != nil {
		return nil, err
	}

	logger := log.Root()
	opts := []wallet.Option{
		wallet.WithLogger(logger),
		wallet.WithFeeOptions(fees.WithParams(n.Fees)),
		wallet.WithApprovalTimeout(c.Duration(approvalTimeoutFlag.Name)),
		wallet.WithPollInterval(c.Duration(pollIntervalFlag.Name)),
	}
	if c.Bool(l2GasFormulaFlag.Name) {
		opts = append(opts, wallet.WithL2GasFormula())
	}
	if n.Contracts != nil {
		opts = append(opts, wallet.WithBridgeContracts(n.Contracts.bridgeContracts()))
	}
	w, err := wallet.New(ctx, txSigner, l1, l2, opts...)
	if err != nil {
		return nil, err
	}

	sess := &session{wallet: w, wait: c.Duration(waitFlag.Name)}
	if _, ok := txSigner.(*accounts.KeyTxSigner); ok {
		sess.paymaster = pm
	}
	return sess, nil
}

// newTxSigner signs as the key itself, or on behalf of account when set.
func newTxSigner(account string, s signer.Signer, pm *zktypes.PaymasterParams) (accounts.TxSigner, error) {
	if account == "" {
		return accounts.NewKeyTxSigner(s), nil
	}
	addr, err := parseAddress(account)
	if err != nil {
		return nil, fmt.Errorf("invalid --account: %w", err)
	}
	opts := []accounts.AbstractOption{accounts.WithL1Key(s)}
	if pm != nil {
		opts = append(opts, accounts.WithPaymaster(pm))
	}
	return accounts.NewAbstractTxSigner(addr, s, opts...), nil
}

func depositCommand(c *cli.Context) error {
	sess, err := newSession(c)
	if err != nil {
		return err
	}
	req, err := depositRequest(c)
	if err != nil {
		return err
	}
	if req.Amount, err = parseAmount(c.String(amountFlag.Name)); err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	req.ApproveERC20 = c.Bool("approve")
	if req.L2GasLimit, err = optionalAmount(c, l2GasLimitFlag.Name); err != nil {
		return err
	}
	if req.OperatorTip, err = optionalAmount(c, operatorTipFlag.Name); err != nil {
		return err
	}
	if req.RefundRecipient, err = optionalAddress(c, refundRecipientFlag.Name); err != nil {
		return err
	}

	op, err := sess.wallet.Deposit(c.Context, req)
	if err != nil {
		return err
	}
	fmt.Printf("Deposit sent: %s\n", op.Hash)
	return sess.await(c.Context, op, c.Bool(waitL2Flag.Name))
}

func depositFeeCommand(c *cli.Context) error {
	sess, err := newSession(c)
	if err != nil {
		return err
	}
	req, err := depositRequest(c)
	if err != nil {
		return err
	}
	quote, err := sess.wallet.GetFullRequiredDepositFee(c.Context, req)
	if err != nil {
		return err
	}
	fmt.Printf("Base cost:        %s\n", quote.BaseCost)
	fmt.Printf("L1 gas limit:     %d\n", quote.L1GasLimit)
	fmt.Printf("L2 gas limit:     %s\n", quote.L2GasLimit)
	if quote.GasPrice != nil {
		fmt.Printf("Gas price:        %s\n", quote.GasPrice)
	} else {
		fmt.Printf("Max fee per gas:  %s\n", quote.MaxFeePerGas)
		fmt.Printf("Max priority fee: %s\n", quote.MaxPriorityFeePerGas)
	}
	return nil
}

// depositRequest reads the flags shared by deposit and deposit-fee.
func depositRequest(c *cli.Context) (zktypes.DepositRequest, error) {
	var req zktypes.DepositRequest
	token, err := optionalAddress(c, tokenFlag.Name)
	if err != nil {
		return req, err
	}
	if token != nil {
		req.Token = *token
	}
	if req.To, err = optionalAddress(c, toFlag.Name); err != nil {
		return req, err
	}
	if req.BridgeAddress, err = optionalAddress(c, bridgeFlag.Name); err != nil {
		return req, err
	}
	return req, nil
}

func requestExecuteCommand(c *cli.Context) error {
	sess, err := newSession(c)
	if err != nil {
		return err
	}
	contract, err := parseAddress(c.String("contract"))
	if err != nil {
		return fmt.Errorf("invalid --contract: %w", err)
	}
	calldata, err := hexutil.Decode(c.String("calldata"))
	if err != nil {
		return fmt.Errorf("invalid --calldata: %w", err)
	}
	params := zktypes.RequestExecuteParams{ContractAddress: contract, Calldata: calldata}
	if params.L2Value, err = optionalAmount(c, "l2-value"); err != nil {
		return err
	}
	if params.L2GasLimit, err = optionalAmount(c, l2GasLimitFlag.Name); err != nil {
		return err
	}
	if params.OperatorTip, err = optionalAmount(c, operatorTipFlag.Name); err != nil {
		return err
	}
	if params.RefundRecipient, err = optionalAddress(c, refundRecipientFlag.Name); err != nil {
		return err
	}

	op, err := sess.wallet.RequestExecute(c.Context, params)
	if err != nil {
		return err
	}
	fmt.Printf("Request sent: %s\n", op.Hash)
	return sess.await(c.Context, op, c.Bool(waitL2Flag.Name))
}

func transferCommand(c *cli.Context) error {
	sess, err := newSession(c)
	if err != nil {
		return err
	}
	to, err := parseAddress(c.String("to"))
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	amount, err := parseAmount(c.String(amountFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	req := zktypes.TransferRequest{To: to, Amount: amount, PaymasterParams: sess.paymaster}
	if token, err := optionalAddress(c, tokenFlag.Name); err != nil {
		return err
	} else if token != nil {
		req.Token = *token
	}

	op, err := sess.wallet.Transfer(c.Context, req)
	if err != nil {
		return err
	}
	fmt.Printf("Transfer sent: %s\n", op.Hash)
	return sess.await(c.Context, op, false)
}

func withdrawCommand(c *cli.Context) error {
	sess, err := newSession(c)
	if err != nil {
		return err
	}
	amount, err := parseAmount(c.String(amountFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	req := zktypes.WithdrawRequest{Amount: amount, PaymasterParams: sess.paymaster}
	if token, err := optionalAddress(c, tokenFlag.Name); err != nil {
		return err
	} else if token != nil {
		req.Token = *token
	}
	if req.To, err = optionalAddress(c, toFlag.Name); err != nil {
		return err
	}
	if req.BridgeAddress, err = optionalAddress(c, bridgeFlag.Name); err != nil {
		return err
	}

	op, err := sess.wallet.Withdraw(c.Context, req)
	if err != nil {
		return err
	}
	fmt.Printf("Withdrawal sent: %s\n", op.Hash)
	return sess.await(c.Context, op, false)
}

func approveCommand(c *cli.Context) error {
	sess, err := newSession(c)
	if err != nil {
		return err
	}
	token, err := parseAddress(c.String(tokenFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --token: %w", err)
	}
	amount, err := parseAmount(c.String(amountFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	bridge, err := optionalAddress(c, bridgeFlag.Name)
	if err != nil {
		return err
	}

	op, err := sess.wallet.ApproveERC20(c.Context, token, amount, bridge, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Approval sent: %s\n", op.Hash)
	return sess.await(c.Context, op, false)
}

func balanceCommand(c *cli.Context) error {
	sess, err := newSession(c)
	if err != nil {
		return err
	}
	token := zktypes.EthAddress
	if t, err := optionalAddress(c, tokenFlag.Name); err != nil {
		return err
	} else if t != nil {
		token = *t
	}
	bridge, err := optionalAddress(c, bridgeFlag.Name)
	if err != nil {
		return err
	}

	balance, err := sess.wallet.BalanceL1(c.Context, token)
	if err != nil {
		return err
	}
	fmt.Printf("L1 balance:   %s\n", balance)

	l2Token, err := sess.wallet.L2TokenAddress(c.Context, token)
	if err != nil {
		return err
	}
	l2Balance, err := sess.wallet.Balance(c.Context, l2Token)
	if err != nil {
		return err
	}
	fmt.Printf("L2 balance:   %s (%s)\n", l2Balance, l2Token)
	if zktypes.IsETH(token) {
		return nil
	}
	allowance, err := sess.wallet.AllowanceL1(c.Context, token, bridge)
	if err != nil {
		return err
	}
	fmt.Printf("L1 allowance: %s\n", allowance)
	return nil
}

// await waits for inclusion of op and, with l2 set, for its L2 execution.
func (s *session) await(ctx context.Context, op *wallet.Operation, l2 bool) error {
	if s.wait == 0 {
		return nil
	}
	receipt, err := op.Wait(ctx, s.wait)
	if err != nil {
		if errors.Is(err, zktypes.ErrPendingOrDropped) {
			fmt.Printf("%s not included yet; it may still land\n", op.Hash)
		}
		return err
	}
	fmt.Printf("%s included in block %s\n", op.Hash, receipt.BlockNumber)
	if !l2 || !op.IsPriorityOperation() {
		return nil
	}
	l2Receipt, err := op.WaitFinalized(ctx, s.wait)
	if err != nil {
		return err
	}
	fmt.Printf("L2 transaction %s executed in block %s\n", l2Receipt.TxHash, l2Receipt.BlockNumber)
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not a hex address", s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("%q is not a 256-bit integer", s)
	}
	return v, nil
}

func optionalAddress(c *cli.Context, name string) (*common.Address, error) {
	if !c.IsSet(name) || c.String(name) == "" {
		return nil, nil
	}
	addr, err := parseAddress(c.String(name))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &addr, nil
}

func optionalAmount(c *cli.Context, name string) (*big.Int, error) {
	if !c.IsSet(name) {
		return nil, nil
	}
	v, err := parseAmount(c.String(name))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return v, nil
}
