package helpers

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/base-org/zkbridge/contracts"
)

// Token is an in-memory ERC-20 served by a FakeClient.
type Token struct {
	Address  common.Address
	Name     string
	Symbol   string
	Decimals uint8

	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[[2]common.Address]*big.Int
	approvals  int
}

// DeployERC20 registers a token at addr. approve and transfer transactions sent to the
// fake update its state.
func (f *FakeClient) DeployERC20(addr common.Address, name, symbol string, decimals uint8) *Token {
	t := &Token{
		Address:    addr,
		Name:       name,
		Symbol:     symbol,
		Decimals:   decimals,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[[2]common.Address]*big.Int),
	}
	f.Handle(addr, contracts.ERC20, "name", func([]interface{}) ([]interface{}, error) {
		return []interface{}{t.Name}, nil
	})
	f.Handle(addr, contracts.ERC20, "symbol", func([]interface{}) ([]interface{}, error) {
		return []interface{}{t.Symbol}, nil
	})
	f.Handle(addr, contracts.ERC20, "decimals", func([]interface{}) ([]interface{}, error) {
		return []interface{}{t.Decimals}, nil
	})
	f.Handle(addr, contracts.ERC20, "balanceOf", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{t.BalanceOf(args[0].(common.Address))}, nil
	})
	f.Handle(addr, contracts.ERC20, "allowance", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{t.Allowance(args[0].(common.Address), args[1].(common.Address))}, nil
	})
	f.HandleTx(addr, contracts.ERC20, "approve", func(from common.Address, _ *big.Int, args []interface{}) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.approvals++
		t.allowances[[2]common.Address{from, args[0].(common.Address)}] = new(big.Int).Set(args[1].(*big.Int))
	})
	f.HandleTx(addr, contracts.ERC20, "transfer", func(from common.Address, _ *big.Int, args []interface{}) {
		t.mu.Lock()
		defer t.mu.Unlock()
		amount := args[1].(*big.Int)
		to := args[0].(common.Address)
		t.balances[from] = new(big.Int).Sub(t.balanceOf(from), amount)
		t.balances[to] = new(big.Int).Add(t.balanceOf(to), amount)
	})
	return t
}

func (t *Token) SetBalance(owner common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[owner] = new(big.Int).Set(amount)
}

func (t *Token) SetAllowance(owner, spender common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowances[[2]common.Address{owner, spender}] = new(big.Int).Set(amount)
}

func (t *Token) BalanceOf(owner common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balanceOf(owner)
}

func (t *Token) balanceOf(owner common.Address) *big.Int {
	if b, ok := t.balances[owner]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.allowances[[2]common.Address{owner, spender}]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// Approvals counts accepted approve transactions.
func (t *Token) Approvals() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.approvals
}
