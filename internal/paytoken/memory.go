package paytoken

import (
	"errors"
	"math/big"
	"sync"
)

var (
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
)

// Memory is an in-process payment token used by the daemon in standalone
// mode and by tests. Mint and Approve stand in for the real token contract.
type Memory struct {
	mu         sync.Mutex
	balances   map[string]map[string]*big.Int
	allowances map[string]map[string]map[string]*big.Int
}

var _ Service = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		balances:   make(map[string]map[string]*big.Int),
		allowances: make(map[string]map[string]map[string]*big.Int),
	}
}

func (m *Memory) Mint(token string, owner string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balance(token, owner).Add(m.balance(token, owner), amount)
}

func (m *Memory) Approve(token string, owner, spender string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.allowance(token, owner, spender).Set(amount)
}

func (m *Memory) TransferFrom(token string, spender, from, to string, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A party moving its own funds needs no allowance.
	if spender != from {
		allowance := m.allowance(token, from, spender)
		if allowance.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		allowance.Sub(allowance, amount)
	}

	balance := m.balance(token, from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	balance.Sub(balance, amount)
	m.balance(token, to).Add(m.balance(token, to), amount)

	return nil
}

func (m *Memory) Allowance(token string, owner, spender string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return new(big.Int).Set(m.allowance(token, owner, spender)), nil
}

func (m *Memory) BalanceOf(token string, owner string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return new(big.Int).Set(m.balance(token, owner)), nil
}

func (m *Memory) balance(token, owner string) *big.Int {
	if _, ok := m.balances[token]; !ok {
		m.balances[token] = make(map[string]*big.Int)
	}
	if _, ok := m.balances[token][owner]; !ok {
		m.balances[token][owner] = new(big.Int)
	}

	return m.balances[token][owner]
}

func (m *Memory) allowance(token, owner, spender string) *big.Int {
	if _, ok := m.allowances[token]; !ok {
		m.allowances[token] = make(map[string]map[string]*big.Int)
	}
	if _, ok := m.allowances[token][owner]; !ok {
		m.allowances[token][owner] = make(map[string]*big.Int)
	}
	if _, ok := m.allowances[token][owner][spender]; !ok {
		m.allowances[token][owner][spender] = new(big.Int)
	}

	return m.allowances[token][owner][spender]
}
