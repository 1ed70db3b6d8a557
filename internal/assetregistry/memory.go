package assetregistry

import (
	"errors"
	"math/big"
	"sync"
)

var (
	ErrNotAssetOwner = errors.New("transfer from party that does not own the asset")
)

type asset struct {
	owner        string
	approved     string
	initialPrice *big.Int
}

// Memory is an in-process asset registry used by the daemon in standalone
// mode and by tests. Mint and Approve stand in for the real contract's
// minting and approval entry points.
type Memory struct {
	mu     sync.Mutex
	assets map[string]map[uint64]*asset
}

var _ Service = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{assets: make(map[string]map[uint64]*asset)}
}

func (m *Memory) Mint(contract string, tokenId uint64, owner string, initialPrice *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[contract]; !ok {
		m.assets[contract] = make(map[uint64]*asset)
	}
	m.assets[contract][tokenId] = &asset{owner: owner, initialPrice: new(big.Int).Set(initialPrice)}
}

func (m *Memory) Approve(contract string, tokenId uint64, operator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.get(contract, tokenId)
	if err != nil {
		return err
	}
	a.approved = operator

	return nil
}

func (m *Memory) OwnerOf(contract string, tokenId uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.get(contract, tokenId)
	if err != nil {
		return "", err
	}

	return a.owner, nil
}

func (m *Memory) IsApprovedFor(contract string, tokenId uint64, operator string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.get(contract, tokenId)
	if err != nil {
		return false, err
	}

	return a.approved == operator, nil
}

func (m *Memory) Transfer(contract string, from, to string, tokenId uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.get(contract, tokenId)
	if err != nil {
		return err
	}
	if a.owner != from {
		return ErrNotAssetOwner
	}

	a.owner = to
	a.approved = ""

	return nil
}

func (m *Memory) InitialPrice(contract string, tokenId uint64) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.get(contract, tokenId)
	if err != nil {
		return nil, err
	}

	return new(big.Int).Set(a.initialPrice), nil
}

func (m *Memory) get(contract string, tokenId uint64) (*asset, error) {
	tokens, ok := m.assets[contract]
	if !ok {
		return nil, ErrAssetNotFound
	}
	a, ok := tokens[tokenId]
	if !ok {
		return nil, ErrAssetNotFound
	}

	return a, nil
}
