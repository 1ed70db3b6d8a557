package registry

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ticketmesh/market-engine/internal/entity"
)

var ErrNothingEscrowed = errors.New("no escrowed balance")

// EscrowLedger tracks amounts the auction service owes to parties: refunds
// for outbid bidders and proceeds for sellers. Owned exclusively by the
// auction service.
type EscrowLedger interface {
	Credit(auctionId uint64, beneficiary string, amount *big.Int)
	Balance(auctionId uint64, beneficiary string) *big.Int
	// Take zeroes the entry and returns the amount it held. The zeroing
	// happens before any external transfer so a re-entrant withdrawal can
	// only observe the emptied entry.
	Take(auctionId uint64, beneficiary string) (*big.Int, error)
	ByAuction(auctionId uint64) []entity.EscrowEntry
}

type escrowKey struct {
	auctionId   uint64
	beneficiary string
}

type escrowLedger struct {
	mu      sync.RWMutex
	entries map[escrowKey]*big.Int
}

func NewEscrowLedger() EscrowLedger {
	return &escrowLedger{entries: make(map[escrowKey]*big.Int)}
}

func (l *escrowLedger) Credit(auctionId uint64, beneficiary string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := escrowKey{auctionId, beneficiary}
	balance, ok := l.entries[key]
	if !ok {
		balance = new(big.Int)
		l.entries[key] = balance
	}
	balance.Add(balance, amount)
}

func (l *escrowLedger) Balance(auctionId uint64, beneficiary string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if balance, ok := l.entries[escrowKey{auctionId, beneficiary}]; ok {
		return new(big.Int).Set(balance)
	}

	return new(big.Int)
}

func (l *escrowLedger) Take(auctionId uint64, beneficiary string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := escrowKey{auctionId, beneficiary}
	balance, ok := l.entries[key]
	if !ok || balance.Sign() == 0 {
		return nil, ErrNothingEscrowed
	}

	delete(l.entries, key)

	return balance, nil
}

func (l *escrowLedger) ByAuction(auctionId uint64) []entity.EscrowEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]entity.EscrowEntry, 0)
	for key, balance := range l.entries {
		if key.auctionId == auctionId {
			entries = append(entries, entity.EscrowEntry{
				AuctionId:   key.auctionId,
				Beneficiary: key.beneficiary,
				Amount:      new(big.Int).Set(balance),
			})
		}
	}

	return entries
}
