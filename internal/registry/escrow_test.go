package registry

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscrowLedger_CreditAccumulates(t *testing.T) {
	l := NewEscrowLedger()

	l.Credit(1, "0xbob", big.NewInt(1000))
	l.Credit(1, "0xbob", big.NewInt(500))
	l.Credit(1, "0xcarol", big.NewInt(200))
	l.Credit(2, "0xbob", big.NewInt(50))

	assert.Equal(t, int64(1500), l.Balance(1, "0xbob").Int64())
	assert.Equal(t, int64(200), l.Balance(1, "0xcarol").Int64())
	assert.Equal(t, int64(50), l.Balance(2, "0xbob").Int64())
	assert.Equal(t, int64(0), l.Balance(3, "0xbob").Int64())
}

func TestEscrowLedger_TakeZeroesBeforeReturning(t *testing.T) {
	l := NewEscrowLedger()
	l.Credit(1, "0xbob", big.NewInt(1000))

	amount, err := l.Take(1, "0xbob")
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), amount.Int64())
	assert.Equal(t, int64(0), l.Balance(1, "0xbob").Int64())

	_, err = l.Take(1, "0xbob")
	assert.ErrorIs(t, err, ErrNothingEscrowed)
}

func TestEscrowLedger_TakeUnknownEntry(t *testing.T) {
	l := NewEscrowLedger()

	_, err := l.Take(1, "0xbob")
	assert.ErrorIs(t, err, ErrNothingEscrowed)
}

func TestEscrowLedger_ByAuction(t *testing.T) {
	l := NewEscrowLedger()
	l.Credit(1, "0xbob", big.NewInt(1000))
	l.Credit(1, "0xcarol", big.NewInt(200))
	l.Credit(2, "0xbob", big.NewInt(50))

	entries := l.ByAuction(1)
	assert.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, uint64(1), entry.AuctionId)
	}
}
