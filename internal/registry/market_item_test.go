package registry

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ticketmesh/market-engine/internal/entity"
)

func TestMarketItemRegistry_HandlesAreDenseAndMonotonic(t *testing.T) {
	r := NewMarketItemRegistry()
	now := time.Now()

	first := r.Create(10, "0xalice", big.NewInt(100), now)
	second := r.Create(11, "0xbob", big.NewInt(200), now)
	third := r.Create(12, "0xalice", big.NewInt(300), now)

	assert.Equal(t, uint64(1), first.ItemId)
	assert.Equal(t, uint64(2), second.ItemId)
	assert.Equal(t, uint64(3), third.ItemId)

	got, err := r.Get(2)
	assert.NoError(t, err)
	assert.Equal(t, "0xbob", got.Seller)
}

func TestMarketItemRegistry_GetUnknownHandle(t *testing.T) {
	r := NewMarketItemRegistry()
	r.Create(10, "0xalice", big.NewInt(100), time.Now())

	_, err := r.Get(0)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = r.Get(2)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestMarketItemRegistry_CreateCopiesPrice(t *testing.T) {
	r := NewMarketItemRegistry()
	price := big.NewInt(100)

	item := r.Create(10, "0xalice", price, time.Now())
	price.SetInt64(999)

	got, err := r.Get(item.ItemId)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), got.Price.Int64())
}

func TestMarketItemRegistry_MarkSold(t *testing.T) {
	r := NewMarketItemRegistry()
	item := r.Create(10, "0xalice", big.NewInt(100), time.Now())

	sold, err := r.MarkSold(item.ItemId, "0xbob")
	assert.NoError(t, err)
	assert.Equal(t, entity.ItemStatusSold, sold.Status)
	assert.Equal(t, "0xbob", sold.Buyer)

	// terminal records stay readable but reject further transitions
	_, err = r.MarkSold(item.ItemId, "0xcarol")
	assert.ErrorIs(t, err, ErrItemNotActive)
	_, err = r.Cancel(item.ItemId)
	assert.ErrorIs(t, err, ErrItemNotActive)
}

func TestMarketItemRegistry_CancelAndReopen(t *testing.T) {
	r := NewMarketItemRegistry()
	item := r.Create(10, "0xalice", big.NewInt(100), time.Now())

	cancelled, err := r.Cancel(item.ItemId)
	assert.NoError(t, err)
	assert.Equal(t, entity.ItemStatusCancelled, cancelled.Status)

	reopened, err := r.Reopen(item.ItemId)
	assert.NoError(t, err)
	assert.True(t, reopened.Active())
	assert.Empty(t, reopened.Buyer)
}

func TestMarketItemRegistry_ReopenOnlyRevertsCancelled(t *testing.T) {
	r := NewMarketItemRegistry()

	sold := r.Create(10, "0xalice", big.NewInt(100), time.Now())
	_, err := r.MarkSold(sold.ItemId, "0xbob")
	assert.NoError(t, err)

	_, err = r.Reopen(sold.ItemId)
	assert.ErrorIs(t, err, ErrItemNotCancelled)

	got, err := r.Get(sold.ItemId)
	assert.NoError(t, err)
	assert.Equal(t, entity.ItemStatusSold, got.Status)
	assert.Equal(t, "0xbob", got.Buyer)

	listed := r.Create(11, "0xalice", big.NewInt(100), time.Now())
	_, err = r.Reopen(listed.ItemId)
	assert.ErrorIs(t, err, ErrItemNotCancelled)
}

func TestMarketItemRegistry_ActiveByTokenId(t *testing.T) {
	r := NewMarketItemRegistry()
	now := time.Now()

	item := r.Create(10, "0xalice", big.NewInt(100), now)
	r.Create(11, "0xbob", big.NewInt(200), now)

	got, ok := r.ActiveByTokenId(10)
	assert.True(t, ok)
	assert.Equal(t, item.ItemId, got.ItemId)

	_, err := r.Cancel(item.ItemId)
	assert.NoError(t, err)

	_, ok = r.ActiveByTokenId(10)
	assert.False(t, ok)

	// a fresh listing for the same token gets a new handle
	relisted := r.Create(10, "0xalice", big.NewInt(150), now)
	assert.Equal(t, uint64(3), relisted.ItemId)

	got, ok = r.ActiveByTokenId(10)
	assert.True(t, ok)
	assert.Equal(t, relisted.ItemId, got.ItemId)
}

func TestMarketItemRegistry_ActiveAndBySeller(t *testing.T) {
	r := NewMarketItemRegistry()
	now := time.Now()

	r.Create(10, "0xalice", big.NewInt(100), now)
	second := r.Create(11, "0xalice", big.NewInt(200), now)
	r.Create(12, "0xbob", big.NewInt(300), now)

	_, err := r.MarkSold(second.ItemId, "0xcarol")
	assert.NoError(t, err)

	assert.Len(t, r.Active(), 2)
	assert.Len(t, r.BySeller("0xalice"), 2)
	assert.Len(t, r.BySeller("0xbob"), 1)
	assert.Len(t, r.BySeller("0xcarol"), 0)
}
