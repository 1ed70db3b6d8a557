package factory

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ticketmesh/market-engine/internal/entity"
)

func TestCreateSaleAction(t *testing.T) {
	at := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	item := entity.MarketItem{
		ItemId:  3,
		TokenId: 10,
		Seller:  "0xalice",
		Buyer:   "0xbob",
		Price:   big.NewInt(1000),
		Status:  entity.ItemStatusSold,
	}

	action := CreateSaleAction(item, big.NewInt(1000), at)

	assert.Equal(t, entity.SaleAction, action.Action)
	assert.Equal(t, uint64(10), action.TokenId)
	assert.Equal(t, uint64(3), action.ItemId)
	assert.Equal(t, "0xalice", action.From)
	assert.Equal(t, "0xbob", action.To)
	assert.Equal(t, "1000", action.Cost)
	assert.Equal(t, at, action.OccurredAt)
}

func TestCreateRefundAction(t *testing.T) {
	at := time.Now()
	entry := entity.EscrowEntry{AuctionId: 7, Beneficiary: "0xbob", Amount: big.NewInt(1100)}

	action := CreateRefundAction(entry, at)

	assert.Equal(t, entity.RefundAction, action.Action)
	assert.Equal(t, uint64(7), action.AuctionId)
	assert.Equal(t, "0xbob", action.To)
	assert.Equal(t, "1100", action.Cost)
}

func TestActionSlugIsStable(t *testing.T) {
	at := time.Now()
	entry := entity.EscrowEntry{AuctionId: 7, Beneficiary: "0xbob", Amount: big.NewInt(1100)}

	first := CreateRefundAction(entry, at)
	second := CreateRefundAction(entry, at.Add(time.Hour))

	// the slug keys dedupe in the action index; time is not part of it
	assert.Equal(t, first.Slug(), second.Slug())
}
