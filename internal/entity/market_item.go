package entity

import (
	"fmt"
	"math/big"
	"time"

	"github.com/gosimple/slug"
)

type ItemStatus string

const (
	ItemStatusListed    ItemStatus = "listed"
	ItemStatusSold      ItemStatus = "sold"
	ItemStatusCancelled ItemStatus = "cancelled"
)

// MarketItem is a secondary-sale listing. Records are never deleted; a sold
// or cancelled item stays in the registry with its terminal status.
type MarketItem struct {
	ItemId   uint64     `json:"itemId"`
	TokenId  uint64     `json:"tokenId"`
	Seller   string     `json:"seller"`
	Buyer    string     `json:"buyer"`
	Price    *big.Int   `json:"price"`
	Status   ItemStatus `json:"status"`
	ListedAt time.Time  `json:"listedAt"`
}

func (m MarketItem) Active() bool {
	return m.Status == ItemStatusListed
}

func (m MarketItem) Sold() bool {
	return m.Status == ItemStatusSold
}

func (m MarketItem) Slug() string {
	return CreateMarketItemSlug(m.ItemId, m.TokenId)
}

func CreateMarketItemSlug(itemId, tokenId uint64) string {
	return slug.Make(fmt.Sprintf("item-%d-%d", itemId, tokenId))
}
