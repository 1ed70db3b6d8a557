package entity

import (
	"crypto/md5"
	"fmt"
	"time"
)

type ActionType string

const (
	InitialSaleAction ActionType = "initial-sale"
	ListingAction     ActionType = "listing"
	SaleAction        ActionType = "sale"
	DelistingAction   ActionType = "delisting"
	AuctionAction     ActionType = "auction"
	BidAction         ActionType = "bid"
	RefundAction      ActionType = "refund"
	SettlementAction  ActionType = "settlement"
	WithdrawalAction  ActionType = "withdrawal"
)

// MarketAction is the audit projection of a single state change, written to
// the action index. Amounts are serialized as strings to survive 18-decimal
// token units.
type MarketAction struct {
	TokenId    uint64     `json:"tokenId"`
	ItemId     uint64     `json:"itemId"`
	AuctionId  uint64     `json:"auctionId"`
	Action     ActionType `json:"action"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Cost       string     `json:"cost"`
	OccurredAt time.Time  `json:"occurredAt"`
}

func (a MarketAction) Slug() string {
	return CreateMarketActionSlug(a.TokenId, a.ItemId, a.AuctionId, string(a.Action), a.From, a.To, a.Cost)
}

func CreateMarketActionSlug(tokenId, itemId, auctionId uint64, action, from, to, cost string) string {
	data := []byte(fmt.Sprintf("marketaction-%d-%d-%d-%s-%s-%s-%s", tokenId, itemId, auctionId, action, from, to, cost))
	return fmt.Sprintf("%x", md5.Sum(data))
}
