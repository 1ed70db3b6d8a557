package entity

import (
	"fmt"
	"math/big"
	"time"

	"github.com/gosimple/slug"
)

// Bid ties the bidder to the amount held in custody for them. A nil *Bid on
// an auction means no bid has been accepted yet, which keeps the
// "no amount without a bidder" invariant in the type system instead of a
// zero-address convention.
type Bid struct {
	Bidder string   `json:"bidder"`
	Amount *big.Int `json:"amount"`
}

// Auction is a live or concluded auction record. Open/Closed is not stored;
// it is a function of the clock against CreatedAt + Duration.
type Auction struct {
	AuctionId    uint64        `json:"auctionId"`
	NftContract  string        `json:"nftContract"`
	TokenId      uint64        `json:"tokenId"`
	Seller       string        `json:"seller"`
	Price        *big.Int      `json:"price"`
	Duration     time.Duration `json:"duration"`
	BidIncrement *big.Int      `json:"bidIncrement"`
	CreatedAt    time.Time     `json:"createdAt"`
	HighestBid   *Bid          `json:"highestBid"`
	Settled      bool          `json:"settled"`
}

func (a Auction) EndsAt() time.Time {
	return a.CreatedAt.Add(a.Duration)
}

func (a Auction) OpenAt(now time.Time) bool {
	return now.Before(a.EndsAt())
}

// MinimumBid is the smallest acceptable next bid: the reserve price while no
// bid exists, then strictly highest + increment.
func (a Auction) MinimumBid() *big.Int {
	if a.HighestBid == nil {
		return new(big.Int).Set(a.Price)
	}

	return new(big.Int).Add(a.HighestBid.Amount, a.BidIncrement)
}

func (a Auction) Slug() string {
	return CreateAuctionSlug(a.AuctionId, a.NftContract, a.TokenId)
}

func CreateAuctionSlug(auctionId uint64, contract string, tokenId uint64) string {
	return slug.Make(fmt.Sprintf("auction-%d-%s-%d", auctionId, contract, tokenId))
}
