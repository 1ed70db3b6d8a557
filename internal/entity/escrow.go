package entity

import "math/big"

// EscrowEntry is an amount the auction service owes a party: an outbid
// bidder's refund or the seller's proceeds. Entries are credited by the
// service and zeroed exactly once on withdrawal.
type EscrowEntry struct {
	AuctionId   uint64   `json:"auctionId"`
	Beneficiary string   `json:"beneficiary"`
	Amount      *big.Int `json:"amount"`
}
