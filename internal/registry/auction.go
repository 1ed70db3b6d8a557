package registry

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ticketmesh/market-engine/internal/entity"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionSettled  = errors.New("auction already settled")
)

// AuctionRegistry is the arena of Auction records. Same arena rules as the
// market item registry: dense handles from 1, no reuse, no deletion.
type AuctionRegistry interface {
	Create(nftContract string, tokenId uint64, seller string, price *big.Int, duration time.Duration, bidIncrement *big.Int, createdAt time.Time) entity.Auction
	Get(auctionId uint64) (entity.Auction, error)
	SetHighestBid(auctionId uint64, bid entity.Bid) (previous *entity.Bid, err error)
	MarkSettled(auctionId uint64) (entity.Auction, error)
	ClearSettled(auctionId uint64) error
	All() []entity.Auction
}

type auctionRegistry struct {
	mu       sync.RWMutex
	auctions []entity.Auction
}

func NewAuctionRegistry() AuctionRegistry {
	return &auctionRegistry{}
}

func (r *auctionRegistry) Create(nftContract string, tokenId uint64, seller string, price *big.Int, duration time.Duration, bidIncrement *big.Int, createdAt time.Time) entity.Auction {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction := entity.Auction{
		AuctionId:    uint64(len(r.auctions)) + 1,
		NftContract:  nftContract,
		TokenId:      tokenId,
		Seller:       seller,
		Price:        new(big.Int).Set(price),
		Duration:     duration,
		BidIncrement: new(big.Int).Set(bidIncrement),
		CreatedAt:    createdAt,
	}
	r.auctions = append(r.auctions, auction)

	return auction
}

func (r *auctionRegistry) Get(auctionId uint64) (entity.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.get(auctionId)
}

func (r *auctionRegistry) get(auctionId uint64) (entity.Auction, error) {
	if auctionId == 0 || auctionId > uint64(len(r.auctions)) {
		return entity.Auction{}, ErrAuctionNotFound
	}

	return r.auctions[auctionId-1], nil
}

// SetHighestBid replaces the highest bid record and returns the one it
// displaced, which the service owes back to the outbid party.
func (r *auctionRegistry) SetHighestBid(auctionId uint64, bid entity.Bid) (*entity.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, err := r.get(auctionId)
	if err != nil {
		return nil, err
	}

	previous := auction.HighestBid
	auction.HighestBid = &entity.Bid{Bidder: bid.Bidder, Amount: new(big.Int).Set(bid.Amount)}
	r.auctions[auctionId-1] = auction

	return previous, nil
}

func (r *auctionRegistry) MarkSettled(auctionId uint64) (entity.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, err := r.get(auctionId)
	if err != nil {
		return entity.Auction{}, err
	}
	if auction.Settled {
		return entity.Auction{}, ErrAuctionSettled
	}

	auction.Settled = true
	r.auctions[auctionId-1] = auction

	return auction, nil
}

// ClearSettled reverts the settled flag. Only the auction service uses it,
// to compensate a failed asset delivery inside settlement so the whole call
// stays all-or-nothing.
func (r *auctionRegistry) ClearSettled(auctionId uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, err := r.get(auctionId)
	if err != nil {
		return err
	}

	auction.Settled = false
	r.auctions[auctionId-1] = auction

	return nil
}

func (r *auctionRegistry) All() []entity.Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctions := make([]entity.Auction, len(r.auctions))
	copy(auctions, r.auctions)

	return auctions
}
