package auction

import (
	"math/big"
	"sync"
	"time"

	"github.com/ticketmesh/market-engine/internal/assetregistry"
	"github.com/ticketmesh/market-engine/internal/clock"
	"github.com/ticketmesh/market-engine/internal/entity"
	"github.com/ticketmesh/market-engine/internal/event"
	"github.com/ticketmesh/market-engine/internal/factory"
	"github.com/ticketmesh/market-engine/internal/paytoken"
	"github.com/ticketmesh/market-engine/internal/registry"
	"go.uber.org/zap"
)

// Service is the auction/bid/escrow engine. An auction is Open until its
// duration elapses and Closed thereafter; the transition is never stored,
// only computed against the clock when a call arrives. Bids pull funds into
// custody, outbid amounts become withdrawable through the escrow ledger and
// settlement delivers the asset and credits the seller's proceeds exactly
// once.
type Service interface {
	SetPaymentToken(caller, token string) error
	CreateAuction(seller, nftContract string, tokenId uint64, price *big.Int, duration time.Duration, bidIncrement *big.Int) (entity.Auction, error)
	PlaceBid(bidder string, auctionId uint64, amount *big.Int) (entity.Auction, error)
	GetAuction(auctionId uint64) (entity.Auction, error)
	WithdrawBalance(caller string, auctionId uint64) (*big.Int, error)
	FinalizeAuction(caller string, auctionId uint64) (entity.Auction, error)
}

type service struct {
	mu sync.Mutex

	address string
	admin   string

	paymentToken string

	auctions registry.AuctionRegistry
	escrow   registry.EscrowLedger
	assets   assetregistry.Service
	tokens   paytoken.Service
	clock    clock.Clock
}

func NewService(
	address string,
	admin string,
	auctions registry.AuctionRegistry,
	escrow registry.EscrowLedger,
	assets assetregistry.Service,
	tokens paytoken.Service,
	clk clock.Clock,
) Service {
	return &service{
		address:  address,
		admin:    admin,
		auctions: auctions,
		escrow:   escrow,
		assets:   assets,
		tokens:   tokens,
		clock:    clk,
	}
}

func (s *service) SetPaymentToken(caller, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return ErrUnauthorized
	}
	s.paymentToken = token

	zap.L().With(zap.String("token", token)).Info("Auction: Payment token set")

	return nil
}

func (s *service) CreateAuction(seller, nftContract string, tokenId uint64, price *big.Int, duration time.Duration, bidIncrement *big.Int) (entity.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if price == nil || price.Sign() <= 0 || duration <= 0 || bidIncrement == nil || bidIncrement.Sign() <= 0 {
		return entity.Auction{}, ErrInvalidTerms
	}

	owner, err := s.assets.OwnerOf(nftContract, tokenId)
	if err != nil {
		return entity.Auction{}, err
	}
	if owner != seller {
		return entity.Auction{}, ErrNotOwner
	}

	approved, err := s.assets.IsApprovedFor(nftContract, tokenId, s.address)
	if err != nil {
		return entity.Auction{}, err
	}
	if !approved {
		return entity.Auction{}, ErrNotApproved
	}

	if err := s.assets.Transfer(nftContract, seller, s.address, tokenId); err != nil {
		return entity.Auction{}, err
	}

	auction := s.auctions.Create(nftContract, tokenId, seller, price, duration, bidIncrement, s.clock.Now())

	zap.L().With(
		zap.Uint64("auctionId", auction.AuctionId),
		zap.Uint64("tokenId", tokenId),
		zap.String("seller", seller),
		zap.String("price", price.String()),
		zap.Duration("duration", duration),
	).Info("Auction: Created")

	event.EmitEvent(event.AuctionCreatedEvent, factory.CreateAuctionAction(auction))

	return auction, nil
}

// PlaceBid accepts a bid that meets the minimum (the reserve price for the
// first bid, highest + increment after that), pulls the amount into custody
// and makes the displaced bid withdrawable by its bidder.
func (s *service) PlaceBid(bidder string, auctionId uint64, amount *big.Int) (entity.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paymentToken == "" {
		return entity.Auction{}, ErrPaymentTokenNotSet
	}

	auction, err := s.auctions.Get(auctionId)
	if err != nil {
		return entity.Auction{}, err
	}
	if !auction.OpenAt(s.clock.Now()) {
		return entity.Auction{}, ErrAuctionNotOpen
	}

	if amount.Cmp(auction.MinimumBid()) < 0 {
		return entity.Auction{}, ErrBidTooLow
	}

	if err := s.tokens.TransferFrom(s.paymentToken, s.address, bidder, s.address, amount); err != nil {
		return entity.Auction{}, err
	}

	previous, err := s.auctions.SetHighestBid(auctionId, entity.Bid{Bidder: bidder, Amount: amount})
	if err != nil {
		return entity.Auction{}, err
	}

	if previous != nil {
		s.escrow.Credit(auctionId, previous.Bidder, previous.Amount)

		entry := entity.EscrowEntry{AuctionId: auctionId, Beneficiary: previous.Bidder, Amount: previous.Amount}
		zap.L().With(
			zap.Uint64("auctionId", auctionId),
			zap.String("bidder", previous.Bidder),
			zap.String("amount", previous.Amount.String()),
		).Info("Auction: Outbid refund escrowed")

		event.EmitEvent(event.BidRefundedEvent, factory.CreateRefundAction(entry, s.clock.Now()))
	}

	auction, err = s.auctions.Get(auctionId)
	if err != nil {
		return entity.Auction{}, err
	}

	zap.L().With(
		zap.Uint64("auctionId", auctionId),
		zap.String("bidder", bidder),
		zap.String("amount", amount.String()),
	).Info("Auction: Bid placed")

	event.EmitEvent(event.BidPlacedEvent, factory.CreateBidAction(auction, entity.Bid{Bidder: bidder, Amount: amount}, s.clock.Now()))

	return auction, nil
}

func (s *service) GetAuction(auctionId uint64) (entity.Auction, error) {
	return s.auctions.Get(auctionId)
}

// WithdrawBalance pays out the caller's escrow entry and zeroes it first,
// so a second call (re-entrant or otherwise) finds nothing. A seller
// withdrawing from a closed but unsettled auction triggers settlement
// lazily; on an open auction the seller gets ErrAuctionStillOpen.
func (s *service) WithdrawBalance(caller string, auctionId uint64) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, err := s.auctions.Get(auctionId)
	if err != nil {
		return nil, err
	}

	if caller == auction.Seller && !auction.Settled {
		if auction.OpenAt(s.clock.Now()) {
			return nil, ErrAuctionStillOpen
		}
		if auction.HighestBid != nil {
			if _, err := s.settle(auction); err != nil {
				return nil, err
			}
		}
	}

	amount, err := s.escrow.Take(auctionId, caller)
	if err != nil {
		return nil, ErrNothingToWithdraw
	}

	if err := s.tokens.TransferFrom(s.paymentToken, s.address, s.address, caller, amount); err != nil {
		// restore the entry so the rejected call leaves no trace
		s.escrow.Credit(auctionId, caller, amount)
		return nil, err
	}

	zap.L().With(
		zap.Uint64("auctionId", auctionId),
		zap.String("beneficiary", caller),
		zap.String("amount", amount.String()),
	).Info("Auction: Balance withdrawn")

	event.EmitEvent(event.BalanceWithdrawnEvent, factory.CreateWithdrawalAction(auctionId, caller, amount, s.clock.Now()))

	return amount, nil
}

// FinalizeAuction settles a closed auction explicitly: the asset goes to
// the winner (or back to the seller when no bid was placed) and the winning
// amount becomes withdrawable by the seller. Callable by the seller or the
// admin.
func (s *service) FinalizeAuction(caller string, auctionId uint64) (entity.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, err := s.auctions.Get(auctionId)
	if err != nil {
		return entity.Auction{}, err
	}
	if caller != auction.Seller && caller != s.admin {
		return entity.Auction{}, ErrUnauthorized
	}
	if auction.OpenAt(s.clock.Now()) {
		return entity.Auction{}, ErrAuctionStillOpen
	}
	if auction.Settled {
		return auction, nil
	}

	return s.settle(auction)
}

// settle assumes the lock is held and the auction is closed and unsettled.
// The settled flag flips before the asset leaves custody; a failed transfer
// is compensated so the call stays all-or-nothing.
func (s *service) settle(auction entity.Auction) (entity.Auction, error) {
	settled, err := s.auctions.MarkSettled(auction.AuctionId)
	if err != nil {
		return entity.Auction{}, err
	}

	winner := auction.Seller
	proceeds := new(big.Int)
	if auction.HighestBid != nil {
		winner = auction.HighestBid.Bidder
		proceeds = auction.HighestBid.Amount
	}

	if err := s.assets.Transfer(auction.NftContract, s.address, winner, auction.TokenId); err != nil {
		if clearErr := s.auctions.ClearSettled(auction.AuctionId); clearErr != nil {
			zap.L().With(zap.Error(clearErr), zap.Uint64("auctionId", auction.AuctionId)).Error("Auction: Failed to revert settlement")
		}
		zap.L().With(zap.Error(err), zap.Uint64("auctionId", auction.AuctionId)).Error("Auction: Failed to deliver asset on settlement")
		return entity.Auction{}, err
	}

	if auction.HighestBid != nil {
		s.escrow.Credit(auction.AuctionId, auction.Seller, proceeds)
	}

	zap.L().With(
		zap.Uint64("auctionId", auction.AuctionId),
		zap.String("winner", winner),
		zap.String("proceeds", proceeds.String()),
	).Info("Auction: Settled")

	event.EmitEvent(event.AuctionSettledEvent, factory.CreateSettlementAction(settled, winner, proceeds, s.clock.Now()))

	return settled, nil
}
