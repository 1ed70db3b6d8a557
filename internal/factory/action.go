package factory

import (
	"math/big"
	"time"

	"github.com/ticketmesh/market-engine/internal/entity"
)

func CreateInitialSaleAction(tokenId uint64, seller, buyer string, amount *big.Int, at time.Time) entity.MarketAction {
	return entity.MarketAction{
		TokenId:    tokenId,
		Action:     entity.InitialSaleAction,
		From:       seller,
		To:         buyer,
		Cost:       amount.String(),
		OccurredAt: at,
	}
}

func CreateListingAction(item entity.MarketItem) entity.MarketAction {
	return entity.MarketAction{
		TokenId:    item.TokenId,
		ItemId:     item.ItemId,
		Action:     entity.ListingAction,
		From:       item.Seller,
		Cost:       item.Price.String(),
		OccurredAt: item.ListedAt,
	}
}

func CreateSaleAction(item entity.MarketItem, amount *big.Int, at time.Time) entity.MarketAction {
	return entity.MarketAction{
		TokenId:    item.TokenId,
		ItemId:     item.ItemId,
		Action:     entity.SaleAction,
		From:       item.Seller,
		To:         item.Buyer,
		Cost:       amount.String(),
		OccurredAt: at,
	}
}

func CreateDelistingAction(item entity.MarketItem, at time.Time) entity.MarketAction {
	return entity.MarketAction{
		TokenId:    item.TokenId,
		ItemId:     item.ItemId,
		Action:     entity.DelistingAction,
		From:       item.Seller,
		OccurredAt: at,
	}
}

func CreateAuctionAction(auction entity.Auction) entity.MarketAction {
	return entity.MarketAction{
		TokenId:    auction.TokenId,
		AuctionId:  auction.AuctionId,
		Action:     entity.AuctionAction,
		From:       auction.Seller,
		Cost:       auction.Price.String(),
		OccurredAt: auction.CreatedAt,
	}
}

func CreateBidAction(auction entity.Auction, bid entity.Bid, at time.Time) entity.MarketAction {
	return entity.MarketAction{
		TokenId:    auction.TokenId,
		AuctionId:  auction.AuctionId,
		Action:     entity.BidAction,
		From:       bid.Bidder,
		Cost:       bid.Amount.String(),
		OccurredAt: at,
	}
}

func CreateRefundAction(entry entity.EscrowEntry, at time.Time) entity.MarketAction {
	return entity.MarketAction{
		AuctionId:  entry.AuctionId,
		Action:     entity.RefundAction,
		To:         entry.Beneficiary,
		Cost:       entry.Amount.String(),
		OccurredAt: at,
	}
}

func CreateSettlementAction(auction entity.Auction, winner string, proceeds *big.Int, at time.Time) entity.MarketAction {
	return entity.MarketAction{
		TokenId:    auction.TokenId,
		AuctionId:  auction.AuctionId,
		Action:     entity.SettlementAction,
		From:       auction.Seller,
		To:         winner,
		Cost:       proceeds.String(),
		OccurredAt: at,
	}
}

func CreateWithdrawalAction(auctionId uint64, beneficiary string, amount *big.Int, at time.Time) entity.MarketAction {
	return entity.MarketAction{
		AuctionId:  auctionId,
		Action:     entity.WithdrawalAction,
		To:         beneficiary,
		Cost:       amount.String(),
		OccurredAt: at,
	}
}
