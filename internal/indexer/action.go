package indexer

import (
	"github.com/ticketmesh/market-engine/internal/elastic_search"
	"github.com/ticketmesh/market-engine/internal/entity"
	"go.uber.org/zap"
)

// ActionIndexer projects market actions into the audit index. It is wired
// to the event manager by the daemon; every accepted state change arrives
// here as an entity.MarketAction.
type ActionIndexer interface {
	Index(action entity.MarketAction)
	IndexEvent(msg interface{})
}

type actionIndexer struct {
	elastic elastic_search.Index
}

func NewActionIndexer(elastic elastic_search.Index) ActionIndexer {
	return actionIndexer{elastic}
}

func (i actionIndexer) Index(action entity.MarketAction) {
	zap.L().With(
		zap.String("action", string(action.Action)),
		zap.Uint64("tokenId", action.TokenId),
		zap.Uint64("itemId", action.ItemId),
		zap.Uint64("auctionId", action.AuctionId),
		zap.String("cost", action.Cost),
	).Debug("ActionIndexer: Index action")

	i.elastic.AddIndexRequest(elastic_search.MarketActionIndex.Get(), action, requestAction(action.Action))

	// flush immediately; actions trickle in far below the batch threshold
	// and must not sit in the buffer past its expiry
	i.elastic.Persist()
}

func (i actionIndexer) IndexEvent(msg interface{}) {
	action, ok := msg.(entity.MarketAction)
	if !ok {
		zap.L().Error("ActionIndexer: Unexpected event payload")
		return
	}

	i.Index(action)
}

func requestAction(action entity.ActionType) elastic_search.RequestAction {
	switch action {
	case entity.InitialSaleAction:
		return elastic_search.InitialSale
	case entity.ListingAction:
		return elastic_search.ItemListed
	case entity.SaleAction:
		return elastic_search.ItemSold
	case entity.DelistingAction:
		return elastic_search.ItemCancelled
	case entity.AuctionAction:
		return elastic_search.AuctionCreated
	case entity.BidAction:
		return elastic_search.BidPlaced
	case entity.RefundAction:
		return elastic_search.BidRefunded
	case entity.SettlementAction:
		return elastic_search.AuctionSettled
	default:
		return elastic_search.BalanceWithdrawn
	}
}
