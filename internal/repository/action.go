package repository

import (
	"encoding/json"
	"errors"

	"github.com/olivere/elastic/v7"
	"github.com/ticketmesh/market-engine/internal/elastic_search"
	"github.com/ticketmesh/market-engine/internal/entity"
)

var ErrActionNotFound = errors.New("market action not found")

// MarketActionRepository queries the audit index. History reads are
// eventually consistent with the registries; external handles (itemId,
// auctionId) are the join keys.
type MarketActionRepository interface {
	GetByTokenId(tokenId uint64, size, page int) ([]entity.MarketAction, int64, error)
	GetByAuctionId(auctionId uint64, size, page int) ([]entity.MarketAction, int64, error)
	GetByAction(action entity.ActionType, size, page int) ([]entity.MarketAction, int64, error)
}

type marketActionRepository struct {
	elastic elastic_search.Index
}

func NewMarketActionRepository(elastic elastic_search.Index) MarketActionRepository {
	return marketActionRepository{elastic}
}

func (r marketActionRepository) GetByTokenId(tokenId uint64, size, page int) ([]entity.MarketAction, int64, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("tokenId", tokenId),
	)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.MarketActionIndex.Get()).
		Query(query).
		Sort("occurredAt", false).
		Size(size).
		From((page - 1) * size))

	return r.findMany(result, err)
}

func (r marketActionRepository) GetByAuctionId(auctionId uint64, size, page int) ([]entity.MarketAction, int64, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("auctionId", auctionId),
	)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.MarketActionIndex.Get()).
		Query(query).
		Sort("occurredAt", false).
		Size(size).
		From((page - 1) * size))

	return r.findMany(result, err)
}

func (r marketActionRepository) GetByAction(action entity.ActionType, size, page int) ([]entity.MarketAction, int64, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("action", string(action)),
	)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.MarketActionIndex.Get()).
		Query(query).
		Sort("occurredAt", false).
		Size(size).
		From((page - 1) * size))

	return r.findMany(result, err)
}

func (r marketActionRepository) findMany(results *elastic.SearchResult, err error) ([]entity.MarketAction, int64, error) {
	actions := make([]entity.MarketAction, 0)

	if err != nil {
		return actions, 0, err
	}

	for _, hit := range results.Hits.Hits {
		var action entity.MarketAction
		if err := json.Unmarshal(hit.Source, &action); err == nil {
			actions = append(actions, action)
		}
	}

	return actions, results.TotalHits(), nil
}
