package di

import (
	"github.com/sarulabs/di/v2"
	"github.com/ticketmesh/market-engine/internal/api"
	"github.com/ticketmesh/market-engine/internal/assetregistry"
	"github.com/ticketmesh/market-engine/internal/auction"
	"github.com/ticketmesh/market-engine/internal/broadcast"
	"github.com/ticketmesh/market-engine/internal/elastic_search"
	"github.com/ticketmesh/market-engine/internal/indexer"
	"github.com/ticketmesh/market-engine/internal/marketplace"
	"github.com/ticketmesh/market-engine/internal/messenger"
	"github.com/ticketmesh/market-engine/internal/paytoken"
	"github.com/ticketmesh/market-engine/internal/registry"
	"github.com/ticketmesh/market-engine/internal/repository"
)

// Container wraps the sarulabs container with typed getters.
type Container struct {
	ctn di.Container
}

func NewContainer() (*Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}

	if err := builder.Add(Definitions...); err != nil {
		return nil, err
	}

	return &Container{ctn: builder.Build()}, nil
}

func (c *Container) GetElastic() elastic_search.Index {
	return c.ctn.Get("elastic").(elastic_search.Index)
}

func (c *Container) GetMarketplace() marketplace.Service {
	return c.ctn.Get("marketplace").(marketplace.Service)
}

func (c *Container) GetAuction() auction.Service {
	return c.ctn.Get("auction").(auction.Service)
}

func (c *Container) GetAssetRegistry() assetregistry.Service {
	return c.ctn.Get("asset.registry").(assetregistry.Service)
}

func (c *Container) GetPayToken() paytoken.Service {
	return c.ctn.Get("pay.token").(paytoken.Service)
}

func (c *Container) GetItemRegistry() registry.MarketItemRegistry {
	return c.ctn.Get("item.registry").(registry.MarketItemRegistry)
}

func (c *Container) GetAuctionRegistry() registry.AuctionRegistry {
	return c.ctn.Get("auction.registry").(registry.AuctionRegistry)
}

func (c *Container) GetEscrowLedger() registry.EscrowLedger {
	return c.ctn.Get("escrow.ledger").(registry.EscrowLedger)
}

func (c *Container) GetActionIndexer() indexer.ActionIndexer {
	return c.ctn.Get("action.indexer").(indexer.ActionIndexer)
}

func (c *Container) GetActionRepo() repository.MarketActionRepository {
	return c.ctn.Get("action.repo").(repository.MarketActionRepository)
}

func (c *Container) GetMessenger() messenger.MessageService {
	return c.ctn.Get("messenger").(messenger.MessageService)
}

func (c *Container) GetBroadcastHub() *broadcast.Hub {
	return c.ctn.Get("broadcast.hub").(*broadcast.Hub)
}

func (c *Container) GetApi() api.Server {
	return c.ctn.Get("api").(api.Server)
}
