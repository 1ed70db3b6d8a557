package di

import (
	"github.com/sarulabs/di/v2"
	"github.com/ticketmesh/market-engine/internal/api"
	"github.com/ticketmesh/market-engine/internal/assetregistry"
	"github.com/ticketmesh/market-engine/internal/auction"
	"github.com/ticketmesh/market-engine/internal/broadcast"
	"github.com/ticketmesh/market-engine/internal/clock"
	"github.com/ticketmesh/market-engine/internal/config"
	"github.com/ticketmesh/market-engine/internal/elastic_search"
	"github.com/ticketmesh/market-engine/internal/indexer"
	"github.com/ticketmesh/market-engine/internal/marketplace"
	"github.com/ticketmesh/market-engine/internal/messenger"
	"github.com/ticketmesh/market-engine/internal/paytoken"
	"github.com/ticketmesh/market-engine/internal/registry"
	"github.com/ticketmesh/market-engine/internal/repository"
	"github.com/ticketmesh/market-engine/internal/rpc"
	"go.uber.org/zap"
)

var Definitions = []di.Def{
	{
		Name: "elastic",
		Build: func(ctn di.Container) (interface{}, error) {
			elastic, err := elastic_search.New()
			if err != nil {
				zap.L().With(zap.Error(err)).Fatal("Failed to start ES")
			}

			return elastic, nil
		},
	},
	{
		Name: "clock",
		Build: func(ctn di.Container) (interface{}, error) {
			return clock.System(), nil
		},
	},
	{
		Name: "asset.registry",
		Build: func(ctn di.Container) (interface{}, error) {
			if config.Get().Standalone {
				memory := assetregistry.NewMemory()
				seedAssets(memory)
				return assetregistry.Service(memory), nil
			}

			cfg := config.Get().AssetRegistry
			client, err := rpc.NewClient(cfg.Url, cfg.Timeout, cfg.Debug)
			if err != nil {
				return nil, err
			}

			return assetregistry.NewService(client), nil
		},
	},
	{
		Name: "pay.token",
		Build: func(ctn di.Container) (interface{}, error) {
			if config.Get().Standalone {
				memory := paytoken.NewMemory()
				seedBalances(memory)
				return paytoken.Service(memory), nil
			}

			cfg := config.Get().PayToken
			client, err := rpc.NewClient(cfg.Url, cfg.Timeout, cfg.Debug)
			if err != nil {
				return nil, err
			}

			return paytoken.NewService(client), nil
		},
	},
	{
		Name: "item.registry",
		Build: func(ctn di.Container) (interface{}, error) {
			return registry.NewMarketItemRegistry(), nil
		},
	},
	{
		Name: "auction.registry",
		Build: func(ctn di.Container) (interface{}, error) {
			return registry.NewAuctionRegistry(), nil
		},
	},
	{
		Name: "escrow.ledger",
		Build: func(ctn di.Container) (interface{}, error) {
			return registry.NewEscrowLedger(), nil
		},
	},
	{
		Name: "marketplace",
		Build: func(ctn di.Container) (interface{}, error) {
			return marketplace.NewService(
				config.Get().MarketplaceAddress,
				config.Get().AdminAddress,
				ctn.Get("item.registry").(registry.MarketItemRegistry),
				ctn.Get("asset.registry").(assetregistry.Service),
				ctn.Get("pay.token").(paytoken.Service),
				ctn.Get("clock").(clock.Clock),
			), nil
		},
	},
	{
		Name: "auction",
		Build: func(ctn di.Container) (interface{}, error) {
			return auction.NewService(
				config.Get().AuctionAddress,
				config.Get().AdminAddress,
				ctn.Get("auction.registry").(registry.AuctionRegistry),
				ctn.Get("escrow.ledger").(registry.EscrowLedger),
				ctn.Get("asset.registry").(assetregistry.Service),
				ctn.Get("pay.token").(paytoken.Service),
				ctn.Get("clock").(clock.Clock),
			), nil
		},
	},
	{
		Name: "action.indexer",
		Build: func(ctn di.Container) (interface{}, error) {
			return indexer.NewActionIndexer(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "action.repo",
		Build: func(ctn di.Container) (interface{}, error) {
			return repository.NewMarketActionRepository(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "messenger",
		Build: func(ctn di.Container) (interface{}, error) {
			return messenger.NewMessenger(config.Get().Amqp.Uri), nil
		},
	},
	{
		Name: "broadcast.hub",
		Build: func(ctn di.Container) (interface{}, error) {
			return broadcast.NewHub(), nil
		},
	},
	{
		Name: "api",
		Build: func(ctn di.Container) (interface{}, error) {
			return api.NewServer(
				ctn.Get("marketplace").(marketplace.Service),
				ctn.Get("auction").(auction.Service),
				ctn.Get("action.repo").(repository.MarketActionRepository),
				ctn.Get("broadcast.hub").(*broadcast.Hub),
			), nil
		},
	},
}

// seedAssets gives a standalone daemon something to trade: one contract
// worth of tickets owned by the admin address.
func seedAssets(memory *assetregistry.Memory) {
	cfg := config.Get()
	if cfg.AssetContract == "" {
		return
	}

	for tokenId := uint64(1); tokenId <= uint64(cfg.SeedTokenCount); tokenId++ {
		memory.Mint(cfg.AssetContract, tokenId, cfg.AdminAddress, cfg.SeedInitialPrice)
	}
}

func seedBalances(memory *paytoken.Memory) {
	cfg := config.Get()
	if cfg.PaymentToken == "" {
		return
	}

	memory.Mint(cfg.PaymentToken, cfg.AdminAddress, cfg.SeedAdminBalance)
}
