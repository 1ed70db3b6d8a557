package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ticketmesh/market-engine/internal/config"
	"github.com/ticketmesh/market-engine/internal/config/di"
	"github.com/ticketmesh/market-engine/internal/entity"
	"github.com/ticketmesh/market-engine/internal/event"
	"github.com/ticketmesh/market-engine/internal/messenger"
	"go.uber.org/zap"
)

var container *di.Container

func main() {
	config.Init("marketd")

	var err error
	container, err = di.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	container.GetElastic().InstallMappings()

	bindContracts()

	go health()
	go container.GetBroadcastHub().Run()

	actionIndexer := container.GetActionIndexer()
	hub := container.GetBroadcastHub()

	for _, eventType := range []event.Type{
		event.InitialSaleEvent,
		event.ItemListedEvent,
		event.ItemSoldEvent,
		event.ItemCancelledEvent,
		event.AuctionCreatedEvent,
		event.BidPlacedEvent,
		event.BidRefundedEvent,
		event.AuctionSettledEvent,
		event.BalanceWithdrawnEvent,
	} {
		event.AddEventListener(eventType, actionIndexer.IndexEvent)
		event.AddEventListener(eventType, hub.BroadcastEvent)
	}

	if config.Get().Amqp.Enabled {
		event.AddEventListener(event.ItemSoldEvent, publish(messenger.MarketSale))
		event.AddEventListener(event.AuctionSettledEvent, publish(messenger.AuctionSettlement))
	}

	zap.L().With(
		zap.String("apiPort", config.Get().ApiPort),
		zap.String("healthPort", config.Get().HealthPort),
	).Info("Market engine started")

	if err := http.ListenAndServe(":"+config.Get().ApiPort, container.GetApi().Router()); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start api")
	}
}

// bindContracts applies the configured contract addresses on behalf of the
// admin, so a configured daemon is tradable without a manual admin call.
func bindContracts() {
	cfg := config.Get()

	if cfg.AssetContract != "" {
		if err := container.GetMarketplace().SetAssetContract(cfg.AdminAddress, cfg.AssetContract); err != nil {
			zap.L().With(zap.Error(err)).Fatal("Failed to bind asset contract")
		}
	}

	if cfg.PaymentToken != "" {
		if err := container.GetMarketplace().SetPaymentToken(cfg.AdminAddress, cfg.PaymentToken); err != nil {
			zap.L().With(zap.Error(err)).Fatal("Failed to bind payment token")
		}
		if err := container.GetAuction().SetPaymentToken(cfg.AdminAddress, cfg.PaymentToken); err != nil {
			zap.L().With(zap.Error(err)).Fatal("Failed to bind payment token")
		}
	}
}

func publish(item messenger.Item) func(msg interface{}) {
	return func(msg interface{}) {
		action, ok := msg.(entity.MarketAction)
		if !ok {
			return
		}

		body, err := json.Marshal(action)
		if err != nil {
			zap.L().With(zap.Error(err)).Error("Failed to marshal action for queue")
			return
		}

		if err := container.GetMessenger().SendMessage(item, body, false); err != nil {
			zap.L().With(zap.Error(err), zap.String("queue", string(item))).Error("Failed to queue action")
		}
	}
}

func health() {
	if err := http.ListenAndServe(":"+config.Get().HealthPort, healthRouter()); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to start health endpoint")
	}
}

func healthRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods("GET")

	return r
}
