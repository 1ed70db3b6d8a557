package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ticketmesh/market-engine/internal/auction"
	"github.com/ticketmesh/market-engine/internal/broadcast"
	"github.com/ticketmesh/market-engine/internal/marketplace"
	"github.com/ticketmesh/market-engine/internal/registry"
	"github.com/ticketmesh/market-engine/internal/repository"
	"go.uber.org/zap"
)

const partyHeader = "X-Party-Address"

// Server exposes every public marketplace and auction operation over HTTP.
// Caller identity comes from the X-Party-Address header; authentication is
// out of scope here, the services gate on the address itself.
type Server struct {
	market     marketplace.Service
	auctions   auction.Service
	actionRepo repository.MarketActionRepository
	hub        *broadcast.Hub
	upgrader   websocket.Upgrader
}

func NewServer(
	market marketplace.Service,
	auctions auction.Service,
	actionRepo repository.MarketActionRepository,
	hub *broadcast.Hub,
) Server {
	return Server{
		market:     market,
		auctions:   auctions,
		actionRepo: actionRepo,
		hub:        hub,
		upgrader:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	r.HandleFunc("/items", s.handleGetItems).Methods("GET")
	r.HandleFunc("/items", s.handleCreateItem).Methods("POST")
	r.HandleFunc("/items/{itemId}", s.handleGetItem).Methods("GET")
	r.HandleFunc("/items/{itemId}", s.handleCancelItem).Methods("DELETE")
	r.HandleFunc("/items/{itemId}/sale", s.handleCreateSale).Methods("POST")
	r.HandleFunc("/sellers/{seller}/items", s.handleGetSellerItems).Methods("GET")
	r.HandleFunc("/initial-sales", s.handleInitialSale).Methods("POST")

	r.HandleFunc("/admin/asset-contract", s.handleSetAssetContract).Methods("POST")
	r.HandleFunc("/admin/payment-token", s.handleSetPaymentToken).Methods("POST")

	r.HandleFunc("/auctions/{auctionId}", s.handleGetAuction).Methods("GET")
	r.HandleFunc("/auctions", s.handleCreateAuction).Methods("POST")
	r.HandleFunc("/auctions/{auctionId}/bids", s.handlePlaceBid).Methods("POST")
	r.HandleFunc("/auctions/{auctionId}/withdrawals", s.handleWithdraw).Methods("POST")
	r.HandleFunc("/auctions/{auctionId}/finalize", s.handleFinalize).Methods("POST")

	r.HandleFunc("/tokens/{tokenId}/actions", s.handleTokenActions).Methods("GET")
	r.HandleFunc("/auctions/{auctionId}/actions", s.handleAuctionActions).Methods("GET")

	r.HandleFunc("/ws", s.handleWebsocket).Methods("GET")

	return r
}

func (s Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	writeJson(w, s.market.GetMarketItems())
}

func (s Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	itemId, err := pathId(r, "itemId")
	if err != nil {
		http.Error(w, "Invalid item id", http.StatusBadRequest)
		return
	}

	item, err := s.market.GetMarketItem(itemId)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, item)
}

func (s Server) handleGetSellerItems(w http.ResponseWriter, r *http.Request) {
	seller := mux.Vars(r)["seller"]
	writeJson(w, s.market.GetItemsBySeller(seller))
}

type createItemRequest struct {
	TokenId uint64 `json:"tokenId"`
	Price   string `json:"price"`
}

func (s Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(partyHeader)

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	price, ok := new(big.Int).SetString(req.Price, 10)
	if !ok {
		http.Error(w, "Invalid price", http.StatusBadRequest)
		return
	}

	item, err := s.market.CreateMarketItem(caller, req.TokenId, price)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJson(w, item)
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (s Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(partyHeader)

	itemId, err := pathId(r, "itemId")
	if err != nil {
		http.Error(w, "Invalid item id", http.StatusBadRequest)
		return
	}

	amount, ok := bodyAmount(r)
	if !ok {
		http.Error(w, "Invalid amount", http.StatusBadRequest)
		return
	}

	item, err := s.market.CreateMarketSale(caller, itemId, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, item)
}

func (s Server) handleCancelItem(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(partyHeader)

	itemId, err := pathId(r, "itemId")
	if err != nil {
		http.Error(w, "Invalid item id", http.StatusBadRequest)
		return
	}

	item, err := s.market.CancelMarketItem(caller, itemId)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, item)
}

type initialSaleRequest struct {
	TokenId uint64 `json:"tokenId"`
	Amount  string `json:"amount"`
}

func (s Server) handleInitialSale(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(partyHeader)

	var req initialSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		http.Error(w, "Invalid amount", http.StatusBadRequest)
		return
	}

	if err := s.market.InitialTicketSale(caller, req.TokenId, amount); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type bindRequest struct {
	Address string `json:"address"`
}

// handleSetAssetContract binds the asset registry contract the marketplace
// trades. The admin gate lives in the service.
func (s Server) handleSetAssetContract(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(partyHeader)

	var req bindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.market.SetAssetContract(caller, req.Address); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s Server) handleSetPaymentToken(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(partyHeader)

	var req bindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.market.SetPaymentToken(caller, req.Address); err != nil {
		writeError(w, err)
		return
	}
	if err := s.auctions.SetPaymentToken(caller, req.Address); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type createAuctionRequest struct {
	NftContract  string `json:"nftContract"`
	TokenId      uint64 `json:"tokenId"`
	Price        string `json:"price"`
	Duration     int64  `json:"duration"`
	BidIncrement string `json:"bidIncrement"`
}

func (s Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(partyHeader)

	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	price, priceOk := new(big.Int).SetString(req.Price, 10)
	increment, incrementOk := new(big.Int).SetString(req.BidIncrement, 10)
	if !priceOk || !incrementOk {
		http.Error(w, "Invalid terms", http.StatusBadRequest)
		return
	}

	a, err := s.auctions.CreateAuction(caller, req.NftContract, req.TokenId, price, time.Duration(req.Duration)*time.Second, increment)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJson(w, a)
}

func (s Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	auctionId, err := pathId(r, "auctionId")
	if err != nil {
		http.Error(w, "Invalid auction id", http.StatusBadRequest)
		return
	}

	a, err := s.auctions.GetAuction(auctionId)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, a)
}

func (s Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(partyHeader)

	auctionId, err := pathId(r, "auctionId")
	if err != nil {
		http.Error(w, "Invalid auction id", http.StatusBadRequest)
		return
	}

	amount, ok := bodyAmount(r)
	if !ok {
		http.Error(w, "Invalid amount", http.StatusBadRequest)
		return
	}

	a, err := s.auctions.PlaceBid(caller, auctionId, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, a)
}

func (s Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(partyHeader)

	auctionId, err := pathId(r, "auctionId")
	if err != nil {
		http.Error(w, "Invalid auction id", http.StatusBadRequest)
		return
	}

	amount, err := s.auctions.WithdrawBalance(caller, auctionId)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, map[string]string{"amount": amount.String()})
}

func (s Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(partyHeader)

	auctionId, err := pathId(r, "auctionId")
	if err != nil {
		http.Error(w, "Invalid auction id", http.StatusBadRequest)
		return
	}

	a, err := s.auctions.FinalizeAuction(caller, auctionId)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, a)
}

func (s Server) handleTokenActions(w http.ResponseWriter, r *http.Request) {
	tokenId, err := pathId(r, "tokenId")
	if err != nil {
		http.Error(w, "Invalid token id", http.StatusBadRequest)
		return
	}

	size, page := pagination(r)
	actions, total, err := s.actionRepo.GetByTokenId(tokenId, size, page)
	if err != nil {
		zap.L().With(zap.Error(err)).Warn("Actions not available")
		http.Error(w, "Actions not available", http.StatusInternalServerError)
		return
	}

	w.Header().Add("X-Total-Count", strconv.FormatInt(total, 10))
	writeJson(w, actions)
}

func (s Server) handleAuctionActions(w http.ResponseWriter, r *http.Request) {
	auctionId, err := pathId(r, "auctionId")
	if err != nil {
		http.Error(w, "Invalid auction id", http.StatusBadRequest)
		return
	}

	size, page := pagination(r)
	actions, total, err := s.actionRepo.GetByAuctionId(auctionId, size, page)
	if err != nil {
		zap.L().With(zap.Error(err)).Warn("Actions not available")
		http.Error(w, "Actions not available", http.StatusInternalServerError)
		return
	}

	w.Header().Add("X-Total-Count", strconv.FormatInt(total, 10))
	writeJson(w, actions)
}

func (s Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().With(zap.Error(err)).Warn("Failed to upgrade websocket")
		return
	}

	s.hub.RegisterClient(broadcast.NewClient(conn))
}

func pathId(r *http.Request, name string) (uint64, error) {
	value, ok := mux.Vars(r)[name]
	if !ok {
		return 0, errors.New("invalid parameters")
	}

	return strconv.ParseUint(value, 10, 64)
}

func bodyAmount(r *http.Request) (*big.Int, bool) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, false
	}

	return new(big.Int).SetString(req.Amount, 10)
}

func pagination(r *http.Request) (size, page int) {
	size, page = 20, 1
	if value, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && value > 0 {
		size = value
	}
	if value, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && value > 0 {
		page = value
	}

	return size, page
}

func writeJson(w http.ResponseWriter, body interface{}) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrItemNotFound),
		errors.Is(err, registry.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, marketplace.ErrUnauthorized),
		errors.Is(err, auction.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, registry.ErrActiveItemExists),
		errors.Is(err, registry.ErrItemNotActive),
		errors.Is(err, marketplace.ErrAlreadySold),
		errors.Is(err, auction.ErrAuctionNotOpen),
		errors.Is(err, auction.ErrAuctionStillOpen),
		errors.Is(err, auction.ErrNothingToWithdraw):
		return http.StatusConflict
	case errors.Is(err, marketplace.ErrNotOwner),
		errors.Is(err, marketplace.ErrNotApproved),
		errors.Is(err, marketplace.ErrInvalidPrice),
		errors.Is(err, marketplace.ErrInsufficientPayment),
		errors.Is(err, auction.ErrNotOwner),
		errors.Is(err, auction.ErrNotApproved),
		errors.Is(err, auction.ErrInvalidTerms),
		errors.Is(err, auction.ErrBidTooLow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
