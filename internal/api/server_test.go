package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketmesh/market-engine/internal/assetregistry"
	"github.com/ticketmesh/market-engine/internal/auction"
	"github.com/ticketmesh/market-engine/internal/broadcast"
	"github.com/ticketmesh/market-engine/internal/clock"
	"github.com/ticketmesh/market-engine/internal/entity"
	"github.com/ticketmesh/market-engine/internal/marketplace"
	"github.com/ticketmesh/market-engine/internal/paytoken"
	"github.com/ticketmesh/market-engine/internal/registry"
)

const (
	marketAddr  = "0xmarket"
	auctionAddr = "0xauctionhouse"
	adminAddr   = "0xadmin"
	ticketsAddr = "0xtickets"
	coinAddr    = "0xcoin"
)

type harness struct {
	server *httptest.Server
	assets *assetregistry.Memory
	tokens *paytoken.Memory
	clk    *clock.Fixed
}

func newHarness(t *testing.T) harness {
	t.Helper()

	assets := assetregistry.NewMemory()
	tokens := paytoken.NewMemory()
	clk := clock.NewFixed(time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC))

	market := marketplace.NewService(marketAddr, adminAddr, registry.NewMarketItemRegistry(), assets, tokens, clk)
	auctions := auction.NewService(auctionAddr, adminAddr, registry.NewAuctionRegistry(), registry.NewEscrowLedger(), assets, tokens, clk)

	api := NewServer(market, auctions, nil, broadcast.NewHub())
	server := httptest.NewServer(api.Router())
	t.Cleanup(server.Close)

	h := harness{server: server, assets: assets, tokens: tokens, clk: clk}
	h.post(t, adminAddr, "/admin/asset-contract", map[string]string{"address": ticketsAddr}, http.StatusOK)
	h.post(t, adminAddr, "/admin/payment-token", map[string]string{"address": coinAddr}, http.StatusOK)

	return h
}

func (h harness) request(t *testing.T, method, caller, path string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, h.server.URL+path, &buf)
	require.NoError(t, err)
	if caller != "" {
		req.Header.Set(partyHeader, caller)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func (h harness) post(t *testing.T, caller, path string, body interface{}, status int) *http.Response {
	t.Helper()

	resp := h.request(t, http.MethodPost, caller, path, body)
	require.Equal(t, status, resp.StatusCode)

	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestServer_Health(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, http.MethodGet, "", "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_AdminGate(t *testing.T) {
	h := newHarness(t)

	h.post(t, "0xalice", "/admin/payment-token", map[string]string{"address": coinAddr}, http.StatusForbidden)
}

func TestServer_ItemLifecycle(t *testing.T) {
	h := newHarness(t)

	h.assets.Mint(ticketsAddr, 10, "0xalice", units(1000))
	require.NoError(t, h.assets.Approve(ticketsAddr, 10, marketAddr))
	h.tokens.Mint(coinAddr, "0xbob", units(2000))
	h.tokens.Approve(coinAddr, "0xbob", marketAddr, units(2000))

	resp := h.post(t, "0xalice", "/items", map[string]interface{}{"tokenId": 10, "price": units(1000).String()}, http.StatusCreated)

	var item entity.MarketItem
	decode(t, resp, &item)
	assert.Equal(t, uint64(1), item.ItemId)
	assert.Equal(t, "0xalice", item.Seller)

	// underpaying is rejected before anything moves
	h.post(t, "0xbob", "/items/1/sale", map[string]string{"amount": units(999).String()}, http.StatusBadRequest)

	resp = h.post(t, "0xbob", "/items/1/sale", map[string]string{"amount": units(1000).String()}, http.StatusOK)
	decode(t, resp, &item)
	assert.Equal(t, entity.ItemStatusSold, item.Status)
	assert.Equal(t, "0xbob", item.Buyer)

	// a sold item cannot be sold again
	h.post(t, "0xbob", "/items/1/sale", map[string]string{"amount": units(1000).String()}, http.StatusConflict)

	resp = h.request(t, http.MethodGet, "", "/items", nil)
	var items []entity.MarketItem
	decode(t, resp, &items)
	assert.Len(t, items, 0)
}

func TestServer_CancelAuthorization(t *testing.T) {
	h := newHarness(t)

	h.assets.Mint(ticketsAddr, 10, "0xalice", units(1000))
	require.NoError(t, h.assets.Approve(ticketsAddr, 10, marketAddr))
	h.post(t, "0xalice", "/items", map[string]interface{}{"tokenId": 10, "price": units(1000).String()}, http.StatusCreated)

	resp := h.request(t, http.MethodDelete, "0xbob", "/items/1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.request(t, http.MethodDelete, "0xalice", "/items/1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_AuctionFlow(t *testing.T) {
	h := newHarness(t)

	h.assets.Mint(ticketsAddr, 10, "0xalice", units(1000))
	require.NoError(t, h.assets.Approve(ticketsAddr, 10, auctionAddr))
	h.tokens.Mint(coinAddr, "0xbob", units(5000))
	h.tokens.Approve(coinAddr, "0xbob", auctionAddr, units(5000))

	resp := h.post(t, "0xalice", "/auctions", map[string]interface{}{
		"nftContract":  ticketsAddr,
		"tokenId":      10,
		"price":        units(1100).String(),
		"duration":     3600,
		"bidIncrement": units(50).String(),
	}, http.StatusCreated)

	var a entity.Auction
	decode(t, resp, &a)
	assert.Equal(t, uint64(1), a.AuctionId)

	h.post(t, "0xbob", "/auctions/1/bids", map[string]string{"amount": units(1099).String()}, http.StatusBadRequest)

	resp = h.post(t, "0xbob", "/auctions/1/bids", map[string]string{"amount": units(1100).String()}, http.StatusOK)
	decode(t, resp, &a)
	require.NotNil(t, a.HighestBid)
	assert.Equal(t, "0xbob", a.HighestBid.Bidder)

	// seller cannot withdraw while the auction runs
	h.post(t, "0xalice", "/auctions/1/withdrawals", nil, http.StatusConflict)

	h.clk.Advance(2 * time.Hour)

	// closed now, further bids are rejected
	h.post(t, "0xbob", "/auctions/1/bids", map[string]string{"amount": units(1200).String()}, http.StatusConflict)

	resp = h.post(t, "0xalice", "/auctions/1/withdrawals", nil, http.StatusOK)
	var payout map[string]string
	decode(t, resp, &payout)
	assert.Equal(t, units(1100).String(), payout["amount"])

	owner, err := h.assets.OwnerOf(ticketsAddr, 10)
	require.NoError(t, err)
	assert.Equal(t, "0xbob", owner)

	resp = h.request(t, http.MethodGet, "", "/auctions/1", nil)
	decode(t, resp, &a)
	assert.True(t, a.Settled)
}

func TestServer_UnknownIds(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, http.MethodGet, "", "/items/99", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.request(t, http.MethodGet, "", "/auctions/99", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.request(t, http.MethodGet, "", fmt.Sprintf("/items/%s", "abc"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
