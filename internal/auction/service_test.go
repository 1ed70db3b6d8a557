package auction

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketmesh/market-engine/internal/assetregistry"
	"github.com/ticketmesh/market-engine/internal/clock"
	"github.com/ticketmesh/market-engine/internal/paytoken"
	"github.com/ticketmesh/market-engine/internal/registry"
)

const (
	auctionAddr = "0xauctionhouse"
	adminAddr   = "0xadmin"
	ticketsAddr = "0xtickets"
	coinAddr    = "0xcoin"
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

type fixture struct {
	auctions Service
	escrow   registry.EscrowLedger
	assets   *assetregistry.Memory
	tokens   *paytoken.Memory
	clk      *clock.Fixed
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	assets := assetregistry.NewMemory()
	tokens := paytoken.NewMemory()
	escrow := registry.NewEscrowLedger()
	clk := clock.NewFixed(time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC))

	auctions := NewService(auctionAddr, adminAddr, registry.NewAuctionRegistry(), escrow, assets, tokens, clk)
	require.NoError(t, auctions.SetPaymentToken(adminAddr, coinAddr))

	return fixture{auctions: auctions, escrow: escrow, assets: assets, tokens: tokens, clk: clk}
}

// seller mints token 10, approves the auction house and opens a one hour
// auction at 1100 with a 50 increment.
func (f fixture) openAuction(t *testing.T) uint64 {
	t.Helper()

	f.assets.Mint(ticketsAddr, 10, "0xalice", units(1000))
	require.NoError(t, f.assets.Approve(ticketsAddr, 10, auctionAddr))

	auction, err := f.auctions.CreateAuction("0xalice", ticketsAddr, 10, units(1100), time.Hour, units(50))
	require.NoError(t, err)

	return auction.AuctionId
}

func (f fixture) fund(t *testing.T, party string, amount *big.Int) {
	t.Helper()

	f.tokens.Mint(coinAddr, party, amount)
	f.tokens.Approve(coinAddr, party, auctionAddr, amount)
}

func (f fixture) balanceOf(t *testing.T, party string) *big.Int {
	t.Helper()

	balance, err := f.tokens.BalanceOf(coinAddr, party)
	require.NoError(t, err)

	return balance
}

func TestService_CreateAuction(t *testing.T) {
	f := newFixture(t)
	auctionId := f.openAuction(t)

	auction, err := f.auctions.GetAuction(auctionId)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), auction.AuctionId)
	assert.Nil(t, auction.HighestBid)
	assert.True(t, auction.OpenAt(f.clk.Now()))

	owner, err := f.assets.OwnerOf(ticketsAddr, 10)
	require.NoError(t, err)
	assert.Equal(t, auctionAddr, owner)
}

func TestService_CreateAuctionValidations(t *testing.T) {
	f := newFixture(t)
	f.assets.Mint(ticketsAddr, 10, "0xalice", units(1000))

	_, err := f.auctions.CreateAuction("0xalice", ticketsAddr, 10, big.NewInt(0), time.Hour, units(50))
	assert.ErrorIs(t, err, ErrInvalidTerms)

	_, err = f.auctions.CreateAuction("0xalice", ticketsAddr, 10, units(1100), 0, units(50))
	assert.ErrorIs(t, err, ErrInvalidTerms)

	_, err = f.auctions.CreateAuction("0xalice", ticketsAddr, 10, units(1100), time.Hour, big.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidTerms)

	_, err = f.auctions.CreateAuction("0xbob", ticketsAddr, 10, units(1100), time.Hour, units(50))
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.auctions.CreateAuction("0xalice", ticketsAddr, 10, units(1100), time.Hour, units(50))
	assert.ErrorIs(t, err, ErrNotApproved)
}

func TestService_BidLadder(t *testing.T) {
	f := newFixture(t)
	auctionId := f.openAuction(t)

	f.fund(t, "0xbob", units(5000))
	f.fund(t, "0xcarol", units(5000))

	// the first bid has to meet the reserve price
	_, err := f.auctions.PlaceBid("0xbob", auctionId, units(1099))
	assert.ErrorIs(t, err, ErrBidTooLow)

	auction, err := f.auctions.PlaceBid("0xbob", auctionId, units(1100))
	require.NoError(t, err)
	assert.Equal(t, "0xbob", auction.HighestBid.Bidder)

	// later bids have to clear highest + increment
	_, err = f.auctions.PlaceBid("0xcarol", auctionId, units(1140))
	assert.ErrorIs(t, err, ErrBidTooLow)

	auction, err = f.auctions.PlaceBid("0xcarol", auctionId, units(1150))
	require.NoError(t, err)
	assert.Equal(t, "0xcarol", auction.HighestBid.Bidder)
	assert.Equal(t, units(1150), auction.HighestBid.Amount)

	// the displaced bid became withdrawable, the winning one stays in custody
	assert.Equal(t, units(1100), f.escrow.Balance(auctionId, "0xbob"))
	assert.Equal(t, units(2200), f.balanceOf(t, auctionAddr))
}

func TestService_OutbidRefundWithdrawal(t *testing.T) {
	f := newFixture(t)
	auctionId := f.openAuction(t)

	f.fund(t, "0xbob", units(5000))
	f.fund(t, "0xcarol", units(5000))

	_, err := f.auctions.PlaceBid("0xbob", auctionId, units(1100))
	require.NoError(t, err)
	_, err = f.auctions.PlaceBid("0xcarol", auctionId, units(1150))
	require.NoError(t, err)

	amount, err := f.auctions.WithdrawBalance("0xbob", auctionId)
	require.NoError(t, err)
	assert.Equal(t, units(1100), amount)
	assert.Equal(t, units(5000), f.balanceOf(t, "0xbob"))

	_, err = f.auctions.WithdrawBalance("0xbob", auctionId)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestService_BidOnClosedAuction(t *testing.T) {
	f := newFixture(t)
	auctionId := f.openAuction(t)

	f.fund(t, "0xbob", units(5000))
	f.clk.Advance(time.Hour + time.Second)

	_, err := f.auctions.PlaceBid("0xbob", auctionId, units(1100))
	assert.ErrorIs(t, err, ErrAuctionNotOpen)
}

func TestService_SellerWithdrawalWhileOpen(t *testing.T) {
	f := newFixture(t)
	auctionId := f.openAuction(t)

	_, err := f.auctions.WithdrawBalance("0xalice", auctionId)
	assert.ErrorIs(t, err, ErrAuctionStillOpen)
}

func TestService_SellerWithdrawalSettlesLazily(t *testing.T) {
	f := newFixture(t)
	auctionId := f.openAuction(t)

	f.fund(t, "0xbob", units(5000))
	_, err := f.auctions.PlaceBid("0xbob", auctionId, units(1100))
	require.NoError(t, err)

	f.clk.Advance(time.Hour + time.Second)

	// the seller's withdrawal settles the auction and pays the proceeds out
	amount, err := f.auctions.WithdrawBalance("0xalice", auctionId)
	require.NoError(t, err)
	assert.Equal(t, units(1100), amount)
	assert.Equal(t, units(1100), f.balanceOf(t, "0xalice"))

	owner, err := f.assets.OwnerOf(ticketsAddr, 10)
	require.NoError(t, err)
	assert.Equal(t, "0xbob", owner)

	auction, err := f.auctions.GetAuction(auctionId)
	require.NoError(t, err)
	assert.True(t, auction.Settled)

	_, err = f.auctions.WithdrawBalance("0xalice", auctionId)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestService_FinalizeAuction(t *testing.T) {
	f := newFixture(t)
	auctionId := f.openAuction(t)

	f.fund(t, "0xbob", units(5000))
	_, err := f.auctions.PlaceBid("0xbob", auctionId, units(1100))
	require.NoError(t, err)

	_, err = f.auctions.FinalizeAuction("0xalice", auctionId)
	assert.ErrorIs(t, err, ErrAuctionStillOpen)

	f.clk.Advance(time.Hour + time.Second)

	_, err = f.auctions.FinalizeAuction("0xbob", auctionId)
	assert.ErrorIs(t, err, ErrUnauthorized)

	auction, err := f.auctions.FinalizeAuction("0xalice", auctionId)
	require.NoError(t, err)
	assert.True(t, auction.Settled)

	owner, err := f.assets.OwnerOf(ticketsAddr, 10)
	require.NoError(t, err)
	assert.Equal(t, "0xbob", owner)

	// the proceeds sit in escrow until the seller withdraws
	assert.Equal(t, units(1100), f.escrow.Balance(auctionId, "0xalice"))

	// settling again is a no-op
	again, err := f.auctions.FinalizeAuction(adminAddr, auctionId)
	require.NoError(t, err)
	assert.True(t, again.Settled)
	assert.Equal(t, units(1100), f.escrow.Balance(auctionId, "0xalice"))

	amount, err := f.auctions.WithdrawBalance("0xalice", auctionId)
	require.NoError(t, err)
	assert.Equal(t, units(1100), amount)
	assert.Equal(t, units(1100), f.balanceOf(t, "0xalice"))
}

func TestService_FinalizeAuctionWithoutBids(t *testing.T) {
	f := newFixture(t)
	auctionId := f.openAuction(t)

	f.clk.Advance(time.Hour + time.Second)

	auction, err := f.auctions.FinalizeAuction("0xalice", auctionId)
	require.NoError(t, err)
	assert.True(t, auction.Settled)
	assert.Nil(t, auction.HighestBid)

	// the asset goes back to the seller and nobody is owed anything
	owner, err := f.assets.OwnerOf(ticketsAddr, 10)
	require.NoError(t, err)
	assert.Equal(t, "0xalice", owner)
	assert.Equal(t, int64(0), f.escrow.Balance(auctionId, "0xalice").Int64())
}

func TestService_BidWithoutFundsLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	auctionId := f.openAuction(t)

	// bidder approved the auction house but holds nothing
	f.tokens.Approve(coinAddr, "0xbob", auctionAddr, units(5000))

	_, err := f.auctions.PlaceBid("0xbob", auctionId, units(1100))
	assert.ErrorIs(t, err, paytoken.ErrInsufficientBalance)

	auction, err := f.auctions.GetAuction(auctionId)
	require.NoError(t, err)
	assert.Nil(t, auction.HighestBid)
}

func TestService_PaymentTokenMustBeBound(t *testing.T) {
	assets := assetregistry.NewMemory()
	tokens := paytoken.NewMemory()
	auctions := NewService(auctionAddr, adminAddr, registry.NewAuctionRegistry(), registry.NewEscrowLedger(), assets, tokens, clock.System())

	assets.Mint(ticketsAddr, 10, "0xalice", units(1000))
	require.NoError(t, assets.Approve(ticketsAddr, 10, auctionAddr))
	auction, err := auctions.CreateAuction("0xalice", ticketsAddr, 10, units(1100), time.Hour, units(50))
	require.NoError(t, err)

	_, err = auctions.PlaceBid("0xbob", auction.AuctionId, units(1100))
	assert.ErrorIs(t, err, ErrPaymentTokenNotSet)

	assert.ErrorIs(t, auctions.SetPaymentToken("0xbob", coinAddr), ErrUnauthorized)
}
