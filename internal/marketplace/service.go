package marketplace

import (
	"math/big"
	"sync"

	"github.com/ticketmesh/market-engine/internal/assetregistry"
	"github.com/ticketmesh/market-engine/internal/clock"
	"github.com/ticketmesh/market-engine/internal/entity"
	"github.com/ticketmesh/market-engine/internal/event"
	"github.com/ticketmesh/market-engine/internal/factory"
	"github.com/ticketmesh/market-engine/internal/paytoken"
	"github.com/ticketmesh/market-engine/internal/registry"
	"go.uber.org/zap"
)

// Service is the listing/sale state machine. Every mutating operation is
// atomic: preconditions and effects are evaluated under one lock, and a
// failed external transfer is compensated before the lock is released, so
// no partial state is ever observable.
type Service interface {
	SetAssetContract(caller, contract string) error
	SetPaymentToken(caller, token string) error
	InitialTicketSale(buyer string, tokenId uint64, amount *big.Int) error
	CreateMarketItem(seller string, tokenId uint64, price *big.Int) (entity.MarketItem, error)
	CreateMarketSale(buyer string, itemId uint64, amount *big.Int) (entity.MarketItem, error)
	CancelMarketItem(caller string, itemId uint64) (entity.MarketItem, error)
	GetMarketItem(itemId uint64) (entity.MarketItem, error)
	GetMarketItems() []entity.MarketItem
	GetItemsBySeller(seller string) []entity.MarketItem
}

type service struct {
	mu sync.Mutex

	address string
	admin   string

	assetContract string
	paymentToken  string
	initialSold   map[uint64]bool

	items  registry.MarketItemRegistry
	assets assetregistry.Service
	tokens paytoken.Service
	clock  clock.Clock
}

func NewService(
	address string,
	admin string,
	items registry.MarketItemRegistry,
	assets assetregistry.Service,
	tokens paytoken.Service,
	clk clock.Clock,
) Service {
	return &service{
		address:     address,
		admin:       admin,
		initialSold: make(map[uint64]bool),
		items:       items,
		assets:      assets,
		tokens:      tokens,
		clock:       clk,
	}
}

func (s *service) SetAssetContract(caller, contract string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return ErrUnauthorized
	}
	s.assetContract = contract

	zap.L().With(zap.String("contract", contract)).Info("Marketplace: Asset contract set")

	return nil
}

func (s *service) SetPaymentToken(caller, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return ErrUnauthorized
	}
	s.paymentToken = token

	zap.L().With(zap.String("token", token)).Info("Marketplace: Payment token set")

	return nil
}

// InitialTicketSale is the buyer-initiated first-sale path. The asking
// price comes from the asset registry's initial price metadata and each
// token can go through this path exactly once.
func (s *service) InitialTicketSale(buyer string, tokenId uint64, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bound(); err != nil {
		return err
	}

	if s.initialSold[tokenId] {
		return ErrAlreadySold
	}

	price, err := s.assets.InitialPrice(s.assetContract, tokenId)
	if err != nil {
		return err
	}
	if amount.Cmp(price) < 0 {
		return ErrInsufficientPayment
	}

	holder, err := s.assets.OwnerOf(s.assetContract, tokenId)
	if err != nil {
		return err
	}

	approved, err := s.assets.IsApprovedFor(s.assetContract, tokenId, s.address)
	if err != nil {
		return err
	}
	if !approved {
		return ErrNotApproved
	}

	// Payment moves through marketplace custody: the pull is covered by the
	// buyer's allowance and every later leg is a self-spend, so a failed
	// delivery can always be refunded.
	if err := s.tokens.TransferFrom(s.paymentToken, s.address, buyer, s.address, amount); err != nil {
		return err
	}

	if err := s.assets.Transfer(s.assetContract, holder, buyer, tokenId); err != nil {
		if refundErr := s.tokens.TransferFrom(s.paymentToken, s.address, s.address, buyer, amount); refundErr != nil {
			zap.L().With(zap.Error(refundErr), zap.Uint64("tokenId", tokenId)).Error("Marketplace: Failed to refund initial sale payment")
		}
		return err
	}

	if err := s.tokens.TransferFrom(s.paymentToken, s.address, s.address, holder, amount); err != nil {
		// unwind both legs so the rejected call leaves no trace
		if backErr := s.assets.Transfer(s.assetContract, buyer, holder, tokenId); backErr != nil {
			zap.L().With(zap.Error(backErr), zap.Uint64("tokenId", tokenId)).Error("Marketplace: Failed to return asset after payout failure")
		}
		if refundErr := s.tokens.TransferFrom(s.paymentToken, s.address, s.address, buyer, amount); refundErr != nil {
			zap.L().With(zap.Error(refundErr), zap.Uint64("tokenId", tokenId)).Error("Marketplace: Failed to refund initial sale payment")
		}
		return err
	}

	s.initialSold[tokenId] = true

	zap.L().With(
		zap.Uint64("tokenId", tokenId),
		zap.String("from", holder),
		zap.String("to", buyer),
		zap.String("amount", amount.String()),
	).Info("Marketplace: Initial ticket sale")

	event.EmitEvent(event.InitialSaleEvent, factory.CreateInitialSaleAction(tokenId, holder, buyer, amount, s.clock.Now()))

	return nil
}

// CreateMarketItem records a secondary listing and takes custody of the
// asset. At most one active item may exist per token.
func (s *service) CreateMarketItem(seller string, tokenId uint64, price *big.Int) (entity.MarketItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.assetContract == "" {
		return entity.MarketItem{}, ErrAssetContractNotSet
	}

	if price == nil || price.Sign() <= 0 {
		return entity.MarketItem{}, ErrInvalidPrice
	}

	owner, err := s.assets.OwnerOf(s.assetContract, tokenId)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if owner != seller {
		return entity.MarketItem{}, ErrNotOwner
	}

	approved, err := s.assets.IsApprovedFor(s.assetContract, tokenId, s.address)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if !approved {
		return entity.MarketItem{}, ErrNotApproved
	}

	if _, exists := s.items.ActiveByTokenId(tokenId); exists {
		return entity.MarketItem{}, registry.ErrActiveItemExists
	}

	if err := s.assets.Transfer(s.assetContract, seller, s.address, tokenId); err != nil {
		return entity.MarketItem{}, err
	}

	item := s.items.Create(tokenId, seller, price, s.clock.Now())

	zap.L().With(
		zap.Uint64("itemId", item.ItemId),
		zap.Uint64("tokenId", tokenId),
		zap.String("seller", seller),
		zap.String("price", price.String()),
	).Info("Marketplace: Item listed")

	event.EmitEvent(event.ItemListedEvent, factory.CreateListingAction(item))

	return item, nil
}

// CreateMarketSale pays the seller and delivers the asset. Payment and
// delivery either both happen or neither does: the amount is pulled into
// marketplace custody first, so a failed delivery is refunded from funds
// the marketplace itself holds.
func (s *service) CreateMarketSale(buyer string, itemId uint64, amount *big.Int) (entity.MarketItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paymentToken == "" {
		return entity.MarketItem{}, ErrPaymentTokenNotSet
	}

	item, err := s.items.Get(itemId)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if !item.Active() {
		return entity.MarketItem{}, registry.ErrItemNotActive
	}

	if amount.Cmp(item.Price) < 0 {
		return entity.MarketItem{}, ErrInsufficientPayment
	}

	if err := s.tokens.TransferFrom(s.paymentToken, s.address, buyer, s.address, amount); err != nil {
		return entity.MarketItem{}, err
	}

	if err := s.assets.Transfer(s.assetContract, s.address, buyer, item.TokenId); err != nil {
		if refundErr := s.tokens.TransferFrom(s.paymentToken, s.address, s.address, buyer, amount); refundErr != nil {
			zap.L().With(zap.Error(refundErr), zap.Uint64("itemId", itemId)).Error("Marketplace: Failed to refund sale payment")
		}
		return entity.MarketItem{}, err
	}

	if err := s.tokens.TransferFrom(s.paymentToken, s.address, s.address, item.Seller, amount); err != nil {
		// unwind both legs so the rejected call leaves no trace
		if backErr := s.assets.Transfer(s.assetContract, buyer, s.address, item.TokenId); backErr != nil {
			zap.L().With(zap.Error(backErr), zap.Uint64("itemId", itemId)).Error("Marketplace: Failed to reclaim asset after payout failure")
		}
		if refundErr := s.tokens.TransferFrom(s.paymentToken, s.address, s.address, buyer, amount); refundErr != nil {
			zap.L().With(zap.Error(refundErr), zap.Uint64("itemId", itemId)).Error("Marketplace: Failed to refund sale payment")
		}
		return entity.MarketItem{}, err
	}

	item, err = s.items.MarkSold(itemId, buyer)
	if err != nil {
		return entity.MarketItem{}, err
	}

	zap.L().With(
		zap.Uint64("itemId", itemId),
		zap.Uint64("tokenId", item.TokenId),
		zap.String("from", item.Seller),
		zap.String("to", buyer),
		zap.String("amount", amount.String()),
	).Info("Marketplace: Item sold")

	event.EmitEvent(event.ItemSoldEvent, factory.CreateSaleAction(item, amount, s.clock.Now()))

	return item, nil
}

// CancelMarketItem is gated by a pure predicate over caller identity and the
// record: the item's seller or the admin may cancel.
func (s *service) CancelMarketItem(caller string, itemId uint64) (entity.MarketItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.Get(itemId)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if !s.authorized(caller, item) {
		return entity.MarketItem{}, ErrUnauthorized
	}

	item, err = s.items.Cancel(itemId)
	if err != nil {
		return entity.MarketItem{}, err
	}

	if err := s.assets.Transfer(s.assetContract, s.address, item.Seller, item.TokenId); err != nil {
		if _, reopenErr := s.items.Reopen(itemId); reopenErr != nil {
			zap.L().With(zap.Error(reopenErr), zap.Uint64("itemId", itemId)).Error("Marketplace: Failed to reopen item after transfer failure")
		}
		return entity.MarketItem{}, err
	}

	zap.L().With(
		zap.Uint64("itemId", itemId),
		zap.Uint64("tokenId", item.TokenId),
		zap.String("seller", item.Seller),
	).Info("Marketplace: Item cancelled")

	event.EmitEvent(event.ItemCancelledEvent, factory.CreateDelistingAction(item, s.clock.Now()))

	return item, nil
}

func (s *service) GetMarketItem(itemId uint64) (entity.MarketItem, error) {
	return s.items.Get(itemId)
}

func (s *service) GetMarketItems() []entity.MarketItem {
	return s.items.Active()
}

func (s *service) GetItemsBySeller(seller string) []entity.MarketItem {
	return s.items.BySeller(seller)
}

func (s *service) authorized(caller string, item entity.MarketItem) bool {
	return caller == item.Seller || caller == s.admin
}

func (s *service) bound() error {
	if s.assetContract == "" {
		return ErrAssetContractNotSet
	}
	if s.paymentToken == "" {
		return ErrPaymentTokenNotSet
	}

	return nil
}
