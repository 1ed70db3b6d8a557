package registry

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ticketmesh/market-engine/internal/entity"
)

var (
	ErrItemNotFound     = errors.New("market item not found")
	ErrItemNotActive    = errors.New("market item is not active")
	ErrItemNotCancelled = errors.New("market item is not cancelled")
	ErrActiveItemExists = errors.New("token already has an active listing")
)

// MarketItemRegistry is the arena of MarketItem records. Handles are dense,
// start at 1 and are never reused; records are never deleted, cancellation
// and sale are status transitions.
type MarketItemRegistry interface {
	Create(tokenId uint64, seller string, price *big.Int, listedAt time.Time) entity.MarketItem
	Get(itemId uint64) (entity.MarketItem, error)
	ActiveByTokenId(tokenId uint64) (entity.MarketItem, bool)
	MarkSold(itemId uint64, buyer string) (entity.MarketItem, error)
	Cancel(itemId uint64) (entity.MarketItem, error)
	Reopen(itemId uint64) (entity.MarketItem, error)
	Active() []entity.MarketItem
	BySeller(seller string) []entity.MarketItem
}

type marketItemRegistry struct {
	mu    sync.RWMutex
	items []entity.MarketItem
}

func NewMarketItemRegistry() MarketItemRegistry {
	return &marketItemRegistry{}
}

func (r *marketItemRegistry) Create(tokenId uint64, seller string, price *big.Int, listedAt time.Time) entity.MarketItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	item := entity.MarketItem{
		ItemId:   uint64(len(r.items)) + 1,
		TokenId:  tokenId,
		Seller:   seller,
		Price:    new(big.Int).Set(price),
		Status:   entity.ItemStatusListed,
		ListedAt: listedAt,
	}
	r.items = append(r.items, item)

	return item
}

func (r *marketItemRegistry) Get(itemId uint64) (entity.MarketItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.get(itemId)
}

func (r *marketItemRegistry) get(itemId uint64) (entity.MarketItem, error) {
	if itemId == 0 || itemId > uint64(len(r.items)) {
		return entity.MarketItem{}, ErrItemNotFound
	}

	return r.items[itemId-1], nil
}

func (r *marketItemRegistry) ActiveByTokenId(tokenId uint64) (entity.MarketItem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.TokenId == tokenId && item.Active() {
			return item, true
		}
	}

	return entity.MarketItem{}, false
}

func (r *marketItemRegistry) MarkSold(itemId uint64, buyer string) (entity.MarketItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, err := r.get(itemId)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if !item.Active() {
		return entity.MarketItem{}, ErrItemNotActive
	}

	item.Status = entity.ItemStatusSold
	item.Buyer = buyer
	r.items[itemId-1] = item

	return item, nil
}

func (r *marketItemRegistry) Cancel(itemId uint64) (entity.MarketItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, err := r.get(itemId)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if !item.Active() {
		return entity.MarketItem{}, ErrItemNotActive
	}

	item.Status = entity.ItemStatusCancelled
	r.items[itemId-1] = item

	return item, nil
}

// Reopen reverts a cancelled item back to listed. Only the marketplace
// service uses it, to compensate a failed asset return inside CancelMarketItem
// so the whole call stays all-or-nothing. A sold item never reverts.
func (r *marketItemRegistry) Reopen(itemId uint64) (entity.MarketItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, err := r.get(itemId)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if item.Status != entity.ItemStatusCancelled {
		return entity.MarketItem{}, ErrItemNotCancelled
	}

	item.Status = entity.ItemStatusListed
	r.items[itemId-1] = item

	return item, nil
}

func (r *marketItemRegistry) Active() []entity.MarketItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]entity.MarketItem, 0)
	for _, item := range r.items {
		if item.Active() {
			active = append(active, item)
		}
	}

	return active
}

func (r *marketItemRegistry) BySeller(seller string) []entity.MarketItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]entity.MarketItem, 0)
	for _, item := range r.items {
		if item.Seller == seller {
			items = append(items, item)
		}
	}

	return items
}
