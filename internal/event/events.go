package event

type Type string

const (
	InitialSaleEvent      Type = "InitialSaleEvent"
	ItemListedEvent       Type = "ItemListedEvent"
	ItemSoldEvent         Type = "ItemSoldEvent"
	ItemCancelledEvent    Type = "ItemCancelledEvent"
	AuctionCreatedEvent   Type = "AuctionCreatedEvent"
	BidPlacedEvent        Type = "BidPlacedEvent"
	BidRefundedEvent      Type = "BidRefundedEvent"
	AuctionSettledEvent   Type = "AuctionSettledEvent"
	BalanceWithdrawnEvent Type = "BalanceWithdrawnEvent"
)
