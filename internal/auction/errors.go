package auction

import "errors"

var (
	ErrUnauthorized       = errors.New("caller is not authorized")
	ErrNotOwner           = errors.New("caller does not own the token")
	ErrNotApproved        = errors.New("auction service is not approved to transfer the token")
	ErrInvalidTerms       = errors.New("price, duration and bid increment must be greater than zero")
	ErrBidTooLow          = errors.New("bid does not meet the minimum")
	ErrAuctionNotOpen     = errors.New("auction is not open")
	ErrAuctionStillOpen   = errors.New("auction is still open")
	ErrNothingToWithdraw  = errors.New("nothing to withdraw")
	ErrPaymentTokenNotSet = errors.New("payment token is not set")
)
