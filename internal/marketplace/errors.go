package marketplace

import "errors"

var (
	ErrUnauthorized        = errors.New("caller is not authorized")
	ErrNotOwner            = errors.New("caller does not own the token")
	ErrNotApproved         = errors.New("marketplace is not approved to transfer the token")
	ErrInvalidPrice        = errors.New("price must be greater than zero")
	ErrAlreadySold         = errors.New("token already sold from initial ticket sale")
	ErrInsufficientPayment = errors.New("amount is below the asking price")
	ErrAssetContractNotSet = errors.New("asset contract is not set")
	ErrPaymentTokenNotSet  = errors.New("payment token is not set")
)
