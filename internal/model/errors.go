package model

import "errors"

// Business errors surfaced to callers. The engine never clamps or rounds
// away a violation: the whole operation is rejected and state is left
// unchanged. Only ErrBusy is safe to retry automatically.
var (
	ErrInsufficientFunds     = errors.New("insufficient wallet funds")
	ErrInsufficientCoins     = errors.New("insufficient coins")
	ErrInsufficientGoalFunds = errors.New("insufficient goal funds")
	ErrInsufficientShares    = errors.New("insufficient shares")
	ErrOptionInactive        = errors.New("investment option is not active")
	ErrInvestedCapExceeded   = errors.New("invested capital cap exceeded")
	ErrInvalidSymbol         = errors.New("invalid option symbol")
	ErrInvalidRiskLevel      = errors.New("invalid risk level")
	ErrItemAlreadyListed     = errors.New("inventory item already has an active listing")
	ErrNotOwner              = errors.New("caller does not own this resource")
	ErrListingNotActive      = errors.New("listing is not active")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrSelfPurchase          = errors.New("cannot purchase own listing")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrNotFound              = errors.New("not found")
	ErrBusy                  = errors.New("owner is busy, retry later")
)
