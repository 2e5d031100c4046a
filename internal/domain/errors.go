package domain

import "errors"

var (
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrVariantNotFound        = errors.New("variant not found")
	ErrReservationNotFound    = errors.New("reservation not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrLedgerInvariant        = errors.New("stock ledger invariant violated")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidTTL             = errors.New("invalid ttl")
	ErrInvalidTotalStock      = errors.New("invalid total stock")
	ErrOrderIDRequired        = errors.New("order id required")
	ErrInvalidID              = errors.New("invalid id")
)
