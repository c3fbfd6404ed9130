package market

import "errors"

var (
	// ErrNotFound indicates the listing or record doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the caller isn't allowed to run the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput indicates malformed listing terms, payout objects or arguments.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientDeposit indicates the attached payment is below the required amount.
	ErrInsufficientDeposit = errors.New("insufficient deposit")
	// ErrInsufficientStorageQuota indicates the owner's prepaid storage can't cover another listing.
	ErrInsufficientStorageQuota = errors.New("insufficient storage quota")
	// ErrAccountingInconsistency indicates a stored storage balance below the
	// amount required by the owner's listings. It should never happen.
	ErrAccountingInconsistency = errors.New("storage accounting inconsistency")
)
