package entitlements

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrAmountMismatch  = errors.New("amount does not match product price")
	// ErrNoEntitlement is the normal outcome for exhausted or unknown purchases.
	ErrNoEntitlement = errors.New("no downloads remaining")
)
