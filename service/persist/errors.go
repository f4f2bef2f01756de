package persist

import (
	"errors"
	"fmt"
)

// ErrUserCancelled is returned when the signer declined an account or
// transaction prompt. Callers are expected to treat it as a quiet outcome,
// not a failure worth alarming anyone about.
type ErrUserCancelled struct{}

func (e ErrUserCancelled) Error() string {
	return "user cancelled the request"
}

// ErrProviderUnavailable is returned when no signing provider is configured.
type ErrProviderUnavailable struct{}

func (e ErrProviderUnavailable) Error() string {
	return "no signing provider available"
}

// ErrNetworkSetupFailed is returned when both the chain switch and the
// add-then-switch fallback failed.
type ErrNetworkSetupFailed struct {
	ChainID string
	Err     error
}

func (e ErrNetworkSetupFailed) Error() string {
	return fmt.Sprintf("could not set up network %s: %s", e.ChainID, e.Err)
}

func (e ErrNetworkSetupFailed) Unwrap() error { return e.Err }

// ErrValidation is returned when a local precondition fails before any
// network call is made.
type ErrValidation struct {
	Reason string
}

func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// ErrStoreUnavailable is returned when a content-store upload or fetch fails.
type ErrStoreUnavailable struct {
	Err error
}

func (e ErrStoreUnavailable) Error() string {
	return fmt.Sprintf("content store unavailable: %s", e.Err)
}

func (e ErrStoreUnavailable) Unwrap() error { return e.Err }

// ErrLedgerRejected is returned when a submitted write reverted on-ledger.
type ErrLedgerRejected struct {
	Reason string
	TxHash TxHash
}

func (e ErrLedgerRejected) Error() string {
	if e.Reason == "" {
		return "transaction rejected by the ledger"
	}
	return fmt.Sprintf("transaction rejected by the ledger: %s", e.Reason)
}

// ErrGatewayUnavailable is returned on RPC or transport failure.
type ErrGatewayUnavailable struct {
	Err error
}

func (e ErrGatewayUnavailable) Error() string {
	return fmt.Sprintf("ledger gateway unavailable: %s", e.Err)
}

func (e ErrGatewayUnavailable) Unwrap() error { return e.Err }

// ErrInvalidURI is returned for a content URI whose scheme cannot be resolved.
type ErrInvalidURI struct {
	URI TokenURI
}

func (e ErrInvalidURI) Error() string {
	return fmt.Sprintf("invalid content URI: %s", e.URI)
}

// IsUserCancelled reports whether err is, or wraps, a user cancellation.
func IsUserCancelled(err error) bool {
	var target ErrUserCancelled
	return errors.As(err, &target)
}

// IsValidation reports whether err is, or wraps, a local validation failure.
func IsValidation(err error) bool {
	var target ErrValidation
	return errors.As(err, &target)
}
