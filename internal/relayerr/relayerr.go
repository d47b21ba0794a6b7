// Package relayerr defines the error types returned at the HTTP and
// order-store boundaries, distinct from chainerr's adapter-level
// classification.
package relayerr

import "fmt"

// ValidationError reports a malformed or semantically invalid request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// DuplicateOrder reports an attempt to create an order whose hash
// already exists.
type DuplicateOrder struct {
	OrderHash string
}

func (e *DuplicateOrder) Error() string {
	return fmt.Sprintf("order %s already exists", e.OrderHash)
}

// NotFound reports a lookup against an order hash that has no record.
type NotFound struct {
	OrderHash string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderHash)
}

// IllegalTransition reports an attempted state change the transition
// table does not allow, or whose CAS precondition did not hold.
type IllegalTransition struct {
	OrderHash string
	From      string
	To        string
}

func (e *IllegalTransition) Error() string {
	return fmt.Sprintf("order %s: illegal transition %s -> %s", e.OrderHash, e.From, e.To)
}

// SecretMismatch reports a revealed secret whose hash does not match
// the order's committed secret hash.
type SecretMismatch struct {
	OrderHash string
}

func (e *SecretMismatch) Error() string {
	return fmt.Sprintf("order %s: revealed secret does not match committed hash", e.OrderHash)
}

// AlreadySet reports an attempt to overwrite a set-once field (escrow
// reference, secret) that already has a value.
type AlreadySet struct {
	OrderHash string
	Field     string
}

func (e *AlreadySet) Error() string {
	return fmt.Sprintf("order %s: %s is already set", e.OrderHash, e.Field)
}
