package coordinator

import (
	"errors"
	"fmt"
)

// Sentinel errors for the swap coordinator (C6).
var (
	// ErrDuplicateHash is returned by RegisterSwap when hashH already
	// names a swap that hasn't been retired yet (§8 round-trip property).
	ErrDuplicateHash = errors.New("coordinator: swap with this hashH already registered")

	// ErrSwapNotFound is returned by any admin lookup/force op naming an
	// unknown or already-retired hashH.
	ErrSwapNotFound = errors.New("coordinator: swap not found")

	// ErrSecretBeforeOpen names the case of secret_observed delivered
	// while a swap is still waiting_btc (§4.6 ordering guarantee). The
	// actor ignores such an observer event; it does not return this
	// error to anyone.
	ErrSecretBeforeOpen = errors.New("coordinator: secret observed before asset leg opened")

	// ErrNotTerminal is returned when a force op is attempted on a swap
	// whose state can't accept it (e.g. forceClaim on an already-claimed
	// swap).
	ErrNotTerminal = errors.New("coordinator: swap is not in a state that accepts this operation")

	// ErrShuttingDown is returned when a message can't be delivered
	// because the coordinator's inbox is closed.
	ErrShuttingDown = errors.New("coordinator: shutting down")
)

// PersistentExternalFailure wraps an ExternalFailure-class error that
// survived the full retry budget (§7), preserving the cause chain.
type PersistentExternalFailure struct {
	Op    string
	Cause error
	Tries int
}

func (e *PersistentExternalFailure) Error() string {
	return fmt.Sprintf("coordinator: %s failed persistently after %d attempts: %v",
		e.Op, e.Tries, e.Cause)
}

func (e *PersistentExternalFailure) Unwrap() error {
	return e.Cause
}
