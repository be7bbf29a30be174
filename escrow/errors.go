package escrow

import "errors"

// Sentinel errors for the asset HTLC module (C3), one per failure named
// in spec §4.3's operation table.
var (
	// Validation / shape errors.
	ErrDuplicateTokenID = errors.New("escrow: token id already minted")
	ErrInvalidMetadata  = errors.New("escrow: invalid metadata")
	ErrNoteTooLong      = errors.New("escrow: note exceeds 140 bytes")
	ErrInvalidBuyer     = errors.New("escrow: invalid buyer")
	ErrInvalidHash      = errors.New("escrow: invalid commitment hash")
	ErrInvalidPrice     = errors.New("escrow: price must be positive")
	ErrExpiryTooSoon    = errors.New("escrow: expiry must be more than 1h out")
	ErrExpiryTooFar     = errors.New("escrow: expiry must be at most 30d out")

	// Authorization errors.
	ErrNotOwner = errors.New("escrow: caller is not the token owner")
	ErrNotBuyer = errors.New("escrow: caller is not the escrow buyer")

	// State errors.
	ErrTokenNotFound  = errors.New("escrow: token not found")
	ErrAlreadyFrozen  = errors.New("escrow: metadata already frozen")
	ErrFrozen         = errors.New("escrow: metadata is frozen")
	ErrInEscrow       = errors.New("escrow: token has an active escrow")
	ErrNotInEscrow    = errors.New("escrow: token has no active escrow")
	ErrExpired        = errors.New("escrow: escrow has expired")
	ErrRefundNotYet   = errors.New("escrow: refund not yet available")

	// Cryptographic errors.
	ErrBadSecret = errors.New("escrow: secret does not match commitment")
)
