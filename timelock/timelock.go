// Package timelock computes the asymmetric timelock pair (T_asset, T_btc)
// that keeps both legs of a swap atomic (C2).
package timelock

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultBuffer is Δ when the caller doesn't specify one.
	DefaultBuffer = 2 * time.Hour

	// MinBuffer and MaxBuffer bound Δ per spec §4.2.
	MinBuffer = 1 * time.Hour
	MaxBuffer = 24 * time.Hour
)

var (
	// ErrDeadlineInPast is returned when T_asset is not strictly in the
	// future relative to now.
	ErrDeadlineInPast = errors.New("timelock: T_asset must be in the future")

	// ErrBufferOutOfRange is returned when Δ falls outside [1h, 24h].
	ErrBufferOutOfRange = errors.New("timelock: buffer out of range [1h,24h]")

	// ErrBTCNotAfterAsset is returned if, after adding the buffer,
	// T_btc would not land strictly after T_asset. This should only
	// happen if a caller passes a zero or negative buffer, which
	// ErrBufferOutOfRange already rejects, but is kept as a defense in
	// depth invariant check.
	ErrBTCNotAfterAsset = errors.New("timelock: T_btc must be after T_asset")
)

// Window is the pair of asymmetric deadlines governing one swap, plus
// the buffer that separates them.
//
// Why asymmetric: if T_btc <= T_asset, a griefing party could let one
// leg refund and still settle the other, breaking atomicity. Setting
// T_btc = T_asset + buffer leaves the seller a window, after the asset
// leg's deadline, to either claim BTC via the already-known preimage or
// let BTC refund too - by which point the asset side has already
// refunded.
type Window struct {
	TAsset time.Time
	TBTC   time.Time
	Buffer time.Duration
}

// Compute builds a Window from a buyer-visible asset-leg deadline and a
// buffer Δ, validating the invariants from spec §4.2. Passing a zero
// buffer selects DefaultBuffer.
func Compute(now time.Time, tAsset time.Time, buffer time.Duration) (Window, error) {
	if buffer == 0 {
		buffer = DefaultBuffer
	}

	if !tAsset.After(now) {
		return Window{}, ErrDeadlineInPast
	}

	if buffer < MinBuffer || buffer > MaxBuffer {
		return Window{}, fmt.Errorf("%w: got %s", ErrBufferOutOfRange, buffer)
	}

	tBTC := tAsset.Add(buffer)
	if !tBTC.After(tAsset) {
		return Window{}, ErrBTCNotAfterAsset
	}

	return Window{
		TAsset: tAsset,
		TBTC:   tBTC,
		Buffer: buffer,
	}, nil
}

// ComputeUnix is the unix-seconds convenience form of Compute, for
// callers that hold timestamps as unix seconds (as wire payloads, §6.2,
// and the escrow module do) rather than time.Time.
func ComputeUnix(nowUnix, tAssetUnix int64, bufferSeconds int64) (Window, error) {
	var buffer time.Duration
	if bufferSeconds != 0 {
		buffer = time.Duration(bufferSeconds) * time.Second
	}
	return Compute(
		time.Unix(nowUnix, 0),
		time.Unix(tAssetUnix, 0),
		buffer,
	)
}
