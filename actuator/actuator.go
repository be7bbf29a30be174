// Package actuator is the thin façade (C5) over the asset HTLC module
// that the coordinator actually calls. It never decides whether to
// retry - that's the coordinator's job (§4.5) - it only estimates
// resources, submits, and translates the ledger's result or failure
// into one of ActuatorTimeout / LedgerRejected / ParseFailure.
package actuator

import (
	"context"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/lnwallet/chainfee"

	"github.com/tapswap/htlcswap/escrow"
	"github.com/tapswap/htlcswap/secret"
)

// defaultSubmitTimeout is the overall per-attempt timeout from §5.
const defaultSubmitTimeout = 60 * time.Second

// feeBufferNum/feeBufferDen apply the 20% buffer from §4.5 to an
// estimated baseline.
const (
	feeBufferNum = 6
	feeBufferDen = 5
)

// FeeEstimator is the resource-estimate source (the Bitcoin observer's
// EstimateFee, or any compatible estimator) the actuator consults before
// submitting, mirroring a gas-estimation step on an EVM-like platform.
type FeeEstimator interface {
	EstimateFee(ctx context.Context, confTarget uint32) (chainfee.SatPerKWeight, error)
}

// Config configures the Actuator.
type Config struct {
	// Ledger is the asset HTLC module this actuator submits to.
	Ledger *escrow.Ledger

	// Fees estimates the resource cost of a submission. May be nil, in
	// which case FeeCeiling is always used.
	Fees FeeEstimator

	// FeeCeiling is the fallback baseline used when Fees is nil or its
	// estimate fails.
	FeeCeiling chainfee.SatPerKWeight

	// ConfTarget is passed to Fees.EstimateFee.
	ConfTarget uint32

	// SubmitTimeout bounds a single submission attempt. Default: 60s.
	SubmitTimeout time.Duration
}

// Validate checks the configuration is complete.
func (c *Config) Validate() error {
	if c.Ledger == nil {
		return fmt.Errorf("actuator: ledger is required")
	}
	if c.FeeCeiling == 0 {
		return fmt.Errorf("actuator: fee ceiling is required")
	}
	return nil
}

// Actuator is the C5 façade.
type Actuator struct {
	cfg *Config
}

// New constructs an Actuator.
func New(cfg *Config) (*Actuator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SubmitTimeout == 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	return &Actuator{cfg: cfg}, nil
}

// estimate computes the buffered resource estimate for one submission,
// falling back to the configured ceiling if the estimator is absent or
// fails - the baseline itself is never load-bearing for correctness,
// only logged, since the abstract ledger (§1(b)) has no real gas model.
func (a *Actuator) estimate(ctx context.Context) chainfee.SatPerKWeight {
	if a.cfg.Fees == nil {
		return a.cfg.FeeCeiling
	}

	base, err := a.cfg.Fees.EstimateFee(ctx, a.cfg.ConfTarget)
	if err != nil {
		return a.cfg.FeeCeiling
	}
	return base * feeBufferNum / feeBufferDen
}

func (a *Actuator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.SubmitTimeout)
}

// OpenEscrow submits saleOpen (§4.6 step 3's openEscrow call).
func (a *Actuator) OpenEscrow(
	ctx context.Context, seller Address, tokenID escrow.TokenID, buyer Address,
	hashH secret.Commitment, expiryTimestamp int64, priceSats uint64,
) (*escrow.Escrow, []escrow.Event, error) {

	_ = a.estimate(ctx)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	type result struct {
		esc  *escrow.Escrow
		evts []escrow.Event
		err  error
	}
	done := make(chan result, 1)
	go func() {
		esc, evts, err := a.cfg.Ledger.SaleOpen(
			escrow.Address(seller), tokenID, escrow.Address(buyer), hashH,
			expiryTimestamp, priceSats,
		)
		done <- result{esc, evts, err}
	}()

	select {
	case <-ctx.Done():
		return nil, nil, ErrActuatorTimeout
	case r := <-done:
		if r.err != nil {
			return nil, nil, &LedgerRejectedError{Reason: r.err}
		}
		return r.esc, r.evts, nil
	}
}

// Claim submits claim(tokenId, S) (§4.6 step 4).
func (a *Actuator) Claim(
	ctx context.Context, buyer Address, tokenID escrow.TokenID, s secret.Secret,
) ([]escrow.Event, Address, error) {

	_ = a.estimate(ctx)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	type result struct {
		evts []escrow.Event
		err  error
	}
	done := make(chan result, 1)
	go func() {
		evts, err := a.cfg.Ledger.Claim(escrow.Address(buyer), tokenID, s)
		done <- result{evts, err}
	}()

	select {
	case <-ctx.Done():
		return nil, "", ErrActuatorTimeout
	case r := <-done:
		if r.err != nil {
			return nil, "", &LedgerRejectedError{Reason: r.err}
		}
		newOwner, err := a.cfg.Ledger.GetOwner(tokenID)
		if err != nil {
			return r.evts, "", ErrParseFailure
		}
		return r.evts, Address(newOwner), nil
	}
}

// Refund submits refund(tokenId) (§4.6 step 5).
func (a *Actuator) Refund(
	ctx context.Context, caller Address, tokenID escrow.TokenID,
) ([]escrow.Event, error) {

	_ = a.estimate(ctx)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	type result struct {
		evts []escrow.Event
		err  error
	}
	done := make(chan result, 1)
	go func() {
		evts, err := a.cfg.Ledger.Refund(escrow.Address(caller), tokenID)
		done <- result{evts, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ErrActuatorTimeout
	case r := <-done:
		if r.err != nil {
			return nil, &LedgerRejectedError{Reason: r.err}
		}
		return r.evts, nil
	}
}

// IsInEscrow is a read-only passthrough; reads never need the timeout/
// retry machinery submissions do.
func (a *Actuator) IsInEscrow(tokenID escrow.TokenID) bool {
	return a.cfg.Ledger.IsInEscrow(tokenID)
}

// GetEscrow is a read-only passthrough.
func (a *Actuator) GetEscrow(tokenID escrow.TokenID) (escrow.Escrow, bool) {
	return a.cfg.Ledger.GetEscrow(tokenID)
}

// GetOwner is a read-only passthrough.
func (a *Actuator) GetOwner(tokenID escrow.TokenID) (Address, error) {
	owner, err := a.cfg.Ledger.GetOwner(tokenID)
	return Address(owner), err
}

// Address mirrors escrow.Address at the actuator boundary so callers
// outside the escrow package don't need to import it just to name a
// party.
type Address = escrow.Address
