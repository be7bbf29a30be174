// Package escrow implements the asset HTLC module (C3): the abstract
// per-token escrow state machine from spec §4.3. It models what must
// hold, not how any particular smart-contract runtime enforces it
// (§1(b), §9) - there is deliberately no EVM/Cosmos/UTXO dependency
// here.
package escrow

import (
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/tapswap/htlcswap/secret"
)

const (
	minExpiryFromNow = time.Hour
	maxExpiryFromNow = 30 * 24 * time.Hour
)

// Escrow is the per-token lock record from spec §3.1.
type Escrow struct {
	Seller          Address
	Buyer           Address
	HashH           secret.Commitment
	ExpiryTimestamp int64 // unix seconds
	PriceSats       uint64
	Active          bool
}

// escrowSubsystem owns the set of escrows keyed by TokenID. The second
// of the two capability sets design note §9 calls for, replacing the
// source's HTLC-extension mixin.
type escrowSubsystem struct {
	byToken map[TokenID]*Escrow
}

func newEscrowSubsystem() *escrowSubsystem {
	return &escrowSubsystem{byToken: make(map[TokenID]*Escrow)}
}

// Ledger is the single entity design note §9 calls for in place of the
// teacher source's deep OO mixin chain (token-standard + ownership +
// reentrancy-guard + HTLC extension): one struct, two explicit
// capability sets, reentrancy handled as a local precondition on
// claim/refund rather than a cross-cutting base class.
type Ledger struct {
	mu       sync.Mutex // single-writer-per-token (§5): one lock serializes all token mutation
	tokens   *tokenRegistry
	escrows  *escrowSubsystem
	clock    clock.Clock
	nextEvts []Event
}

// New constructs an empty ledger. A nil clock defaults to the real
// wall clock; tests inject clock.NewTestClock for deterministic
// boundary-table checks (§8).
func New(c clock.Clock) *Ledger {
	if c == nil {
		c = clock.NewDefaultClock()
	}
	return &Ledger{
		tokens:  newTokenRegistry(),
		escrows: newEscrowSubsystem(),
		clock:   c,
	}
}

func (l *Ledger) now() int64 {
	return l.clock.Now().Unix()
}

func (l *Ledger) emit(e Event) {
	l.nextEvts = append(l.nextEvts, e)
}

// drainEvents returns and clears events queued by the most recent
// operation. Call sites (the actuator, tests) read it once per op.
func (l *Ledger) drainEvents() []Event {
	evts := l.nextEvts
	l.nextEvts = nil
	return evts
}

// Mint creates a new token owned by caller. Caller authorization is
// "anyone" per spec §4.3 - there is no prior owner to check against.
func (l *Ledger) Mint(caller Address, id TokenID, meta Metadata) (*Token, []Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tok, err := l.tokens.mint(id, caller, meta)
	if err != nil {
		return nil, nil, err
	}

	l.emit(Event{
		Type: EventMinted, TokenID: id, Owner: caller,
		Title: meta.Title, Category: meta.Category,
	})
	if meta.Note != "" {
		l.emit(Event{Type: EventNoteAdded, TokenID: id, Owner: caller, Note: meta.Note})
	}

	return tok, l.drainEvents(), nil
}

// SetNote updates a token's note. Requires current ownership, an
// unfrozen token, and no active escrow.
func (l *Ledger) SetNote(caller Address, id TokenID, note string) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tok, err := l.tokens.get(id)
	if err != nil {
		return nil, err
	}
	if tok.Owner != caller {
		return nil, ErrNotOwner
	}
	if tok.Meta.Frozen {
		return nil, ErrFrozen
	}
	if l.isInEscrowLocked(id) {
		return nil, ErrInEscrow
	}
	if len(note) > maxNoteLen {
		return nil, ErrNoteTooLong
	}

	tok.Meta.Note = note
	l.emit(Event{Type: EventNoteAdded, TokenID: id, Owner: caller, Note: note})
	return l.drainEvents(), nil
}

// FreezeMetadata permanently forbids further metadata mutation.
func (l *Ledger) FreezeMetadata(caller Address, id TokenID) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tok, err := l.tokens.get(id)
	if err != nil {
		return nil, err
	}
	if tok.Owner != caller {
		return nil, ErrNotOwner
	}
	if tok.Meta.Frozen {
		return nil, ErrAlreadyFrozen
	}
	if l.isInEscrowLocked(id) {
		return nil, ErrInEscrow
	}

	tok.Meta.Frozen = true
	l.emit(Event{Type: EventMetadataFrozen, TokenID: id, Owner: caller})
	return l.drainEvents(), nil
}

// Transfer reassigns ownership. Requires no active escrow; approval
// logic is left to the caller (e.g. the coordinator only ever transfers
// on behalf of claim/refund, never on a bare user request).
func (l *Ledger) Transfer(id TokenID, to Address) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isInEscrowLocked(id) {
		return nil, ErrInEscrow
	}

	tok, err := l.tokens.get(id)
	if err != nil {
		return nil, err
	}
	from := tok.Owner

	if err := l.tokens.transfer(id, to); err != nil {
		return nil, err
	}

	if from != ZeroAddress {
		l.emit(Event{Type: EventTransfer, TokenID: id, From: from, To: to})
	}
	return l.drainEvents(), nil
}

// SaleOpen opens an escrow locking tok under (buyer, H, T, price). See
// spec §4.3's precondition table; expiry is validated against the
// ledger's own clock so tests can pin "now" deterministically.
func (l *Ledger) SaleOpen(
	caller Address, id TokenID, buyer Address, hashH secret.Commitment,
	expiryTimestamp int64, priceSats uint64,
) (*Escrow, []Event, error) {

	l.mu.Lock()
	defer l.mu.Unlock()

	tok, err := l.tokens.get(id)
	if err != nil {
		return nil, nil, err
	}
	if tok.Owner != caller {
		return nil, nil, ErrNotOwner
	}
	if l.isInEscrowLocked(id) {
		return nil, nil, ErrInEscrow
	}
	if buyer == ZeroAddress {
		return nil, nil, ErrInvalidBuyer
	}
	if buyer == caller {
		return nil, nil, ErrInvalidBuyer
	}
	var zeroHash secret.Commitment
	if hashH == zeroHash {
		return nil, nil, ErrInvalidHash
	}
	if priceSats == 0 {
		return nil, nil, ErrInvalidPrice
	}

	now := l.now()
	if expiryTimestamp <= now+int64(minExpiryFromNow.Seconds()) {
		return nil, nil, ErrExpiryTooSoon
	}
	if expiryTimestamp > now+int64(maxExpiryFromNow.Seconds()) {
		return nil, nil, ErrExpiryTooFar
	}

	esc := &Escrow{
		Seller:          caller,
		Buyer:           buyer,
		HashH:           hashH,
		ExpiryTimestamp: expiryTimestamp,
		PriceSats:       priceSats,
		Active:          true,
	}
	l.escrows.byToken[id] = esc

	l.emit(Event{
		Type: EventSaleOpen, TokenID: id, Seller: caller, Buyer: buyer,
		HashH: hashH.Hex(), PriceSats: priceSats, ExpiryTimestamp: expiryTimestamp,
	})

	return esc, l.drainEvents(), nil
}

// Claim settles the escrow to buyer given the correct preimage S.
//
// Reentrancy discipline (spec §4.3): the escrow record is cleared
// *before* the ownership transfer runs, so nothing observing the
// transfer can see a still-active escrow or trigger a second claim -
// preserved here even though Go has no reentrancy hazard of its own,
// because the invariant is part of the abstract contract, not an
// artifact of any one runtime.
func (l *Ledger) Claim(caller Address, id TokenID, s secret.Secret) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	esc, ok := l.escrows.byToken[id]
	if !ok || !esc.Active {
		return nil, ErrNotInEscrow
	}
	if caller != esc.Buyer {
		return nil, ErrNotBuyer
	}
	if l.now() >= esc.ExpiryTimestamp {
		return nil, ErrExpired
	}
	if !secret.Verify(s, esc.HashH) {
		return nil, ErrBadSecret
	}

	seller, buyer, hashH := esc.Seller, esc.Buyer, esc.HashH

	// Clear before transfer.
	delete(l.escrows.byToken, id)
	if err := l.tokens.transfer(id, buyer); err != nil {
		return nil, err
	}

	l.emit(Event{
		Type: EventSaleSettle, TokenID: id, Seller: seller, Buyer: buyer,
		HashH: hashH.Hex(), SecretS: s.Hex(),
	})
	return l.drainEvents(), nil
}

// Refund clears an active escrow back to the seller. Callable by the
// seller at any time, or by anyone once the expiry has passed.
func (l *Ledger) Refund(caller Address, id TokenID) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	esc, ok := l.escrows.byToken[id]
	if !ok || !esc.Active {
		return nil, ErrNotInEscrow
	}

	expired := l.now() >= esc.ExpiryTimestamp
	if caller != esc.Seller && !expired {
		return nil, ErrRefundNotYet
	}

	seller, buyer, hashH := esc.Seller, esc.Buyer, esc.HashH

	// Clear before any ownership side effect, mirroring Claim's
	// discipline even though refund's "effect" is a no-op transfer
	// (owner was never reassigned).
	delete(l.escrows.byToken, id)

	l.emit(Event{
		Type: EventSaleRefund, TokenID: id, Seller: seller, Buyer: buyer,
		HashH: hashH.Hex(),
	})
	return l.drainEvents(), nil
}

// IsInEscrow is the isInEscrow(tokenId) view predicate.
func (l *Ledger) IsInEscrow(id TokenID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isInEscrowLocked(id)
}

func (l *Ledger) isInEscrowLocked(id TokenID) bool {
	esc, ok := l.escrows.byToken[id]
	return ok && esc.Active
}

// CanClaim is the canClaim(tokenId, S) view predicate.
func (l *Ledger) CanClaim(id TokenID, s secret.Secret) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	esc, ok := l.escrows.byToken[id]
	if !ok || !esc.Active {
		return false
	}
	return l.now() < esc.ExpiryTimestamp && secret.Verify(s, esc.HashH)
}

// CanRefund is the canRefund(tokenId) view predicate.
func (l *Ledger) CanRefund(id TokenID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	esc, ok := l.escrows.byToken[id]
	if !ok || !esc.Active {
		return false
	}
	return l.now() >= esc.ExpiryTimestamp
}

// GetEscrow returns a copy of the active escrow for id, if any.
func (l *Ledger) GetEscrow(id TokenID) (Escrow, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	esc, ok := l.escrows.byToken[id]
	if !ok {
		return Escrow{}, false
	}
	return *esc, true
}

// GetOwner returns the current owner of a token.
func (l *Ledger) GetOwner(id TokenID) (Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tok, err := l.tokens.get(id)
	if err != nil {
		return ZeroAddress, err
	}
	return tok.Owner, nil
}
