// Package itest drives the full stack - escrow ledger, actuator,
// coordinator, and swapdb - through the spec's E1, E2, E3 (as an
// operator force-refund) and E6 scenarios, plus a past-deadline
// registration, the way
// the teacher's own itest package drives a real tapd/lnd pair through
// testTrustlessSubmarineSwapPreimage: mint, fund the Bitcoin leg,
// confirm, open the asset escrow, reveal the secret, claim. Unlike the
// teacher's itest, this one needs no chain backend or RPC harness: the
// Bitcoin leg is a fakeObserver publishing the same event types
// chain/mempool.Watcher would, and every other component is real.
package itest

import (
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"

	"github.com/tapswap/htlcswap/actuator"
	"github.com/tapswap/htlcswap/chain/mempool"
	"github.com/tapswap/htlcswap/coordinator"
	"github.com/tapswap/htlcswap/escrow"
	"github.com/tapswap/htlcswap/secret"
	"github.com/tapswap/htlcswap/swapdb"
)

const (
	sellerAddr = escrow.Address("seller")
	buyerAddr  = escrow.Address("buyer")
)

// fakeObserver stands in for chain/mempool.Watcher: a test harness
// publishes the exact event types the real observer would, and the
// coordinator cannot tell the difference.
type fakeObserver struct {
	events chan interface{}
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{events: make(chan interface{}, 64)}
}

func (f *fakeObserver) Events() <-chan interface{} { return f.events }
func (f *fakeObserver) WatchAddress(secret.Commitment, string, int64) {}
func (f *fakeObserver) NoteAssetLocked(secret.Commitment)             {}
func (f *fakeObserver) Forget(secret.Commitment)                      {}

// storeAdapter bridges coordinator.Store to *swapdb.SwapStore: the two
// packages declare independent, identically-shaped record types so
// neither imports the other, and whoever wires them together (here,
// the test harness; in production, service.go) owns this conversion.
type storeAdapter struct {
	s *swapdb.SwapStore
}

func (a storeAdapter) Upsert(r coordinator.StoreRecord) error {
	return a.s.Upsert(swapdb.SwapRecord{
		HashH:           r.HashH,
		TokenID:         r.TokenID,
		PriceSats:       r.PriceSats,
		SellerBTCAddr:   r.SellerBTCAddr,
		SellerAssetAddr: r.SellerAssetAddr,
		BuyerAssetAddr:  r.BuyerAssetAddr,
		DeadlineTAsset:  r.DeadlineTAsset,
		BufferSeconds:   r.BufferSeconds,
		Status:          r.Status,
		BTCTxid:         r.BTCTxid,
		RevealTxid:      r.RevealTxid,
		SecretS:         r.SecretS,
		LastError:       r.LastError,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	})
}

// harness wires the real escrow ledger, actuator, coordinator, and an
// in-memory swapdb store together behind a shared test clock.
type harness struct {
	t      *testing.T
	clock  *clock.TestClock
	ledger *escrow.Ledger
	store  *swapdb.SwapStore
	coord  *coordinator.Coordinator
	obs    *fakeObserver
}

func newHarness(t *testing.T, now time.Time) *harness {
	tc := clock.NewTestClock(now)
	ledger := escrow.New(tc)

	act, err := actuator.New(&actuator.Config{
		Ledger:     ledger,
		FeeCeiling: 1,
	})
	require.NoError(t, err)

	db, err := swapdb.Open(swapdb.Config{DBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := swapdb.NewSwapStore(db)

	obs := newFakeObserver()

	coord, err := coordinator.New(&coordinator.Config{
		Actuator:       act,
		Observer:       obs,
		Clock:          tc,
		Store:          storeAdapter{store},
		AutoClaim:      true,
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		RetryCapDelay:  5 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, coord.Start())
	t.Cleanup(func() { _ = coord.Stop() })

	return &harness{t: t, clock: tc, ledger: ledger, store: store, coord: coord, obs: obs}
}

func (h *harness) mint(tokenID escrow.TokenID) {
	_, _, err := h.ledger.Mint(sellerAddr, tokenID, escrow.Metadata{
		Title: "2019 Audi A4", Category: "vehicle",
	})
	require.NoError(h.t, err)
}

func (h *harness) register(req coordinator.RegisterRequest) {
	require.NoError(h.t, h.coord.RegisterSwap(req))
}

func (h *harness) awaitStatus(hashH secret.Commitment, want coordinator.Status) {
	require.Eventually(h.t, func() bool {
		swap, ok := h.coord.GetSwap(hashH)
		return ok && swap.Status == want
	}, time.Second, time.Millisecond, "swap never reached status %s", want)
}

// TestE1HappyPath mirrors spec §8 scenario E1 end to end: funding seen,
// confirmed, secret revealed, auto-claimed, asset owner updated.
func TestE1HappyPath(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newHarness(t, now)
	h.mint(1)

	s, hashH, err := secret.Generate()
	require.NoError(t, err)

	req := coordinator.RegisterRequest{
		HashH:           hashH,
		TokenID:         1,
		PriceSats:       50_000_000,
		SellerBTCAddr:   "bc1seller",
		SellerAssetAddr: sellerAddr,
		BuyerAssetAddr:  buyerAddr,
		DeadlineTAsset:  now.Add(14400 * time.Second).Unix(),
	}
	h.register(req)
	h.awaitStatus(hashH, coordinator.StatusWaitingBTC)

	h.obs.events <- mempool.FundingSeen{
		HashH: hashH, BTCTxid: "tx1", ActualSats: 50_000_000, WantSats: 50_000_000,
	}
	h.awaitStatus(hashH, coordinator.StatusBTCLocked)

	h.obs.events <- mempool.FundingConfirmed{HashH: hashH, BTCTxid: "tx1"}
	h.awaitStatus(hashH, coordinator.StatusAssetLocked)
	require.True(t, h.ledger.IsInEscrow(1))

	h.obs.events <- mempool.SecretRevealed{HashH: hashH, Secret: s, RevealTxid: "tx2"}
	h.awaitStatus(hashH, coordinator.StatusClaimed)

	owner, err := h.ledger.GetOwner(1)
	require.NoError(t, err)
	require.Equal(t, buyerAddr, owner)
	require.False(t, h.ledger.IsInEscrow(1))

	rec, err := h.store.Get(hashH.Hex())
	require.NoError(t, err)
	require.Equal(t, "claimed", rec.Status)
	require.Equal(t, s.Hex(), rec.SecretS)
}

// TestE2RefundViaExpiry mirrors scenario E2: the seller never reveals
// S, the asset-side deadline passes, and the coordinator refunds on
// its own.
func TestE2RefundViaExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newHarness(t, now)
	h.mint(1)

	_, hashH, err := secret.Generate()
	require.NoError(t, err)

	deadline := now.Add(3 * time.Hour)
	h.register(coordinator.RegisterRequest{
		HashH:           hashH,
		TokenID:         1,
		PriceSats:       50_000_000,
		SellerBTCAddr:   "bc1seller",
		SellerAssetAddr: sellerAddr,
		BuyerAssetAddr:  buyerAddr,
		DeadlineTAsset:  deadline.Unix(),
		BufferSeconds:   int64(time.Hour / time.Second),
	})

	h.obs.events <- mempool.FundingSeen{HashH: hashH, BTCTxid: "tx1", ActualSats: 50_000_000, WantSats: 50_000_000}
	h.awaitStatus(hashH, coordinator.StatusBTCLocked)

	h.obs.events <- mempool.FundingConfirmed{HashH: hashH, BTCTxid: "tx1"}
	h.awaitStatus(hashH, coordinator.StatusAssetLocked)

	// Deadline timer fires at deadline - buffer = now + 2h.
	h.clock.SetTime(now.Add(2 * time.Hour).Add(time.Second))
	h.awaitStatus(hashH, coordinator.StatusRefunded)

	owner, err := h.ledger.GetOwner(1)
	require.NoError(t, err)
	require.Equal(t, sellerAddr, owner)

	rec, err := h.store.Get(hashH.Hex())
	require.NoError(t, err)
	require.Equal(t, "refunded", rec.Status)
}

// TestE6DoubleOpenRecordsLedgerRejection mirrors scenario E6 at the
// coordinator level: a second registration racing against an already
// open escrow on the same token is rejected by the ledger. A State
// error is not parked: the swap stays btc_locked and the rejection is
// recorded in LastError rather than silently vanishing.
func TestE6DoubleOpenRecordsLedgerRejection(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newHarness(t, now)
	h.mint(1)

	_, firstHash, err := secret.Generate()
	require.NoError(t, err)
	_, secondHash, err := secret.Generate()
	require.NoError(t, err)

	deadline := now.Add(14400 * time.Second).Unix()
	h.register(coordinator.RegisterRequest{
		HashH: firstHash, TokenID: 1, PriceSats: 1000,
		SellerBTCAddr: "addr1", SellerAssetAddr: sellerAddr, BuyerAssetAddr: buyerAddr,
		DeadlineTAsset: deadline,
	})
	h.register(coordinator.RegisterRequest{
		HashH: secondHash, TokenID: 1, PriceSats: 1000,
		SellerBTCAddr: "addr2", SellerAssetAddr: sellerAddr, BuyerAssetAddr: buyerAddr,
		DeadlineTAsset: deadline,
	})

	h.obs.events <- mempool.FundingSeen{HashH: firstHash, BTCTxid: "tx1", ActualSats: 1000, WantSats: 1000}
	h.obs.events <- mempool.FundingConfirmed{HashH: firstHash, BTCTxid: "tx1"}
	h.awaitStatus(firstHash, coordinator.StatusAssetLocked)

	h.obs.events <- mempool.FundingSeen{HashH: secondHash, BTCTxid: "tx2", ActualSats: 1000, WantSats: 1000}
	h.obs.events <- mempool.FundingConfirmed{HashH: secondHash, BTCTxid: "tx2"}
	require.Eventually(t, func() bool {
		swap, ok := h.coord.GetSwap(secondHash)
		return ok && swap.LastError != nil
	}, time.Second, time.Millisecond, "open rejection never recorded")

	swap, ok := h.coord.GetSwap(secondHash)
	require.True(t, ok)
	require.Equal(t, coordinator.StatusBTCLocked, swap.Status)
	require.ErrorIs(t, swap.LastError, escrow.ErrInEscrow)
}

// TestForceRefundBeforeDeadline mirrors scenario E3 through the admin
// surface: an operator can refund a stuck asset-locked swap before its
// deadline.
func TestForceRefundBeforeDeadline(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newHarness(t, now)
	h.mint(1)

	_, hashH, err := secret.Generate()
	require.NoError(t, err)

	h.register(coordinator.RegisterRequest{
		HashH: hashH, TokenID: 1, PriceSats: 1000,
		SellerBTCAddr: "addr", SellerAssetAddr: sellerAddr, BuyerAssetAddr: buyerAddr,
		DeadlineTAsset: now.Add(14400 * time.Second).Unix(),
	})

	h.obs.events <- mempool.FundingSeen{HashH: hashH, BTCTxid: "tx1", ActualSats: 1000, WantSats: 1000}
	h.obs.events <- mempool.FundingConfirmed{HashH: hashH, BTCTxid: "tx1"}
	h.awaitStatus(hashH, coordinator.StatusAssetLocked)

	require.NoError(t, h.coord.ForceRefund(hashH))
	h.awaitStatus(hashH, coordinator.StatusRefunded)

	owner, err := h.ledger.GetOwner(1)
	require.NoError(t, err)
	require.Equal(t, sellerAddr, owner)
}

// TestPastAdjustedDeadlineExpiresWithoutEscrow checks that a
// registration, which is accepted, whose T_asset_adjusted
// (DeadlineTAsset - BufferSeconds) already lies in the past never
// results in an escrow being opened: the deadline
// timer fires immediately against that already-past adjusted time, so
// the swap settles to expired on its own regardless of whatever the
// observer reports afterward. Mirrors spec §8 E1's note on this exact
// edge case.
func TestPastAdjustedDeadlineExpiresWithoutEscrow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newHarness(t, now)
	h.mint(1)

	_, hashH, err := secret.Generate()
	require.NoError(t, err)

	req := coordinator.RegisterRequest{
		HashH: hashH, TokenID: 1, PriceSats: 1000,
		SellerBTCAddr: "addr", SellerAssetAddr: sellerAddr, BuyerAssetAddr: buyerAddr,
		DeadlineTAsset: now.Add(time.Hour).Unix(),
		BufferSeconds:  int64(2 * time.Hour / time.Second),
	}
	h.register(req)

	h.obs.events <- mempool.FundingSeen{HashH: hashH, BTCTxid: "tx1", ActualSats: 1000, WantSats: 1000}
	h.obs.events <- mempool.FundingConfirmed{HashH: hashH, BTCTxid: "tx1"}

	h.awaitStatus(hashH, coordinator.StatusExpired)
	require.False(t, h.ledger.IsInEscrow(1))
}
