package coordinator

import (
	"time"

	"github.com/tapswap/htlcswap/escrow"
	"github.com/tapswap/htlcswap/secret"
)

// Status is the coordinator-visible lifecycle state of a PendingSwap
// (spec §3.4).
type Status string

const (
	StatusWaitingBTC  Status = "waiting_btc"
	StatusBTCLocked   Status = "btc_locked"
	StatusAssetLocked Status = "asset_locked"
	StatusClaimed     Status = "claimed"
	StatusRefunded    Status = "refunded"
	StatusExpired     Status = "expired"

	// StatusError parks a swap awaiting operator intervention after an
	// Internal-class error (§7); not one of the spec's status-diagram
	// states, but a swap must land somewhere observable rather than
	// vanish.
	StatusError Status = "error"
)

// Terminal reports whether a status is one of the sinks the status
// diagram names: claimed, refunded, expired.
func (s Status) Terminal() bool {
	return s == StatusClaimed || s == StatusRefunded || s == StatusExpired
}

// retentionAfterTerminal is how long a terminal swap stays addressable
// before eviction (§3.3).
const retentionAfterTerminal = 24 * time.Hour

// PendingSwap is the coordinator's record for one swap in flight
// (spec §3.1).
type PendingSwap struct {
	HashH secret.Commitment

	TokenID         escrow.TokenID
	PriceSats       uint64
	SellerBTCAddr   string
	SellerAssetAddr escrow.Address
	BuyerAssetAddr  escrow.Address

	// DeadlineTAsset is T_asset, the buyer-visible asset-leg deadline
	// (unix seconds).
	DeadlineTAsset int64

	// BufferSeconds is the coordinator head-start subtracted from
	// DeadlineTAsset both to compute T_asset_adjusted (§4.6 step 3) and
	// to schedule the deadline timer (§4.6 step 1) - per Open Question 1
	// these are deliberately the same configurable value here, see
	// SPEC_FULL.md.
	BufferSeconds int64

	Status Status

	BTCTxid    string
	RevealTxid string
	SecretS    *secret.Secret

	CreatedAt time.Time
	UpdatedAt time.Time

	// LastError records the most recent failed actuator operation or
	// post-open reorg alert. Only an Internal error also parks the swap
	// in StatusError; otherwise the status is left unchanged.
	LastError error

	// retiredAt is set when Status first becomes terminal; the sweeper
	// evicts once now - retiredAt >= retentionAfterTerminal.
	retiredAt time.Time
}

// RegisterRequest is the input to RegisterSwap (§4.6 step 1 / §6.4
// registerSwap).
type RegisterRequest struct {
	HashH           secret.Commitment
	TokenID         escrow.TokenID
	PriceSats       uint64
	SellerBTCAddr   string
	SellerAssetAddr escrow.Address
	BuyerAssetAddr  escrow.Address
	DeadlineTAsset  int64
	BufferSeconds   int64 // 0 selects the coordinator's configured default
}

// Stats is the §6.4 admin stats snapshot.
type Stats struct {
	Total       int
	WaitingBTC  int
	BTCLocked   int
	AssetLocked int
	Claimed     int
	Refunded    int
	Expired     int
	Errored     int
}
