// Package events implements the canonical event normalizer (C7): it
// folds raw asset-ledger logs into an ordered, deduplicated stream of
// records and the projections (current owner, current status) the
// coordinator and any downstream indexer read from.
package events

import (
	"sort"
	"sync"

	"github.com/tapswap/htlcswap/escrow"
)

// RawLog is one log entry as the asset ledger emits it: the closed
// escrow.Event payload plus the chain-position metadata a real ledger
// attaches to every log (txid, block, position within the block).
// escrow.Ledger itself never assigns these - callers (service's
// normalizerSink adapter) stamp them as they observe the ledger's event
// stream.
type RawLog struct {
	Event       escrow.Event
	Txid        string
	BlockNumber uint64
	LogIndex    uint32
	Timestamp   int64
}

// Record is the canonical, ordered projection of a RawLog.
type Record struct {
	Type        escrow.EventType
	TokenID     escrow.TokenID
	Txid        string
	BlockNumber uint64
	LogIndex    uint32
	Timestamp   int64

	Owner    escrow.Address
	Title    string
	Category string

	From escrow.Address
	To   escrow.Address

	Note string

	Seller          escrow.Address
	Buyer           escrow.Address
	HashH           string
	PriceSats       uint64
	ExpiryTimestamp int64
	SecretS         string
}

// TokenProjection is the running state a token's folded events imply.
type TokenProjection struct {
	Owner    escrow.Address
	InEscrow bool
	Frozen   bool
}

// Normalizer folds a stream of RawLog into ordered Records and
// maintains the current-owner/current-status projection per token
// (§4.7). Safe for concurrent Ingest/Records/Projection calls.
type Normalizer struct {
	mu sync.Mutex

	records []Record
	dirty   bool

	projections map[escrow.TokenID]*TokenProjection

	dropped int
}

// New constructs an empty Normalizer.
func New() *Normalizer {
	return &Normalizer{
		projections: make(map[escrow.TokenID]*TokenProjection),
	}
}

// Ingest folds one batch of raw logs. Unknown event types are dropped
// and counted rather than rejected outright, mirroring spec §9's
// "unrecognized schemas are dropped with a counter" redesign.
func (n *Normalizer) Ingest(logs []RawLog) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, l := range logs {
		if l.Event.Type == escrow.EventType("Transfer") && l.Event.From == escrow.ZeroAddress {
			// Redundant with the Minted event for the same token (§4.7).
			continue
		}

		if !knownEventType(l.Event.Type) {
			n.dropped++
			continue
		}

		n.records = append(n.records, toRecord(l))
		n.fold(l.Event)
	}
	n.dirty = true
}

func knownEventType(t escrow.EventType) bool {
	switch t {
	case escrow.EventMinted, escrow.EventTransfer, escrow.EventNoteAdded,
		escrow.EventMetadataFrozen, escrow.EventSaleOpen, escrow.EventSaleSettle,
		escrow.EventSaleRefund:
		return true
	default:
		return false
	}
}

func toRecord(l RawLog) Record {
	e := l.Event
	return Record{
		Type:            e.Type,
		TokenID:         e.TokenID,
		Txid:            l.Txid,
		BlockNumber:     l.BlockNumber,
		LogIndex:        l.LogIndex,
		Timestamp:       l.Timestamp,
		Owner:           e.Owner,
		Title:           e.Title,
		Category:        e.Category,
		From:            e.From,
		To:              e.To,
		Note:            e.Note,
		Seller:          e.Seller,
		Buyer:           e.Buyer,
		HashH:           e.HashH,
		PriceSats:       e.PriceSats,
		ExpiryTimestamp: e.ExpiryTimestamp,
		SecretS:         e.SecretS,
	}
}

// fold updates the token projection, walking the owner/status
// transitions §4.7 names: mint assigns the minter, transfer moves
// ownership, sale_settle moves ownership to the buyer, sale_open/
// sale_refund toggle the escrow flag, metadata_frozen flips Frozen.
func (n *Normalizer) fold(e escrow.Event) {
	p, ok := n.projections[e.TokenID]
	if !ok {
		p = &TokenProjection{}
		n.projections[e.TokenID] = p
	}

	switch e.Type {
	case escrow.EventMinted:
		p.Owner = e.Owner
	case escrow.EventTransfer:
		p.Owner = e.To
	case escrow.EventMetadataFrozen:
		p.Frozen = true
	case escrow.EventSaleOpen:
		p.InEscrow = true
	case escrow.EventSaleSettle:
		p.Owner = e.Buyer
		p.InEscrow = false
	case escrow.EventSaleRefund:
		p.InEscrow = false
	}
}

// Records returns every ingested record sorted by (blockNumber,
// logIndex), the block-time order authoritative over wall-clock
// arrival (§4.7).
func (n *Normalizer) Records() []Record {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.dirty {
		sort.SliceStable(n.records, func(i, j int) bool {
			a, b := n.records[i], n.records[j]
			if a.BlockNumber != b.BlockNumber {
				return a.BlockNumber < b.BlockNumber
			}
			return a.LogIndex < b.LogIndex
		})
		n.dirty = false
	}

	out := make([]Record, len(n.records))
	copy(out, n.records)
	return out
}

// Projection returns the current owner/escrow/frozen state for a
// token as folded from its event history so far.
func (n *Normalizer) Projection(tokenID escrow.TokenID) (TokenProjection, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p, ok := n.projections[tokenID]
	if !ok {
		return TokenProjection{}, false
	}
	return *p, true
}

// Dropped reports how many logs were discarded for carrying an
// unrecognized event schema.
func (n *Normalizer) Dropped() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}
