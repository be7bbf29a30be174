package escrow

// EventType identifies one of the closed set of event schemas the
// ledger can emit (spec §6.1). Design note §9 replaces the source's
// duck-typed log parsing with this closed tagged variant: unrecognized
// schemas simply can't be constructed, and events/normalizer.go (C7)
// exhaustively switches over EventType instead of probing field
// presence.
type EventType string

const (
	EventMinted          EventType = "Minted"
	EventTransfer        EventType = "Transfer"
	EventNoteAdded       EventType = "NoteAdded"
	EventMetadataFrozen  EventType = "MetadataFrozen"
	EventSaleOpen        EventType = "SaleOpen"
	EventSaleSettle      EventType = "SaleSettle"
	EventSaleRefund      EventType = "SaleRefund"
)

// Event is the single closed shape every ledger mutation emits. Only
// the fields relevant to Type are populated; this mirrors how a real
// chain's log entry carries a fixed set of indexed/data fields per
// event signature (§6.1) without requiring one Go type per event.
type Event struct {
	Type    EventType
	TokenID TokenID

	// Minted
	Owner    Address
	Title    string
	Category string

	// Transfer
	From Address
	To   Address

	// NoteAdded
	Note string

	// SaleOpen / SaleSettle / SaleRefund
	Seller          Address
	Buyer           Address
	HashH           string // hex commitment
	PriceSats       uint64
	ExpiryTimestamp int64
	SecretS         string // hex preimage, SaleSettle only
}
