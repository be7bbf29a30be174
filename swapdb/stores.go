package swapdb

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("swapdb: not found")

// SwapRecord is the flattened, storage-shaped view of a coordinator
// PendingSwap (§3.1). The coordinator package owns the richer
// in-memory type; this is deliberately just strings/ints so swapdb
// never needs to import coordinator (and coordinator, in turn, only
// needs the narrow Store interface it declares itself).
type SwapRecord struct {
	HashH           string
	TokenID         uint64
	PriceSats       uint64
	SellerBTCAddr   string
	SellerAssetAddr string
	BuyerAssetAddr  string
	DeadlineTAsset  int64
	BufferSeconds   int64
	Status          string
	BTCTxid         string
	RevealTxid      string
	SecretS         string
	LastError       string
	CreatedAt       int64
	UpdatedAt       int64
}

// SwapStore persists PendingSwap rows.
type SwapStore struct {
	db *sql.DB
}

// NewSwapStore wraps an already-migrated database handle.
func NewSwapStore(db *sql.DB) *SwapStore {
	return &SwapStore{db: db}
}

// Upsert writes or replaces a swap row keyed by HashH.
func (s *SwapStore) Upsert(r SwapRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO pending_swaps (
			hash_h, token_id, price_sats, seller_btc_addr, seller_asset_addr,
			buyer_asset_addr, deadline_t_asset, buffer_seconds, status,
			btc_txid, reveal_txid, secret_s, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash_h) DO UPDATE SET
			status = excluded.status,
			btc_txid = excluded.btc_txid,
			reveal_txid = excluded.reveal_txid,
			secret_s = excluded.secret_s,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
	`,
		r.HashH, r.TokenID, r.PriceSats, r.SellerBTCAddr, r.SellerAssetAddr,
		r.BuyerAssetAddr, r.DeadlineTAsset, r.BufferSeconds, r.Status,
		r.BTCTxid, r.RevealTxid, r.SecretS, r.LastError, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return wrap(fmt.Errorf("swapdb: upsert swap: %w", err))
	}
	return nil
}

// Get returns the swap keyed by hashH.
func (s *SwapStore) Get(hashH string) (SwapRecord, error) {
	row := s.db.QueryRow(`
		SELECT hash_h, token_id, price_sats, seller_btc_addr, seller_asset_addr,
		       buyer_asset_addr, deadline_t_asset, buffer_seconds, status,
		       btc_txid, reveal_txid, secret_s, last_error, created_at, updated_at
		FROM pending_swaps WHERE hash_h = ?
	`, hashH)

	var r SwapRecord
	err := row.Scan(
		&r.HashH, &r.TokenID, &r.PriceSats, &r.SellerBTCAddr, &r.SellerAssetAddr,
		&r.BuyerAssetAddr, &r.DeadlineTAsset, &r.BufferSeconds, &r.Status,
		&r.BTCTxid, &r.RevealTxid, &r.SecretS, &r.LastError, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return SwapRecord{}, ErrNotFound
	}
	if err != nil {
		return SwapRecord{}, wrap(fmt.Errorf("swapdb: get swap: %w", err))
	}
	return r, nil
}

// ListNonTerminal returns every swap not yet in a terminal status, the
// set a restarting coordinator needs to rehydrate (§9 init sequence).
func (s *SwapStore) ListNonTerminal() ([]SwapRecord, error) {
	rows, err := s.db.Query(`
		SELECT hash_h, token_id, price_sats, seller_btc_addr, seller_asset_addr,
		       buyer_asset_addr, deadline_t_asset, buffer_seconds, status,
		       btc_txid, reveal_txid, secret_s, last_error, created_at, updated_at
		FROM pending_swaps
		WHERE status NOT IN ('claimed', 'refunded', 'expired')
	`)
	if err != nil {
		return nil, wrap(fmt.Errorf("swapdb: list swaps: %w", err))
	}
	defer rows.Close()

	var out []SwapRecord
	for rows.Next() {
		var r SwapRecord
		if err := rows.Scan(
			&r.HashH, &r.TokenID, &r.PriceSats, &r.SellerBTCAddr, &r.SellerAssetAddr,
			&r.BuyerAssetAddr, &r.DeadlineTAsset, &r.BufferSeconds, &r.Status,
			&r.BTCTxid, &r.RevealTxid, &r.SecretS, &r.LastError, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, wrap(fmt.Errorf("swapdb: scan swap: %w", err))
		}
		out = append(out, r)
	}
	return out, wrap(rows.Err())
}

// DeleteBefore evicts terminal swaps retired before cutoff (§3.3's 24h
// retention sweep, mirrored here so a restart doesn't resurrect rows
// the in-memory sweep already would have dropped).
func (s *SwapStore) DeleteBefore(status string, cutoff int64) error {
	_, err := s.db.Exec(`
		DELETE FROM pending_swaps WHERE status = ? AND updated_at < ?
	`, status, cutoff)
	if err != nil {
		return wrap(fmt.Errorf("swapdb: delete retired: %w", err))
	}
	return nil
}

// ProcessedTxidStore persists the Bitcoin observer's idempotency cache
// (§3.2 "the Bitcoin observer owns ... the set of processed txids").
type ProcessedTxidStore struct {
	db *sql.DB
}

// NewProcessedTxidStore wraps an already-migrated database handle.
func NewProcessedTxidStore(db *sql.DB) *ProcessedTxidStore {
	return &ProcessedTxidStore{db: db}
}

// MarkProcessed records txid as handled. Idempotent.
func (s *ProcessedTxidStore) MarkProcessed(txid string, observedAt int64) error {
	_, err := s.db.Exec(`
		INSERT INTO processed_txids (txid, observed_at) VALUES (?, ?)
		ON CONFLICT(txid) DO NOTHING
	`, txid, observedAt)
	if err != nil {
		return wrap(fmt.Errorf("swapdb: mark processed: %w", err))
	}
	return nil
}

// IsProcessed reports whether txid has already been recorded.
func (s *ProcessedTxidStore) IsProcessed(txid string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM processed_txids WHERE txid = ?`, txid).Scan(&n)
	if err != nil {
		return false, wrap(fmt.Errorf("swapdb: is processed: %w", err))
	}
	return n > 0, nil
}
