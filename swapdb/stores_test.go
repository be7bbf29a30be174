package swapdb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tapswap/htlcswap/swapdb"
)

func openTestDB(t *testing.T) *swapdb.SwapStore {
	db, err := swapdb.Open(swapdb.Config{DBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return swapdb.NewSwapStore(db)
}

func TestUpsertThenGetRoundTrips(t *testing.T) {
	store := openTestDB(t)

	rec := swapdb.SwapRecord{
		HashH:           "deadbeef",
		TokenID:         1,
		PriceSats:       50_000_000,
		SellerBTCAddr:   "bc1seller",
		SellerAssetAddr: "seller",
		BuyerAssetAddr:  "buyer",
		DeadlineTAsset:  1_700_010_000,
		BufferSeconds:   7200,
		Status:          "waiting_btc",
		CreatedAt:       1_700_000_000,
		UpdatedAt:       1_700_000_000,
	}
	require.NoError(t, store.Upsert(rec))

	got, err := store.Get("deadbeef")
	require.NoError(t, err)
	require.Equal(t, rec, got)

	rec.Status = "btc_locked"
	rec.BTCTxid = "tx1"
	rec.UpdatedAt = 1_700_000_100
	require.NoError(t, store.Upsert(rec))

	got, err = store.Get("deadbeef")
	require.NoError(t, err)
	require.Equal(t, "btc_locked", got.Status)
	require.Equal(t, "tx1", got.BTCTxid)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := openTestDB(t)
	_, err := store.Get("nope")
	require.ErrorIs(t, err, swapdb.ErrNotFound)
}

func TestListNonTerminalExcludesTerminalStatuses(t *testing.T) {
	store := openTestDB(t)

	for i, status := range []string{"waiting_btc", "claimed", "btc_locked", "refunded"} {
		require.NoError(t, store.Upsert(swapdb.SwapRecord{
			HashH: string(rune('a' + i)), TokenID: uint64(i), Status: status,
			CreatedAt: 1, UpdatedAt: 1,
		}))
	}

	recs, err := store.ListNonTerminal()
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestProcessedTxidMarkAndCheck(t *testing.T) {
	db, err := swapdb.Open(swapdb.Config{DBPath: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	p := swapdb.NewProcessedTxidStore(db)

	ok, err := p.IsProcessed("tx1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, p.MarkProcessed("tx1", 1_700_000_000))

	ok, err = p.IsProcessed("tx1")
	require.NoError(t, err)
	require.True(t, ok)

	// Idempotent.
	require.NoError(t, p.MarkProcessed("tx1", 1_700_000_001))
}
