package escrow_test

import (
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tapswap/htlcswap/escrow"
	"github.com/tapswap/htlcswap/secret"
)

const (
	seller = escrow.Address("seller")
	buyer  = escrow.Address("buyer")
)

func validMeta() escrow.Metadata {
	return escrow.Metadata{Title: "2019 Audi A4", Category: "vehicle"}
}

func TestMintAndTransfer(t *testing.T) {
	l := escrow.New(nil)

	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)

	owner, err := l.GetOwner(1)
	require.NoError(t, err)
	require.Equal(t, seller, owner)

	_, err = l.Transfer(1, buyer)
	require.NoError(t, err)

	owner, err = l.GetOwner(1)
	require.NoError(t, err)
	require.Equal(t, buyer, owner)
}

func TestDuplicateMintRejected(t *testing.T) {
	l := escrow.New(nil)
	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)

	_, _, err = l.Mint(seller, 1, validMeta())
	require.ErrorIs(t, err, escrow.ErrDuplicateTokenID)
}

// TestE1HappyPath mirrors spec §8 scenario E1.
func TestE1HappyPath(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := clock.NewTestClock(now)
	l := escrow.New(c)

	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)

	s, h, err := secret.Generate()
	require.NoError(t, err)

	price := uint64(50_000_000)
	tAsset := now.Add(3 * time.Hour).Unix()

	_, _, err = l.SaleOpen(seller, 1, buyer, h, tAsset, price)
	require.NoError(t, err)
	require.True(t, l.IsInEscrow(1))

	evts, err := l.Claim(buyer, 1, s)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	require.Equal(t, escrow.EventSaleSettle, evts[0].Type)

	owner, err := l.GetOwner(1)
	require.NoError(t, err)
	require.Equal(t, buyer, owner)
	require.False(t, l.IsInEscrow(1))
}

// TestE2RefundViaExpiry mirrors scenario E2.
func TestE2RefundViaExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := clock.NewTestClock(now)
	l := escrow.New(c)

	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)

	_, h, err := secret.Generate()
	require.NoError(t, err)

	tAsset := now.Add(2 * time.Hour).Unix()
	_, _, err = l.SaleOpen(seller, 1, buyer, h, tAsset, 1000)
	require.NoError(t, err)

	c.SetTime(time.Unix(tAsset, 0))

	evts, err := l.Refund(buyer, 1) // anyone may refund once expired
	require.NoError(t, err)
	require.Equal(t, escrow.EventSaleRefund, evts[0].Type)

	owner, err := l.GetOwner(1)
	require.NoError(t, err)
	require.Equal(t, seller, owner)
}

// TestE3EarlySellerRefund mirrors scenario E3.
func TestE3EarlySellerRefund(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := clock.NewTestClock(now)
	l := escrow.New(c)

	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)
	_, h, err := secret.Generate()
	require.NoError(t, err)

	_, _, err = l.SaleOpen(seller, 1, buyer, h, now.Add(2*time.Hour).Unix(), 1000)
	require.NoError(t, err)

	_, err = l.Refund(seller, 1)
	require.NoError(t, err)
	require.False(t, l.IsInEscrow(1))
}

// TestE4WrongSecret mirrors scenario E4.
func TestE4WrongSecret(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := clock.NewTestClock(now)
	l := escrow.New(c)

	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)
	_, h, err := secret.Generate()
	require.NoError(t, err)

	_, _, err = l.SaleOpen(seller, 1, buyer, h, now.Add(2*time.Hour).Unix(), 1000)
	require.NoError(t, err)

	var wrong secret.Secret
	wrong[0] = 0xbb

	_, err = l.Claim(buyer, 1, wrong)
	require.ErrorIs(t, err, escrow.ErrBadSecret)
	require.True(t, l.IsInEscrow(1))
}

// TestE5ClaimAfterExpiry mirrors scenario E5.
func TestE5ClaimAfterExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := clock.NewTestClock(now)
	l := escrow.New(c)

	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)
	s, h, err := secret.Generate()
	require.NoError(t, err)

	tAsset := now.Add(2 * time.Hour).Unix()
	_, _, err = l.SaleOpen(seller, 1, buyer, h, tAsset, 1000)
	require.NoError(t, err)

	c.SetTime(time.Unix(tAsset+1, 0))

	_, err = l.Claim(buyer, 1, s)
	require.ErrorIs(t, err, escrow.ErrExpired)

	_, err = l.Refund(buyer, 1)
	require.NoError(t, err)
}

// TestE6DoubleOpen mirrors scenario E6.
func TestE6DoubleOpen(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := clock.NewTestClock(now)
	l := escrow.New(c)

	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)
	_, h, err := secret.Generate()
	require.NoError(t, err)

	_, _, err = l.SaleOpen(seller, 1, buyer, h, now.Add(2*time.Hour).Unix(), 1000)
	require.NoError(t, err)

	_, _, err = l.SaleOpen(seller, 1, buyer, h, now.Add(2*time.Hour).Unix(), 1000)
	require.ErrorIs(t, err, escrow.ErrInEscrow)
}

func TestClaimThenRefundFails(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := clock.NewTestClock(now)
	l := escrow.New(c)

	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)
	s, h, err := secret.Generate()
	require.NoError(t, err)

	_, _, err = l.SaleOpen(seller, 1, buyer, h, now.Add(2*time.Hour).Unix(), 1000)
	require.NoError(t, err)

	_, err = l.Claim(buyer, 1, s)
	require.NoError(t, err)

	_, err = l.Refund(seller, 1)
	require.ErrorIs(t, err, escrow.ErrNotInEscrow)
}

func TestTransferBlockedWhileInEscrow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := clock.NewTestClock(now)
	l := escrow.New(c)

	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)
	_, h, err := secret.Generate()
	require.NoError(t, err)

	_, _, err = l.SaleOpen(seller, 1, buyer, h, now.Add(2*time.Hour).Unix(), 1000)
	require.NoError(t, err)

	_, err = l.Transfer(1, buyer)
	require.ErrorIs(t, err, escrow.ErrInEscrow)
}

func TestFrozenMetadataBlocksNote(t *testing.T) {
	l := escrow.New(nil)
	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)

	_, err = l.FreezeMetadata(seller, 1)
	require.NoError(t, err)

	_, err = l.SetNote(seller, 1, "hi")
	require.ErrorIs(t, err, escrow.ErrFrozen)

	_, err = l.FreezeMetadata(seller, 1)
	require.ErrorIs(t, err, escrow.ErrAlreadyFrozen)
}

// TestTitleBoundaries checks the §8 boundary table for title length.
func TestTitleBoundaries(t *testing.T) {
	cases := []struct {
		len     int
		wantErr bool
	}{
		{0, true}, {1, false}, {100, false}, {101, true},
	}
	for i, c := range cases {
		l := escrow.New(nil)
		meta := escrow.Metadata{Title: stringOfLen(c.len)}
		_, _, err := l.Mint(seller, escrow.TokenID(i+1), meta)
		if c.wantErr {
			require.Error(t, err)
		} else {
			require.NoError(t, err)
		}
	}
}

// TestNoteBoundaries checks the §8 boundary table for note length.
func TestNoteBoundaries(t *testing.T) {
	cases := []struct {
		len     int
		wantErr bool
	}{
		{0, false}, {140, false}, {141, true},
	}
	for i, c := range cases {
		meta := validMeta()
		meta.Note = stringOfLen(c.len)
		l := escrow.New(nil)
		_, _, err := l.Mint(seller, escrow.TokenID(i+1), meta)
		if c.wantErr {
			require.Error(t, err)
		} else {
			require.NoError(t, err)
		}
	}
}

// TestExpiryBoundaries checks the §8 boundary table for expiry.
func TestExpiryBoundaries(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cases := []struct {
		delta   time.Duration
		wantErr bool
	}{
		{3599 * time.Second, true},
		{3601 * time.Second, false},
		{30 * 24 * time.Hour, false},
		{30*24*time.Hour + time.Second, true},
	}
	for i, c := range cases {
		clk := clock.NewTestClock(now)
		l := escrow.New(clk)
		_, _, err := l.Mint(seller, escrow.TokenID(i+1), validMeta())
		require.NoError(t, err)
		_, h, err := secret.Generate()
		require.NoError(t, err)

		_, _, err = l.SaleOpen(seller, escrow.TokenID(i+1), buyer, h, now.Add(c.delta).Unix(), 1000)
		if c.wantErr {
			require.Error(t, err)
		} else {
			require.NoError(t, err)
		}
	}
}

func TestPriceBoundaries(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clk := clock.NewTestClock(now)
	l := escrow.New(clk)
	_, _, err := l.Mint(seller, 1, validMeta())
	require.NoError(t, err)
	_, h, err := secret.Generate()
	require.NoError(t, err)

	_, _, err = l.SaleOpen(seller, 1, buyer, h, now.Add(2*time.Hour).Unix(), 0)
	require.ErrorIs(t, err, escrow.ErrInvalidPrice)

	_, _, err = l.SaleOpen(seller, 1, buyer, h, now.Add(2*time.Hour).Unix(), 1)
	require.NoError(t, err)
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

// TestAtMostOneActiveEscrowPerToken is the §8 universal invariant
// |{active escrow on t}| <= 1, fuzzed over a sequence of opens mixed
// with claims/refunds.
func TestAtMostOneActiveEscrowPerToken(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := time.Unix(1_700_000_000, 0)
		clk := clock.NewTestClock(now)
		l := escrow.New(clk)

		_, _, err := l.Mint(seller, 1, validMeta())
		require.NoError(t, err)

		opens := rapid.IntRange(1, 5).Draw(t, "opens")
		for i := 0; i < opens; i++ {
			_, h, err := secret.Generate()
			require.NoError(t, err)

			_, _, err = l.SaleOpen(seller, 1, buyer, h, now.Add(2*time.Hour).Unix(), 1000)
			if i == 0 {
				require.NoError(t, err)
			} else {
				// Every subsequent open must fail: at most one
				// active escrow may exist at any instant.
				require.ErrorIs(t, err, escrow.ErrInEscrow)
			}
		}

		require.True(t, l.IsInEscrow(1))
		_, err = l.Refund(seller, 1)
		require.NoError(t, err)
		require.False(t, l.IsInEscrow(1))
	})
}
