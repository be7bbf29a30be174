package signer_test

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/tapswap/htlcswap/signer"
)

func newTestSigner(t *testing.T) *signer.Signer {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}

	s, err := signer.New(&signer.Config{
		NetParams:  &chaincfg.TestNet3Params,
		Seed:       seed,
		IndexStore: signer.NewMemoryIndexStore(),
	})
	require.NoError(t, err)
	return s
}

func TestNextKeyAdvancesIndex(t *testing.T) {
	s := newTestSigner(t)

	k1, err := s.NextKey()
	require.NoError(t, err)
	k2, err := s.NextKey()
	require.NoError(t, err)

	require.False(t, k1.PubKey().IsEqual(k2.PubKey()))
}

func TestSignProducesValidDER(t *testing.T) {
	s := newTestSigner(t)
	priv, err := s.NextKey()
	require.NoError(t, err)

	hash := sha256.Sum256([]byte("htlc sighash"))
	sig, err := s.Sign(priv, hash[:])
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	sigHashByte := sig[len(sig)-1]
	require.Equal(t, byte(0x01), sigHashByte)
}

func TestPubKeyHash160Length(t *testing.T) {
	s := newTestSigner(t)
	priv, err := s.NextKey()
	require.NoError(t, err)

	pkh := signer.PubKeyHash160(priv)
	require.Len(t, pkh, 20)
}
