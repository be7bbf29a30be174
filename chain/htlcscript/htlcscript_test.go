package htlcscript_test

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"github.com/tapswap/htlcswap/chain/htlcscript"
	"github.com/tapswap/htlcswap/secret"
)

func TestBuildRedeemScriptRoundTrips(t *testing.T) {
	_, h, err := secret.Generate()
	require.NoError(t, err)

	receiverPKH := make([]byte, 20)
	senderPKH := make([]byte, 20)
	for i := range receiverPKH {
		receiverPKH[i] = byte(i)
	}
	for i := range senderPKH {
		senderPKH[i] = byte(i + 1)
	}

	script, err := htlcscript.BuildRedeemScript(h, receiverPKH, senderPKH, 700_000)
	require.NoError(t, err)
	require.NotEmpty(t, script)

	disasm, err := txscript.DisasmString(script)
	require.NoError(t, err)
	require.Contains(t, disasm, "OP_SHA256")
	require.Contains(t, disasm, "OP_CHECKLOCKTIMEVERIFY")
	require.Contains(t, disasm, "OP_CHECKSIG")
}

func TestBuildRedeemScriptRejectsMalformedPKH(t *testing.T) {
	_, h, err := secret.Generate()
	require.NoError(t, err)

	_, err = htlcscript.BuildRedeemScript(h, []byte{1, 2, 3}, make([]byte, 20), 700_000)
	require.ErrorIs(t, err, htlcscript.ErrMalformedPKH)
}

func TestWitnessScriptHashIsDeterministic(t *testing.T) {
	_, h, err := secret.Generate()
	require.NoError(t, err)

	script, err := htlcscript.BuildRedeemScript(h, make([]byte, 20), make([]byte, 20), 700_000)
	require.NoError(t, err)

	addr1, err := htlcscript.WitnessScriptHash(script, &chaincfg.TestNet3Params)
	require.NoError(t, err)
	addr2, err := htlcscript.WitnessScriptHash(script, &chaincfg.TestNet3Params)
	require.NoError(t, err)

	require.Equal(t, addr1.String(), addr2.String())
}

func TestClaimAndRefundWitnessShapes(t *testing.T) {
	s, _, err := secret.Generate()
	require.NoError(t, err)

	redeem := []byte{0x01, 0x02}
	sig := []byte{0xaa, 0xbb}

	claim := htlcscript.ClaimWitness(sig, s, redeem)
	require.Len(t, claim, 4)
	require.Equal(t, sig, []byte(claim[0]))
	require.Equal(t, s[:], []byte(claim[1]))
	require.Equal(t, []byte{1}, []byte(claim[2]))
	require.Equal(t, redeem, []byte(claim[3]))

	refund := htlcscript.RefundWitness(sig, redeem)
	require.Len(t, refund, 3)
	require.Empty(t, []byte(refund[1]))
}
