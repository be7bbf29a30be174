// Package htlcscript builds the Bitcoin leg of the swap: the BIP-199
// hashed-timelock redeem script (spec.md §6.3) and the witness stacks
// that spend it via the claim or refund path. It is funded as a P2WSH
// output, grounded on the same txscript.NewScriptBuilder idiom the
// teacher's itest harness uses to assemble its own (taproot-flavored)
// HTLC leaf scripts.
package htlcscript

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/tapswap/htlcswap/secret"
)

// ErrMalformedPKH is returned when a public key hash isn't exactly 20
// bytes.
var ErrMalformedPKH = errors.New("htlcscript: public key hash must be 20 bytes")

const pkhLen = 20

// BuildRedeemScript assembles the standard BIP-199 form:
//
//	OP_IF
//	  OP_SHA256 <H> OP_EQUALVERIFY OP_DUP OP_HASH160 <receiverPKH>
//	OP_ELSE
//	  <T_btc> OP_CHECKLOCKTIMEVERIFY OP_DROP OP_DUP OP_HASH160 <senderPKH>
//	OP_ENDIF
//	OP_EQUALVERIFY OP_CHECKSIG
func BuildRedeemScript(
	hashH secret.Commitment, receiverPKH, senderPKH []byte, tBTC int64,
) ([]byte, error) {

	if len(receiverPKH) != pkhLen {
		return nil, fmt.Errorf("%w: receiver has %d bytes", ErrMalformedPKH, len(receiverPKH))
	}
	if len(senderPKH) != pkhLen {
		return nil, fmt.Errorf("%w: sender has %d bytes", ErrMalformedPKH, len(senderPKH))
	}

	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_IF)
	b.AddOp(txscript.OP_SHA256)
	b.AddData(hashH[:])
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(receiverPKH)
	b.AddOp(txscript.OP_ELSE)
	b.AddInt64(tBTC)
	b.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	b.AddOp(txscript.OP_DROP)
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(senderPKH)
	b.AddOp(txscript.OP_ENDIF)
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_CHECKSIG)

	return b.Script()
}

// WitnessScriptHash returns the P2WSH scriptPubKey funding the HTLC.
func WitnessScriptHash(redeemScript []byte, net *chaincfg.Params) (*btcutil.AddressWitnessScriptHash, error) {
	hash := sha256.Sum256(redeemScript)
	return btcutil.NewAddressWitnessScriptHash(hash[:], net)
}

// ClaimWitness builds the witness stack spending the success branch:
// <sig> <S> <1> <redeemScript>.
func ClaimWitness(sig []byte, s secret.Secret, redeemScript []byte) wire.TxWitness {
	return wire.TxWitness{
		sig,
		s[:],
		{1}, // OP_IF branch selector: truthy
		redeemScript,
	}
}

// RefundWitness builds the witness stack spending the timeout branch:
// <sig> <0> <redeemScript>.
func RefundWitness(sig []byte, redeemScript []byte) wire.TxWitness {
	return wire.TxWitness{
		sig,
		{}, // OP_IF branch selector: falsy (empty = OP_0)
		redeemScript,
	}
}

// SigHashForClaim and SigHashForRefund compute the BIP-143 segwit sighash
// for the respective spending path, given the funding output's value.
func SigHashForClaim(
	tx *wire.MsgTx, inputIdx int, redeemScript []byte, fundingValue int64,
) ([]byte, error) {
	return sigHash(tx, inputIdx, redeemScript, fundingValue)
}

func SigHashForRefund(
	tx *wire.MsgTx, inputIdx int, redeemScript []byte, fundingValue int64,
) ([]byte, error) {
	return sigHash(tx, inputIdx, redeemScript, fundingValue)
}

func sigHash(
	tx *wire.MsgTx, inputIdx int, redeemScript []byte, fundingValue int64,
) ([]byte, error) {

	prevFetcher := txscript.NewCannedPrevOutputFetcher(nil, fundingValue)
	sigHashes := txscript.NewTxSigHashes(tx, prevFetcher)
	return txscript.CalcWitnessSigHash(
		redeemScript, sigHashes, txscript.SigHashAll, tx, inputIdx,
		fundingValue,
	)
}

