package mempool

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/tapswap/htlcswap/secret"
)

// secretWitnessLen is the length, in hex characters, of a 32-byte
// witness element - the only shape the HTLC preimage can take (§4.4).
const secretWitnessLen = 64

// lowerHex is the set of characters §4.4 specifies a witness element's
// hex encoding must use: exactly 64 lowercase hex characters.
const lowerHex = "0123456789abcdef"

// ExtractSecret scans the witness stack of every input of tx looking for
// a 32-byte element whose SHA-256 matches want. It implements the
// "secret extraction" step of the Bitcoin observer (§4.4): the preimage
// is never carried in any dedicated field, only inline in the spending
// transaction's witness.
func ExtractSecret(tx *TransactionResponse, want secret.Commitment) (secret.Secret, bool) {
	for _, in := range tx.Vin {
		for _, elem := range in.Witness {
			if len(elem) != secretWitnessLen || strings.Trim(elem, lowerHex) != "" {
				continue
			}

			raw, err := hex.DecodeString(elem)
			if err != nil || len(raw) != secret.Size {
				continue
			}

			sum := sha256.Sum256(raw)
			if secret.Commitment(sum) != want {
				continue
			}

			var s secret.Secret
			copy(s[:], raw)
			return s, true
		}
	}
	return secret.Secret{}, false
}
