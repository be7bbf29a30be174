// Package secret implements the hash/preimage primitives (C1) that bind
// the Bitcoin leg of a swap to the asset leg: a 32-byte secret S and its
// commitment H = SHA-256(S).
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Size is the length in bytes of both the secret and its commitment.
const Size = 32

var (
	// ErrRngFailure is returned when the entropy source cannot supply a
	// full secret.
	ErrRngFailure = errors.New("secret: rng failure")

	// ErrMalformedHex is returned when a hex string is not exactly 64
	// lowercase hex digits after normalization.
	ErrMalformedHex = errors.New("secret: malformed hex")
)

// Secret is a 32-byte preimage.
type Secret [Size]byte

// Commitment is H = SHA-256(S).
type Commitment [Size]byte

// Generate draws a fresh secret from a cryptographically secure RNG and
// returns it along with its SHA-256 commitment as raw byte arrays. It
// does not return hex strings; the lowercase hex form without a "0x"
// prefix comes from Secret.Hex and Commitment.Hex.
func Generate() (Secret, Commitment, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return Secret{}, Commitment{}, fmt.Errorf("%w: %v", ErrRngFailure, err)
	}

	return s, s.Commitment(), nil
}

// Commitment computes H = SHA-256(S) for this secret.
func (s Secret) Commitment() Commitment {
	return sha256.Sum256(s[:])
}

// Hex returns the lowercase hex encoding of the secret.
func (s Secret) Hex() string {
	return hex.EncodeToString(s[:])
}

// Hex returns the lowercase hex encoding of the commitment.
func (c Commitment) Hex() string {
	return hex.EncodeToString(c[:])
}

// Verify reports whether SHA-256(s) equals c, using a constant-time
// comparison so that claim/refund authorization checks don't leak
// timing information about how close a wrong guess was.
func Verify(s Secret, c Commitment) bool {
	got := s.Commitment()
	return subtle.ConstantTimeCompare(got[:], c[:]) == 1
}

// ParseSecret normalizes and decodes a hex-encoded secret. Accepts an
// optional "0x" prefix and any letter case; rejects anything that isn't
// exactly 64 hex digits once normalized.
func ParseSecret(s string) (Secret, error) {
	b, err := parseHex32(s)
	if err != nil {
		return Secret{}, err
	}
	var out Secret
	copy(out[:], b)
	return out, nil
}

// ParseCommitment normalizes and decodes a hex-encoded commitment with
// the same rules as ParseSecret.
func ParseCommitment(s string) (Commitment, error) {
	b, err := parseHex32(s)
	if err != nil {
		return Commitment{}, err
	}
	var out Commitment
	copy(out[:], b)
	return out, nil
}

func parseHex32(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.ToLower(s)

	if len(s) != Size*2 {
		return nil, fmt.Errorf("%w: want %d hex digits, got %d",
			ErrMalformedHex, Size*2, len(s))
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}

	return b, nil
}

// VerifyHex is a convenience wrapper around Verify that accepts and
// normalizes hex-encoded arguments, for callers that hold hex strings
// rather than a Secret and Commitment.
func VerifyHex(secretHex, commitmentHex string) (bool, error) {
	s, err := ParseSecret(secretHex)
	if err != nil {
		return false, err
	}
	c, err := ParseCommitment(commitmentHex)
	if err != nil {
		return false, err
	}
	return Verify(s, c), nil
}
