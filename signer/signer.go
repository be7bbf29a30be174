// Package signer derives and uses the coordinator's own Bitcoin signing
// keypair (spec.md §4.5's "submits the operation with the coordinator's
// signing key"). It is adapted from the teacher's multi-family HD
// keyring down to the single purpose this coordinator actually needs:
// one signing key, not a per-subsystem key-family tree.
package signer

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Purpose/CoinType/Account pin the derivation path m/Purpose'/CoinType'/
// Account'/0/index. There is exactly one account: the coordinator's own
// operational signing key, never a customer-facing wallet.
const (
	Purpose  = 1017
	CoinType = 0
	Account  = 0
)

// Config configures the Signer.
type Config struct {
	// NetParams is the Bitcoin network the signing key is derived for.
	NetParams *chaincfg.Params

	// Seed is the wallet seed COORDINATOR_PRIVATE_KEY is expanded from.
	Seed []byte

	// IndexStore persists the next-unused derivation index across
	// restarts. A nil store keeps the index in memory only.
	IndexStore IndexStore
}

// Signer derives BIP32 keys for the coordinator's own signing identity
// and produces ECDSA signatures for HTLC claim/refund witnesses.
type Signer struct {
	cfg *Config

	masterKey *hdkeychain.ExtendedKey

	index uint32
	mu    sync.Mutex
}

// New constructs a Signer from a seed.
func New(cfg *Config) (*Signer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("signer: config is required")
	}
	if len(cfg.Seed) == 0 {
		return nil, fmt.Errorf("signer: seed is required")
	}
	if cfg.NetParams == nil {
		return nil, fmt.Errorf("signer: network params required")
	}

	masterKey, err := hdkeychain.NewMaster(cfg.Seed, cfg.NetParams)
	if err != nil {
		return nil, fmt.Errorf("signer: failed to create master key: %w", err)
	}

	s := &Signer{cfg: cfg, masterKey: masterKey}

	if cfg.IndexStore != nil {
		idx, err := cfg.IndexStore.GetIndex()
		if err != nil {
			return nil, fmt.Errorf("signer: failed to load index: %w", err)
		}
		s.index = idx
	}

	return s, nil
}

// NextKey derives and returns the next unused signing keypair, advancing
// (and persisting, if a store is configured) the index.
func (s *Signer) NextKey() (*btcec.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.deriveAt(s.index)
	if err != nil {
		return nil, err
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("signer: failed to get private key: %w", err)
	}

	s.index++
	if s.cfg.IndexStore != nil {
		if err := s.cfg.IndexStore.SetIndex(s.index); err != nil {
			return nil, fmt.Errorf("signer: failed to persist index: %w", err)
		}
	}

	return priv, nil
}

// PubKeyHash160 returns HASH160(pubkey), the form the HTLC redeem
// script's receiver/sender branches compare against.
func PubKeyHash160(priv *btcec.PrivateKey) []byte {
	return btcutil.Hash160(priv.PubKey().SerializeCompressed())
}

// Sign produces a low-S DER-encoded ECDSA signature with SIGHASH_ALL
// appended, the form OP_CHECKSIG expects in the claim/refund witness.
func (s *Signer) Sign(priv *btcec.PrivateKey, sigHash []byte) ([]byte, error) {
	if len(sigHash) != sha256.Size {
		return nil, fmt.Errorf("signer: sighash must be %d bytes, got %d", sha256.Size, len(sigHash))
	}

	sig := ecdsa.Sign(priv, sigHash)
	return append(sig.Serialize(), byte(txscript.SigHashAll)), nil
}

func (s *Signer) deriveAt(index uint32) (*hdkeychain.ExtendedKey, error) {
	key := s.masterKey

	path := []uint32{
		hdkeychain.HardenedKeyStart + Purpose,
		hdkeychain.HardenedKeyStart + CoinType,
		hdkeychain.HardenedKeyStart + Account,
		0,
		index,
	}

	for _, p := range path {
		var err error
		key, err = key.Derive(p)
		if err != nil {
			return nil, fmt.Errorf("signer: derivation failed: %w", err)
		}
	}
	return key, nil
}
