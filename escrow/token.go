package escrow

import "fmt"

// Address is an opaque owner/party identifier on the asset ledger. The
// abstract ledger doesn't care what chain-specific key format backs it;
// callers hand over whatever string their runtime uses.
type Address string

// ZeroAddress is the sentinel "no owner" / "no buyer" address.
const ZeroAddress Address = ""

// Metadata is the mutable, owner-controlled part of a token, per spec
// §3.1. Identifiers/Attributes are opaque strings the runtime doesn't
// interpret further.
type Metadata struct {
	Title       string
	Category    string
	Identifiers string
	Attributes  string
	Note        string
	Frozen      bool
}

const (
	maxTitleLen       = 100
	maxNoteLen        = 140
	maxOpaqueFieldLen = 500
)

// Validate enforces the boundary invariants from spec §3.1 and the
// boundary table in §8.
func (m Metadata) Validate() error {
	if l := len(m.Title); l < 1 || l > maxTitleLen {
		return fmt.Errorf("%w: title length %d not in [1,%d]",
			ErrInvalidMetadata, l, maxTitleLen)
	}
	if len(m.Note) > maxNoteLen {
		return fmt.Errorf("%w: note length %d exceeds %d",
			ErrNoteTooLong, len(m.Note), maxNoteLen)
	}
	if len(m.Identifiers) > maxOpaqueFieldLen {
		return fmt.Errorf("%w: identifiers exceed %d bytes",
			ErrInvalidMetadata, maxOpaqueFieldLen)
	}
	if len(m.Attributes) > maxOpaqueFieldLen {
		return fmt.Errorf("%w: attributes exceed %d bytes",
			ErrInvalidMetadata, maxOpaqueFieldLen)
	}
	return nil
}

// TokenID is a unique, never-reused, positive identifier.
type TokenID uint64

// Token is a unique non-fungible asset record, per spec §3.1.
type Token struct {
	ID    TokenID
	Owner Address
	Meta  Metadata
}

// tokenRegistry owns the set of minted tokens and their current owner.
// It is one of the two capability sets design note §9 splits
// AssetHtlcLedger into, replacing the teacher source's OO mixin chain
// (token-standard + ownership) with a single explicit struct.
type tokenRegistry struct {
	tokens map[TokenID]*Token
}

func newTokenRegistry() *tokenRegistry {
	return &tokenRegistry{tokens: make(map[TokenID]*Token)}
}

func (r *tokenRegistry) mint(id TokenID, owner Address, meta Metadata) (*Token, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: token id must be > 0", ErrInvalidMetadata)
	}
	if _, exists := r.tokens[id]; exists {
		return nil, ErrDuplicateTokenID
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	t := &Token{ID: id, Owner: owner, Meta: meta}
	r.tokens[id] = t
	return t, nil
}

func (r *tokenRegistry) get(id TokenID) (*Token, error) {
	t, ok := r.tokens[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return t, nil
}

func (r *tokenRegistry) transfer(id TokenID, to Address) error {
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.Owner = to
	return nil
}
